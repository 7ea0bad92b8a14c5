package table

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Format controls the delimited text form of a Table.
type Format struct {
	Precision     int    // Digits after the decimal point
	Width         int    // Minimum field width, values are right aligned
	Delimiter     string // Column separator
	CommentPrefix string // Written before the header line
	TriggerLabel  string // Header of the trigger column
}

// DefaultFormat returns the tab separated, five decimal layout.
func DefaultFormat() Format {
	return Format{
		Precision:     5,
		Width:         0,
		Delimiter:     "\t",
		CommentPrefix: "",
		TriggerLabel:  "Trigger",
	}
}

// Validate checks that the format can be written and read back.
func (f Format) Validate() error {
	if f.Precision < 0 {
		return fmt.Errorf("precision must be >= 0, got %d", f.Precision)
	}
	if f.Width < 0 {
		return fmt.Errorf("width must be >= 0, got %d", f.Width)
	}
	if f.Delimiter == "" {
		return fmt.Errorf("delimiter cannot be empty")
	}
	if f.TriggerLabel == "" {
		return fmt.Errorf("trigger label cannot be empty")
	}
	return nil
}

// HeaderLine returns the header line for the given channel labels, without
// a line terminator.
func (f Format) HeaderLine(labels []string) string {
	cols := append(append([]string(nil), labels...), f.TriggerLabel)
	return f.CommentPrefix + strings.Join(cols, f.Delimiter)
}

// appendValue formats v into buf, left padded to Width.
func (f Format) appendValue(buf []byte, v float64) []byte {
	start := len(buf)
	buf = strconv.AppendFloat(buf, v, 'f', f.Precision, 64)
	if pad := f.Width - (len(buf) - start); pad > 0 {
		buf = append(buf, make([]byte, pad)...)
		copy(buf[start+pad:], buf[start:len(buf)-pad])
		for i := start; i < start+pad; i++ {
			buf[i] = ' '
		}
	}
	return buf
}

// Write writes t as delimited text: one header line followed by one line
// per sample row.
func (t *Table) Write(w io.Writer, f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}

	writer := bufio.NewWriter(w)
	if _, err := writer.WriteString(f.HeaderLine(t.Labels) + "\n"); err != nil {
		return err
	}

	rows, cols := t.Rows(), t.Channels()+1
	var line []byte
	for i := 0; i < rows; i++ {
		line = line[:0]
		for j := 0; j < cols; j++ {
			if j > 0 {
				line = append(line, f.Delimiter...)
			}
			line = f.appendValue(line, t.Data.At(i, j))
		}
		line = append(line, '\n')
		if _, err := writer.Write(line); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// WriteFile writes t to path. The table is written to a temporary file in
// the same directory and renamed into place, so a failed write never
// leaves a partial table behind.
func WriteFile(path string, t *Table, f Format) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := t.Write(tmp, f); err != nil {
		return fmt.Errorf("error writing table: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("error syncing table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing table: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error renaming table into place: %w", err)
	}

	return nil
}

// Read parses a table previously written with the same format. A table
// with only a header line has no rows.
func Read(r io.Reader, f Format) (*Table, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		return nil, fmt.Errorf("table is empty")
	}

	header := strings.TrimRight(scanner.Text(), "\r")
	if !strings.HasPrefix(header, f.CommentPrefix) {
		return nil, fmt.Errorf("header line does not start with %q", f.CommentPrefix)
	}
	cols := strings.Split(strings.TrimPrefix(header, f.CommentPrefix), f.Delimiter)
	if len(cols) < 2 || cols[len(cols)-1] != f.TriggerLabel {
		return nil, fmt.Errorf("header line must end with a %q column", f.TriggerLabel)
	}

	var data []float64
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, f.Delimiter)
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", lineNo, len(cols), len(fields))
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: error parsing value: %w", lineNo, err)
			}
			data = append(data, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}

	tbl := &Table{Labels: cols[:len(cols)-1], Data: &mat.Dense{}}
	if len(data) > 0 {
		tbl.Data = mat.NewDense(len(data)/len(cols), len(cols), data)
	}
	return tbl, nil
}

// ReadFile opens and parses a table file.
func ReadFile(path string, f Format) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening table: %w", err)
	}
	defer file.Close()

	return Read(file, f)
}
