package brainvision

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// declaration is a single key=value line from a header or marker file.
type declaration struct {
	Section string
	Key     string
	Value   string
	Line    int
}

// declarations is the typed key/value mapping built from one pass over a
// BrainVision text file. When a key appears more than once the first
// occurrence is kept.
type declarations struct {
	byKey map[string]declaration
}

func (d *declarations) lookup(key string) (declaration, bool) {
	decl, ok := d.byKey[key]
	return decl, ok
}

// scanDeclarations tokenizes a BrainVision INI-like file. Comment lines
// start with ';', sections are written as [Name], everything else without
// an '=' (such as the identification line) is ignored.
func scanDeclarations(r io.Reader) (*declarations, error) {
	d := &declarations{byKey: make(map[string]declaration)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	section := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		if _, exists := d.byKey[key]; !exists {
			d.byKey[key] = declaration{Section: section, Key: key, Value: value, Line: lineNo}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading declarations: %w", err)
	}

	return d, nil
}
