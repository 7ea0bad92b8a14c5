// Package table builds the output table of a conversion: the decoded sample
// matrix with a trigger column appended, and its delimited text form.
package table

import (
	"fmt"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
	"gonum.org/v1/gonum/mat"
)

// Table is a sample matrix with the trigger column as its last column.
type Table struct {
	Labels []string   // Channel labels, one per sample column
	Data   *mat.Dense // rows x (len(Labels)+1), empty when there are no rows
}

// Collate appends a trigger column to samples. Each event writes its code
// at its offset in parse order, so a later event on the same sample wins.
// An empty samples matrix (a recording with no samples) yields a table with
// no rows; any event is then out of range.
func Collate(labels []string, samples mat.Matrix, events []brainvision.TriggerEvent) (*Table, error) {
	rows, cols := samples.Dims()
	if rows > 0 && len(labels) != cols {
		return nil, fmt.Errorf("expected %d channel labels, got %d", cols, len(labels))
	}

	triggers := make([]float64, rows)
	for _, ev := range events {
		if ev.Offset < 0 || ev.Offset >= rows {
			return nil, &brainvision.OffsetRangeError{Marker: ev.Marker, Offset: ev.Offset, Samples: rows}
		}
		triggers[ev.Offset] = float64(ev.Code)
	}

	data := &mat.Dense{}
	if rows > 0 {
		data.Augment(samples, mat.NewVecDense(rows, triggers))
	}

	return &Table{
		Labels: append([]string(nil), labels...),
		Data:   data,
	}, nil
}

// Rows returns the number of sample rows.
func (t *Table) Rows() int {
	if t.Data == nil {
		return 0
	}
	rows, _ := t.Data.Dims()
	return rows
}

// Channels returns the number of sample columns, excluding the trigger column.
func (t *Table) Channels() int {
	return len(t.Labels)
}

// Samples returns a view of the sample columns.
func (t *Table) Samples() mat.Matrix {
	if t.Rows() == 0 {
		return &mat.Dense{}
	}
	return t.Data.Slice(0, t.Rows(), 0, t.Channels())
}

// Triggers returns a copy of the trigger column.
func (t *Table) Triggers() []float64 {
	if t.Rows() == 0 {
		return []float64{}
	}
	return mat.Col(nil, t.Channels(), t.Data)
}
