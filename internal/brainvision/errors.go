package brainvision

import "fmt"

// ParseError reports a missing or malformed declaration in a header or
// marker file.
type ParseError struct {
	File  string // File being parsed (may be empty when parsing a bare reader)
	Field string // Declaration key, e.g. NumberOfChannels, Ch3 or Mk7
	Line  int    // 1-based line number, 0 if the declaration is missing
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.Field
	if e.Line > 0 {
		loc = fmt.Sprintf("%s (line %d)", e.Field, e.Line)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.File, loc, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError reports a data file whose length is not a whole number of
// sample rows.
type ShapeError struct {
	Bytes         int64
	Channels      int
	BytesPerValue int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("data length %d bytes is not a multiple of %d channels x %d bytes per value",
		e.Bytes, e.Channels, e.BytesPerValue)
}

// OffsetRangeError reports a trigger event positioned outside the sample matrix.
type OffsetRangeError struct {
	Marker  int // Marker index (Mk<n>), 0 when unknown
	Offset  int
	Samples int
}

func (e *OffsetRangeError) Error() string {
	if e.Marker > 0 {
		return fmt.Sprintf("marker Mk%d: sample offset %d out of range [0, %d)", e.Marker, e.Offset, e.Samples)
	}
	return fmt.Sprintf("sample offset %d out of range [0, %d)", e.Offset, e.Samples)
}

// withFile stamps the source file name onto a ParseError.
func withFile(err error, file string) error {
	if pe, ok := err.(*ParseError); ok && pe.File == "" {
		pe.File = file
	}
	return err
}
