package brainvision

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// BinaryFormat is the sample encoding declared in the header.
type BinaryFormat string

const (
	FormatFloat32 BinaryFormat = "IEEE_FLOAT_32"
	FormatInt16   BinaryFormat = "INT_16"
)

// BytesPerValue returns the width of a single encoded sample value.
func (f BinaryFormat) BytesPerValue() int {
	if f == FormatInt16 {
		return 2
	}
	return 4
}

// OrientationMultiplexed is the only supported data orientation: all
// channels of sample 0, then all channels of sample 1, and so on.
const OrientationMultiplexed = "MULTIPLEXED"

// ErrMissingDeclaration is wrapped by ParseError when a required key is absent.
var ErrMissingDeclaration = errors.New("declaration not found")

// labelPattern is the grammar of a channel label: a single word token.
var labelPattern = regexp.MustCompile(`^\w+$`)

// Header holds the metadata of a .vhdr file.
type Header struct {
	DataFile         string       // Declared data file name (informational)
	MarkerFile       string       // Declared marker file name (informational)
	DataOrientation  string       // Always MULTIPLEXED once parsed
	BinaryFormat     BinaryFormat // Sample encoding, IEEE_FLOAT_32 unless declared
	NumberOfChannels int          // Number of interleaved channels
	SamplingInterval int          // Sampling interval in milliseconds
	Channels         []Channel    // Channel descriptions ordered by Ch<i> index
}

// Channel describes one recorded channel.
type Channel struct {
	Label      string  // Channel name, e.g. Fp1
	Reference  string  // Reference channel name, often empty
	Resolution float64 // Scale applied to INT_16 values, 1 if not declared
	Unit       string  // Physical unit, e.g. µV
}

// SamplingRate returns the sampling rate in Hz.
func (h *Header) SamplingRate() float64 {
	return 1 / (float64(h.SamplingInterval) / 1000)
}

// Labels returns the channel labels in column order.
func (h *Header) Labels() []string {
	labels := make([]string, len(h.Channels))
	for i, ch := range h.Channels {
		labels[i] = ch.Label
	}
	return labels
}

// Resolutions returns the per-channel INT_16 scale factors in column order.
func (h *Header) Resolutions() []float64 {
	res := make([]float64, len(h.Channels))
	for i, ch := range h.Channels {
		res[i] = ch.Resolution
	}
	return res
}

// ParseHeader parses the content of a .vhdr header file.
func ParseHeader(r io.Reader) (*Header, error) {
	decls, err := scanDeclarations(r)
	if err != nil {
		return nil, err
	}

	hdr := &Header{
		DataOrientation: OrientationMultiplexed,
		BinaryFormat:    FormatFloat32,
	}

	if decl, ok := decls.lookup("DataFile"); ok {
		hdr.DataFile = strings.TrimSpace(decl.Value)
	}
	if decl, ok := decls.lookup("MarkerFile"); ok {
		hdr.MarkerFile = strings.TrimSpace(decl.Value)
	}

	if decl, ok := decls.lookup("DataOrientation"); ok {
		orientation := strings.ToUpper(strings.TrimSpace(decl.Value))
		if orientation != OrientationMultiplexed {
			return nil, &ParseError{Field: decl.Key, Line: decl.Line,
				Err: fmt.Errorf("unsupported data orientation %q", decl.Value)}
		}
	}

	if decl, ok := decls.lookup("BinaryFormat"); ok {
		switch format := BinaryFormat(strings.ToUpper(strings.TrimSpace(decl.Value))); format {
		case FormatFloat32, FormatInt16:
			hdr.BinaryFormat = format
		default:
			return nil, &ParseError{Field: decl.Key, Line: decl.Line,
				Err: fmt.Errorf("unsupported binary format %q", decl.Value)}
		}
	}

	hdr.NumberOfChannels, err = positiveInt(decls, "NumberOfChannels")
	if err != nil {
		return nil, err
	}

	hdr.SamplingInterval, err = positiveInt(decls, "SamplingInterval")
	if err != nil {
		return nil, err
	}

	// Labels follow index order, not the order the lines appear in. The
	// declared count is untrusted until every Ch<i> has been found.
	for i := 1; i <= hdr.NumberOfChannels; i++ {
		key := fmt.Sprintf("Ch%d", i)
		decl, ok := decls.lookup(key)
		if !ok {
			return nil, &ParseError{Field: key, Err: ErrMissingDeclaration}
		}

		ch, err := parseChannel(decl.Value)
		if err != nil {
			return nil, &ParseError{Field: key, Line: decl.Line, Err: err}
		}
		hdr.Channels = append(hdr.Channels, ch)
	}

	return hdr, nil
}

// parseChannel parses "<label>,<reference>,<resolution>,<unit>". Only the
// label is required.
func parseChannel(value string) (Channel, error) {
	fields := strings.Split(value, ",")

	label := strings.TrimSpace(fields[0])
	if !labelPattern.MatchString(label) {
		return Channel{}, fmt.Errorf("invalid channel label %q", fields[0])
	}

	ch := Channel{Label: label, Resolution: 1}
	if len(fields) > 1 {
		ch.Reference = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		if res := strings.TrimSpace(fields[2]); res != "" {
			f, err := strconv.ParseFloat(res, 64)
			if err != nil {
				return Channel{}, fmt.Errorf("error parsing resolution: %w", err)
			}
			ch.Resolution = f
		}
	}
	if len(fields) > 3 {
		ch.Unit = strings.TrimSpace(fields[3])
	}

	return ch, nil
}

func positiveInt(decls *declarations, key string) (int, error) {
	decl, ok := decls.lookup(key)
	if !ok {
		return 0, &ParseError{Field: key, Err: ErrMissingDeclaration}
	}

	n, err := strconv.Atoi(strings.TrimSpace(decl.Value))
	if err != nil {
		return 0, &ParseError{Field: key, Line: decl.Line, Err: fmt.Errorf("error parsing integer: %w", err)}
	}
	if n <= 0 {
		return 0, &ParseError{Field: key, Line: decl.Line, Err: fmt.Errorf("must be positive, got %d", n)}
	}

	return n, nil
}
