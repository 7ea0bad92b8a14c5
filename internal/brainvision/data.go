package brainvision

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// rowsPerCheck is how many sample rows are decoded between context checks.
const rowsPerCheck = 4096

// DecodeOptions describes the layout of a .eeg data file.
type DecodeOptions struct {
	Channels    int              // Number of interleaved channels
	Format      BinaryFormat     // Defaults to IEEE_FLOAT_32
	ByteOrder   binary.ByteOrder // Defaults to little endian
	Resolutions []float64        // INT_16 scale per channel, 1 when nil
	SizeHint    int64            // Expected data length in bytes, 0 if unknown
}

// ParseByteOrder maps "little" or "big" to a binary.ByteOrder. An empty
// name selects little endian.
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q (valid: little, big)", s)
	}
}

// DecodeSamples reads a multiplexed sample stream into a matrix of shape
// (samples, channels). The stream is decoded one row at a time, so the
// only full copy held in memory is the resulting matrix. An empty stream
// holds zero samples and yields an empty matrix (IsEmpty reports true).
func DecodeSamples(ctx context.Context, r io.Reader, opts DecodeOptions) (*mat.Dense, error) {
	if opts.Channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", opts.Channels)
	}
	if opts.Format == "" {
		opts.Format = FormatFloat32
	}
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.LittleEndian
	}
	if opts.Resolutions != nil && len(opts.Resolutions) != opts.Channels {
		return nil, fmt.Errorf("expected %d resolutions, got %d", opts.Channels, len(opts.Resolutions))
	}

	bpv := opts.Format.BytesPerValue()
	rowBytes := opts.Channels * bpv

	var data []float64
	if opts.SizeHint > 0 {
		data = make([]float64, 0, opts.SizeHint/int64(bpv))
	}

	reader := bufio.NewReaderSize(r, 64*1024)
	row := make([]byte, rowBytes)

	var total int64
	for rows := 0; ; rows++ {
		if rows%rowsPerCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		n, err := io.ReadFull(reader, row)
		total += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ShapeError{Bytes: total, Channels: opts.Channels, BytesPerValue: bpv}
		}
		if err != nil {
			return nil, fmt.Errorf("error reading sample data: %w", err)
		}

		for c := 0; c < opts.Channels; c++ {
			b := row[c*bpv : (c+1)*bpv]
			switch opts.Format {
			case FormatInt16:
				v := float64(int16(opts.ByteOrder.Uint16(b)))
				if opts.Resolutions != nil {
					v *= opts.Resolutions[c]
				}
				data = append(data, v)
			default:
				data = append(data, float64(math.Float32frombits(opts.ByteOrder.Uint32(b))))
			}
		}
	}

	// mat.NewDense rejects zero rows; an empty recording is an empty matrix.
	if len(data) == 0 {
		return &mat.Dense{}, nil
	}

	return mat.NewDense(len(data)/opts.Channels, opts.Channels, data), nil
}

// EncodeSamples writes a matrix as a multiplexed IEEE_FLOAT_32 stream. It is
// the inverse of DecodeSamples for float data and is used to build
// recordings in tests and tooling.
func EncodeSamples(w io.Writer, samples mat.Matrix, order binary.ByteOrder) error {
	if order == nil {
		order = binary.LittleEndian
	}

	writer := bufio.NewWriter(w)
	rows, cols := samples.Dims()
	buf := make([]byte, 4)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			order.PutUint32(buf, math.Float32bits(float32(samples.At(i, j))))
			if _, err := writer.Write(buf); err != nil {
				return err
			}
		}
	}

	return writer.Flush()
}
