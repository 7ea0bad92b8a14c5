package brainvision_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func float32Bytes(order binary.ByteOrder, values ...float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		order.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func TestDecodeSamples(t *testing.T) {
	raw := float32Bytes(binary.LittleEndian, 1, 2, 3, 4, 5, 6)

	samples, err := brainvision.DecodeSamples(context.Background(), bytes.NewReader(raw),
		brainvision.DecodeOptions{Channels: 3})
	require.NoError(t, err)

	rows, cols := samples.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []float64{1, 2, 3}, mat.Row(nil, 0, samples))
	assert.Equal(t, []float64{4, 5, 6}, mat.Row(nil, 1, samples))
}

func TestDecodeSamples_BigEndian(t *testing.T) {
	raw := float32Bytes(binary.BigEndian, -1.5, 0.25)

	samples, err := brainvision.DecodeSamples(context.Background(), bytes.NewReader(raw),
		brainvision.DecodeOptions{Channels: 2, ByteOrder: binary.BigEndian})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.5, 0.25}, mat.Row(nil, 0, samples))
}

func TestDecodeSamples_Int16Resolution(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint16(raw[0:], uint16(10))
	negative := int16(-20)
	binary.LittleEndian.PutUint16(raw[2:], uint16(negative))
	binary.LittleEndian.PutUint16(raw[4:], uint16(4))
	binary.LittleEndian.PutUint16(raw[6:], uint16(0))

	samples, err := brainvision.DecodeSamples(context.Background(), bytes.NewReader(raw),
		brainvision.DecodeOptions{
			Channels:    2,
			Format:      brainvision.FormatInt16,
			Resolutions: []float64{0.5, 0.25},
		})
	require.NoError(t, err)

	assert.Equal(t, []float64{5, -5}, mat.Row(nil, 0, samples))
	assert.Equal(t, []float64{2, 0}, mat.Row(nil, 1, samples))
}

func TestDecodeSamples_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		bytes int64
	}{
		{"partial value", append(float32Bytes(binary.LittleEndian, 1, 2, 3), 0, 0), 14},
		{"partial row", float32Bytes(binary.LittleEndian, 1, 2, 3, 4), 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := brainvision.DecodeSamples(context.Background(), bytes.NewReader(tt.raw),
				brainvision.DecodeOptions{Channels: 3})

			var se *brainvision.ShapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.bytes, se.Bytes)
			assert.Equal(t, 3, se.Channels)
			assert.Equal(t, 4, se.BytesPerValue)
		})
	}
}

func TestDecodeSamples_Empty(t *testing.T) {
	samples, err := brainvision.DecodeSamples(context.Background(), bytes.NewReader(nil),
		brainvision.DecodeOptions{Channels: 2})
	require.NoError(t, err)
	require.NotNil(t, samples)
	assert.True(t, samples.IsEmpty())

	rows, _ := samples.Dims()
	assert.Zero(t, rows)
}

func TestDecodeSamples_InvalidOptions(t *testing.T) {
	raw := float32Bytes(binary.LittleEndian, 1, 2)

	_, err := brainvision.DecodeSamples(context.Background(), bytes.NewReader(raw),
		brainvision.DecodeOptions{Channels: 0})
	assert.Error(t, err)

	_, err = brainvision.DecodeSamples(context.Background(), bytes.NewReader(raw),
		brainvision.DecodeOptions{Channels: 2, Resolutions: []float64{1}})
	assert.Error(t, err)
}

func TestDecodeSamples_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := brainvision.DecodeSamples(ctx, bytes.NewReader(float32Bytes(binary.LittleEndian, 1)),
		brainvision.DecodeOptions{Channels: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeSamples_RoundTrip(t *testing.T) {
	want := mat.NewDense(3, 2, []float64{0.5, -1, 12.25, 3, -7.75, 1024})

	var buf bytes.Buffer
	require.NoError(t, brainvision.EncodeSamples(&buf, want, nil))
	assert.Equal(t, 3*2*4, buf.Len())

	got, err := brainvision.DecodeSamples(context.Background(), &buf,
		brainvision.DecodeOptions{Channels: 2})
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestParseByteOrder(t *testing.T) {
	order, err := brainvision.ParseByteOrder("")
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian, order)

	order, err = brainvision.ParseByteOrder("BIG")
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)

	_, err = brainvision.ParseByteOrder("middle")
	assert.Error(t, err)
}
