package brainvision_test

import (
	"context"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	tests := []struct {
		id    string
		base  string
		upper bool
	}{
		{"data/rec01", "data/rec01", false},
		{"data/rec01.vhdr", "data/rec01", false},
		{"data/rec01.VMRK", "data/rec01", true},
		{"REC01.VHDR", "REC01", true},
		{"rec01.Eeg", "rec01", false},
		{"rec.01", "rec.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			s := brainvision.NewSession(tt.id)
			assert.Equal(t, tt.base, s.Base)
			assert.Equal(t, tt.upper, s.Upper)
		})
	}
}

func TestSessionPaths_UpperCase(t *testing.T) {
	s := brainvision.NewSession(filepath.Join("data", "REC01.VHDR"))

	assert.Equal(t, "REC01", s.Name())
	assert.Equal(t, filepath.Join("data", "REC01.VHDR"), s.HeaderPath())
	assert.Equal(t, filepath.Join("data", "REC01.VMRK"), s.MarkerPath())
	assert.Equal(t, filepath.Join("data", "REC01.EEG"), s.DataPath())
	assert.Equal(t, filepath.Join("data", "REC01.TXT"), s.OutputPath(""))
	assert.Equal(t, filepath.Join("out", "REC01.TXT"), s.OutputPath("out"))
}

func TestIsHeaderFile(t *testing.T) {
	assert.True(t, brainvision.IsHeaderFile("rec01.vhdr"))
	assert.True(t, brainvision.IsHeaderFile("REC01.VHDR"))
	assert.False(t, brainvision.IsHeaderFile("rec01.Vhdr"))
	assert.False(t, brainvision.IsHeaderFile("rec01.vmrk"))
	assert.False(t, brainvision.IsHeaderFile("rec01"))
}

func TestSessionPaths(t *testing.T) {
	s := brainvision.NewSession(filepath.Join("data", "rec01"))

	assert.Equal(t, "rec01", s.Name())
	assert.Equal(t, filepath.Join("data", "rec01.vhdr"), s.HeaderPath())
	assert.Equal(t, filepath.Join("data", "rec01.vmrk"), s.MarkerPath())
	assert.Equal(t, filepath.Join("data", "rec01.eeg"), s.DataPath())
	assert.Equal(t, filepath.Join("data", "rec01.txt"), s.OutputPath(""))
	assert.Equal(t, filepath.Join("out", "rec01.txt"), s.OutputPath("out"))
}

func TestSession_MissingFiles(t *testing.T) {
	s := brainvision.NewSession(filepath.Join(t.TempDir(), "absent"))

	_, err := s.ReadHeader()
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = s.ReadMarkers(brainvision.ScanSequential)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = s.ReadSamples(context.Background(), &brainvision.Header{NumberOfChannels: 1}, nil)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSession_ParseErrorCarriesFile(t *testing.T) {
	dir := t.TempDir()
	s := brainvision.NewSession(filepath.Join(dir, "rec01"))
	require.NoError(t, os.WriteFile(s.HeaderPath(), []byte("SamplingInterval=2\n"), 0o644))

	_, err := s.ReadHeader()

	var pe *brainvision.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, s.HeaderPath(), pe.File)
	assert.Equal(t, "NumberOfChannels", pe.Field)
	assert.Contains(t, err.Error(), s.HeaderPath())
}

func TestSession_ReadAll(t *testing.T) {
	dir := t.TempDir()
	s := brainvision.NewSession(filepath.Join(dir, "rec01"))
	require.NoError(t, os.WriteFile(s.HeaderPath(), []byte(testHeader), 0o644))
	require.NoError(t, os.WriteFile(s.MarkerPath(), []byte(testMarkers), 0o644))
	require.NoError(t, os.WriteFile(s.DataPath(), float32Bytes(binary.LittleEndian, 1, 2, 3, 4, 5, 6), 0o644))

	hdr, err := s.ReadHeader()
	require.NoError(t, err)

	set, err := s.ReadMarkers(brainvision.ScanAll)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Count())

	samples, err := s.ReadSamples(context.Background(), hdr, nil)
	require.NoError(t, err)
	rows, cols := samples.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
}
