package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func writeTestSession(t *testing.T, dir string) string {
	t.Helper()

	base := filepath.Join(dir, "rec01")
	header := "NumberOfChannels=2\nSamplingInterval=2\nCh1=Fp1,,0.1,µV\nCh2=Fp2,,0.1,µV\n"
	markers := "Mk1=New Segment,,1\nMk2=Stimulus,S  7,1,1,0\n"
	require.NoError(t, os.WriteFile(base+".vhdr", []byte(header), 0o644))
	require.NoError(t, os.WriteFile(base+".vmrk", []byte(markers), 0o644))

	var data bytes.Buffer
	require.NoError(t, brainvision.EncodeSamples(&data, mat.NewDense(2, 2, []float64{1, 2, 3, 4}), nil))
	require.NoError(t, os.WriteFile(base+".eeg", data.Bytes(), 0o644))

	return base
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	// persistent flag variables outlive a single execution
	cfgFile, profile, verboseLevel = "", "", 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertCommand_Profile(t *testing.T) {
	dir := t.TempDir()
	base := writeTestSession(t, dir)

	configFile := filepath.Join(t.TempDir(), "brainconv.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("profiles:\n  legacy:\n    output:\n      width: 10\n      comment_prefix: \"# \"\n"), 0o644))

	out, err := execute(t, "convert", "--config", configFile, "--profile", "legacy", "--verify", base)
	require.NoError(t, err)
	assert.Contains(t, out, base+" -> "+base+".txt (2 samples, 2 channels, 1 markers)")
	assert.Contains(t, out, "verified")

	content, err := os.ReadFile(base + ".txt")
	require.NoError(t, err)
	assert.Equal(t, "# Fp1\tFp2\tTrigger\n   1.00000\t   2.00000\t   0.00000\n   3.00000\t   4.00000\t   7.00000\n", string(content))
}

func TestConvertCommand_InvalidOverride(t *testing.T) {
	base := writeTestSession(t, t.TempDir())

	_, err := execute(t, "convert", "--scan", "random", base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid option")
	assert.NoFileExists(t, base+".txt")
}

func TestSessionsCommand(t *testing.T) {
	dir := t.TempDir()
	writeTestSession(t, dir)

	out, err := execute(t, "sessions", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 found)")
	assert.Contains(t, out, "rec01")
	assert.Contains(t, out, "ready")
}

func TestRootCommand_ConvertsSession(t *testing.T) {
	base := writeTestSession(t, t.TempDir())

	out, err := execute(t, base, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, base+" -> "+base+".txt")
	assert.Contains(t, out, "verified")

	content, err := os.ReadFile(base + ".txt")
	require.NoError(t, err)
	assert.Equal(t, "Fp1\tFp2\tTrigger\n1.00000\t2.00000\t0.00000\n3.00000\t4.00000\t7.00000\n", string(content))
}

func TestInfoCommand_JSON(t *testing.T) {
	base := writeTestSession(t, t.TempDir())

	out, err := execute(t, "info", "--format", "json", base)
	require.NoError(t, err)

	var info struct {
		Samples  int `json:"samples"`
		Markers  int `json:"markers"`
		Channels []struct {
			Label string  `json:"label"`
			Mean  float64 `json:"mean"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 2, info.Samples)
	assert.Equal(t, 1, info.Markers)
	require.Len(t, info.Channels, 2)
	assert.Equal(t, "Fp1", info.Channels[0].Label)
	assert.InDelta(t, 2.0, info.Channels[0].Mean, 1e-9)
	assert.NoFileExists(t, base+".txt")
}

func TestInfoCommand_YAML(t *testing.T) {
	base := writeTestSession(t, t.TempDir())

	out, err := execute(t, "info", "--format", "yaml", base)
	require.NoError(t, err)
	assert.Contains(t, out, "binary_format: IEEE_FLOAT_32")
	assert.Contains(t, out, "label: Fp2")
	assert.Contains(t, out, "samples: 2")
}

func TestInfoCommand_UnknownFormat(t *testing.T) {
	base := writeTestSession(t, t.TempDir())

	_, err := execute(t, "info", "--format", "xml", base)
	assert.Error(t, err)
}
