package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
)

func intPtr(v int) *int          { return &v }
func stringPtr(v string) *string { return &v }

func TestMergeProfile_SelectionAndFallback(t *testing.T) {
	base := &Config{
		Profile: DefaultProfile,
		Output: OutputConfig{
			Directory:     "/data/out",
			Precision:     5,
			Width:         0,
			Delimiter:     "\t",
			CommentPrefix: "",
			TriggerLabel:  "Trigger",
		},
		Markers: MarkersConfig{Scan: "sequential"},
		Data:    DataConfig{ByteOrder: "little"},
	}

	profile := &ProfileConfig{
		Output: OutputOverride{
			Width:         intPtr(10),
			CommentPrefix: stringPtr("# "),
		},
	}
	profile.Markers.Scan = stringPtr("all")

	result := mergeProfile(base, profile)

	// Overridden values
	if result.Output.Width != 10 {
		t.Errorf("Expected width 10, got %d", result.Output.Width)
	}
	if result.Output.CommentPrefix != "# " {
		t.Errorf("Expected comment prefix from profile, got %q", result.Output.CommentPrefix)
	}
	if result.Markers.Scan != "all" {
		t.Errorf("Expected scan mode all, got %s", result.Markers.Scan)
	}

	// Inherited values
	if result.Output.Directory != "/data/out" {
		t.Errorf("Expected inherited directory, got %s", result.Output.Directory)
	}
	if result.Output.Precision != 5 {
		t.Errorf("Expected inherited precision 5, got %d", result.Output.Precision)
	}
	if result.Data.ByteOrder != "little" {
		t.Errorf("Expected inherited byte order, got %s", result.Data.ByteOrder)
	}

	// The base config must not be modified
	if base.Output.Width != 0 || base.Markers.Scan != "sequential" {
		t.Errorf("Base config was modified: %+v", base)
	}
}

func TestMergeProfile_InheritanceTracking(t *testing.T) {
	base := Default()
	profile := &ProfileConfig{Output: OutputOverride{Precision: intPtr(3)}}
	profile.Data.ByteOrder = stringPtr("big")

	result := mergeProfile(base, profile)

	expected := map[string]string{
		"output.directory":      Inherited,
		"output.precision":      ProfileSpecific,
		"output.width":          Inherited,
		"output.delimiter":      Inherited,
		"output.comment_prefix": Inherited,
		"output.trigger_label":  Inherited,
		"markers.scan":          Inherited,
		"data.byte_order":       ProfileSpecific,
	}
	for key, want := range expected {
		if got := result.Inheritance.Status(key); got != want {
			t.Errorf("%s: expected %s, got %s", key, want, got)
		}
	}

	if keys := result.Inheritance.Keys(); len(keys) != len(expected) {
		t.Errorf("Expected %d tracked keys, got %d", len(expected), len(keys))
	}
}

func TestMergeProfile_NilProfile(t *testing.T) {
	result := mergeProfile(Default(), nil)
	if result.Output != defaultConfig.Output {
		t.Errorf("Expected default output config, got %+v", result.Output)
	}
	if result.Inheritance.Status("output.precision") != Inherited {
		t.Errorf("Expected every setting to be inherited")
	}
}

func TestInheritanceInfo_NilSafe(t *testing.T) {
	var info *InheritanceInfo
	if info.Status("output.width") != Inherited {
		t.Errorf("Expected nil info to report inherited")
	}
	if info.Keys() != nil {
		t.Errorf("Expected nil keys for nil info")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Profile != DefaultProfile {
		t.Errorf("Expected profile %s, got %s", DefaultProfile, cfg.Profile)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.ScanMode() != brainvision.ScanSequential {
		t.Errorf("Expected sequential scan, got %s", cfg.ScanMode())
	}
	if cfg.ByteOrder() != binary.LittleEndian {
		t.Errorf("Expected little endian byte order")
	}

	f := cfg.TableFormat()
	if f.Precision != 5 || f.Width != 0 || f.Delimiter != "\t" || f.CommentPrefix != "" || f.TriggerLabel != "Trigger" {
		t.Errorf("Unexpected default table format: %+v", f)
	}

	// Default returns a copy
	cfg.Output.Precision = 2
	if Default().Output.Precision != 5 {
		t.Errorf("Default config was modified through a returned copy")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/eeg/out"); got != filepath.Join(home, "eeg", "out") {
		t.Errorf("Expected path under home, got %s", got)
	}
	if got := expandPath("/abs/out"); got != "/abs/out" {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("Expected empty path unchanged, got %s", got)
	}
}
