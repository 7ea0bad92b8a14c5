package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
	"github.com/audiolibrelab/brainconv/internal/table"
	"github.com/spf13/viper"
)

// DefaultProfile names the base settings of a config file.
const DefaultProfile = "default"

// Inheritance status values reported by InheritanceInfo.
const (
	Inherited       = "inherited"
	ProfileSpecific = "profile-specific"
)

type OutputConfig struct {
	Directory     string `mapstructure:"directory" yaml:"directory"` // empty: next to the input files
	Precision     int    `mapstructure:"precision" yaml:"precision"`
	Width         int    `mapstructure:"width" yaml:"width"`
	Delimiter     string `mapstructure:"delimiter" yaml:"delimiter"`
	CommentPrefix string `mapstructure:"comment_prefix" yaml:"comment_prefix"`
	TriggerLabel  string `mapstructure:"trigger_label" yaml:"trigger_label"`
}

type MarkersConfig struct {
	Scan string `mapstructure:"scan" yaml:"scan"` // "sequential" or "all"
}

type DataConfig struct {
	ByteOrder string `mapstructure:"byte_order" yaml:"byte_order"` // "little" or "big"
}

// Config is the resolved configuration used by a conversion.
type Config struct {
	Profile string        `mapstructure:"-" yaml:"profile"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Markers MarkersConfig `mapstructure:"markers" yaml:"markers"`
	Data    DataConfig    `mapstructure:"data" yaml:"data"`

	// Internal field to track inheritance information for config show and info
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

// OutputOverride holds the output settings a profile may override. Nil
// fields are inherited from the base settings.
type OutputOverride struct {
	Directory     *string `mapstructure:"directory,omitempty" yaml:"directory,omitempty"`
	Precision     *int    `mapstructure:"precision,omitempty" yaml:"precision,omitempty"`
	Width         *int    `mapstructure:"width,omitempty" yaml:"width,omitempty"`
	Delimiter     *string `mapstructure:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	CommentPrefix *string `mapstructure:"comment_prefix,omitempty" yaml:"comment_prefix,omitempty"`
	TriggerLabel  *string `mapstructure:"trigger_label,omitempty" yaml:"trigger_label,omitempty"`
}

type ProfileConfig struct {
	Output  OutputOverride `mapstructure:"output" yaml:"output"`
	Markers struct {
		Scan *string `mapstructure:"scan,omitempty" yaml:"scan,omitempty"`
	} `mapstructure:"markers" yaml:"markers"`
	Data struct {
		ByteOrder *string `mapstructure:"byte_order,omitempty" yaml:"byte_order,omitempty"`
	} `mapstructure:"data" yaml:"data"`
}

// RootConfig mirrors the config file layout.
type RootConfig struct {
	ActiveProfile string                    `mapstructure:"active_profile" yaml:"active_profile"`
	Output        OutputConfig              `mapstructure:"output" yaml:"output"`
	Markers       MarkersConfig             `mapstructure:"markers" yaml:"markers"`
	Data          DataConfig                `mapstructure:"data" yaml:"data"`
	Profiles      map[string]*ProfileConfig `mapstructure:"profiles" yaml:"profiles"`
}

// InheritanceInfo records, per setting key (e.g. "output.precision"),
// whether the value came from the base settings or the selected profile.
type InheritanceInfo struct {
	Fields map[string]string
}

// Status returns the inheritance status of key.
func (i *InheritanceInfo) Status(key string) string {
	if i == nil {
		return Inherited
	}
	if s, ok := i.Fields[key]; ok {
		return s
	}
	return Inherited
}

// Keys returns the tracked setting keys in sorted order.
func (i *InheritanceInfo) Keys() []string {
	if i == nil {
		return nil
	}
	keys := make([]string, 0, len(i.Fields))
	for k := range i.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var defaultConfig = Config{
	Profile: DefaultProfile,
	Output: OutputConfig{
		Directory:     "",
		Precision:     5,
		Width:         0,
		Delimiter:     "\t",
		CommentPrefix: "",
		TriggerLabel:  "Trigger",
	},
	Markers: MarkersConfig{Scan: string(brainvision.ScanSequential)},
	Data:    DataConfig{ByteOrder: "little"},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	cfg := defaultConfig
	cfg.Inheritance = newInheritance()
	return &cfg
}

// DefaultConfigPath returns $HOME/.config/brainconv.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "brainconv.yaml")
	}
	return filepath.Join(home, ".config", "brainconv.yaml")
}

// newViper returns a viper instance carrying the built-in defaults and the
// BRAINCONV_* environment overrides.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("active_profile", "")
	v.SetDefault("output.directory", defaultConfig.Output.Directory)
	v.SetDefault("output.precision", defaultConfig.Output.Precision)
	v.SetDefault("output.width", defaultConfig.Output.Width)
	v.SetDefault("output.delimiter", defaultConfig.Output.Delimiter)
	v.SetDefault("output.comment_prefix", defaultConfig.Output.CommentPrefix)
	v.SetDefault("output.trigger_label", defaultConfig.Output.TriggerLabel)
	v.SetDefault("markers.scan", defaultConfig.Markers.Scan)
	v.SetDefault("data.byte_order", defaultConfig.Data.ByteOrder)

	v.SetEnvPrefix("BRAINCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadRoot reads configFile (if not empty) on top of the defaults and
// environment. It does not resolve profiles.
func ReadRoot(configFile string) (*RootConfig, error) {
	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var root RootConfig
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for name, p := range root.Profiles {
		if p == nil {
			return nil, fmt.Errorf("profile '%s' is empty", name)
		}
	}

	return &root, nil
}

// LoadWithProfile loads configFile and resolves the requested profile. An
// empty profile selects active_profile from the file, then "default". An
// empty configFile yields the built-in defaults plus environment overrides.
func LoadWithProfile(configFile, profile string) (*Config, error) {
	root, err := ReadRoot(configFile)
	if err != nil {
		return nil, err
	}

	name := profile
	if name == "" {
		name = root.ActiveProfile
	}
	if name == "" {
		name = DefaultProfile
	}
	// viper keys are case-insensitive and stored lower case
	name = strings.ToLower(name)

	base := &Config{
		Profile: DefaultProfile,
		Output:  root.Output,
		Markers: root.Markers,
		Data:    root.Data,
	}

	var selected *Config
	if name == DefaultProfile {
		if p, ok := root.Profiles[DefaultProfile]; ok {
			selected = mergeProfile(base, p)
		} else {
			selected = mergeProfile(base, &ProfileConfig{})
		}
	} else {
		p, ok := root.Profiles[name]
		if !ok {
			return nil, fmt.Errorf("configuration profile '%s' not found", name)
		}
		selected = mergeProfile(base, p)
	}
	selected.Profile = name

	// Expand tilde in output directory
	selected.Output.Directory = expandPath(selected.Output.Directory)

	if err := selected.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return selected, nil
}

// UpdateActiveProfile updates the active_profile field in the config file.
func UpdateActiveProfile(configFile, newActiveProfile string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	// Create a new viper instance to avoid picking up defaults and env
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	if newActiveProfile != DefaultProfile {
		profiles := v.GetStringMap("profiles")
		if _, ok := profiles[strings.ToLower(newActiveProfile)]; !ok {
			return fmt.Errorf("configuration profile '%s' not found", newActiveProfile)
		}
	}

	v.Set("active_profile", newActiveProfile)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

func newInheritance() *InheritanceInfo {
	info := &InheritanceInfo{Fields: make(map[string]string)}
	for _, key := range []string{
		"output.directory", "output.precision", "output.width", "output.delimiter",
		"output.comment_prefix", "output.trigger_label", "markers.scan", "data.byte_order",
	} {
		info.Fields[key] = Inherited
	}
	return info
}

// mergeProfile implements the "Selection & Fallback" model: every setting
// the profile declares replaces the base value, everything else is
// inherited from the base settings.
func mergeProfile(base *Config, profile *ProfileConfig) *Config {
	result := &Config{
		Profile:     base.Profile,
		Output:      base.Output,
		Markers:     base.Markers,
		Data:        base.Data,
		Inheritance: newInheritance(),
	}

	if profile == nil {
		return result
	}

	set := func(key string) { result.Inheritance.Fields[key] = ProfileSpecific }

	if o := profile.Output; o.Directory != nil {
		result.Output.Directory = *o.Directory
		set("output.directory")
	}
	if o := profile.Output; o.Precision != nil {
		result.Output.Precision = *o.Precision
		set("output.precision")
	}
	if o := profile.Output; o.Width != nil {
		result.Output.Width = *o.Width
		set("output.width")
	}
	if o := profile.Output; o.Delimiter != nil {
		result.Output.Delimiter = *o.Delimiter
		set("output.delimiter")
	}
	if o := profile.Output; o.CommentPrefix != nil {
		result.Output.CommentPrefix = *o.CommentPrefix
		set("output.comment_prefix")
	}
	if o := profile.Output; o.TriggerLabel != nil {
		result.Output.TriggerLabel = *o.TriggerLabel
		set("output.trigger_label")
	}
	if profile.Markers.Scan != nil {
		result.Markers.Scan = *profile.Markers.Scan
		set("markers.scan")
	}
	if profile.Data.ByteOrder != nil {
		result.Data.ByteOrder = *profile.Data.ByteOrder
		set("data.byte_order")
	}

	return result
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Validate checks every setting of a resolved configuration.
func (c *Config) Validate() error {
	if _, err := brainvision.ParseScanMode(c.Markers.Scan); err != nil {
		return fmt.Errorf("markers.scan: %w", err)
	}
	if _, err := brainvision.ParseByteOrder(c.Data.ByteOrder); err != nil {
		return fmt.Errorf("data.byte_order: %w", err)
	}
	if err := c.TableFormat().Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// TableFormat returns the text layout described by the output settings.
func (c *Config) TableFormat() table.Format {
	return table.Format{
		Precision:     c.Output.Precision,
		Width:         c.Output.Width,
		Delimiter:     c.Output.Delimiter,
		CommentPrefix: c.Output.CommentPrefix,
		TriggerLabel:  c.Output.TriggerLabel,
	}
}

// ScanMode returns the marker scan mode. The config must have been validated.
func (c *Config) ScanMode() brainvision.ScanMode {
	mode, _ := brainvision.ParseScanMode(c.Markers.Scan)
	return mode
}

// ByteOrder returns the data byte order. The config must have been validated.
func (c *Config) ByteOrder() binary.ByteOrder {
	order, err := brainvision.ParseByteOrder(c.Data.ByteOrder)
	if err != nil {
		return binary.LittleEndian
	}
	return order
}
