package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/audiolibrelab/brainconv/internal/brainvision"
	"github.com/audiolibrelab/brainconv/internal/config"
	"github.com/audiolibrelab/brainconv/internal/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Service represents the core conversion service interface
type Service interface {
	// Conversion operations
	Convert(ctx context.Context, sessionID string, opts ConvertOptions) (*ConvertResult, error)

	// Information operations
	Inspect(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(dir string) ([]SessionEntry, error)

	// Configuration operations
	GetConfig() *config.Config
}

// ConvertOptions adjusts a single conversion.
type ConvertOptions struct {
	// Verify re-reads the written table and compares it with the collated one.
	Verify bool
}

// ConvertResult summarizes a finished conversion.
type ConvertResult struct {
	Session      string  `json:"session" yaml:"session"`
	OutputFile   string  `json:"output_file" yaml:"output_file"`
	Channels     int     `json:"channels" yaml:"channels"`
	Samples      int     `json:"samples" yaml:"samples"`
	Markers      int     `json:"markers" yaml:"markers"`
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate"`
	Gaps         []int   `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Skipped      []int   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Verified     bool    `json:"verified" yaml:"verified"`
}

// SessionPaths lists the files of a session.
type SessionPaths struct {
	Header  string `json:"header" yaml:"header"`
	Markers string `json:"markers" yaml:"markers"`
	Data    string `json:"data" yaml:"data"`
	Output  string `json:"output" yaml:"output"`
}

// ChannelInfo holds descriptive statistics of one channel.
type ChannelInfo struct {
	Index  int     `json:"index" yaml:"index"`
	Label  string  `json:"label" yaml:"label"`
	Unit   string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// TriggerCount counts events per trigger code.
type TriggerCount struct {
	Code  int `json:"code" yaml:"code"`
	Count int `json:"count" yaml:"count"`
}

// SessionInfo describes a session without converting it.
type SessionInfo struct {
	Session      string         `json:"session" yaml:"session"`
	Paths        SessionPaths   `json:"paths" yaml:"paths"`
	BinaryFormat string         `json:"binary_format" yaml:"binary_format"`
	SamplingRate float64        `json:"sampling_rate" yaml:"sampling_rate"`
	Samples      int            `json:"samples" yaml:"samples"`
	Duration     string         `json:"duration" yaml:"duration"`
	Channels     []ChannelInfo  `json:"channels" yaml:"channels"`
	Markers      int            `json:"markers" yaml:"markers"`
	Triggers     []TriggerCount `json:"triggers" yaml:"triggers"`
	Gaps         []int          `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Skipped      []int          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// SessionEntry is one session found in a directory.
type SessionEntry struct {
	Name      string    `json:"name" yaml:"name"`
	Base      string    `json:"base" yaml:"base"`
	Complete  bool      `json:"complete" yaml:"complete"`   // .vmrk and .eeg exist
	Converted bool      `json:"converted" yaml:"converted"` // output table exists
	DataSize  int64     `json:"data_size" yaml:"data_size"`
	SizeHuman string    `json:"size_human" yaml:"size_human"`
	ModTime   time.Time `json:"mod_time" yaml:"mod_time"`
}

// ConverterService is the main service implementation
type ConverterService struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new conversion service instance
func New(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ConverterService{cfg: cfg, logger: logger}
}

// GetConfig returns the current configuration
func (s *ConverterService) GetConfig() *config.Config {
	return s.cfg
}

// parsed holds the three decoded inputs of a session.
type parsed struct {
	header  *brainvision.Header
	markers *brainvision.MarkerSet
	samples *mat.Dense
}

// parse runs the header, marker and data stages in order.
func (s *ConverterService) parse(ctx context.Context, session brainvision.Session) (*parsed, error) {
	log := s.logger.With("session", session.Base)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Info("Parsing header", "file", session.HeaderPath())
	hdr, err := session.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("parse header failed: %w", err)
	}
	log.Debug("Header parsed",
		"channels", hdr.NumberOfChannels,
		"sampling_rate", hdr.SamplingRate(),
		"binary_format", hdr.BinaryFormat)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Info("Parsing markers", "file", session.MarkerPath())
	markers, err := session.ReadMarkers(s.cfg.ScanMode())
	if err != nil {
		return nil, fmt.Errorf("parse markers failed: %w", err)
	}
	if len(markers.Skipped) > 0 {
		log.Warn("Marker scan stopped at a missing index, later markers were not converted",
			"missing", markers.Gaps[0], "skipped", markers.Skipped)
	} else if len(markers.Gaps) > 0 {
		log.Warn("Marker indices have gaps", "missing", markers.Gaps)
	}
	log.Debug("Markers parsed", "count", markers.Count())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Info("Decoding samples", "file", session.DataPath())
	samples, err := session.ReadSamples(ctx, hdr, s.cfg.ByteOrder())
	if err != nil {
		return nil, fmt.Errorf("decode samples failed: %w", err)
	}

	return &parsed{header: hdr, markers: markers, samples: samples}, nil
}

// Convert converts one session into its text table
func (s *ConverterService) Convert(ctx context.Context, sessionID string, opts ConvertOptions) (*ConvertResult, error) {
	session := brainvision.NewSession(sessionID)
	log := s.logger.With("session", session.Base)

	p, err := s.parse(ctx, session)
	if err != nil {
		return nil, err
	}

	log.Info("Collating")
	tbl, err := table.Collate(p.header.Labels(), p.samples, p.markers.Events)
	if err != nil {
		return nil, fmt.Errorf("collate failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := s.cfg.TableFormat()
	outputFile := session.OutputPath(s.cfg.Output.Directory)
	log.Info("Writing table", "file", outputFile)
	if err := table.WriteFile(outputFile, tbl, format); err != nil {
		return nil, fmt.Errorf("write table failed: %w", err)
	}

	result := &ConvertResult{
		Session:      session.Base,
		OutputFile:   outputFile,
		Channels:     tbl.Channels(),
		Samples:      tbl.Rows(),
		Markers:      p.markers.Count(),
		SamplingRate: p.header.SamplingRate(),
		Gaps:         p.markers.Gaps,
		Skipped:      p.markers.Skipped,
	}

	if opts.Verify {
		if err := verifyTable(outputFile, tbl, format); err != nil {
			return nil, fmt.Errorf("verify failed: %w", err)
		}
		result.Verified = true
		log.Debug("Output verified", "file", outputFile)
	}

	log.Info("Conversion completed", "output", outputFile, "samples", result.Samples, "markers", result.Markers)
	return result, nil
}

// verifyTable re-reads the written table and checks it against want. Values
// must agree to within one unit of the last written decimal.
func verifyTable(path string, want *table.Table, format table.Format) error {
	got, err := table.ReadFile(path, format)
	if err != nil {
		return err
	}

	if strings.Join(got.Labels, "\x00") != strings.Join(want.Labels, "\x00") {
		return fmt.Errorf("labels differ: got %v, want %v", got.Labels, want.Labels)
	}

	gr, gc := got.Data.Dims()
	wr, wc := want.Data.Dims()
	if gr != wr || gc != wc {
		return fmt.Errorf("shape differs: got %dx%d, want %dx%d", gr, gc, wr, wc)
	}

	tol := math.Pow(10, -float64(format.Precision))
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			w := want.Data.At(i, j)
			if !scalar.EqualWithinAbsOrRel(got.Data.At(i, j), w, tol, 1e-9) {
				return fmt.Errorf("value differs at row %d column %d: got %v, want %v", i, j, got.Data.At(i, j), w)
			}
		}
	}

	return nil
}

// Inspect parses a session and summarizes it without writing any output
func (s *ConverterService) Inspect(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session := brainvision.NewSession(sessionID)

	p, err := s.parse(ctx, session)
	if err != nil {
		return nil, err
	}

	rows, _ := p.samples.Dims()
	rate := p.header.SamplingRate()

	info := &SessionInfo{
		Session: session.Base,
		Paths: SessionPaths{
			Header:  session.HeaderPath(),
			Markers: session.MarkerPath(),
			Data:    session.DataPath(),
			Output:  session.OutputPath(s.cfg.Output.Directory),
		},
		BinaryFormat: string(p.header.BinaryFormat),
		SamplingRate: rate,
		Samples:      rows,
		Duration:     time.Duration(float64(rows) / rate * float64(time.Second)).String(),
		Markers:      p.markers.Count(),
		Gaps:         p.markers.Gaps,
		Skipped:      p.markers.Skipped,
	}

	col := make([]float64, rows)
	for j, ch := range p.header.Channels {
		ci := ChannelInfo{Index: j + 1, Label: ch.Label, Unit: ch.Unit}
		// statistics stay zero for a recording without samples
		if rows > 0 {
			mat.Col(col, j, p.samples)
			ci.Mean = stat.Mean(col, nil)
			if rows > 1 {
				ci.StdDev = stat.StdDev(col, nil)
			}
			ci.Min = floats.Min(col)
			ci.Max = floats.Max(col)
		}
		info.Channels = append(info.Channels, ci)
	}

	counts := make(map[int]int)
	for _, ev := range p.markers.Events {
		counts[ev.Code]++
	}
	for code, n := range counts {
		info.Triggers = append(info.Triggers, TriggerCount{Code: code, Count: n})
	}
	sort.Slice(info.Triggers, func(i, j int) bool { return info.Triggers[i].Code < info.Triggers[j].Code })

	return info, nil
}

// ListSessions returns all sessions (.vhdr or .VHDR files) in dir, sorted by name
func (s *ConverterService) ListSessions(dir string) ([]SessionEntry, error) {
	if dir == "" {
		dir = "."
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var sessions []SessionEntry
	for _, file := range files {
		if file.IsDir() || !brainvision.IsHeaderFile(file.Name()) {
			continue
		}

		session := brainvision.NewSession(filepath.Join(dir, file.Name()))
		entry := SessionEntry{
			Name: session.Name(),
			Base: session.Base,
		}

		info, err := file.Info()
		if err != nil {
			s.logger.Warn("Failed to get file info", "file", file.Name(), "error", err)
			continue
		}
		entry.ModTime = info.ModTime()

		dataInfo, dataErr := os.Stat(session.DataPath())
		_, markerErr := os.Stat(session.MarkerPath())
		entry.Complete = dataErr == nil && markerErr == nil
		if dataErr == nil {
			entry.DataSize = dataInfo.Size()
			entry.SizeHuman = formatBytes(dataInfo.Size())
		}
		if _, err := os.Stat(session.OutputPath(s.cfg.Output.Directory)); err == nil {
			entry.Converted = true
		}

		sessions = append(sessions, entry)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })
	return sessions, nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
