package brainvision

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// File extensions of a BrainVision recording session.
const (
	HeaderExt = ".vhdr"
	MarkerExt = ".vmrk"
	DataExt   = ".eeg"
	OutputExt = ".txt"
)

// Session identifies a recording by its base path, i.e. the path shared by
// its .vhdr, .vmrk and .eeg files without the extension.
type Session struct {
	Base  string
	Upper bool // Files use upper-case extensions (.VHDR, .VMRK, .EEG, .TXT)
}

// NewSession builds a Session from a user supplied identifier. A trailing
// session file extension is accepted and stripped, so "rec01" and
// "rec01.vhdr" name the same session. An all upper-case extension such as
// "REC01.VHDR" selects upper-case extensions for every file of the session.
func NewSession(id string) Session {
	ext := filepath.Ext(id)
	for _, known := range []string{HeaderExt, MarkerExt, DataExt} {
		if strings.EqualFold(ext, known) {
			return Session{
				Base:  strings.TrimSuffix(id, ext),
				Upper: ext == strings.ToUpper(known),
			}
		}
	}
	return Session{Base: id}
}

// IsHeaderFile reports whether name carries a header extension a Session
// can resolve back to its files.
func IsHeaderFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == HeaderExt || ext == strings.ToUpper(HeaderExt)
}

func (s Session) ext(e string) string {
	if s.Upper {
		return strings.ToUpper(e)
	}
	return e
}

// Name returns the session name without its directory.
func (s Session) Name() string { return filepath.Base(s.Base) }

func (s Session) HeaderPath() string { return s.Base + s.ext(HeaderExt) }
func (s Session) MarkerPath() string { return s.Base + s.ext(MarkerExt) }
func (s Session) DataPath() string   { return s.Base + s.ext(DataExt) }

// OutputPath returns the text table path. With an empty dir the table is
// written next to the input files.
func (s Session) OutputPath(dir string) string {
	if dir == "" {
		return s.Base + s.ext(OutputExt)
	}
	return filepath.Join(dir, s.Name()+s.ext(OutputExt))
}

// ReadHeader opens and parses the session header.
func (s Session) ReadHeader() (*Header, error) {
	path := s.HeaderPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening header: %w", err)
	}
	defer f.Close()

	hdr, err := ParseHeader(f)
	if err != nil {
		return nil, withFile(err, path)
	}
	return hdr, nil
}

// ReadMarkers opens and parses the session marker file.
func (s Session) ReadMarkers(mode ScanMode) (*MarkerSet, error) {
	path := s.MarkerPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening markers: %w", err)
	}
	defer f.Close()

	set, err := ParseMarkers(f, mode)
	if err != nil {
		return nil, withFile(err, path)
	}
	return set, nil
}

// ReadSamples opens and decodes the session data file using the layout
// declared in hdr.
func (s Session) ReadSamples(ctx context.Context, hdr *Header, order binary.ByteOrder) (*mat.Dense, error) {
	path := s.DataPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening data: %w", err)
	}
	defer f.Close()

	opts := DecodeOptions{
		Channels:  hdr.NumberOfChannels,
		Format:    hdr.BinaryFormat,
		ByteOrder: order,
	}
	if hdr.BinaryFormat == FormatInt16 {
		opts.Resolutions = hdr.Resolutions()
	}
	if fi, err := f.Stat(); err == nil {
		opts.SizeHint = fi.Size()
	}

	samples, err := DecodeSamples(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
