package brainvision

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ScanMode selects how marker indices are enumerated.
type ScanMode string

const (
	// ScanSequential visits Mk2, Mk3, ... and stops at the first missing index.
	ScanSequential ScanMode = "sequential"
	// ScanAll visits every present index in ascending order.
	ScanAll ScanMode = "all"
)

// ParseScanMode validates a scan mode name. An empty name selects ScanSequential.
func ParseScanMode(s string) (ScanMode, error) {
	switch mode := ScanMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return ScanSequential, nil
	case ScanSequential, ScanAll:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown marker scan mode %q (valid: sequential, all)", s)
	}
}

// firstMarkerIndex is the first converted marker. Mk1 is the recording's
// start ("New Segment") marker and never carries a trigger.
const firstMarkerIndex = 2

var (
	markerKeyPattern = regexp.MustCompile(`^Mk(\d+)$`)
	markerPattern    = regexp.MustCompile(`^(\w+),([\w\s]+),(\d+)(?:,.*)?$`)

	// TriggerDescriptionPattern is the description grammar a trigger marker
	// must follow: word characters and whitespace ending in a single decimal
	// digit. That final digit is the trigger code, so "S  1" yields 1 and
	// "S 12" yields 2.
	TriggerDescriptionPattern = regexp.MustCompile(`^[\w\s]*\d$`)
)

// ErrTriggerDescription is wrapped by ParseError when a marker description
// does not end in a trigger digit.
var ErrTriggerDescription = errors.New("description does not end in a trigger digit")

// Marker is a single Mk<i> declaration.
type Marker struct {
	Index       int    // i in Mk<i>
	Type        string // e.g. Stimulus
	Description string // e.g. "S  1"
	Position    int    // Sample offset into the data matrix
	Line        int    // Line in the marker file
}

// TriggerEvent places a trigger code at a sample offset.
type TriggerEvent struct {
	Code   int
	Offset int
	Marker int // Index of the originating marker
}

// MarkerSet is the result of parsing a .vmrk file.
type MarkerSet struct {
	Markers []Marker       // Converted markers in ascending index order
	Events  []TriggerEvent // One event per converted marker, same order
	Gaps    []int          // Missing indices between Mk2 and the highest present index
	Skipped []int          // Present indices that were not converted
}

// Count returns the number of converted markers.
func (s *MarkerSet) Count() int {
	return len(s.Markers)
}

// ParseMarkers parses the content of a .vmrk marker file.
func ParseMarkers(r io.Reader, mode ScanMode) (*MarkerSet, error) {
	if mode == "" {
		mode = ScanSequential
	}
	if mode != ScanSequential && mode != ScanAll {
		return nil, fmt.Errorf("unknown marker scan mode %q", mode)
	}

	decls, err := scanDeclarations(r)
	if err != nil {
		return nil, err
	}

	present := make(map[int]declaration)
	var indices []int
	for key, decl := range decls.byKey {
		m := markerKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < firstMarkerIndex {
			continue
		}
		present[idx] = decl
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	set := &MarkerSet{}
	if len(indices) > 0 {
		for i := firstMarkerIndex; i < indices[len(indices)-1]; i++ {
			if _, ok := present[i]; !ok {
				set.Gaps = append(set.Gaps, i)
			}
		}
	}

	var visit []int
	switch mode {
	case ScanSequential:
		i := firstMarkerIndex
		for ; ; i++ {
			if _, ok := present[i]; !ok {
				break
			}
			visit = append(visit, i)
		}
		for _, idx := range indices {
			if idx > i {
				set.Skipped = append(set.Skipped, idx)
			}
		}
	case ScanAll:
		visit = indices
	}

	for _, idx := range visit {
		decl := present[idx]
		marker, err := parseMarker(idx, decl)
		if err != nil {
			return nil, err
		}

		set.Markers = append(set.Markers, marker)
		set.Events = append(set.Events, TriggerEvent{
			Code:   int(marker.Description[len(marker.Description)-1] - '0'),
			Offset: marker.Position,
			Marker: marker.Index,
		})
	}

	return set, nil
}

// parseMarker parses "<type>,<description>,<position>[,...]".
func parseMarker(idx int, decl declaration) (Marker, error) {
	value := strings.TrimSpace(decl.Value)

	m := markerPattern.FindStringSubmatch(value)
	if m == nil {
		return Marker{}, &ParseError{Field: decl.Key, Line: decl.Line,
			Err: fmt.Errorf("malformed marker %q", value)}
	}

	if !TriggerDescriptionPattern.MatchString(m[2]) {
		return Marker{}, &ParseError{Field: decl.Key, Line: decl.Line,
			Err: fmt.Errorf("%w: %q", ErrTriggerDescription, m[2])}
	}

	pos, err := strconv.Atoi(m[3])
	if err != nil {
		return Marker{}, &ParseError{Field: decl.Key, Line: decl.Line,
			Err: fmt.Errorf("error parsing position: %w", err)}
	}

	return Marker{
		Index:       idx,
		Type:        m[1],
		Description: m[2],
		Position:    pos,
		Line:        decl.Line,
	}, nil
}
