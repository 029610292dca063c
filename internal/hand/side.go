package hand

import "strings"

// Side identifies which hand an observation belongs to after re-labeling.
type Side int

const (
	SideUnknown Side = iota
	SideLeft
	SideRight
	SideBoth
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideBoth:
		return "both"
	default:
		return "unknown"
	}
}

// MarshalText encodes the side as its lowercase name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a side name.
func (s *Side) UnmarshalText(b []byte) error {
	*s = ParseSide(string(b))
	return nil
}

// ParseSide parses "left", "right" or "both" case-insensitively.
func ParseSide(v string) Side {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left":
		return SideLeft
	case "right":
		return SideRight
	case "both":
		return SideBoth
	default:
		return SideUnknown
	}
}

// Mapping converts provider handedness labels into sides.
//
// Providers that run on a mirrored webcam image report the anatomical hand
// swapped. Mirror swaps the labels back; callers that already flip the image
// should leave it off.
type Mapping struct {
	Mirror bool
}

// Resolve returns the side for a provider label. Unrecognized labels
// resolve to SideUnknown.
func (m Mapping) Resolve(label string) Side {
	s := ParseSide(label)
	if !m.Mirror {
		return s
	}
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return s
}
