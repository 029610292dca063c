// Package features computes per-tick geometric features from one hand's
// landmarks.
package features

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/hand"
)

// ErrMalformed is returned for observations without a full, finite set of
// landmarks. Callers treat such hands as absent.
var ErrMalformed = errors.New("malformed landmark set")

// Height-to-volume remap: clamp01((1 - y - volumeOffset) * volumeGain).
const (
	volumeOffset = 0.2
	volumeGain   = 1.6
)

// Config holds the pinch remap thresholds.
type Config struct {
	// MinPinchDistance is the thumb-index distance reported as a full pinch.
	MinPinchDistance float64 `yaml:"min_pinch_distance"`

	// MaxPinchDistance is the distance at and beyond which strength is 0.
	MaxPinchDistance float64 `yaml:"max_pinch_distance"`
}

// DefaultConfig returns the canonical pinch thresholds.
func DefaultConfig() Config {
	return Config{
		MinPinchDistance: 0.02,
		MaxPinchDistance: 0.10,
	}
}

// Position is a normalized 2-D image position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Features are the derived measurements for one hand on one tick.
type Features struct {
	Side           hand.Side             `json:"side"`
	PinchDistance  float64               `json:"pinch_distance"`
	PinchStrength  float64               `json:"pinch_strength"`
	TwistAngle     float64               `json:"twist"`
	Position       Position              `json:"position"`
	Volume         float64               `json:"volume"`
	FingerExtended [hand.NumFingers]bool `json:"extended"`
	FingerCurled   [hand.NumFingers]bool `json:"curled"`

	// Points is the sanitized landmark set (missing depth zeroed).
	Points [hand.NumLandmarks]hand.Point3D `json:"-"`
}

// Extract computes the features of obs, assigned to side. It never panics on
// degenerate input; observations that cannot be measured return
// ErrMalformed.
func Extract(obs *hand.Observation, side hand.Side, cfg Config) (Features, error) {
	if !obs.Valid() {
		return Features{}, ErrMalformed
	}

	f := Features{Side: side}
	for i, p := range obs.Landmarks {
		f.Points[i] = hand.Point3D{X: p.X, Y: p.Y, Z: p.Depth()}
	}
	pts := &f.Points

	f.PinchDistance = hand.Distance3D(pts[hand.ThumbTip], pts[hand.IndexTip])
	f.PinchStrength = PinchStrength(f.PinchDistance, cfg)

	wrist := pts[hand.Wrist]
	base := pts[hand.IndexMCP]
	angle := math.Atan2(base.Y-wrist.Y, base.X-wrist.X)
	f.TwistAngle = clamp01((angle + math.Pi) / (2 * math.Pi))

	f.Position = Position{X: wrist.X, Y: wrist.Y}
	f.Volume = clamp01((1 - wrist.Y - volumeOffset) * volumeGain)

	for finger := hand.Thumb; finger < hand.NumFingers; finger++ {
		tip, pip := fingerJoints(finger)
		tipDist := hand.Distance2D(pts[tip], wrist)
		pipDist := hand.Distance2D(pts[pip], wrist)
		f.FingerExtended[finger] = tipDist > pipDist
		f.FingerCurled[finger] = tipDist < pipDist
	}

	return f, nil
}

// PinchStrength maps a thumb-index distance onto [0,1], 1 at or below the
// inner threshold and 0 at or beyond the outer one.
func PinchStrength(distance float64, cfg Config) float64 {
	span := cfg.MaxPinchDistance - cfg.MinPinchDistance
	if span <= 0 {
		if distance <= cfg.MinPinchDistance {
			return 1
		}
		return 0
	}
	return clamp01(1 - (distance-cfg.MinPinchDistance)/span)
}

// fingerJoints returns the tip and PIP landmark indices compared against
// the wrist. The thumb uses its MCP in place of a PIP.
func fingerJoints(finger int) (tip, pip int) {
	if finger == hand.Thumb {
		return hand.ThumbTip, hand.ThumbMCP
	}
	return 4*finger + 4, 4*finger + 2
}

// Clamp01 limits v to [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
