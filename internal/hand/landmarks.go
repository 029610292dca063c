// Package hand defines the raw per-tick hand-tracking input: landmarks,
// observations, frames and the handedness policy.
package hand

import (
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Finger indices in thumb-to-pinky order.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

// Point3D represents a landmark with x, y normalized to the image frame and
// z as relative depth. Z may be NaN when the provider has no depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Depth returns Z, or 0 when Z is missing.
func (p Point3D) Depth() float64 {
	if math.IsNaN(p.Z) || math.IsInf(p.Z, 0) {
		return 0
	}
	return p.Z
}

// Distance3D returns the Euclidean distance between a and b, with missing
// depth treated as 0.
func Distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Depth() - b.Depth()
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance2D returns the planar distance between a and b.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Observation is one detected hand as reported by the tracking provider.
type Observation struct {
	Landmarks  []Point3D `json:"landmarks"`
	Handedness string    `json:"handedness"` // "Left" or "Right", as reported
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// Valid reports whether the observation has a full, finite landmark set.
func (o *Observation) Valid() bool {
	if o == nil || len(o.Landmarks) != NumLandmarks {
		return false
	}
	for _, p := range o.Landmarks {
		if !finite(p.X) || !finite(p.Y) {
			return false
		}
	}
	return true
}

// Frame holds every hand observed during one tracking callback.
type Frame struct {
	Timestamp time.Time     `json:"timestamp"`
	Hands     []Observation `json:"hands"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
