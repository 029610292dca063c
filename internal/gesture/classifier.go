// Package gesture classifies per-hand poses and two-hand interactions into
// discrete gesture events.
package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/history"
)

// Kind is the discrete gesture label.
type Kind string

const (
	KindNone       Kind = "none"
	KindModeToggle Kind = "mode_toggle"
	KindNextTrack  Kind = "next_track"
	KindPinch      Kind = "pinch"
	KindWave       Kind = "wave"
	KindClap       Kind = "clap"
)

// Kinds lists every non-empty gesture kind, per-hand priority order first.
var Kinds = []Kind{KindModeToggle, KindNextTrack, KindPinch, KindWave, KindClap}

// Label returns the on-screen name of the gesture.
func (k Kind) Label() string {
	switch k {
	case KindModeToggle:
		return "YO (DISCO)"
	case KindNextTrack:
		return "NEXT TRACK >>"
	case KindPinch:
		return "PINCH (CUBES)"
	case KindWave:
		return "WAVE (ROTATE)"
	case KindClap:
		return "CLAP"
	default:
		return ""
	}
}

// Event is one classification result.
type Event struct {
	Kind Kind      `json:"kind"`
	Side hand.Side `json:"side"`
	At   time.Time `json:"at"`

	// Color is the hue hint carried by a pinch (wrist x, in [0,1]).
	Color float64 `json:"color,omitempty"`

	// RotateDirection is +1 or -1 for a wave.
	RotateDirection int `json:"rotate_direction,omitempty"`
}

// IsNone reports whether the event carries no gesture.
func (e Event) IsNone() bool {
	return e.Kind == "" || e.Kind == KindNone
}

// Config holds classifier thresholds.
type Config struct {
	// PinchThreshold is the thumb-index distance below which a pinch fires.
	// It is deliberately tighter than the continuous pinch remap.
	PinchThreshold float64 `yaml:"pinch_threshold"`

	// ThumbRaiseMargin is how far the thumb tip must sit above the index
	// knuckle, in normalized y, for next-track.
	ThumbRaiseMargin float64 `yaml:"thumb_raise_margin"`

	// ClapDistance is the wrist-to-wrist distance below which hands clap.
	ClapDistance float64 `yaml:"clap_distance"`

	// ClapDebounce is the minimum gap between claps.
	ClapDebounce time.Duration `yaml:"clap_debounce"`

	Wave WaveConfig `yaml:"wave"`
}

// WaveConfig holds the wave detector settings.
type WaveConfig struct {
	Capacity     int     `yaml:"capacity"`
	MinSamples   int     `yaml:"min_samples"`
	MinDelta     float64 `yaml:"min_delta"`
	MinReversals int     `yaml:"min_reversals"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		PinchThreshold:   0.08,
		ThumbRaiseMargin: 0.05,
		ClapDistance:     0.1,
		ClapDebounce:     500 * time.Millisecond,
		Wave: WaveConfig{
			Capacity:     history.DefaultCapacity,
			MinSamples:   10,
			MinDelta:     0.01,
			MinReversals: 2,
		},
	}
}

// Classifier evaluates gesture rules. It holds no mutable state: wrist
// trajectories and debounce clocks are passed in by the caller.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the classifier thresholds.
func (c *Classifier) Config() Config {
	return c.cfg
}

// ClassifyHand returns the single highest-priority gesture for one hand:
// mode-toggle, then next-track, then pinch, then wave. ring is that hand's
// wrist trajectory, already including the current tick.
//
// Next-track is reported on every tick the pose holds. Acting on it at
// most once per window is the caller's job (see dispatch.Gate).
func (c *Classifier) ClassifyHand(f *features.Features, ring *history.Ring, now time.Time) Event {
	ev := Event{Kind: KindNone, Side: f.Side, At: now}

	switch {
	case c.isModeToggle(f):
		ev.Kind = KindModeToggle
	case c.isNextTrack(f):
		ev.Kind = KindNextTrack
	case f.PinchDistance < c.cfg.PinchThreshold:
		ev.Kind = KindPinch
		ev.Color = features.Clamp01(f.Points[hand.Wrist].X)
	case ring != nil && DetectWave(ring, c.cfg.Wave):
		ev.Kind = KindWave
		ev.RotateDirection = 1
	}

	return ev
}

func (c *Classifier) isModeToggle(f *features.Features) bool {
	ext, curl := f.FingerExtended, f.FingerCurled
	return ext[hand.Index] && ext[hand.Pinky] && curl[hand.Middle] && curl[hand.Ring]
}

func (c *Classifier) isNextTrack(f *features.Features) bool {
	ext, curl := f.FingerExtended, f.FingerCurled
	if !ext[hand.Thumb] || !curl[hand.Index] || !curl[hand.Middle] || !curl[hand.Ring] || !curl[hand.Pinky] {
		return false
	}

	tip := f.Points[hand.ThumbTip]
	upright := tip.Y < f.Points[hand.ThumbIP].Y
	raised := tip.Y < f.Points[hand.IndexMCP].Y-c.cfg.ThumbRaiseMargin
	return upright && raised
}

// DetectClap checks two simultaneously observed hands for a clap. The clap
// fires when the wrists are closer than ClapDistance and clock allows it.
func (c *Classifier) DetectClap(a, b *features.Features, clock *history.Debounce, now time.Time) (Event, bool) {
	d := hand.Distance2D(a.Points[hand.Wrist], b.Points[hand.Wrist])
	if d >= c.cfg.ClapDistance {
		return Event{}, false
	}
	if !clock.Allow(now) {
		return Event{}, false
	}
	return Event{Kind: KindClap, Side: hand.SideBoth, At: now}, true
}
