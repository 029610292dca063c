package pipeline

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/smoothing"
)

// ContinuousState is the per-tick snapshot of every smoothed channel.
type ContinuousState struct {
	smoothing.State

	// Tracking is true when at least one valid hand was observed this tick.
	Tracking bool `json:"tracking"`
}

// HandReport summarizes one classified hand for overlays and debugging.
type HandReport struct {
	Side          hand.Side             `json:"side"`
	PinchDistance float64               `json:"pinch_distance"`
	Extended      [hand.NumFingers]bool `json:"extended"`
	Gesture       gesture.Kind          `json:"gesture"`
}

// Tick is the complete output of one pipeline step. Ticks are never
// modified after publication; consumers must treat them as read-only.
type Tick struct {
	Seq    uint64          `json:"seq"`
	At     time.Time       `json:"at"`
	State  ContinuousState `json:"state"`
	Events []gesture.Event `json:"events"`
	Hands  []HandReport    `json:"hands"`

	// Input is the frame that produced this tick.
	Input hand.Frame `json:"-"`
}

// Event returns the first event of kind k in the tick.
func (t Tick) Event(k gesture.Kind) (gesture.Event, bool) {
	for _, ev := range t.Events {
		if ev.Kind == k {
			return ev, true
		}
	}
	return gesture.Event{}, false
}

// Name returns the label of the most significant event in the tick, or an
// empty string when nothing fired.
func (t Tick) Name() string {
	for _, k := range gesture.Kinds {
		if _, ok := t.Event(k); ok {
			return k.Label()
		}
	}
	return ""
}

// Sink receives every published tick, in order, on the pipeline goroutine.
type Sink interface {
	Publish(Tick)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Tick)

// Publish calls f(t).
func (f SinkFunc) Publish(t Tick) {
	f(t)
}

// Stats counts pipeline activity since construction.
type Stats struct {
	Ticks      uint64                  `json:"ticks"`
	HandsSeen  uint64                  `json:"hands_seen"`
	Rejected   uint64                  `json:"rejected"`
	Unlabeled  uint64                  `json:"unlabeled"`
	Duplicates uint64                  `json:"duplicates"`
	Events     map[gesture.Kind]uint64 `json:"events"`
}
