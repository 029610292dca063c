// Package dispatch turns pipeline gesture events into actions: it debounces
// one-shot gestures and runs the commands bound to them.
package dispatch

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/history"
)

// Gate lets at most one event of a kind through per window. Kinds without
// a window always pass. A Gate is not safe for concurrent use.
type Gate struct {
	clocks map[gesture.Kind]*history.Debounce
}

// NewGate creates a gate with the given per-kind windows.
func NewGate(windows map[gesture.Kind]time.Duration) *Gate {
	g := &Gate{clocks: make(map[gesture.Kind]*history.Debounce, len(windows))}
	for k, w := range windows {
		if w > 0 {
			g.clocks[k] = history.NewDebounce(w)
		}
	}
	return g
}

// Allow reports whether ev should be acted on, recording it if so.
func (g *Gate) Allow(ev gesture.Event) bool {
	if ev.IsNone() {
		return false
	}
	clock, ok := g.clocks[ev.Kind]
	if !ok {
		return true
	}
	return clock.Allow(ev.At)
}

// Window returns the debounce window for k, or zero.
func (g *Gate) Window(k gesture.Kind) time.Duration {
	if c, ok := g.clocks[k]; ok {
		return c.Window
	}
	return 0
}
