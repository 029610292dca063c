package history

import "time"

// Debounce enforces a minimum gap between firings of one gesture.
type Debounce struct {
	Window time.Duration

	last  time.Time
	fired bool
}

// NewDebounce creates a clock that has never fired.
func NewDebounce(window time.Duration) *Debounce {
	return &Debounce{Window: window}
}

// Allow reports whether a firing at now is permitted, and records it if so.
// A firing is permitted when the clock has never fired or when more than
// Window has elapsed since the last recorded firing.
func (d *Debounce) Allow(now time.Time) bool {
	if d.fired && now.Sub(d.last) <= d.Window {
		return false
	}
	d.last = now
	d.fired = true
	return true
}

// LastFired returns the time of the last permitted firing and whether there
// was one.
func (d *Debounce) LastFired() (time.Time, bool) {
	return d.last, d.fired
}
