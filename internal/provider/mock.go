package provider

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

// MockSource plays back a fixed script of frames. Frames without a
// timestamp are stamped from a synthetic clock advancing by Step per read,
// so runs are reproducible.
type MockSource struct {
	frames []hand.Frame
	loop   bool
	step   time.Duration
	start  time.Time

	mu     sync.Mutex
	next   int
	reads  int
	closed bool
}

// NewMockSource creates a source over frames. With loop set the script
// repeats forever; otherwise Read returns io.EOF at the end.
func NewMockSource(frames []hand.Frame, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
		step:   50 * time.Millisecond,
		start:  time.Unix(0, 0).UTC(),
	}
}

// SetClock changes the synthetic clock used for unstamped frames.
func (m *MockSource) SetClock(start time.Time, step time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = start
	m.step = step
}

// Read returns the next scripted frame.
func (m *MockSource) Read(ctx context.Context) (hand.Frame, error) {
	if err := ctx.Err(); err != nil {
		return hand.Frame{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return hand.Frame{}, ErrClosed
	}
	if m.next >= len(m.frames) {
		if !m.loop || len(m.frames) == 0 {
			return hand.Frame{}, io.EOF
		}
		m.next = 0
	}

	f := m.frames[m.next]
	if f.Timestamp.IsZero() {
		f.Timestamp = m.start.Add(time.Duration(m.reads) * m.step)
	}
	f.Hands = append([]hand.Observation(nil), f.Hands...)

	m.next++
	m.reads++
	return f, nil
}

// Close stops the source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// DemoScript returns a short scripted performance exercising every
// gesture: an open palm drifting upward, a wave, YO, a thumbs-up, a pinch
// and a clap.
func DemoScript() []hand.Frame {
	var frames []hand.Frame
	add := func(n int, hands ...hand.Observation) {
		for i := 0; i < n; i++ {
			frames = append(frames, hand.Frame{Hands: hands})
		}
	}

	for i := 0; i < 10; i++ {
		add(1, hand.Translate(hand.OpenPalm(), 0, -0.03*float64(i)))
	}
	for i := 0; i < 12; i++ {
		dx := 0.0
		if i%2 == 1 {
			dx = 0.04
		}
		add(1, hand.Translate(hand.OpenPalm(), dx, 0))
	}
	add(10)
	add(10, hand.Yo())
	add(10)
	add(10, hand.ThumbsUp())
	add(10)
	add(10, hand.Translate(hand.OKPinch(), -0.2, 0))
	add(10)
	add(3,
		hand.WithHandedness(hand.OpenPalm(), "Left"),
		hand.Translate(hand.OpenPalm(), 0.04, 0),
	)
	add(10)

	return frames
}
