package provider

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/hand"
)

// FrameLister loads the recorded input frames of a session in order.
type FrameLister interface {
	ListFrames(ctx context.Context, sessionID string) ([]hand.Frame, error)
}

// ReplaySource plays back a recorded session with its original
// timestamps, so a replay produces the same ticks as the live run.
type ReplaySource struct {
	mu     sync.Mutex
	frames []hand.Frame
	next   int
	closed bool
}

// NewReplaySource loads every frame of sessionID from frames.
func NewReplaySource(ctx context.Context, frames FrameLister, sessionID string) (*ReplaySource, error) {
	list, err := frames.ListFrames(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "load session %s", sessionID)
	}
	return &ReplaySource{frames: list}, nil
}

// Len returns the number of frames in the recording.
func (r *ReplaySource) Len() int {
	return len(r.frames)
}

// Read returns the next recorded frame, or io.EOF after the last one.
func (r *ReplaySource) Read(ctx context.Context) (hand.Frame, error) {
	if err := ctx.Err(); err != nil {
		return hand.Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return hand.Frame{}, ErrClosed
	}
	if r.next >= len(r.frames) {
		return hand.Frame{}, io.EOF
	}
	f := r.frames[r.next]
	r.next++
	return f, nil
}

// Close stops the replay.
func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
