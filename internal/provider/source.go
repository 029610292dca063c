// Package provider supplies hand-landmark frames to the pipeline: live from
// a camera through MediaPipe, replayed from a recorded session, or scripted.
package provider

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/hand"
)

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("source is closed")

// Source produces landmark frames. Read blocks until the next frame is
// available and returns io.EOF once a finite source is exhausted.
type Source interface {
	Read(ctx context.Context) (hand.Frame, error)
	Close() error
}
