package store

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/pipeline"
)

// DefaultRecorderBuffer is the number of ticks a recorder queues before
// Publish starts to block.
const DefaultRecorderBuffer = 256

// Recorder is a pipeline sink that writes every tick's input frame and
// events into a new session. Writes happen on a background goroutine.
type Recorder struct {
	store   *Store
	session Session
	ticks   chan pipeline.Tick
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRecorder starts a session named name and returns a sink recording
// into it.
func NewRecorder(ctx context.Context, s *Store, name, source string) (*Recorder, error) {
	sess := Session{Name: name, Source: source}
	if err := s.Sessions().Create(ctx, &sess); err != nil {
		return nil, err
	}

	r := &Recorder{
		store:   s,
		session: sess,
		ticks:   make(chan pipeline.Tick, DefaultRecorderBuffer),
		done:    make(chan struct{}),
	}
	go r.run()

	log.Printf("Recording session %s", sess.ID)
	return r, nil
}

// SessionID returns the ID of the session being recorded.
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// Publish queues t for writing. Ticks published after Close are dropped.
func (r *Recorder) Publish(t pipeline.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.ticks <- t
}

// Close flushes queued ticks and marks the session ended.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.ticks)
	r.mu.Unlock()

	<-r.done
	return r.store.Sessions().End(ctx, r.session.ID, time.Now())
}

func (r *Recorder) run() {
	defer close(r.done)
	for t := range r.ticks {
		if err := r.write(t); err != nil {
			log.Printf("Failed to record tick %d: %v", t.Seq, err)
		}
	}
}

func (r *Recorder) write(t pipeline.Tick) error {
	ctx := context.Background()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if err := appendFrame(ctx, tx, r.session.ID, t.Seq, t.Input); err != nil {
		return err
	}
	for _, ev := range t.Events {
		if err := appendEvent(ctx, tx, r.session.ID, t.Seq, ev); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET frames = frames + 1, events = events + ? WHERE id = ?`,
		len(t.Events), r.session.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update session counters")
	}

	return errors.Wrap(tx.Commit(), "commit")
}
