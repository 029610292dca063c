// Package pipeline turns hand-landmark frames into smoothed control
// channels and discrete gesture events, one tick per frame.
package pipeline

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/history"
	"github.com/ayusman/mudra/internal/smoothing"
)

// DefaultTickRate is the interval between frame reads in Run.
const DefaultTickRate = 50 * time.Millisecond

// Source produces landmark frames. Read blocks until a frame is available
// and returns io.EOF when the source is exhausted.
type Source interface {
	Read(ctx context.Context) (hand.Frame, error)
}

// Config holds everything a pipeline needs to process frames.
type Config struct {
	// TickRate paces Run. Zero or negative reads frames back to back.
	TickRate time.Duration

	Mapping   hand.Mapping
	Features  features.Config
	Smoothing smoothing.Config
	Gesture   gesture.Config
}

// DefaultConfig returns the standard pipeline settings with mirrored
// handedness, as delivered by a front-facing camera.
func DefaultConfig() Config {
	return Config{
		TickRate:  DefaultTickRate,
		Mapping:   hand.Mapping{Mirror: true},
		Features:  features.DefaultConfig(),
		Smoothing: smoothing.DefaultConfig(),
		Gesture:   gesture.DefaultConfig(),
	}
}

// Pipeline is the single writer of all continuous and discrete state.
// Process calls are serialized; Latest and Stats may be called from any
// goroutine.
type Pipeline struct {
	cfg        Config
	classifier *gesture.Classifier
	smoother   *smoothing.Smoother
	rings      map[hand.Side]*history.Ring
	clap       *history.Debounce
	seq        uint64
	sinks      []Sink
	enabled    atomic.Bool

	// mu serializes Process and guards everything above.
	mu sync.Mutex

	snapMu sync.RWMutex
	latest Tick
	stats  Stats
}

// New creates a pipeline in its neutral state. The pipeline starts enabled.
func New(cfg Config) *Pipeline {
	if cfg.Smoothing.Step <= 0 && cfg.TickRate > 0 {
		cfg.Smoothing.Step = cfg.TickRate
	}
	capacity := cfg.Gesture.Wave.Capacity
	if capacity <= 0 {
		capacity = history.DefaultCapacity
	}

	smoother := smoothing.New(cfg.Smoothing)
	p := &Pipeline{
		cfg:        cfg,
		classifier: gesture.NewClassifier(cfg.Gesture),
		smoother:   smoother,
		rings: map[hand.Side]*history.Ring{
			hand.SideLeft:  history.NewRing(capacity),
			hand.SideRight: history.NewRing(capacity),
		},
		clap: history.NewDebounce(cfg.Gesture.ClapDebounce),
		latest: Tick{
			State: ContinuousState{State: smoother.State()},
		},
		stats: Stats{Events: make(map[gesture.Kind]uint64)},
	}
	p.enabled.Store(true)
	return p
}

// AddSink registers s to receive every subsequent tick.
func (p *Pipeline) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// SetEnabled pauses or resumes Run. Process is unaffected.
func (p *Pipeline) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Enabled reports whether Run is consuming frames.
func (p *Pipeline) Enabled() bool {
	return p.enabled.Load()
}

// Process runs one tick over frame and publishes the result to every sink.
// A zero frame timestamp is replaced with the wall clock.
func (p *Pipeline) Process(frame hand.Frame) Tick {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := frame.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	p.seq++

	var (
		events  []gesture.Event
		reports []HandReport
		valid   []*features.Features
		claimed [hand.SideBoth + 1]bool
		delta   Stats
	)

	for i := range frame.Hands {
		obs := &frame.Hands[i]
		side := p.cfg.Mapping.Resolve(obs.Handedness)

		f, err := features.Extract(obs, side, p.cfg.Features)
		if err != nil {
			delta.Rejected++
			continue
		}
		valid = append(valid, &f)
		delta.HandsSeen++

		if side != hand.SideLeft && side != hand.SideRight {
			delta.Unlabeled++
			continue
		}
		if claimed[side] {
			delta.Duplicates++
			continue
		}
		claimed[side] = true

		ring := p.rings[side]
		ring.Push(history.Sample{X: f.Position.X, At: now})

		ev := p.classifier.ClassifyHand(&f, ring, now)
		p.smoother.Update(&f, now)

		reports = append(reports, HandReport{
			Side:          side,
			PinchDistance: f.PinchDistance,
			Extended:      f.FingerExtended,
			Gesture:       ev.Kind,
		})
		if !ev.IsNone() {
			events = append(events, ev)
		}
	}

	if len(valid) == 2 {
		if ev, ok := p.classifier.DetectClap(valid[0], valid[1], p.clap, now); ok {
			events = append(events, ev)
		}
	}

	tick := Tick{
		Seq: p.seq,
		At:  now,
		State: ContinuousState{
			State:    p.smoother.State(),
			Tracking: len(valid) > 0,
		},
		Events: events,
		Hands:  reports,
		Input:  frame,
	}

	p.snapMu.Lock()
	p.latest = tick
	p.stats.Ticks++
	p.stats.HandsSeen += delta.HandsSeen
	p.stats.Rejected += delta.Rejected
	p.stats.Unlabeled += delta.Unlabeled
	p.stats.Duplicates += delta.Duplicates
	for _, ev := range events {
		p.stats.Events[ev.Kind]++
	}
	p.snapMu.Unlock()

	for _, s := range p.sinks {
		s.Publish(tick)
	}
	return tick
}

// Latest returns the most recently published tick. Before the first tick
// it returns the neutral state.
func (p *Pipeline) Latest() Tick {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.latest
}

// Stats returns a copy of the activity counters.
func (p *Pipeline) Stats() Stats {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()

	out := p.stats
	out.Events = make(map[gesture.Kind]uint64, len(p.stats.Events))
	for k, v := range p.stats.Events {
		out.Events[k] = v
	}
	return out
}

// Run reads frames from src and processes them until ctx is cancelled or
// src is exhausted. Read errors other than io.EOF are logged and skipped.
// While the pipeline is disabled, frames are not read.
func (p *Pipeline) Run(ctx context.Context, src Source) error {
	var tick <-chan time.Time
	if p.cfg.TickRate > 0 {
		ticker := time.NewTicker(p.cfg.TickRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if !p.Enabled() {
			if tick == nil {
				// Nothing paces the loop; avoid spinning.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(DefaultTickRate):
				}
			}
			continue
		}

		frame, err := src.Read(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Printf("Error reading frame: %v", err)
			continue
		}

		p.Process(frame)
	}
}
