package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pipeline"
)

// Config holds action dispatch settings.
type Config struct {
	// NextTrackWindow and ModeToggleWindow are the minimum gaps between two
	// acted-on next-track or mode-toggle gestures.
	NextTrackWindow  time.Duration `yaml:"next_track_window"`
	ModeToggleWindow time.Duration `yaml:"mode_toggle_window"`

	// Windows adds debounce windows for other gesture kinds.
	Windows map[gesture.Kind]time.Duration `yaml:"windows,omitempty"`

	// Timeout bounds each command run.
	Timeout time.Duration `yaml:"timeout"`

	// Workers is the number of commands that may run at once.
	Workers int `yaml:"workers"`

	Bindings []Binding `yaml:"bindings"`
}

// DefaultConfig returns two-second windows for next-track and mode-toggle
// and no bindings.
func DefaultConfig() Config {
	return Config{
		NextTrackWindow:  2 * time.Second,
		ModeToggleWindow: 2 * time.Second,
		Timeout:          5 * time.Second,
		Workers:          2,
	}
}

func (c Config) windows() map[gesture.Kind]time.Duration {
	w := map[gesture.Kind]time.Duration{
		gesture.KindNextTrack:  c.NextTrackWindow,
		gesture.KindModeToggle: c.ModeToggleWindow,
	}
	for k, d := range c.Windows {
		w[k] = d
	}
	return w
}

// Binding maps a gesture to an external command.
type Binding struct {
	Gesture gesture.Kind `yaml:"gesture" json:"gesture"`

	// Side restricts the binding to one hand. Unset matches any side.
	Side hand.Side `yaml:"side,omitempty" json:"side,omitempty"`

	Command []string `yaml:"command" json:"command"`
	Dir     string   `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// Matches reports whether the binding applies to ev.
func (b Binding) Matches(ev gesture.Event) bool {
	if b.Gesture != ev.Kind {
		return false
	}
	return b.Side == hand.SideUnknown || b.Side == ev.Side
}

// Runner executes a bound command.
type Runner interface {
	Run(ctx context.Context, b Binding, req Request) (*Response, error)
}

type job struct {
	binding Binding
	req     Request
}

// Dispatcher is a pipeline sink that gates events and hands matching
// bindings to a pool of workers. Commands never run on the pipeline
// goroutine; when every worker is busy and the queue is full the action is
// dropped.
type Dispatcher struct {
	gate     *Gate
	bindings []Binding
	runner   Runner
	jobs     chan job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	closed    bool
	last      gesture.Event
	fired     bool
	listeners []func(gesture.Event)
}

// New creates a dispatcher and starts its workers.
func New(cfg Config, runner Runner) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		gate:     NewGate(cfg.windows()),
		bindings: cfg.Bindings,
		runner:   runner,
		jobs:     make(chan job, 4*workers),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// OnAction registers fn to be called, on the pipeline goroutine, for every
// event that passes the gate.
func (d *Dispatcher) OnAction(fn func(gesture.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Last returns the most recent event that passed the gate.
func (d *Dispatcher) Last() (gesture.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.fired
}

// Publish gates the tick's events and queues their bound commands.
func (d *Dispatcher) Publish(t pipeline.Tick) {
	for _, ev := range t.Events {
		if !d.gate.Allow(ev) {
			continue
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		d.last, d.fired = ev, true
		listeners := d.listeners
		d.mu.Unlock()

		log.Printf("Gesture %s (%s hand)", ev.Kind, ev.Side)
		for _, fn := range listeners {
			fn(ev)
		}

		for _, b := range d.bindings {
			if !b.Matches(ev) {
				continue
			}
			d.enqueue(job{
				binding: b,
				req:     Request{Gesture: ev.Kind, Label: ev.Kind.Label(), Event: ev, Seq: t.Seq},
			})
		}
	}
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.jobs <- j:
	default:
		log.Printf("Dispatch queue full, dropping %s action %v", j.req.Gesture, j.binding.Command)
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		resp, err := d.runner.Run(d.ctx, j.binding, j.req)
		switch {
		case err != nil:
			log.Printf("Action for %s failed: %v", j.req.Gesture, err)
		case !resp.Success:
			log.Printf("Action for %s reported failure: %s", j.req.Gesture, resp.Error)
		}
	}
}

// Close stops accepting events, waits for queued commands and cancels
// any still running when ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
