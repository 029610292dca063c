// Package app assembles a configured landmark source, the pipeline and
// its sinks into a runnable application.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/provider"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

// shutdownTimeout bounds how long Close waits for actions and recording.
const shutdownTimeout = 5 * time.Second

// Options holds settings that come from the command line rather than the
// configuration file.
type Options struct {
	// StaticDir is served by the HTTP server when set.
	StaticDir string

	// SessionName names a recorded session. Empty uses the start time.
	SessionName string
}

// App is the main application that wires the pipeline to its source and
// sinks.
type App struct {
	cfg        config.Config
	store      *store.Store
	source     provider.Source
	pipeline   *pipeline.Pipeline
	dispatcher *dispatch.Dispatcher
	recorder   *store.Recorder
	hub        *server.Hub
	server     *server.Server
}

// New opens everything cfg asks for. On error, whatever was already opened
// is closed again.
func New(ctx context.Context, cfg config.Config, opts Options) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a = &App{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.needsStore() {
		if a.store, err = openStore(cfg.Store.Path); err != nil {
			return nil, err
		}
	}

	if a.source, err = a.openSource(ctx); err != nil {
		return nil, err
	}

	a.pipeline = pipeline.New(cfg.PipelineConfig())
	a.dispatcher = dispatch.New(cfg.Actions, dispatch.NewExecRunner(cfg.Actions.Timeout))
	a.pipeline.AddSink(a.dispatcher)

	if cfg.Store.Record {
		name := opts.SessionName
		if name == "" {
			name = fmt.Sprintf("%s %s", cfg.Input.Source, time.Now().Format("2006-01-02 15:04:05"))
		}
		if a.recorder, err = store.NewRecorder(ctx, a.store, name, cfg.Input.Source); err != nil {
			return nil, err
		}
		a.pipeline.AddSink(a.recorder)
	}

	if cfg.Server.Addr != "" {
		a.hub = server.NewHub()
		a.pipeline.AddSink(a.hub)
		a.server = server.New(server.Config{
			Pipeline:  a.pipeline,
			Hub:       a.hub,
			Store:     a.store,
			Settings:  cfg,
			StaticDir: opts.StaticDir,
		})
	}

	return a, nil
}

func (a *App) needsStore() bool {
	if a.cfg.Store.Path == "" {
		return false
	}
	return a.cfg.Store.Record || a.cfg.Input.Source == config.SourceReplay || a.cfg.Server.Addr != ""
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}
	return store.New(path)
}

// openSource builds the configured landmark source. A camera whose
// landmark helper cannot be found falls back to the scripted mock.
func (a *App) openSource(ctx context.Context) (provider.Source, error) {
	in := a.cfg.Input
	switch in.Source {
	case config.SourceReplay:
		src, err := provider.NewReplaySource(ctx, a.store.Frames(), in.Session)
		if err != nil {
			return nil, err
		}
		log.Printf("Replaying session %s (%d frames)", in.Session, src.Len())
		return src, nil

	case config.SourceCamera:
		src, err := provider.NewMediaPipeSource(cameraConfig(in.Camera))
		if err == nil {
			log.Println("Using MediaPipe hand detection")
			return src, nil
		}
		log.Printf("MediaPipe not available (%v), using mock source", err)
		fallthrough

	default:
		src := provider.NewMockSource(provider.DemoScript(), in.Loop)
		if step := a.cfg.Pipeline.TickRate; step > 0 {
			src.SetClock(time.Now(), step)
		}
		return src, nil
	}
}

func cameraConfig(c config.CameraConfig) provider.CameraConfig {
	return provider.CameraConfig{
		DeviceID:        c.DeviceID,
		Width:           c.Width,
		Height:          c.Height,
		FPS:             c.FPS,
		Python:          c.Python,
		Script:          c.Script,
		IdleTimeout:     c.IdleTimeout,
		MotionThreshold: c.MotionThreshold,
		MotionHold:      c.MotionHold,
	}
}

// Pipeline returns the processing pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Dispatcher returns the action dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Store returns the session store, or nil when none is configured.
func (a *App) Store() *store.Store {
	return a.store
}

// Recorder returns the session recorder, or nil when not recording.
func (a *App) Recorder() *store.Recorder {
	return a.recorder
}

// Run serves HTTP and processes frames until the source is exhausted or
// ctx is cancelled. An exhausted source returns nil; cancellation is not
// an error either.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	if a.server != nil {
		log.Printf("Starting server on %s", a.cfg.Server.Addr)
		go func() {
			err := a.server.ListenAndServe(ctx, a.cfg.Server.Addr)
			if err != nil {
				cancel()
			}
			serverErr <- err
		}()
	} else {
		close(serverErr)
	}

	err := a.pipeline.Run(ctx, a.source)
	if ctx.Err() != nil {
		// Cancelled by the caller or by a failed server.
		err = nil
	}

	cancel()
	if serr := <-serverErr; err == nil {
		err = serr
	}
	return err
}

// Close flushes the recorder, waits for running actions and releases the
// source and store.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close(ctx))
	}
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close(ctx))
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
