// Package config loads the mudra YAML configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/smoothing"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Source kinds.
const (
	SourceCamera = "camera"
	SourceReplay = "replay"
	SourceMock   = "mock"
)

// Config is the top-level structure of mudra.yaml.
type Config struct {
	Pipeline  PipelineConfig   `yaml:"pipeline"`
	Input     InputConfig      `yaml:"input"`
	Features  features.Config  `yaml:"features"`
	Smoothing smoothing.Config `yaml:"smoothing"`
	Gesture   gesture.Config   `yaml:"gesture"`
	Actions   dispatch.Config  `yaml:"actions"`
	Server    ServerConfig     `yaml:"server"`
	Store     StoreConfig      `yaml:"store"`
}

// PipelineConfig paces the processing loop.
type PipelineConfig struct {
	TickRate time.Duration `yaml:"tick_rate"`
}

// InputConfig selects and tunes the landmark source.
type InputConfig struct {
	// Source is "camera", "replay" or "mock".
	Source string `yaml:"source"`

	// MirrorHandedness swaps provider Left/Right labels, for providers
	// that run on a mirrored webcam image.
	MirrorHandedness bool `yaml:"mirror_handedness"`

	// Session is the recorded session played by the replay source.
	Session string `yaml:"session"`

	// Loop repeats the mock script forever.
	Loop bool `yaml:"loop"`

	Camera CameraConfig `yaml:"camera"`
}

// CameraConfig describes the capture device and landmark helper.
type CameraConfig struct {
	DeviceID    int           `yaml:"device_id"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	FPS         int           `yaml:"fps"`
	Python      string        `yaml:"python"`
	Script      string        `yaml:"script"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MotionThreshold is the percentage of changed pixels below which a
	// frame reuses the previous landmarks. Zero disables motion gating.
	MotionThreshold float64       `yaml:"motion_threshold"`
	MotionHold      time.Duration `yaml:"motion_hold"`
}

// ServerConfig controls the HTTP surface. An empty address disables it.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig locates the session database. An empty path disables
// recording and replay.
type StoreConfig struct {
	Path   string `yaml:"path"`
	Record bool   `yaml:"record"`
}

// Default returns the complete default configuration.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{TickRate: pipeline.DefaultTickRate},
		Input: InputConfig{
			Source:           SourceCamera,
			MirrorHandedness: true,
			Camera: CameraConfig{
				Width:       640,
				Height:      480,
				FPS:         20,
				IdleTimeout: 30 * time.Second,
				MotionHold:  2 * time.Second,
			},
		},
		Features:  features.DefaultConfig(),
		Smoothing: smoothing.DefaultConfig(),
		Gesture:   gesture.DefaultConfig(),
		Actions:   dispatch.DefaultConfig(),
		Server:    ServerConfig{Addr: "127.0.0.1:8420"},
		Store:     StoreConfig{Path: DefaultStorePath()},
	}
}

// DefaultStorePath returns ~/.mudra/mudra.db, or a relative path when the
// home directory is unknown.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mudra.db"
	}
	return filepath.Join(home, ".mudra", "mudra.db")
}

// Load reads path and overlays it onto the defaults. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "encode config")
}

// PipelineConfig assembles the settings the pipeline needs.
func (c Config) PipelineConfig() pipeline.Config {
	sm := c.Smoothing
	sm.Step = c.Pipeline.TickRate
	return pipeline.Config{
		TickRate:  c.Pipeline.TickRate,
		Mapping:   hand.Mapping{Mirror: c.Input.MirrorHandedness},
		Features:  c.Features,
		Smoothing: sm,
		Gesture:   c.Gesture,
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	check := func(ok bool, format string, args ...any) error {
		if ok {
			return nil
		}
		return errors.Wrapf(ErrInvalid, format, args...)
	}

	g := c.Gesture
	checks := []error{
		check(c.Pipeline.TickRate >= 0, "pipeline.tick_rate must not be negative"),
		check(c.Smoothing.Alpha > 0 && c.Smoothing.Alpha <= 1, "smoothing.alpha must be in (0,1], got %v", c.Smoothing.Alpha),
		check(c.Smoothing.PositionFilter == smoothing.FilterEMA || c.Smoothing.PositionFilter == smoothing.FilterKalman,
			"smoothing.position_filter must be %q or %q, got %q", smoothing.FilterEMA, smoothing.FilterKalman, c.Smoothing.PositionFilter),
		check(c.Smoothing.PositionFilter != smoothing.FilterKalman || (c.Smoothing.Kalman.AccelNoise > 0 && c.Smoothing.Kalman.MeasurementNoise > 0),
			"smoothing.kalman noise values must be positive"),
		check(c.Features.MinPinchDistance >= 0, "features.min_pinch_distance must not be negative"),
		check(c.Features.MaxPinchDistance > c.Features.MinPinchDistance, "features.max_pinch_distance must exceed min_pinch_distance"),
		check(g.PinchThreshold > 0, "gesture.pinch_threshold must be positive"),
		check(g.ThumbRaiseMargin >= 0, "gesture.thumb_raise_margin must not be negative"),
		check(g.ClapDistance > 0, "gesture.clap_distance must be positive"),
		check(g.ClapDebounce >= 0, "gesture.clap_debounce must not be negative"),
		check(g.Wave.MinSamples >= 2, "gesture.wave.min_samples must be at least 2"),
		check(g.Wave.Capacity >= g.Wave.MinSamples, "gesture.wave.capacity must hold min_samples"),
		check(g.Wave.MinDelta >= 0, "gesture.wave.min_delta must not be negative"),
		check(g.Wave.MinReversals >= 1, "gesture.wave.min_reversals must be at least 1"),
		check(c.Actions.NextTrackWindow >= 0 && c.Actions.ModeToggleWindow >= 0, "actions windows must not be negative"),
		check(c.Actions.Timeout >= 0, "actions.timeout must not be negative"),
		check(c.Input.Source == SourceCamera || c.Input.Source == SourceReplay || c.Input.Source == SourceMock,
			"input.source must be camera, replay or mock, got %q", c.Input.Source),
		check(c.Input.Source != SourceReplay || (c.Input.Session != "" && c.Store.Path != ""),
			"replay needs input.session and store.path"),
		check(!c.Store.Record || c.Store.Path != "", "store.record needs store.path"),
		check(c.Input.Camera.MotionThreshold >= 0 && c.Input.Camera.MotionThreshold < 100,
			"input.camera.motion_threshold must be in [0,100), got %v", c.Input.Camera.MotionThreshold),
	}

	known := make(map[gesture.Kind]bool, len(gesture.Kinds))
	for _, k := range gesture.Kinds {
		known[k] = true
	}
	for i, b := range c.Actions.Bindings {
		checks = append(checks,
			check(known[b.Gesture], "actions.bindings[%d]: unknown gesture %q", i, b.Gesture),
			check(len(b.Command) > 0, "actions.bindings[%d]: command is empty", i),
		)
	}

	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
