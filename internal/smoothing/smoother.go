// Package smoothing low-pass filters the continuous control channels of
// each hand across ticks.
package smoothing

import (
	"log"
	"time"

	kalman "github.com/LdDl/kalman-filter"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/hand"
)

// Position filter kinds.
const (
	FilterEMA    = "ema"
	FilterKalman = "kalman"
)

// Config holds smoothing options.
type Config struct {
	// Alpha is the exponential smoothing factor in (0,1]. Higher is faster.
	Alpha float64 `yaml:"alpha"`

	// PositionFilter selects "ema" or "kalman" for the position channel.
	PositionFilter string `yaml:"position_filter"`

	// Kalman tunes the constant-velocity position filter.
	Kalman KalmanConfig `yaml:"kalman"`

	// Step is the expected time between observations; set from the tick rate.
	Step time.Duration `yaml:"-"`
}

// KalmanConfig holds the position filter noise parameters, in normalized
// image units.
type KalmanConfig struct {
	AccelNoise       float64 `yaml:"accel_noise"`
	MeasurementNoise float64 `yaml:"measurement_noise"`
}

// DefaultConfig returns the canonical smoothing settings.
func DefaultConfig() Config {
	return Config{
		Alpha:          0.2,
		PositionFilter: FilterEMA,
		Kalman: KalmanConfig{
			AccelNoise:       0.5,
			MeasurementNoise: 0.02,
		},
		Step: 50 * time.Millisecond,
	}
}

// SideState holds the smoothed channels of one hand.
type SideState struct {
	Pinch    float64           `json:"pinch"`
	Twist    float64           `json:"twist"`
	Position features.Position `json:"position"`
	Volume   float64           `json:"volume"`
	Seen     bool              `json:"seen"`
	LastSeen time.Time         `json:"last_seen"`
}

// State is the smoothed state of both hands.
type State struct {
	Left  SideState `json:"left"`
	Right SideState `json:"right"`
}

// Side returns the state for s. Unknown sides return the zero value.
func (st State) Side(s hand.Side) SideState {
	switch s {
	case hand.SideLeft:
		return st.Left
	case hand.SideRight:
		return st.Right
	}
	return SideState{}
}

func neutral() SideState {
	return SideState{Position: features.Position{X: 0.5, Y: 0.5}}
}

// Smoother owns the smoothing state. It is not safe for concurrent use;
// the pipeline serializes calls.
type Smoother struct {
	cfg    Config
	state  State
	kalman map[hand.Side]*kalman.Kalman2D
}

// New creates a smoother with every channel at its neutral value.
func New(cfg Config) *Smoother {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = DefaultConfig().Alpha
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultConfig().Step
	}

	s := &Smoother{
		cfg:   cfg,
		state: State{Left: neutral(), Right: neutral()},
	}

	if cfg.PositionFilter == FilterKalman {
		s.kalman = make(map[hand.Side]*kalman.Kalman2D, 2)
		for _, side := range []hand.Side{hand.SideLeft, hand.SideRight} {
			s.kalman[side] = kalman.NewKalman2D(
				cfg.Step.Seconds(),
				0, 0,
				cfg.Kalman.AccelNoise,
				cfg.Kalman.MeasurementNoise,
				cfg.Kalman.MeasurementNoise,
				kalman.WithState2D(0.5, 0.5),
			)
		}
	}

	return s
}

// Update folds one observation into the state of its side. Features with
// no resolved side are ignored; the other side is never touched.
func (s *Smoother) Update(f *features.Features, at time.Time) {
	var st *SideState
	switch f.Side {
	case hand.SideLeft:
		st = &s.state.Left
	case hand.SideRight:
		st = &s.state.Right
	default:
		return
	}

	a := s.cfg.Alpha
	next := *st
	next.Pinch = lerp(st.Pinch, f.PinchStrength, a)
	next.Twist = lerp(st.Twist, f.TwistAngle, a)
	next.Position = s.filterPosition(f.Side, st.Position, f.Position)
	next.Volume = f.Volume
	next.Seen = true
	next.LastSeen = at

	*st = next
}

func (s *Smoother) filterPosition(side hand.Side, prev, obs features.Position) features.Position {
	ema := features.Position{
		X: lerp(prev.X, obs.X, s.cfg.Alpha),
		Y: lerp(prev.Y, obs.Y, s.cfg.Alpha),
	}

	kf, ok := s.kalman[side]
	if !ok {
		return ema
	}

	kf.Predict()
	if err := kf.Update(obs.X, obs.Y); err != nil {
		log.Printf("Kalman update failed for %s hand, using EMA: %v", side, err)
		return ema
	}
	x, y := kf.GetState()
	return features.Position{X: x, Y: y}
}

// State returns a copy of the current state.
func (s *Smoother) State() State {
	return s.state
}

func lerp(from, to, factor float64) float64 {
	return from + (to-from)*factor
}
