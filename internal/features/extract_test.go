package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/hand"
)

const epsilon = 1e-9

func extract(t *testing.T, obs hand.Observation) Features {
	t.Helper()
	f, err := Extract(&obs, hand.SideRight, DefaultConfig())
	require.NoError(t, err)
	return f
}

func TestExtract_FingerStates(t *testing.T) {
	tests := []struct {
		name     string
		obs      hand.Observation
		extended [hand.NumFingers]bool
	}{
		{"open palm", hand.OpenPalm(), [hand.NumFingers]bool{true, true, true, true, true}},
		{"fist", hand.Fist(), [hand.NumFingers]bool{}},
		{"thumbs up", hand.ThumbsUp(), [hand.NumFingers]bool{true, false, false, false, false}},
		{"yo", hand.Yo(), [hand.NumFingers]bool{false, true, false, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extract(t, tt.obs)
			assert.Equal(t, tt.extended, f.FingerExtended)
			for i := range tt.extended {
				assert.Equal(t, !tt.extended[i], f.FingerCurled[i], "finger %d curled", i)
			}
		})
	}

	t.Run("rotation invariant", func(t *testing.T) {
		// Rotate the horns pose by 90 degrees about the wrist.
		obs := hand.Yo()
		wrist := obs.Landmarks[hand.Wrist]
		for i, p := range obs.Landmarks {
			dx, dy := p.X-wrist.X, p.Y-wrist.Y
			obs.Landmarks[i] = hand.Point3D{X: wrist.X - dy, Y: wrist.Y + dx}
		}
		f := extract(t, obs)
		assert.Equal(t, [hand.NumFingers]bool{false, true, false, false, true}, f.FingerExtended)
	})

	t.Run("degenerate finger is neither", func(t *testing.T) {
		obs := hand.OpenPalm()
		obs.Landmarks[hand.MiddleTip] = obs.Landmarks[hand.MiddlePIP]
		f := extract(t, obs)
		assert.False(t, f.FingerExtended[hand.Middle])
		assert.False(t, f.FingerCurled[hand.Middle])
	})
}

func TestExtract_Pinch(t *testing.T) {
	t.Run("open palm has no pinch", func(t *testing.T) {
		f := extract(t, hand.OpenPalm())
		assert.Greater(t, f.PinchDistance, 0.3)
		assert.Equal(t, 0.0, f.PinchStrength)
	})

	t.Run("touching tips are a full pinch", func(t *testing.T) {
		f := extract(t, hand.OKPinch())
		assert.Less(t, f.PinchDistance, 0.02)
		assert.Equal(t, 1.0, f.PinchStrength)
	})

	t.Run("depth contributes to distance", func(t *testing.T) {
		obs := hand.OKPinch()
		obs.Landmarks[hand.ThumbTip].Z = 0.1
		f := extract(t, obs)
		assert.Greater(t, f.PinchDistance, 0.1)
	})

	t.Run("NaN depth treated as zero", func(t *testing.T) {
		obs := hand.OKPinch()
		obs.Landmarks[hand.ThumbTip].Z = math.NaN()
		f := extract(t, obs)
		assert.False(t, math.IsNaN(f.PinchDistance))
		assert.Equal(t, 1.0, f.PinchStrength)
	})
}

func TestPinchStrength(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.02, 1},
		{0.06, 0.5},
		{0.10, 0},
		{0.5, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, PinchStrength(tt.distance, cfg), epsilon, "distance %f", tt.distance)
	}

	t.Run("inverted thresholds step", func(t *testing.T) {
		bad := Config{MinPinchDistance: 0.1, MaxPinchDistance: 0.1}
		assert.Equal(t, 1.0, PinchStrength(0.05, bad))
		assert.Equal(t, 0.0, PinchStrength(0.2, bad))
	})
}

func TestExtract_TwistPositionVolume(t *testing.T) {
	f := extract(t, hand.OpenPalm())

	want := (math.Atan2(0.55-0.8, 0.56-0.5) + math.Pi) / (2 * math.Pi)
	assert.InDelta(t, want, f.TwistAngle, epsilon)
	assert.InDelta(t, 0.5, f.Position.X, epsilon)
	assert.InDelta(t, 0.8, f.Position.Y, epsilon)
	assert.Equal(t, 0.0, f.Volume)

	raised := extract(t, hand.Translate(hand.OpenPalm(), 0, -0.4))
	assert.InDelta(t, 0.64, raised.Volume, 1e-6)

	top := extract(t, hand.Translate(hand.OpenPalm(), 0, -0.8))
	assert.Equal(t, 1.0, top.Volume)
}

func TestExtract_Malformed(t *testing.T) {
	t.Run("wrong count", func(t *testing.T) {
		obs := hand.OpenPalm()
		obs.Landmarks = obs.Landmarks[:20]
		_, err := Extract(&obs, hand.SideLeft, DefaultConfig())
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("nil observation", func(t *testing.T) {
		_, err := Extract(nil, hand.SideLeft, DefaultConfig())
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("all points identical", func(t *testing.T) {
		obs := hand.Observation{Landmarks: make([]hand.Point3D, hand.NumLandmarks)}
		f, err := Extract(&obs, hand.SideLeft, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, 1.0, f.PinchStrength)
		assert.InDelta(t, 0.5, f.TwistAngle, epsilon)
	})
}

func TestExtract_AlwaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		obs := hand.Observation{Landmarks: make([]hand.Point3D, hand.NumLandmarks)}
		for j := range obs.Landmarks {
			z := rng.Float64()*4 - 2
			if rng.Intn(5) == 0 {
				z = math.NaN()
			}
			obs.Landmarks[j] = hand.Point3D{
				X: rng.Float64()*3 - 1,
				Y: rng.Float64()*3 - 1,
				Z: z,
			}
		}

		f, err := Extract(&obs, hand.SideRight, DefaultConfig())
		require.NoError(t, err)
		assert.True(t, f.PinchStrength >= 0 && f.PinchStrength <= 1, "pinch %f", f.PinchStrength)
		assert.True(t, f.TwistAngle >= 0 && f.TwistAngle <= 1, "twist %f", f.TwistAngle)
		assert.True(t, f.Volume >= 0 && f.Volume <= 1, "volume %f", f.Volume)
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
	assert.Equal(t, 0.0, Clamp01(-3))
	assert.Equal(t, 1.0, Clamp01(7))
	assert.Equal(t, 0.25, Clamp01(0.25))
}
