package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

var t0 = time.Unix(2000, 0)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mapping = hand.Mapping{}
	cfg.TickRate = 0
	return cfg
}

func frameAt(i int, hands ...hand.Observation) hand.Frame {
	return hand.Frame{
		Timestamp: t0.Add(time.Duration(i) * DefaultTickRate),
		Hands:     hands,
	}
}

type sliceSource struct {
	frames []hand.Frame
	errs   []error
}

func (s *sliceSource) Read(ctx context.Context) (hand.Frame, error) {
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return hand.Frame{}, err
	}
	if len(s.frames) == 0 {
		return hand.Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func waveFrames(n int) []hand.Frame {
	frames := make([]hand.Frame, n)
	for i := range frames {
		dx := 0.0
		if i%2 == 1 {
			dx = 0.02
		}
		frames[i] = frameAt(i, hand.Translate(hand.OpenPalm(), dx, 0))
	}
	return frames
}

func TestPipeline_NeutralBeforeFirstTick(t *testing.T) {
	p := New(testConfig())
	st := p.Latest().State

	assert.False(t, st.Tracking)
	assert.Equal(t, 0.0, st.Left.Pinch)
	assert.Equal(t, 0.5, st.Right.Position.X)
	assert.Empty(t, p.Latest().Events)
}

func TestPipeline_Deterministic(t *testing.T) {
	frames := append(waveFrames(12),
		frameAt(12, hand.Yo()),
		frameAt(13, hand.OKPinch(), hand.WithHandedness(hand.ThumbsUp(), "Left")),
		frameAt(14),
	)

	run := func() []Tick {
		p := New(testConfig())
		out := make([]Tick, 0, len(frames))
		for _, f := range frames {
			out = append(out, p.Process(f))
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestPipeline_HoldsLastValueWhenHandLeaves(t *testing.T) {
	cfg := testConfig()
	cfg.Smoothing.Alpha = 1
	p := New(cfg)

	first := p.Process(frameAt(0, hand.WithHandedness(hand.OKPinch(), "Left")))
	held := first.State.Left.Pinch
	require.Greater(t, held, 0.0)

	second := p.Process(frameAt(1, hand.Fist()))
	assert.Equal(t, held, second.State.Left.Pinch)
	assert.True(t, second.State.Right.Seen)

	empty := p.Process(frameAt(2))
	assert.Equal(t, held, empty.State.Left.Pinch)
	assert.False(t, empty.State.Tracking)
	assert.Empty(t, empty.Events)
}

func TestPipeline_MirroredHandedness(t *testing.T) {
	cfg := testConfig()
	cfg.Mapping = hand.Mapping{Mirror: true}
	p := New(cfg)

	tick := p.Process(frameAt(0, hand.Yo()))
	require.Len(t, tick.Hands, 1)
	assert.Equal(t, hand.SideLeft, tick.Hands[0].Side)

	ev, ok := tick.Event(gesture.KindModeToggle)
	require.True(t, ok)
	assert.Equal(t, hand.SideLeft, ev.Side)
	assert.True(t, tick.State.Left.Seen)
	assert.False(t, tick.State.Right.Seen)
}

func TestPipeline_Clap(t *testing.T) {
	p := New(testConfig())
	left := hand.WithHandedness(hand.OpenPalm(), "Left")
	right := hand.Translate(hand.OpenPalm(), 0.05, 0)

	at := func(d time.Duration) hand.Frame {
		return hand.Frame{Timestamp: t0.Add(d), Hands: []hand.Observation{left, right}}
	}

	claps := 0
	for _, d := range []time.Duration{0, 400 * time.Millisecond, 600 * time.Millisecond} {
		tick := p.Process(at(d))
		if ev, ok := tick.Event(gesture.KindClap); ok {
			assert.Equal(t, hand.SideBoth, ev.Side)
			claps++
		}
	}
	assert.Equal(t, 2, claps)
	assert.Equal(t, uint64(2), p.Stats().Events[gesture.KindClap])
}

func TestPipeline_ClapNeedsExactlyTwoHands(t *testing.T) {
	p := New(testConfig())
	tick := p.Process(frameAt(0, hand.OpenPalm()))
	_, ok := tick.Event(gesture.KindClap)
	assert.False(t, ok)
}

func TestPipeline_WaveAcrossTicks(t *testing.T) {
	p := New(testConfig())
	frames := waveFrames(10)

	for i, f := range frames[:9] {
		tick := p.Process(f)
		_, ok := tick.Event(gesture.KindWave)
		assert.False(t, ok, "tick %d", i)
	}

	tick := p.Process(frames[9])
	ev, ok := tick.Event(gesture.KindWave)
	require.True(t, ok)
	assert.Equal(t, 1, ev.RotateDirection)
	assert.Equal(t, gesture.KindWave.Label(), tick.Name())
}

func TestPipeline_MalformedHandIsAbsent(t *testing.T) {
	p := New(testConfig())
	bad := hand.OpenPalm()
	bad.Landmarks = bad.Landmarks[:5]

	tick := p.Process(frameAt(0, bad))
	assert.False(t, tick.State.Tracking)
	assert.Empty(t, tick.Hands)
	assert.False(t, tick.State.Right.Seen)
	assert.Equal(t, uint64(1), p.Stats().Rejected)
}

func TestPipeline_DuplicateSideFirstWins(t *testing.T) {
	p := New(testConfig())
	tick := p.Process(frameAt(0, hand.Yo(), hand.OKPinch()))

	require.Len(t, tick.Hands, 1)
	assert.Equal(t, gesture.KindModeToggle, tick.Hands[0].Gesture)
	_, ok := tick.Event(gesture.KindPinch)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), p.Stats().Duplicates)
}

func TestPipeline_UnknownLabelSkipsHand(t *testing.T) {
	p := New(testConfig())
	tick := p.Process(frameAt(0, hand.WithHandedness(hand.Yo(), "")))

	assert.Empty(t, tick.Events)
	assert.True(t, tick.State.Tracking)
	assert.Equal(t, uint64(1), p.Stats().Unlabeled)
}

func TestPipeline_SinksReceiveTicksInOrder(t *testing.T) {
	p := New(testConfig())

	var seqs []uint64
	p.AddSink(SinkFunc(func(tick Tick) { seqs = append(seqs, tick.Seq) }))
	ch := NewChanSink(1)
	p.AddSink(ch)

	for i := 0; i < 3; i++ {
		p.Process(frameAt(i))
	}

	assert.Equal(t, []uint64{1, 2, 3}, seqs)
	assert.Equal(t, uint64(3), (<-ch.C()).Seq, "channel sink keeps the newest tick")
	assert.Equal(t, uint64(3), p.Latest().Seq)
}

func TestPipeline_Run(t *testing.T) {
	t.Run("stops at end of source", func(t *testing.T) {
		p := New(testConfig())
		src := &sliceSource{
			frames: waveFrames(4),
			errs:   []error{errors.New("camera hiccup")},
		}

		require.NoError(t, p.Run(context.Background(), src))
		assert.Equal(t, uint64(4), p.Stats().Ticks)
	})

	t.Run("paced by tick rate", func(t *testing.T) {
		cfg := testConfig()
		cfg.TickRate = time.Millisecond
		p := New(cfg)

		require.NoError(t, p.Run(context.Background(), &sliceSource{frames: waveFrames(3)}))
		assert.Equal(t, uint64(3), p.Latest().Seq)
	})

	t.Run("disabled pipeline reads nothing", func(t *testing.T) {
		p := New(testConfig())
		p.SetEnabled(false)
		assert.False(t, p.Enabled())

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
		defer cancel()

		src := &sliceSource{frames: waveFrames(3)}
		err := p.Run(ctx, src)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Len(t, src.frames, 3)
		assert.Equal(t, uint64(0), p.Stats().Ticks)
	})
}
