package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/provider"
	"github.com/ayusman/mudra/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.TickRate = 0
	cfg.Input.Source = config.SourceMock
	cfg.Server.Addr = ""
	cfg.Store.Path = filepath.Join(t.TempDir(), "data", "mudra.db")
	return cfg
}

func TestApp_MockRunRecordsAndDispatches(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "actions.log")

	cfg := testConfig(t)
	cfg.Store.Record = true
	cfg.Actions.Bindings = []dispatch.Binding{
		{Gesture: gesture.KindNextTrack, Command: []string{"sh", "-c", "cat >> " + out}},
	}

	a, err := New(ctx, cfg, Options{SessionName: "demo"})
	require.NoError(t, err)
	require.NotNil(t, a.Recorder())
	id := a.Recorder().SessionID()

	var dispatched []gesture.Kind
	a.Dispatcher().OnAction(func(ev gesture.Event) { dispatched = append(dispatched, ev.Kind) })

	require.NoError(t, a.Run(ctx))
	require.NoError(t, a.Close())

	assert.Contains(t, dispatched, gesture.KindNextTrack)
	assert.Contains(t, dispatched, gesture.KindClap)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), `"gesture":"next_track"`), "gated to one action")

	st, err := store.New(cfg.Store.Path)
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.Sessions().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "demo", sess.Name)
	assert.Equal(t, config.SourceMock, sess.Source)
	assert.Equal(t, len(provider.DemoScript()), sess.Frames)
	assert.NotNil(t, sess.EndedAt)

	counts, err := st.Events().CountByKind(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[gesture.KindClap])
	for _, k := range []gesture.Kind{gesture.KindWave, gesture.KindModeToggle, gesture.KindNextTrack, gesture.KindPinch} {
		assert.Positive(t, counts[k], k)
	}
}

func TestApp_ReplayMatchesRecording(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Store.Record = true
	a, err := New(ctx, cfg, Options{})
	require.NoError(t, err)
	id := a.Recorder().SessionID()
	require.NoError(t, a.Run(ctx))
	live := a.Pipeline().Stats()
	require.NoError(t, a.Close())

	cfg.Store.Record = false
	cfg.Input.Source = config.SourceReplay
	cfg.Input.Session = id
	r, err := New(ctx, cfg, Options{})
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Run(ctx))

	replayed := r.Pipeline().Stats()
	assert.Equal(t, live.Ticks, replayed.Ticks)
	assert.Equal(t, live.Events, replayed.Events)
}

func TestApp_ReplayUnknownSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Source = config.SourceReplay
	cfg.Input.Session = "missing"

	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Smoothing.Alpha = 0

	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestApp_CameraFallsBackToMock(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Source = config.SourceCamera
	cfg.Input.Camera.Script = ""
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.source.(*provider.MockSource)
	assert.True(t, ok)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.TickRate = 10 * time.Millisecond
	cfg.Input.Loop = true

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, a.Run(ctx))
	assert.Positive(t, a.Pipeline().Stats().Ticks)
}
