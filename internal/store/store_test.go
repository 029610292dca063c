package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pipeline"
)

// newTestStore creates a Store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	assert.Equal(t, dbPath, s.Path())
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "frames", "events"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q should exist after migrations", table)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.DB().Ping(), "database should be closed")
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Sessions()

	first := &Session{Name: "morning", Source: "camera", StartedAt: time.Unix(100, 0)}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &Session{Name: "evening", Source: "mock", StartedAt: time.Unix(200, 0)}
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "morning", got.Name)
	assert.Equal(t, "camera", got.Source)
	assert.Equal(t, time.Unix(100, 0), got.StartedAt)
	assert.Nil(t, got.EndedAt)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	require.NoError(t, repo.End(ctx, first.ID, time.Unix(150, 0)))
	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, time.Unix(150, 0), *got.EndedAt)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, repo.End(ctx, "missing", time.Now()), ErrNotFound)
}

func TestFrameRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess := &Session{Source: "mock"}
	require.NoError(t, s.Sessions().Create(ctx, sess))

	noDepth := hand.Yo()
	for i := range noDepth.Landmarks {
		noDepth.Landmarks[i].Z = math.NaN()
	}
	broken := hand.OpenPalm()
	broken.Landmarks[3].X = math.Inf(1)

	frames := []hand.Frame{
		{Timestamp: time.Unix(10, 5)},
		{Timestamp: time.Unix(10, 50_000_005), Hands: []hand.Observation{hand.ThumbsUp(), noDepth}},
		{Timestamp: time.Unix(10, 100_000_005), Hands: []hand.Observation{broken}},
	}
	// Stored out of order on purpose.
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, s.Frames().Append(ctx, sess.ID, uint64(i+1), frames[i]))
	}

	got, err := s.Frames().ListFrames(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, frames[0], got[0])
	assert.Equal(t, frames[1].Hands[0], got[1].Hands[0])
	assert.True(t, math.IsNaN(got[1].Hands[1].Landmarks[0].Z))
	assert.Equal(t, 0.0, got[1].Hands[1].Landmarks[0].Depth())
	assert.False(t, got[2].Hands[0].Valid(), "non-finite coordinates stay invalid")

	assert.Error(t, s.Frames().Append(ctx, sess.ID, 1, frames[0]), "duplicate seq")
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess := &Session{Source: "mock"}
	require.NoError(t, s.Sessions().Create(ctx, sess))

	at := time.Unix(50, 0)
	events := []gesture.Event{
		{Kind: gesture.KindPinch, Side: hand.SideLeft, At: at, Color: 0.25},
		{Kind: gesture.KindWave, Side: hand.SideRight, At: at, RotateDirection: 1},
		{Kind: gesture.KindPinch, Side: hand.SideLeft, At: at.Add(time.Second), Color: 0.5},
	}
	for i, ev := range events {
		require.NoError(t, s.Events().Append(ctx, sess.ID, uint64(i+1), ev))
	}

	all, err := s.Events().ListBySession(ctx, sess.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, events[1], all[1].Event)
	assert.Equal(t, uint64(2), all[1].Seq)

	pinches, err := s.Events().ListBySession(ctx, sess.ID, gesture.KindPinch)
	require.NoError(t, err)
	require.Len(t, pinches, 2)
	assert.Equal(t, 0.5, pinches[1].Color)

	counts, err := s.Events().CountByKind(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, map[gesture.Kind]int{gesture.KindPinch: 2, gesture.KindWave: 1}, counts)
}

func TestRecorder_ReplayIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cfg := pipeline.DefaultConfig()
	cfg.TickRate = 0

	start := time.Unix(3000, 0)
	var input []hand.Frame
	add := func(hands ...hand.Observation) {
		input = append(input, hand.Frame{
			Timestamp: start.Add(time.Duration(len(input)) * 50 * time.Millisecond),
			Hands:     hands,
		})
	}
	for i := 0; i < 12; i++ {
		add(hand.Translate(hand.OpenPalm(), 0.03*float64(i%2), 0))
	}
	add(hand.Yo())
	add()
	add(hand.OKPinch(), hand.WithHandedness(hand.Translate(hand.OpenPalm(), 0.05, 0), "Left"))
	add(hand.ThumbsUp())

	rec, err := NewRecorder(ctx, s, "determinism", "mock")
	require.NoError(t, err)

	live := pipeline.New(cfg)
	live.AddSink(rec)
	var liveTicks []pipeline.Tick
	for _, f := range input {
		liveTicks = append(liveTicks, live.Process(f))
	}
	require.NoError(t, rec.Close(ctx))

	sess, err := s.Sessions().GetByID(ctx, rec.SessionID())
	require.NoError(t, err)
	assert.Equal(t, len(input), sess.Frames)
	assert.NotNil(t, sess.EndedAt)

	recorded, err := s.Frames().ListFrames(ctx, rec.SessionID())
	require.NoError(t, err)
	require.Len(t, recorded, len(input))

	replay := pipeline.New(cfg)
	totalEvents := 0
	for i, f := range recorded {
		tick := replay.Process(f)
		assert.Equal(t, liveTicks[i].State, tick.State, "tick %d", i)
		assert.Equal(t, liveTicks[i].Events, tick.Events, "tick %d", i)
		totalEvents += len(tick.Events)
	}
	require.NotZero(t, totalEvents)
	assert.Equal(t, totalEvents, sess.Events)

	stored, err := s.Events().ListBySession(ctx, rec.SessionID(), "")
	require.NoError(t, err)
	assert.Len(t, stored, totalEvents)

	// Publishing after close is a no-op.
	rec.Publish(liveTicks[0])
	require.NoError(t, rec.Close(ctx))
}
