package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/hand"
)

// FrameRepository stores the input frames of a session.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append stores frame as tick seq of the session.
func (r *FrameRepository) Append(ctx context.Context, sessionID string, seq uint64, frame hand.Frame) error {
	return appendFrame(ctx, r.db, sessionID, seq, frame)
}

// ListFrames returns the session's frames in tick order with their
// original timestamps.
func (r *FrameRepository) ListFrames(ctx context.Context, sessionID string) ([]hand.Frame, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT captured_at, hands FROM frames WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list frames")
	}
	defer rows.Close()

	var frames []hand.Frame
	for rows.Next() {
		var (
			at   int64
			data string
		)
		if err := rows.Scan(&at, &data); err != nil {
			return nil, errors.Wrap(err, "scan frame")
		}
		hands, err := decodeHands([]byte(data))
		if err != nil {
			return nil, err
		}
		frames = append(frames, hand.Frame{Timestamp: time.Unix(0, at), Hands: hands})
	}
	return frames, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendFrame(ctx context.Context, db execer, sessionID string, seq uint64, frame hand.Frame) error {
	data, err := encodeHands(frame.Hands)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO frames (session_id, seq, captured_at, hands) VALUES (?, ?, ?, ?)`,
		sessionID, int64(seq), frame.Timestamp.UnixNano(), string(data),
	)
	return errors.Wrapf(err, "append frame %d", seq)
}

// Landmarks may legitimately contain NaN or Inf, which JSON cannot carry.
// Non-finite coordinates are stored as null and restored as NaN; the
// pipeline treats both the same way.

type coord float64

func (c coord) MarshalJSON() ([]byte, error) {
	v := float64(c)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (c *coord) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = coord(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = coord(v)
	return nil
}

type storedHand struct {
	Points     [][3]coord `json:"p"`
	Handedness string     `json:"h"`
	Score      coord      `json:"s"`
	At         int64      `json:"t,omitempty"`
}

func encodeHands(hands []hand.Observation) ([]byte, error) {
	stored := make([]storedHand, len(hands))
	for i, h := range hands {
		sh := storedHand{
			Points:     make([][3]coord, len(h.Landmarks)),
			Handedness: h.Handedness,
			Score:      coord(h.Score),
		}
		if !h.Timestamp.IsZero() {
			sh.At = h.Timestamp.UnixNano()
		}
		for j, p := range h.Landmarks {
			sh.Points[j] = [3]coord{coord(p.X), coord(p.Y), coord(p.Z)}
		}
		stored[i] = sh
	}

	data, err := json.Marshal(stored)
	return data, errors.Wrap(err, "encode hands")
}

func decodeHands(data []byte) ([]hand.Observation, error) {
	var stored []storedHand
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "decode hands")
	}
	if len(stored) == 0 {
		return nil, nil
	}

	hands := make([]hand.Observation, len(stored))
	for i, sh := range stored {
		obs := hand.Observation{
			Landmarks:  make([]hand.Point3D, len(sh.Points)),
			Handedness: sh.Handedness,
			Score:      float64(sh.Score),
		}
		if sh.At != 0 {
			obs.Timestamp = time.Unix(0, sh.At)
		}
		for j, p := range sh.Points {
			obs.Landmarks[j] = hand.Point3D{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		}
		hands[i] = obs
	}
	return hands, nil
}
