package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

// Event is a recorded gesture event.
type Event struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`

	gesture.Event
}

// EventRepository stores the gesture events of a session.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append stores ev as emitted on tick seq.
func (r *EventRepository) Append(ctx context.Context, sessionID string, seq uint64, ev gesture.Event) error {
	return appendEvent(ctx, r.db, sessionID, seq, ev)
}

// ListBySession returns a session's events in emission order. A non-empty
// kind restricts the result to that gesture.
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string, kind gesture.Kind) ([]Event, error) {
	query := `SELECT id, session_id, seq, kind, side, at, color, rotate_direction
		FROM events WHERE session_id = ?`
	args := []any{sessionID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev   Event
			seq  int64
			kind string
			side string
			at   int64
		)
		err := rows.Scan(&ev.ID, &ev.SessionID, &seq, &kind, &side, &at, &ev.Color, &ev.RotateDirection)
		if err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		ev.Seq = uint64(seq)
		ev.Kind = gesture.Kind(kind)
		ev.Side = hand.ParseSide(side)
		ev.At = time.Unix(0, at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByKind returns how many events of each kind a session produced.
func (r *EventRepository) CountByKind(ctx context.Context, sessionID string) (map[gesture.Kind]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind`,
		sessionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "count events")
	}
	defer rows.Close()

	counts := make(map[gesture.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, errors.Wrap(err, "scan event count")
		}
		counts[gesture.Kind(kind)] = n
	}
	return counts, rows.Err()
}

func appendEvent(ctx context.Context, db execer, sessionID string, seq uint64, ev gesture.Event) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO events (session_id, seq, kind, side, at, color, rotate_direction)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, int64(seq), string(ev.Kind), ev.Side.String(), ev.At.UnixNano(), ev.Color, ev.RotateDirection,
	)
	return errors.Wrapf(err, "append %s event", ev.Kind)
}
