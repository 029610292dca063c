package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per recording run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			frames INTEGER NOT NULL DEFAULT 0,
			events INTEGER NOT NULL DEFAULT 0
		)`,

		// Input frames, one per tick, hands stored as JSON
		`CREATE TABLE IF NOT EXISTS frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			captured_at INTEGER NOT NULL,
			hands TEXT NOT NULL DEFAULT '[]'
		)`,

		// Discrete gesture events emitted by the pipeline
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			side TEXT NOT NULL,
			at INTEGER NOT NULL,
			color REAL NOT NULL DEFAULT 0,
			rotate_direction INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_frames_session_seq ON frames(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
