package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per capture session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'idle'
				CHECK(status IN ('idle', 'running', 'paused', 'done')),
			current_idx INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Targets table - ordered reference poses of a session
		`CREATE TABLE IF NOT EXISTS targets (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			image_ref TEXT NOT NULL,
			has_pose INTEGER NOT NULL DEFAULT 0,
			UNIQUE(session_id, idx)
		)`,

		// Target landmarks table - reference pose landmark positions
		`CREATE TABLE IF NOT EXISTS target_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target_id TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			visibility REAL NOT NULL
		)`,

		// Captures table - stills taken at each target position
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			image BLOB NOT NULL,
			forced INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, idx)
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_targets_session_id ON targets(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_target_landmarks_target_id ON target_landmarks(target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_captures_session_id ON captures(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
