package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - runtime detection settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Shots table - journal of accepted shots, in frame coordinates
		`CREATE TABLE IF NOT EXISTS shots (
			id TEXT PRIMARY KEY,
			camera TEXT NOT NULL,
			session_id TEXT NOT NULL,
			color TEXT NOT NULL CHECK(color IN ('red', 'green')),
			x REAL NOT NULL,
			y REAL NOT NULL,
			frame INTEGER NOT NULL,
			marker_radius INTEGER NOT NULL,
			shot_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_shots_camera ON shots(camera)`,
		`CREATE INDEX IF NOT EXISTS idx_shots_shot_at ON shots(shot_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
