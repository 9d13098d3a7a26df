package store

import (
	"database/sql"
	"errors"
	"time"
)

// Capture represents a still taken at one target position of a session.
type Capture struct {
	ID        string
	SessionID string
	Idx       int
	Image     []byte
	Forced    bool
	CreatedAt time.Time
}

// CaptureRepository provides persistence for captured stills.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Save records a capture for (session, idx), replacing any earlier take at
// the same position. Retakes overwrite rather than accumulate.
func (r *CaptureRepository) Save(c *Capture) error {
	c.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO captures (id, session_id, idx, image, forced, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, idx) DO UPDATE SET
			id = excluded.id,
			image = excluded.image,
			forced = excluded.forced,
			created_at = excluded.created_at`,
		c.ID, c.SessionID, c.Idx, c.Image, c.Forced, c.CreatedAt,
	)
	return err
}

// Get retrieves the capture at a session position.
func (r *CaptureRepository) Get(sessionID string, idx int) (*Capture, error) {
	c := &Capture{}

	err := r.db.QueryRow(
		`SELECT id, session_id, idx, image, forced, created_at
		 FROM captures WHERE session_id = ? AND idx = ?`,
		sessionID, idx,
	).Scan(&c.ID, &c.SessionID, &c.Idx, &c.Image, &c.Forced, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return c, nil
}

// ListBySession retrieves a session's captures in position order, images
// included.
func (r *CaptureRepository) ListBySession(sessionID string) ([]*Capture, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, idx, image, forced, created_at
		 FROM captures WHERE session_id = ? ORDER BY idx ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c := &Capture{}
		err := rows.Scan(&c.ID, &c.SessionID, &c.Idx, &c.Image, &c.Forced, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return captures, nil
}

// Delete removes the capture at a session position, if present.
func (r *CaptureRepository) Delete(sessionID string, idx int) error {
	result, err := r.db.Exec(
		`DELETE FROM captures WHERE session_id = ? AND idx = ?`,
		sessionID, idx,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
