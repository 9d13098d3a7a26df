package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// SessionStatus represents the lifecycle state of a stored session.
type SessionStatus string

const (
	// SessionStatusIdle means the session has been created but not started.
	SessionStatusIdle SessionStatus = "idle"
	// SessionStatusRunning means the capture pipeline is working through targets.
	SessionStatusRunning SessionStatus = "running"
	// SessionStatusPaused means capture is suspended at the current target.
	SessionStatusPaused SessionStatus = "paused"
	// SessionStatusDone means every target has been captured.
	SessionStatusDone SessionStatus = "done"
)

// Session represents a capture session stored in the database.
type Session struct {
	ID         string
	Name       string
	Status     SessionStatus
	CurrentIdx int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(sess *Session) error {
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	if sess.Status == "" {
		sess.Status = SessionStatusIdle
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, name, status, current_idx, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, string(sess.Status), sess.CurrentIdx, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	var status string

	err := r.db.QueryRow(
		`SELECT id, name, status, current_idx, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.Name, &status, &sess.CurrentIdx, &sess.CreatedAt, &sess.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sess.Status = SessionStatus(status)
	return sess, nil
}

// List retrieves all sessions from the database, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, name, status, current_idx, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var status string

		err := rows.Scan(&sess.ID, &sess.Name, &status, &sess.CurrentIdx, &sess.CreatedAt, &sess.UpdatedAt)
		if err != nil {
			return nil, err
		}

		sess.Status = SessionStatus(status)
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateProgress records the session's status and current target index.
func (r *SessionRepository) UpdateProgress(id string, status SessionStatus, currentIdx int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET status = ?, current_idx = ?, updated_at = ?
		 WHERE id = ?`,
		string(status), currentIdx, time.Now(), id,
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

// Delete removes a session from the database by its ID. Targets and
// captures cascade.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
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
