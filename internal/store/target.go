package store

import (
	"database/sql"
	"errors"

	"github.com/danceframe/danceframe/internal/pose"
)

// Target represents one reference pose of a session, in session order.
type Target struct {
	ID        string
	SessionID string
	Idx       int
	ImageRef  string
	HasPose   bool
}

// TargetRepository provides persistence for targets and their reference
// landmarks.
type TargetRepository struct {
	db *sql.DB
}

// Targets returns the target repository for this store.
func (s *Store) Targets() *TargetRepository {
	return &TargetRepository{db: s.db}
}

// Create inserts a target and, when ps is non-nil, its 33 reference
// landmarks in a single transaction.
func (r *TargetRepository) Create(t *Target, ps *pose.PoseSet) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t.HasPose = ps != nil

	_, err = tx.Exec(
		`INSERT INTO targets (id, session_id, idx, image_ref, has_pose)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Idx, t.ImageRef, t.HasPose,
	)
	if err != nil {
		return err
	}

	if ps != nil {
		stmt, err := tx.Prepare(
			`INSERT INTO target_landmarks (target_id, landmark_index, x, y, z, visibility)
			 VALUES (?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, lm := range ps.Landmarks {
			if _, err := stmt.Exec(t.ID, i, lm.X, lm.Y, lm.Z, lm.Visibility); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListBySession retrieves a session's targets in capture order.
func (r *TargetRepository) ListBySession(sessionID string) ([]*Target, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, idx, image_ref, has_pose
		 FROM targets WHERE session_id = ? ORDER BY idx ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*Target
	for rows.Next() {
		t := &Target{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Idx, &t.ImageRef, &t.HasPose); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}

// GetPose reconstructs a target's reference pose from its stored landmarks.
// A target recorded without a pose returns (nil, nil).
func (r *TargetRepository) GetPose(targetID string) (*pose.PoseSet, error) {
	var hasPose bool
	err := r.db.QueryRow(`SELECT has_pose FROM targets WHERE id = ?`, targetID).Scan(&hasPose)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !hasPose {
		return nil, nil
	}

	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z, visibility
		 FROM target_landmarks WHERE target_id = ? ORDER BY landmark_index ASC`,
		targetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ps := &pose.PoseSet{}
	for rows.Next() {
		var idx int
		var lm pose.Landmark
		if err := rows.Scan(&idx, &lm.X, &lm.Y, &lm.Z, &lm.Visibility); err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(ps.Landmarks) {
			continue
		}
		ps.Landmarks[idx] = lm
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ps, nil
}

// Delete removes a target and its landmarks.
func (r *TargetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM targets WHERE id = ?`, id)
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
