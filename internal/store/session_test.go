package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := testStore(t)
	repo := s.Sessions()

	sess := &Session{
		ID:   uuid.New().String(),
		Name: "morning rehearsal",
	}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "morning rehearsal" {
		t.Errorf("Name = %q, want %q", got.Name, "morning rehearsal")
	}
	if got.Status != SessionStatusIdle {
		t.Errorf("Status = %q, want %q", got.Status, SessionStatusIdle)
	}
	if got.CurrentIdx != 0 {
		t.Errorf("CurrentIdx = %d, want 0", got.CurrentIdx)
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Sessions().GetByID("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := testStore(t)
	repo := s.Sessions()

	for _, name := range []string{"first", "second", "third"} {
		if err := repo.Create(&Session{ID: uuid.New().String(), Name: name}); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}

	sessions, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(sessions))
	}
}

func TestSessionRepository_UpdateProgress(t *testing.T) {
	s := testStore(t)
	repo := s.Sessions()

	sess := &Session{ID: uuid.New().String(), Name: "progress"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateProgress(sess.ID, SessionStatusRunning, 2); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != SessionStatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, SessionStatusRunning)
	}
	if got.CurrentIdx != 2 {
		t.Errorf("CurrentIdx = %d, want 2", got.CurrentIdx)
	}
}

func TestSessionRepository_UpdateProgress_NotFound(t *testing.T) {
	s := testStore(t)

	err := s.Sessions().UpdateProgress("no-such-id", SessionStatusDone, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateProgress() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_Delete_CascadesToChildren(t *testing.T) {
	s := testStore(t)

	sess := &Session{ID: uuid.New().String(), Name: "doomed"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	target := &Target{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Idx:       0,
		ImageRef:  "frames/000.jpg",
	}
	if err := s.Targets().Create(target, nil); err != nil {
		t.Fatalf("Targets().Create() error = %v", err)
	}

	cap := &Capture{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Idx:       0,
		Image:     []byte{0xff, 0xd8, 0xff},
	}
	if err := s.Captures().Save(cap); err != nil {
		t.Fatalf("Captures().Save() error = %v", err)
	}

	if err := s.Sessions().Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := s.Sessions().GetByID(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("session should be gone, got err = %v", err)
	}

	targets, err := s.Targets().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("targets should cascade on session delete, got %d", len(targets))
	}

	if _, err := s.Captures().Get(sess.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("captures should cascade on session delete, got err = %v", err)
	}
}
