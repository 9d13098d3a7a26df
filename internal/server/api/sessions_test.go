package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danceframe/danceframe/internal/store"
	"github.com/google/uuid"
)

// newTestStore creates a Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

// fakeController records which pipeline operations the API invoked.
type fakeController struct {
	started  []string
	stopped  int
	skipped  int
	paused   int
	resumed  int
	jumps    []int
	retakes  []int
	startErr error
}

func (c *fakeController) StartSession(id string) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.started = append(c.started, id)
	return nil
}
func (c *fakeController) StopSession()     { c.stopped++ }
func (c *fakeController) Skip()            { c.skipped++ }
func (c *fakeController) Pause()           { c.paused++ }
func (c *fakeController) Resume()          { c.resumed++ }
func (c *fakeController) JumpTo(index int) { c.jumps = append(c.jumps, index) }
func (c *fakeController) Retake(index int) { c.retakes = append(c.retakes, index) }

func seedSession(t *testing.T, s *store.Store, name string, targetCount int) *store.Session {
	t.Helper()

	sess := &store.Session{ID: uuid.NewString(), Name: name}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for i := 0; i < targetCount; i++ {
		target := &store.Target{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			Idx:       i,
			ImageRef:  "frames/seed.jpg",
		}
		if err := s.Targets().Create(target, nil); err != nil {
			t.Fatalf("failed to create target: %v", err)
		}
	}
	return sess
}

func TestSessionHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	body := `{"name": "recital", "targets": [{"imageRef": "frames/000.jpg"}, {"imageRef": "frames/017.jpg"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body)
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "recital" {
		t.Errorf("Name = %q, want %q", resp.Name, "recital")
	}
	if len(resp.Targets) != 2 {
		t.Fatalf("created %d targets, want 2", len(resp.Targets))
	}
	if resp.Targets[1].ImageRef != "frames/017.jpg" {
		t.Errorf("Targets[1].ImageRef = %q, want %q", resp.Targets[1].ImageRef, "frames/017.jpg")
	}
}

func TestSessionHandler_Create_Validation(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing name", `{"targets": [{"imageRef": "a.jpg"}]}`},
		{"no targets", `{"name": "empty"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	seedSession(t, s, "first", 1)
	seedSession(t, s, "second", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Errorf("listed %d sessions, want 2", len(resp.Sessions))
	}
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	sess := seedSession(t, s, "detail", 3)

	// One capture present, so one target reads as captured.
	if err := s.Captures().Save(&store.Capture{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Idx:       1,
		Image:     []byte{0xff, 0xd8},
	}); err != nil {
		t.Fatalf("failed to save capture: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(resp.Targets))
	}
	if !resp.Targets[1].Captured {
		t.Error("Targets[1] should read as captured")
	}
	if resp.Targets[0].Captured {
		t.Error("Targets[0] should not read as captured")
	}
}

func TestSessionHandler_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	sess := seedSession(t, s, "doomed", 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if _, err := s.Sessions().GetByID(sess.ID); err != store.ErrNotFound {
		t.Errorf("session should be deleted, got err = %v", err)
	}
}

func TestSessionHandler_ControlActions(t *testing.T) {
	s := newTestStore(t)
	ctl := &fakeController{}
	handler := NewSessionHandler(s, ctl)

	sess := seedSession(t, s, "controlled", 2)

	post := func(action, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/"+action,
			bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for _, action := range []string{"start", "pause", "resume", "skip", "stop"} {
		if rec := post(action, ""); rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected status %d, got %d", action, http.StatusNoContent, rec.Code)
		}
	}
	if rec := post("jump", `{"index": 3}`); rec.Code != http.StatusNoContent {
		t.Errorf("jump: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec := post("retake", `{"index": 1}`); rec.Code != http.StatusNoContent {
		t.Errorf("retake: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if len(ctl.started) != 1 || ctl.started[0] != sess.ID {
		t.Errorf("started = %v, want [%s]", ctl.started, sess.ID)
	}
	if ctl.stopped != 1 || ctl.skipped != 1 || ctl.paused != 1 || ctl.resumed != 1 {
		t.Errorf("control counts = stop %d skip %d pause %d resume %d, want 1 each",
			ctl.stopped, ctl.skipped, ctl.paused, ctl.resumed)
	}
	if len(ctl.jumps) != 1 || ctl.jumps[0] != 3 {
		t.Errorf("jumps = %v, want [3]", ctl.jumps)
	}
	if len(ctl.retakes) != 1 || ctl.retakes[0] != 1 {
		t.Errorf("retakes = %v, want [1]", ctl.retakes)
	}
}

func TestSessionHandler_Control_UnknownAction(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	sess := seedSession(t, s, "controlled", 1)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/explode", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_Control_NoPipeline(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, nil)

	sess := seedSession(t, s, "storage-only", 1)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/start", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestSessionHandler_CaptureDownload(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	sess := seedSession(t, s, "with-capture", 1)
	img := []byte{0xff, 0xd8, 0xff, 0xe0}
	if err := s.Captures().Save(&store.Capture{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Idx:       0,
		Image:     img,
	}); err != nil {
		t.Fatalf("failed to save capture: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/captures/0", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), img) {
		t.Error("capture body does not match the stored image")
	}
}

func TestSessionHandler_CaptureDownload_Errors(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s, &fakeController{})

	sess := seedSession(t, s, "empty", 1)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/captures/0", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing capture: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/captures/zero", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad index: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
