package app

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danceframe/danceframe/internal/capture"
	"github.com/danceframe/danceframe/internal/detector"
	"github.com/danceframe/danceframe/internal/session"
	"github.com/danceframe/danceframe/internal/store"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

func newTestApp(t *testing.T, s *store.Store) (*App, *detector.MockDetector, *session.ManualScheduler) {
	t.Helper()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	det := detector.NewMockDetector()
	sched := session.NewManualScheduler()

	a := New(Config{
		Store:         s,
		DetectionRate: 200,
		Mirror:        true,
		Machine: session.Config{
			WaitSeconds:         3,
			CountdownSeconds:    2,
			SimilarityThreshold: 70,
			SettleDelay:         time.Millisecond,
		},
	})
	a.SetCamera(cam)
	a.SetDetector(det, true)
	a.SetScheduler(sched)

	if err := a.Start(); err != nil {
		t.Fatalf("app.Start() error = %v", err)
	}
	t.Cleanup(a.Stop)

	return a, det, sched
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestApp_AutoCaptureFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, det, _ := newTestApp(t, nil)

	// The dancer already holds the first target pose.
	det.SetPose(detector.StandingPose())

	run := a.StartWith([]session.Target{
		{ImageRef: "target-0", Pose: detector.StandingPose()},
		{ImageRef: "target-1", Pose: detector.ArmsRaisedPose()},
	})

	// Matching pose fires the auto-shutter without any scheduler ticks.
	if !waitFor(t, 2*time.Second, func() bool {
		_, ok := run.Capture(0)
		idx, _ := a.Machine().Index()
		return ok && idx == 1
	}) {
		t.Fatal("first target was never auto-captured")
	}

	img, _ := run.Capture(0)
	if !bytes.HasPrefix(img, []byte{0xff, 0xd8}) {
		t.Error("captured still is not a JPEG")
	}

	// The second target wants raised arms; a standing pose must not fire.
	time.Sleep(50 * time.Millisecond)
	if st := a.Machine().State(); st != session.StateWaiting {
		t.Fatalf("state = %v, want waiting against a non-matching pose", st)
	}

	// Skipping the last target finishes the run.
	a.Skip()
	if st := a.Machine().State(); st != session.StateIdle {
		t.Errorf("state after final skip = %v, want idle", st)
	}
	if run.CaptureCount() != 1 {
		t.Errorf("CaptureCount() = %d, want 1", run.CaptureCount())
	}
}

func TestApp_ForcedCaptureOnTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, det, sched := newTestApp(t, nil)

	// The dancer never hits the target pose.
	det.SetPose(detector.ArmsRaisedPose())

	run := a.StartWith([]session.Target{
		{ImageRef: "target-0", Pose: detector.StandingPose()},
	})

	// Wait window expires, countdown runs out, the shutter is forced.
	for i := 0; i < 3+2; i++ {
		sched.Tick()
	}

	if !waitFor(t, 2*time.Second, func() bool {
		_, ok := run.Capture(0)
		return ok
	}) {
		t.Fatal("timeout never forced a capture")
	}

	if !waitFor(t, time.Second, func() bool {
		return a.Machine().State() == session.StateIdle
	}) {
		t.Error("single-target run should finish after the forced capture")
	}
}

func TestApp_StartSession_PersistsCaptures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	rec := &store.Session{ID: uuid.NewString(), Name: "persisted run"}
	if err := s.Sessions().Create(rec); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	target := &store.Target{
		ID:        uuid.NewString(),
		SessionID: rec.ID,
		Idx:       0,
		ImageRef:  "frames/000.jpg",
	}
	if err := s.Targets().Create(target, detector.StandingPose()); err != nil {
		t.Fatalf("failed to create target: %v", err)
	}

	a, det, _ := newTestApp(t, s)
	det.SetPose(detector.StandingPose())

	if err := a.StartSession(rec.ID); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		_, err := s.Captures().Get(rec.ID, 0)
		return err == nil
	}) {
		t.Fatal("capture was never persisted")
	}

	cap, err := s.Captures().Get(rec.ID, 0)
	if err != nil {
		t.Fatalf("Captures().Get() error = %v", err)
	}
	if cap.Forced {
		t.Error("matching pose should record an unforced capture")
	}

	if !waitFor(t, time.Second, func() bool {
		got, err := s.Sessions().GetByID(rec.ID)
		return err == nil && got.Status == store.SessionStatusDone
	}) {
		t.Error("session status should reach done")
	}
}

func TestApp_StopSession_RecordsAbandonment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	rec := &store.Session{ID: uuid.NewString(), Name: "abandoned run"}
	if err := s.Sessions().Create(rec); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	target := &store.Target{
		ID:        uuid.NewString(),
		SessionID: rec.ID,
		Idx:       0,
		ImageRef:  "frames/000.jpg",
	}
	if err := s.Targets().Create(target, detector.StandingPose()); err != nil {
		t.Fatalf("failed to create target: %v", err)
	}

	a, _, _ := newTestApp(t, s)

	if err := a.StartSession(rec.ID); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	// No matching pose arrives; the user gives up mid-run.
	a.StopSession()

	if got := a.Machine().State(); got != session.StateIdle {
		t.Errorf("State() = %v, want %v", got, session.StateIdle)
	}

	stored, err := s.Sessions().GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != store.SessionStatusIdle {
		t.Errorf("Status = %q, want %q (abandonment is not completion)", stored.Status, store.SessionStatusIdle)
	}

	if strings.Contains(logs.String(), "Session complete") {
		t.Error("stopping a session should not be logged as completion")
	}
}

func TestApp_Ready(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	a := New(Config{})
	a.SetCamera(cam)
	a.SetDetector(detector.NewMockDetector(), true)

	if a.Ready() {
		t.Error("Ready() = true before the camera is open")
	}

	if err := a.Start(); err != nil {
		t.Fatalf("app.Start() error = %v", err)
	}
	defer a.Stop()

	if !a.Ready() {
		t.Error("Ready() = false with camera open and engine ok")
	}
}

func TestApp_RetakeClearsCapture(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, det, _ := newTestApp(t, nil)
	det.SetPose(detector.StandingPose())

	run := a.StartWith([]session.Target{
		{ImageRef: "target-0", Pose: detector.StandingPose()},
		{ImageRef: "target-1", Pose: detector.ArmsRaisedPose()},
	})

	if !waitFor(t, 2*time.Second, func() bool {
		_, ok := run.Capture(0)
		return ok
	}) {
		t.Fatal("first target was never captured")
	}

	a.Retake(0)

	if _, ok := run.Capture(0); ok {
		t.Error("Retake should discard the stored capture")
	}
	if st := a.Machine().State(); st != session.StatePaused {
		t.Errorf("state after Retake = %v, want paused", st)
	}
	if idx, _ := a.Machine().Index(); idx != 0 {
		t.Errorf("index after Retake = %d, want 0", idx)
	}
}
