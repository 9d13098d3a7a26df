// Package app wires the DanceFrame capture pipeline together: camera,
// pose engine, similarity scoring, the per-target state machine, and the
// score feed.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/danceframe/danceframe/internal/cache"
	"github.com/danceframe/danceframe/internal/capture"
	"github.com/danceframe/danceframe/internal/detector"
	"github.com/danceframe/danceframe/internal/looper"
	"github.com/danceframe/danceframe/internal/pose"
	"github.com/danceframe/danceframe/internal/session"
	"github.com/danceframe/danceframe/internal/store"
	"github.com/google/uuid"
)

// Config holds the application wiring options.
type Config struct {
	Store            *store.Store
	CameraID         int
	DetectionRate    int
	Mirror           bool
	ScoreScaleFactor float64
	Machine          session.Config
}

// App orchestrates one capture pipeline: it owns the camera, the shared
// pose engine handle, the landmark cache, the detection loop, and the state
// machine of the active session.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	scorer   *pose.Scorer
	capturer *capture.Capturer
	machine  *session.Machine
	cache    *cache.LandmarkCache
	loop     *looper.Loop
	sched    session.Scheduler
	pub      *Publisher

	engineOK bool

	mu         sync.Mutex
	active     *session.CaptureSession
	recordID   string // store session id, "" for in-memory runs
	cancelTick session.CancelFunc
}

// New creates an App. The pose engine is started lazily; when it cannot be
// initialized the app falls back to the mock detector and reports not ready.
func New(config Config) *App {
	a := &App{
		config:  config,
		camera:  capture.NewCamera(config.CameraID),
		scorer:  pose.NewScorer(config.ScoreScaleFactor),
		machine: session.NewMachine(config.Machine),
		sched:   session.NewTickerScheduler(),
	}

	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		a.engineOK = true
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	a.capturer = capture.NewCapturer(a.camera)
	a.capturer.SetMirror(config.Mirror)
	a.cache = cache.New(a.extractPose)
	a.pub = NewPublisher()
	a.loop = looper.New(a.camera, a.detector, a.onPose)
	if config.DetectionRate > 0 {
		a.loop.SetRate(config.DetectionRate)
	}

	a.machine.OnCapture(a.onCapture)
	a.machine.OnAdvance(a.onAdvance)
	a.machine.OnDone(a.onDone)

	return a
}

// SetDetector swaps the pose engine. Must be called before Start.
func (a *App) SetDetector(d detector.Detector, ok bool) {
	a.detector = d
	a.engineOK = ok
	a.loop = looper.New(a.camera, d, a.onPose)
	if a.config.DetectionRate > 0 {
		a.loop.SetRate(a.config.DetectionRate)
	}
}

// SetCamera swaps the frame source. Must be called before Start.
func (a *App) SetCamera(cam capture.Camera) {
	a.camera = cam
	a.capturer = capture.NewCapturer(cam)
	a.capturer.SetMirror(a.config.Mirror)
	a.loop = looper.New(cam, a.detector, a.onPose)
	if a.config.DetectionRate > 0 {
		a.loop.SetRate(a.config.DetectionRate)
	}
}

// SetScheduler swaps the tick source driving the state machine. Must be
// called before a session starts.
func (a *App) SetScheduler(s session.Scheduler) {
	a.sched = s
}

// Start opens the camera and launches the detection loop.
func (a *App) Start() error {
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.loop.Start()
	log.Println("Capture pipeline started")
	return nil
}

// Stop tears the pipeline down: detection loop, active session, camera and
// engine.
func (a *App) Stop() {
	a.loop.Stop()
	a.StopSession()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	log.Println("Capture pipeline stopped")
}

// Ready reports whether the pipeline can score poses: camera open and pose
// engine initialized.
func (a *App) Ready() bool {
	return a.camera.IsOpen() && a.engineOK
}

// StartSession loads a stored session and begins working through its
// targets.
func (a *App) StartSession(sessionID string) error {
	if a.config.Store == nil {
		return store.ErrNotFound
	}

	rec, err := a.config.Store.Sessions().GetByID(sessionID)
	if err != nil {
		return err
	}

	stored, err := a.config.Store.Targets().ListBySession(rec.ID)
	if err != nil {
		return err
	}

	targets := make([]session.Target, len(stored))
	for i, t := range stored {
		targets[i] = session.Target{ImageRef: t.ImageRef}
		if t.HasPose {
			if ps, err := a.config.Store.Targets().GetPose(t.ID); err == nil {
				targets[i].Pose = ps
			}
		}
	}

	a.beginRun(session.NewCaptureSession(targets), rec.ID)

	if err := a.config.Store.Sessions().UpdateProgress(rec.ID, store.SessionStatusRunning, 0); err != nil {
		log.Printf("Failed to record session start: %v", err)
	}
	return nil
}

// StartWith begins an in-memory session over the given targets, bypassing
// the store. Used by tests and ad-hoc runs.
func (a *App) StartWith(targets []session.Target) *session.CaptureSession {
	run := session.NewCaptureSession(targets)
	a.beginRun(run, "")
	return run
}

func (a *App) beginRun(run *session.CaptureSession, recordID string) {
	a.mu.Lock()
	if a.cancelTick != nil {
		a.cancelTick()
		a.cancelTick = nil
	}
	a.active = run
	a.recordID = recordID
	a.mu.Unlock()

	a.machine.Begin(run.Len())
	a.cache.InvalidateAll()

	cancel := a.sched.ScheduleRecurring(time.Second, a.machine.Tick)
	a.mu.Lock()
	a.cancelTick = cancel
	a.mu.Unlock()

	a.publish()
}

// StopSession abandons the active session, leaving already captured stills
// in place.
func (a *App) StopSession() {
	a.mu.Lock()
	cancel := a.cancelTick
	a.cancelTick = nil
	run := a.active
	recordID := a.recordID
	a.active = nil
	a.recordID = ""
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if run == nil {
		return
	}

	a.machine.Begin(0) // back to idle via an empty run
	if recordID != "" && a.config.Store != nil {
		snap := a.machine.Snapshot()
		if err := a.config.Store.Sessions().UpdateProgress(recordID, store.SessionStatusIdle, snap.Index); err != nil {
			log.Printf("Failed to record session stop: %v", err)
		}
	}
	a.publish()
}

// Session returns the active capture session, nil when idle.
func (a *App) Session() *session.CaptureSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Skip abandons the current target and moves on.
func (a *App) Skip() {
	a.machine.Skip()
	a.publish()
}

// Pause suspends the active session.
func (a *App) Pause() {
	a.machine.Pause()
	a.publish()
}

// Resume continues a paused session.
func (a *App) Resume() {
	a.machine.Resume()
	a.publish()
}

// JumpTo repositions the session at the given target, paused.
func (a *App) JumpTo(index int) {
	a.machine.JumpTo(index)
	a.publish()
}

// Retake discards the capture at index and repositions there, paused.
func (a *App) Retake(index int) {
	a.mu.Lock()
	run := a.active
	recordID := a.recordID
	a.mu.Unlock()

	if run != nil {
		run.ClearCapture(index)
	}
	if recordID != "" && a.config.Store != nil {
		if err := a.config.Store.Captures().Delete(recordID, index); err != nil && err != store.ErrNotFound {
			log.Printf("Failed to delete stored capture %d: %v", index, err)
		}
	}

	a.machine.JumpTo(index)
	a.publish()
}

// Snapshot returns the current feed state: machine snapshot plus readiness.
func (a *App) Snapshot() Update {
	snap := a.machine.Snapshot()
	return Update{
		Similarity:         snap.LastScore,
		State:              snap.State.String(),
		WaitRemaining:      snap.WaitRemaining,
		CountdownRemaining: snap.CountdownRemaining,
		Index:              snap.Index,
		Length:             snap.Length,
		Ready:              a.Ready(),
	}
}

// Machine returns the capture state machine.
func (a *App) Machine() *session.Machine {
	return a.machine
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Publisher returns the score feed publisher.
func (a *App) Publisher() *Publisher {
	return a.pub
}

// Cache returns the landmark cache.
func (a *App) Cache() *cache.LandmarkCache {
	return a.cache
}

func (a *App) publish() {
	a.pub.Publish(a.Snapshot())
}

func (a *App) onAdvance(index int) {
	a.mu.Lock()
	recordID := a.recordID
	a.mu.Unlock()

	if recordID != "" && a.config.Store != nil {
		if err := a.config.Store.Sessions().UpdateProgress(recordID, store.SessionStatusRunning, index); err != nil {
			log.Printf("Failed to record session progress: %v", err)
		}
	}
	a.publish()
}

func (a *App) onDone() {
	a.mu.Lock()
	run := a.active
	recordID := a.recordID
	a.mu.Unlock()

	// StopSession detaches the run before emptying the machine; reaching
	// here without one means the user walked away, not that a sequence
	// finished.
	if run == nil {
		a.publish()
		return
	}

	if recordID != "" && a.config.Store != nil {
		if err := a.config.Store.Sessions().UpdateProgress(recordID, store.SessionStatusDone, run.Len()); err != nil {
			log.Printf("Failed to record session completion: %v", err)
		}
	}
	log.Println("Session complete")
	a.publish()
}

// onCapture runs on its own goroutine per capture: take the still, persist
// it, wait for the settle delay, then release the machine.
func (a *App) onCapture(index int, forced bool) {
	go func() {
		a.mu.Lock()
		run := a.active
		recordID := a.recordID
		a.mu.Unlock()

		image, err := a.capturer.Capture()
		if err != nil {
			log.Printf("Capture at target %d failed: %v", index, err)
		} else {
			if run != nil {
				run.SetCapture(index, image)
			}
			if recordID != "" && a.config.Store != nil {
				c := &store.Capture{
					ID:        uuid.NewString(),
					SessionID: recordID,
					Idx:       index,
					Image:     image,
					Forced:    forced,
				}
				if err := a.config.Store.Captures().Save(c); err != nil {
					log.Printf("Failed to persist capture %d: %v", index, err)
				}
			}
		}

		// Let the captured frame linger on screen before moving on.
		time.Sleep(a.machine.Config().SettleDelay)
		a.machine.CaptureDone()
		a.publish()
	}()
}
