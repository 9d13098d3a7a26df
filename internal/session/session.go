package session

import (
	"sync"

	"github.com/danceframe/danceframe/internal/pose"
	"github.com/google/uuid"
)

// Target is one pose the user must imitate, keyed by a stable reference to
// its thumbnail image. Pose stays nil until extraction succeeds, and remains
// nil permanently if extraction fails.
type Target struct {
	ImageRef string
	Pose     *pose.PoseSet
}

// CaptureSession is the per-run state of one matching sequence: the ordered
// target list and the stills captured so far, indexed by target position.
type CaptureSession struct {
	ID string

	mu       sync.Mutex
	targets  []Target
	captures map[int][]byte
}

// NewCaptureSession creates a session over the given targets with a fresh
// identifier.
func NewCaptureSession(targets []Target) *CaptureSession {
	return &CaptureSession{
		ID:       uuid.NewString(),
		targets:  targets,
		captures: make(map[int][]byte),
	}
}

// Len returns the number of targets.
func (s *CaptureSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}

// Target returns the target at index i.
func (s *CaptureSession) Target(i int) (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.targets) {
		return Target{}, false
	}
	return s.targets[i], true
}

// SetTargetPose records the extracted pose for the target at index i.
func (s *CaptureSession) SetTargetPose(i int, ps *pose.PoseSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i >= 0 && i < len(s.targets) {
		s.targets[i].Pose = ps
	}
}

// SetCapture stores the captured still for the target at index i, replacing
// any previous capture (retake).
func (s *CaptureSession) SetCapture(i int, image []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures[i] = image
}

// Capture returns the stored still for index i.
func (s *CaptureSession) Capture(i int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.captures[i]
	return img, ok
}

// ClearCapture removes the stored still for index i, e.g. ahead of a retake.
func (s *CaptureSession) ClearCapture(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.captures, i)
}

// CaptureCount returns how many targets have a stored still.
func (s *CaptureSession) CaptureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captures)
}

// Reset drops all captured stills, keeping the target list.
func (s *CaptureSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures = make(map[int][]byte)
}
