package detector

import (
	"sync"

	"github.com/danceframe/danceframe/internal/pose"
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	pose  *pose.PoseSet
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the pose that will be returned by Detect. A nil pose means
// "no body detected".
func (m *MockDetector) SetPose(ps *pose.PoseSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = ps
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Detect invocations so far.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.PoseSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.pose, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a preset PoseSet for a subject standing upright,
// arms at the sides, fully visible.
func StandingPose() *pose.PoseSet {
	ps := &pose.PoseSet{}

	set := func(i int, x, y float64) {
		ps.Landmarks[i] = pose.Landmark{X: x, Y: y, Z: 0, Visibility: 0.95}
	}

	set(pose.Nose, 0.50, 0.10)
	set(pose.LeftShoulder, 0.60, 0.25)
	set(pose.RightShoulder, 0.40, 0.25)
	set(pose.LeftElbow, 0.63, 0.40)
	set(pose.RightElbow, 0.37, 0.40)
	set(pose.LeftWrist, 0.64, 0.55)
	set(pose.RightWrist, 0.36, 0.55)
	set(pose.LeftHip, 0.57, 0.55)
	set(pose.RightHip, 0.43, 0.55)
	set(pose.LeftKnee, 0.56, 0.74)
	set(pose.RightKnee, 0.44, 0.74)
	set(pose.LeftAnkle, 0.56, 0.92)
	set(pose.RightAnkle, 0.44, 0.92)

	return ps
}

// ArmsRaisedPose returns a preset PoseSet for a subject with both arms
// raised above the head, fully visible.
func ArmsRaisedPose() *pose.PoseSet {
	ps := StandingPose()

	set := func(i int, x, y float64) {
		ps.Landmarks[i] = pose.Landmark{X: x, Y: y, Z: 0, Visibility: 0.95}
	}

	set(pose.LeftElbow, 0.66, 0.16)
	set(pose.RightElbow, 0.34, 0.16)
	set(pose.LeftWrist, 0.64, 0.04)
	set(pose.RightWrist, 0.36, 0.04)

	return ps
}
