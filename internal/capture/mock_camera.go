package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// mockClockEpoch is the frame clock value right after Open.
const mockClockEpoch = 1000

// MockCamera plays back pre-recorded frames for testing. Its frame clock
// advances by ClockStepMs on every read, so loop tests can exercise the
// "new frame since last check" logic deterministically: with ClockStepMs 0
// the clock freezes and the loop must stop re-processing until AdvanceClock
// is called.
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	clock   int64
	ready   bool

	// ClockStepMs is how far the frame clock advances per read.
	// Zero freezes the clock so repeated reads look like the same frame.
	ClockStepMs int64
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames:      frames,
		loop:        loop,
		ready:       true,
		ClockStepMs: 33,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	// Arbitrary nonzero epoch: a zero clock means "no clock available".
	c.clock = mockClockEpoch
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++
	c.clock += c.ClockStepMs

	return &frame, nil
}

func (c *MockCamera) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.ready
}

func (c *MockCamera) Dimensions() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.ready {
		return 0, 0
	}
	return DefaultWidth, DefaultHeight
}

func (c *MockCamera) Clock() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// SetReady overrides the readiness predicate without closing the camera.
func (c *MockCamera) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// AdvanceClock moves the frame clock forward without reading a frame.
func (c *MockCamera) AdvanceClock(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock += ms
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
	c.clock = mockClockEpoch
}
