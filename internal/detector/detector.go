// Package detector provides the pose-estimation engine boundary: an interface
// for body pose detection plus the MediaPipe-backed implementation.
package detector

import (
	"errors"

	"github.com/danceframe/danceframe/internal/pose"
	"gocv.io/x/gocv"
)

// ErrEngineInit is returned when the pose-estimation engine cannot be
// located or started. It is an initialization error, not a per-frame error:
// callers should surface a distinct error state rather than degrade silently.
var ErrEngineInit = errors.New("pose engine failed to initialize")

// Detector defines the interface for body pose detection implementations.
// The engine instance is expensive to initialize and is shared across all
// call sites; Close it only at process shutdown.
type Detector interface {
	// Detect analyzes a video frame and returns the detected body pose.
	// Returns (nil, nil) when no body is detected in the frame.
	Detect(frame *gocv.Mat) (*pose.PoseSet, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the MediaPipe pose model (0, 1 or 2).
	// Higher is more accurate and slower.
	ModelComplexity int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		ModelComplexity: 1,
	}
}
