// Package looper drives the pose-estimation engine against a live frame
// source at a bounded rate and forwards results to a callback.
package looper

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/danceframe/danceframe/internal/capture"
	"github.com/danceframe/danceframe/internal/detector"
	"github.com/danceframe/danceframe/internal/pose"
	"gocv.io/x/gocv"
)

// DefaultRate is the target number of detections per second. Full-rate
// detection on every rendered frame is wasted work above roughly 30Hz;
// clamping bounds cost without perceptibly hurting responsiveness.
const DefaultRate = 30

// pollDivisor sets how much finer the polling tick is than the detection
// interval, so throttling happens in software against wall-clock time
// rather than through a coarse fixed-rate timer.
const pollDivisor = 4

// Source is the live frame source the loop pulls from. Ready reports valid
// non-zero dimensions; Clock is a per-frame timestamp used to skip frames
// that have not advanced (0 means no clock available).
type Source interface {
	Ready() bool
	Clock() int64
	ReadFrame() (*gocv.Mat, error)
}

// Loop repeatedly runs detection against a Source and forwards each result.
//
// Failure handling is fail-stop, not fail-retry: a transient interruption
// (source torn down, context canceled) stops the loop silently, any other
// error is logged and stops the loop, avoiding a runaway error loop. The
// loop is deterministically cancellable: after Stop returns, the callback
// can no longer be invoked.
type Loop struct {
	source   Source
	det      detector.Detector
	onResult func(*pose.PoseSet)
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	done    chan struct{}
	lastErr error
}

// New creates a Loop at the default detection rate. onResult is invoked on
// the loop goroutine with the detected pose (nil when no body is in frame).
func New(source Source, det detector.Detector, onResult func(*pose.PoseSet)) *Loop {
	return &Loop{
		source:   source,
		det:      det,
		onResult: onResult,
		interval: time.Second / DefaultRate,
	}
}

// SetRate adjusts the target detections per second. Values <= 0 are ignored.
// Must be called before Start.
func (l *Loop) SetRate(perSecond int) {
	if perSecond <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interval = time.Second / time.Duration(perSecond)
}

// Start launches the loop goroutine. Starting a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopCh != nil {
		return
	}

	l.lastErr = nil
	l.stopCh = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stopCh, l.done, l.interval)
}

// Stop cancels the loop and joins its goroutine. No callback runs after
// Stop returns. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopCh == nil {
		l.mu.Unlock()
		return
	}
	close(l.stopCh)
	l.stopCh = nil
	done := l.done
	l.mu.Unlock()

	<-done
}

// Running reports whether the loop goroutine is alive.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Err returns the persistent error that stopped the loop, if any. A nil
// error after the loop stopped means it was cancelled or interrupted.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Loop) run(stop, done chan struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval / pollDivisor)
	defer ticker.Stop()

	var lastProcessed time.Time
	lastClock := int64(-1)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		// Software throttle to the target rate.
		if time.Since(lastProcessed) < interval {
			continue
		}

		// Source not ready yet: skip this tick, try again.
		if !l.source.Ready() {
			continue
		}

		// Same frame as last time: nothing new to detect.
		clock := l.source.Clock()
		if clock != 0 && clock == lastClock {
			continue
		}

		frame, err := l.source.ReadFrame()
		if err != nil {
			l.fail(err)
			return
		}

		ps, err := l.det.Detect(frame)
		frame.Close()
		if err != nil {
			l.fail(err)
			return
		}

		lastProcessed = time.Now()
		if clock != 0 {
			lastClock = clock
		}

		// Stop may have landed while detecting; never deliver a late
		// callback.
		select {
		case <-stop:
			return
		default:
		}

		l.onResult(ps)
	}
}

// fail classifies the error that is stopping the loop. Interruptions caused
// by teardown are swallowed; anything else is logged and recorded so the
// caller can surface a recoverable error state.
func (l *Loop) fail(err error) {
	if isTransient(err) {
		return
	}

	log.Printf("detection loop stopped: %v", err)

	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}

func isTransient(err error) bool {
	return errors.Is(err, capture.ErrCameraNotOpen) ||
		errors.Is(err, context.Canceled)
}
