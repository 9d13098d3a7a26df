package session

import (
	"sync"
	"time"
)

// CancelFunc stops a recurring schedule. It blocks until the callback can no
// longer be invoked: after it returns, no dangling tick fires.
type CancelFunc func()

// Scheduler abstracts the recurring tick source driving the state machine,
// so cancellation is explicit and tests can drive ticks by hand.
type Scheduler interface {
	ScheduleRecurring(interval time.Duration, fn func()) CancelFunc
}

// TickerScheduler is the production Scheduler backed by time.Ticker.
type TickerScheduler struct{}

// NewTickerScheduler creates a TickerScheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// ScheduleRecurring runs fn every interval on its own goroutine until the
// returned CancelFunc is called. Cancellation is deterministic: the cancel
// call joins the goroutine, so fn never runs after cancel returns.
func (s *TickerScheduler) ScheduleRecurring(interval time.Duration, fn func()) CancelFunc {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A tick may already be buffered when cancel lands;
				// re-check before invoking.
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

// ManualScheduler is a test Scheduler whose ticks are driven explicitly.
type ManualScheduler struct {
	mu    sync.Mutex
	next  int
	funcs map[int]func()
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{funcs: make(map[int]func())}
}

// ScheduleRecurring registers fn; it only runs when Tick is called.
func (s *ManualScheduler) ScheduleRecurring(interval time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	id := s.next
	s.next++
	s.funcs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.funcs, id)
		s.mu.Unlock()
	}
}

// Tick synchronously invokes every registered callback once.
func (s *ManualScheduler) Tick() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.funcs))
	for _, fn := range s.funcs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Active returns the number of registered schedules.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.funcs)
}
