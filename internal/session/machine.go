// Package session owns the per-run capture state: the timer/countdown state
// machine that decides when the shutter fires, the tick scheduler driving it,
// and the session's target list and captured stills.
package session

import (
	"sync"
	"time"
)

// State is a discrete phase of the capture state machine.
type State int

const (
	// StateIdle means no target is active.
	StateIdle State = iota
	// StateWaiting is the generous pre-capture window in which the user
	// gets into position. An auto-shutter can preempt it.
	StateWaiting
	// StateCountdown is the urgent final countdown. Expiry always fires a
	// forced capture regardless of similarity.
	StateCountdown
	// StateCapturing means a capture is in flight. Capturing is a mutex
	// state: further triggers and skips are no-ops until CaptureDone.
	StateCapturing
	// StatePaused freezes the timers. Similarity may still be observed and
	// displayed but never triggers capture.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateCountdown:
		return "countdown"
	case StateCapturing:
		return "capturing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Timer and threshold defaults.
const (
	DefaultWaitSeconds         = 10
	DefaultCountdownSeconds    = 5
	DefaultSimilarityThreshold = 70
	DefaultSettleDelay         = 500 * time.Millisecond
)

// Config holds the timing and threshold knobs of the state machine.
type Config struct {
	// WaitSeconds is the pre-capture window duration.
	WaitSeconds int
	// CountdownSeconds is the final countdown duration.
	CountdownSeconds int
	// SimilarityThreshold is the score at or above which the auto-shutter
	// fires during the wait window.
	SimilarityThreshold int
	// SettleDelay is how long the caller should wait after the capture
	// side effects before advancing. The machine itself never sleeps; the
	// delay belongs to whoever performs the capture and calls CaptureDone.
	SettleDelay time.Duration
}

// DefaultConfig returns the production timing defaults.
func DefaultConfig() Config {
	return Config{
		WaitSeconds:         DefaultWaitSeconds,
		CountdownSeconds:    DefaultCountdownSeconds,
		SimilarityThreshold: DefaultSimilarityThreshold,
		SettleDelay:         DefaultSettleDelay,
	}
}

// Snapshot is a consistent view of the machine for display purposes.
type Snapshot struct {
	State              State  `json:"state"`
	WaitRemaining      int    `json:"waitRemaining"`
	CountdownRemaining int    `json:"countdownRemaining"`
	Index              int    `json:"index"`
	Length             int    `json:"length"`
	LastScore          int    `json:"lastScore"`
	Epoch              uint64 `json:"-"`
}

// Machine is the capture state machine for one target sequence.
//
// Ticks arrive once per second from a scheduler; similarity observations
// arrive from the detection loop on another goroutine. Every decision reads
// the machine state and the observation's epoch atomically under one lock,
// so a score computed against a previous target can never fire a capture for
// the current one.
type Machine struct {
	mu  sync.Mutex
	cfg Config

	state  State
	resume State // state to restore on Resume

	waitRemaining      int
	countdownRemaining int

	index  int
	length int

	// epoch increments on every target change. Similarity observations
	// carry the epoch of the target they were scored against; stale
	// epochs are dropped.
	epoch     uint64
	lastScore int

	onCapture func(index int, forced bool)
	onAdvance func(index int)
	onDone    func()
}

// NewMachine creates an idle Machine with the given configuration.
// Zero-valued config fields fall back to the defaults.
func NewMachine(cfg Config) *Machine {
	if cfg.WaitSeconds <= 0 {
		cfg.WaitSeconds = DefaultWaitSeconds
	}
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultCountdownSeconds
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Machine{cfg: cfg, state: StateIdle}
}

// Config returns the machine's effective configuration.
func (m *Machine) Config() Config {
	return m.cfg
}

// OnCapture registers the capture trigger. It is invoked off-lock, exactly
// once per transition into StateCapturing; forced reports whether the
// trigger was countdown expiry rather than the auto-shutter.
func (m *Machine) OnCapture(fn func(index int, forced bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCapture = fn
}

// OnAdvance registers the callback invoked after the current target changes
// (capture completed, skip, or jump).
func (m *Machine) OnAdvance(fn func(index int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAdvance = fn
}

// OnDone registers the callback invoked when the sequence is exhausted.
// Completion is reported outward, never handled internally.
func (m *Machine) OnDone(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDone = fn
}

// Begin starts a sequence of length targets at index 0. A zero-length
// sequence completes immediately.
func (m *Machine) Begin(length int) {
	m.mu.Lock()
	m.length = length
	m.index = 0
	m.epoch++
	m.lastScore = 0

	if length == 0 {
		m.state = StateIdle
		done := m.onDone
		m.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}

	m.resetTimers()
	m.state = StateWaiting
	advance := m.onAdvance
	m.mu.Unlock()

	if advance != nil {
		advance(0)
	}
}

// Tick advances the machine by one scheduler second.
func (m *Machine) Tick() {
	m.mu.Lock()
	var fire func()

	switch m.state {
	case StateWaiting:
		m.waitRemaining--
		if m.waitRemaining <= 0 {
			m.state = StateCountdown
			m.countdownRemaining = m.cfg.CountdownSeconds
		}
	case StateCountdown:
		m.countdownRemaining--
		if m.countdownRemaining <= 0 {
			fire = m.beginCapture(true)
		}
	}
	// Idle, Capturing and Paused ignore ticks.

	m.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// ObserveSimilarity feeds a similarity score computed against the target
// active at the given epoch. Stale epochs are dropped entirely; a current
// score at or above the threshold during the wait window fires the
// auto-shutter.
func (m *Machine) ObserveSimilarity(score int, epoch uint64) {
	m.mu.Lock()

	if epoch != m.epoch {
		m.mu.Unlock()
		return
	}

	m.lastScore = score

	var fire func()
	if m.state == StateWaiting && score >= m.cfg.SimilarityThreshold {
		fire = m.beginCapture(false)
	}

	m.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// CaptureDone reports that the in-flight capture (side effects and settle
// delay included) finished, advancing the sequence to the next target.
func (m *Machine) CaptureDone() {
	m.mu.Lock()
	if m.state != StateCapturing {
		m.mu.Unlock()
		return
	}
	fire := m.advanceLocked(StateWaiting)
	m.mu.Unlock()
	fire()
}

// Skip advances to the next target without capturing. It is ignored while a
// capture is in flight and when no sequence is active. Skipping while paused
// stays paused on the new target.
func (m *Machine) Skip() {
	m.mu.Lock()
	if m.state == StateCapturing || m.state == StateIdle {
		m.mu.Unlock()
		return
	}

	next := StateWaiting
	if m.state == StatePaused {
		next = StatePaused
	}
	fire := m.advanceLocked(next)
	m.mu.Unlock()
	fire()
}

// Pause freezes the timers. Similarity keeps flowing for display but cannot
// trigger capture until Resume.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateWaiting || m.state == StateCountdown {
		m.resume = m.state
		m.state = StatePaused
	}
}

// Resume continues from the frozen timer values.
func (m *Machine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StatePaused {
		m.state = m.resume
	}
}

// JumpTo selects an arbitrary target, resets the timers and forces a pause:
// manual review must not auto-fire. It is ignored while a capture is in
// flight.
func (m *Machine) JumpTo(index int) {
	m.mu.Lock()
	if m.state == StateCapturing || m.length == 0 {
		m.mu.Unlock()
		return
	}

	if index < 0 {
		index = 0
	}
	if index >= m.length {
		index = m.length - 1
	}

	m.index = index
	m.epoch++
	m.lastScore = 0
	m.resetTimers()
	m.resume = StateWaiting
	m.state = StatePaused

	advance := m.onAdvance
	m.mu.Unlock()

	if advance != nil {
		advance(index)
	}
}

// State returns the current discrete state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Epoch returns the identity of the current target for staleness checks.
func (m *Machine) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Index returns the current target index together with its epoch, read
// atomically.
func (m *Machine) Index() (int, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index, m.epoch
}

// Snapshot returns a consistent view for display.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:              m.state,
		WaitRemaining:      m.waitRemaining,
		CountdownRemaining: m.countdownRemaining,
		Index:              m.index,
		Length:             m.length,
		LastScore:          m.lastScore,
		Epoch:              m.epoch,
	}
}

// beginCapture transitions into StateCapturing. Must be called with the lock
// held; the returned closure invokes the capture trigger off-lock. Returns
// nil if a capture is already in flight.
func (m *Machine) beginCapture(forced bool) func() {
	if m.state == StateCapturing {
		return nil
	}
	m.state = StateCapturing

	cb := m.onCapture
	idx := m.index
	if cb == nil {
		return func() {}
	}
	return func() { cb(idx, forced) }
}

// advanceLocked moves to the next target. Must be called with the lock held;
// the returned closure fires the appropriate callback off-lock.
func (m *Machine) advanceLocked(next State) func() {
	m.index++
	m.epoch++
	m.lastScore = 0

	if m.index >= m.length {
		m.state = StateIdle
		done := m.onDone
		return func() {
			if done != nil {
				done()
			}
		}
	}

	m.resetTimers()
	m.resume = StateWaiting
	m.state = next

	advance := m.onAdvance
	idx := m.index
	return func() {
		if advance != nil {
			advance(idx)
		}
	}
}

func (m *Machine) resetTimers() {
	m.waitRemaining = m.cfg.WaitSeconds
	m.countdownRemaining = m.cfg.CountdownSeconds
}
