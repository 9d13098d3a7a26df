// Package tray provides a system tray interface for the DanceFrame capture
// service.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle  func(paused bool)
	onGallery func()
	onQuit    func()
	paused    bool
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuLastScore *systray.MenuItem
}

// New creates a new Tray instance, running (not paused) by default.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback function to be called when capture is paused
// or resumed from the menu.
func (t *Tray) OnToggle(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnGallery sets the callback function to be called when the gallery menu
// item is clicked.
func (t *Tray) OnGallery(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onGallery = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("DanceFrame")
	systray.SetTooltip("DanceFrame Pose Capture")

	t.menuToggle = systray.AddMenuItem("● Capturing", "Pause or resume capture")
	systray.AddSeparator()

	t.menuLastScore = systray.AddMenuItem("Score: --", "Last similarity score")
	t.menuLastScore.Disable()
	systray.AddSeparator()

	menuGallery := systray.AddMenuItem("Open Gallery...", "Open the capture gallery in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit DanceFrame")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuGallery.ClickedCh:
				t.handleGallery()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleToggle handles the pause/resume menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused

	if paused {
		t.menuToggle.SetTitle("○ Paused")
	} else {
		t.menuToggle.SetTitle("● Capturing")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

// handleGallery handles the gallery menu item click.
func (t *Tray) handleGallery() {
	t.mu.RLock()
	callback := t.onGallery
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastScore updates the similarity score display in the menu.
func (t *Tray) SetLastScore(score int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastScore != nil {
		t.menuLastScore.SetTitle(fmt.Sprintf("Score: %d", score))
	}
}

// IsPaused returns whether capture is paused from the tray.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}
