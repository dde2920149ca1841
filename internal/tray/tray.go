// Package tray provides a system tray interface for the shot detection service.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/phrack/ShootOFF-sub002/internal/app"
)

// Tray represents the system tray application. It is an app.Listener so the
// menu can show the latest shot and warning.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	lastShot   string
	lastWarn   string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastShot *systray.MenuItem
	menuWarning  *systray.MenuItem
}

// New creates a new Tray instance with the given initial enabled state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled:  enabled,
		lastShot: "Last shot: none",
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
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
	systray.SetTitle("ShotDetect")
	systray.SetTooltip("Laser shot detection")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle shot detection")
	systray.AddSeparator()

	t.menuLastShot = systray.AddMenuItem(t.lastShot, "Last detected shot")
	t.menuLastShot.Disable()
	t.menuWarning = systray.AddMenuItem("No warnings", "Last camera warning")
	t.menuWarning.Disable()
	if t.lastWarn != "" {
		t.menuWarning.SetTitle(t.lastWarn)
	}
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit ShotDetect")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
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

// SetEnabled updates the toggle without invoking the callback, for changes
// made elsewhere (for example through the settings API).
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// LastShot returns the title of the last shot item.
func (t *Tray) LastShot() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastShot
}

// LastWarning returns the title of the warning item, empty if none.
func (t *Tray) LastWarning() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastWarn
}

func (t *Tray) OnShot(ev app.ShotEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastShot = shotTitle(ev)
	if t.menuLastShot != nil {
		t.menuLastShot.SetTitle(t.lastShot)
	}
}

func (t *Tray) OnWarning(ev app.WarningEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastWarn = warningTitle(ev)
	if t.menuWarning != nil {
		t.menuWarning.SetTitle(t.lastWarn)
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func shotTitle(ev app.ShotEvent) string {
	return fmt.Sprintf("Last shot: %s at (%.0f, %.0f) on %s",
		ev.Shot.Color, ev.Shot.X, ev.Shot.Y, ev.Camera)
}

func warningTitle(ev app.WarningEvent) string {
	return fmt.Sprintf("%s %s: %s", ev.Time.Format("15:04:05"), ev.Camera, ev.Warning.Message())
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
