package tray

import (
	"testing"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/app"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

func TestTray_Toggle(t *testing.T) {
	tr := New(true)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected enabled after two toggles")
	}

	tr.SetEnabled(false)
	if tr.IsEnabled() {
		t.Error("SetEnabled(false) had no effect")
	}
	if len(got) != 2 {
		t.Error("SetEnabled must not invoke the toggle callback")
	}
}

func TestTray_Settings(t *testing.T) {
	tr := New(true)
	tr.handleSettings()

	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("settings callback not called")
	}
}

func TestTray_Listener(t *testing.T) {
	var _ app.Listener = (*Tray)(nil)

	tr := New(true)
	if tr.LastShot() != "Last shot: none" || tr.LastWarning() != "" {
		t.Fatalf("unexpected initial titles %q %q", tr.LastShot(), tr.LastWarning())
	}

	tr.OnShot(app.ShotEvent{
		Camera: "lane1",
		Shot:   shot.New(shot.ColorGreen, 104.5, 99.2, time.Now(), 13, 2),
	})
	if want := "Last shot: green at (104, 99) on lane1"; tr.LastShot() != want {
		t.Errorf("LastShot() = %q, want %q", tr.LastShot(), want)
	}

	tr.OnWarning(app.WarningEvent{
		Camera:  "lane2",
		Warning: app.WarningBrightness,
		Time:    time.Date(2024, 1, 1, 9, 30, 5, 0, time.UTC),
	})
	if want := "09:30:05 lane2: " + app.WarningBrightness.Message(); tr.LastWarning() != want {
		t.Errorf("LastWarning() = %q, want %q", tr.LastWarning(), want)
	}
}
