package app

import (
	"log"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/shot"
	"github.com/phrack/ShootOFF-sub002/internal/store"
)

// Warning is a scene condition that stops shot detection.
type Warning string

const (
	// WarningBrightness means the scene got too bright to see laser dots.
	WarningBrightness Warning = "brightness"
	// WarningMotion means there is too much movement in front of the camera.
	WarningMotion Warning = "motion"
)

// Message returns a short human readable description of the warning.
func (w Warning) Message() string {
	switch w {
	case WarningBrightness:
		return "Camera feed is too bright; lower the exposure or dim the lights"
	case WarningMotion:
		return "Too much motion in front of the camera"
	default:
		return string(w)
	}
}

// ShotEvent is an accepted shot, in frame coordinates.
type ShotEvent struct {
	Camera    string
	SessionID string
	Shot      shot.Shot
}

// WarningEvent is a warning raised by a camera's session.
type WarningEvent struct {
	Camera    string
	SessionID string
	Warning   Warning
	Time      time.Time
}

// Listener receives shots and warnings from every camera. Calls are made
// from camera pipeline goroutines and must not block for long.
type Listener interface {
	OnShot(ev ShotEvent)
	OnWarning(ev WarningEvent)
}

// LogListener logs shots and warnings.
type LogListener struct{}

func (LogListener) OnShot(ev ShotEvent) {
	log.Printf("Camera %s: %s", ev.Camera, ev.Shot)
}

func (LogListener) OnWarning(ev WarningEvent) {
	log.Printf("Camera %s: %s", ev.Camera, ev.Warning.Message())
}

// JournalListener writes accepted shots to the store.
type JournalListener struct {
	shots *store.ShotRepository
}

// NewJournalListener creates a JournalListener backed by s.
func NewJournalListener(s *store.Store) *JournalListener {
	return &JournalListener{shots: s.Shots()}
}

func (j *JournalListener) OnShot(ev ShotEvent) {
	rec := store.NewShotRecord(ev.Camera, ev.SessionID, ev.Shot)
	if err := j.shots.Create(rec); err != nil {
		log.Printf("Failed to record shot from %s: %v", ev.Camera, err)
	}
}

func (j *JournalListener) OnWarning(WarningEvent) {}

// ListenerFuncs adapts plain functions to a Listener. Nil funcs are skipped.
type ListenerFuncs struct {
	Shot    func(ShotEvent)
	Warning func(WarningEvent)
}

func (l ListenerFuncs) OnShot(ev ShotEvent) {
	if l.Shot != nil {
		l.Shot(ev)
	}
}

func (l ListenerFuncs) OnWarning(ev WarningEvent) {
	if l.Warning != nil {
		l.Warning(ev)
	}
}
