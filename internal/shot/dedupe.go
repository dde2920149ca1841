package shot

import "time"

// Deduplication window constants.
const (
	// DedupeWindow is the time after which a shot several frames later is
	// always treated as a new shot.
	DedupeWindow = 60 * time.Millisecond
	// DedupeMinFrames is the frame gap that must also be exceeded.
	DedupeMinFrames = 2
	// DedupeAreaDivisor scales the frame area into the exclusion radius.
	DedupeAreaDivisor = 8000.0
)

// Deduplicator suppresses detections of the same physical shot spread over
// consecutive frames. The exclusion radius shrinks linearly from 100% to 50%
// of the distance threshold as the time since the last accepted shot grows
// from 0 to 60ms.
//
// A Deduplicator belongs to one camera session and is not safe for
// concurrent use.
type Deduplicator struct {
	last              *Shot
	distanceThreshold float64
}

// NewDeduplicator creates a Deduplicator for a width x height detection area.
func NewDeduplicator(width, height int) *Deduplicator {
	return &Deduplicator{
		distanceThreshold: float64(width*height) / DedupeAreaDivisor,
	}
}

// DistanceThreshold returns the full exclusion radius in pixels.
func (d *Deduplicator) DistanceThreshold() float64 {
	return d.distanceThreshold
}

// Last returns the last accepted shot, if any.
func (d *Deduplicator) Last() (Shot, bool) {
	if d.last == nil {
		return Shot{}, false
	}
	return *d.last, true
}

// Accept reports whether s is a new shot and, if so, remembers it as the
// last accepted shot.
func (d *Deduplicator) Accept(s Shot) bool {
	if !d.Lookahead(s) {
		return false
	}
	d.last = &s
	return true
}

// Lookahead runs the same test as Accept without updating state.
func (d *Deduplicator) Lookahead(s Shot) bool {
	if d.last == nil {
		return true
	}

	timeDiff := s.Timestamp.Sub(d.last.Timestamp)
	frameDiff := s.Frame - d.last.Frame
	if timeDiff > DedupeWindow && frameDiff > DedupeMinFrames {
		return true
	}

	if timeDiff > DedupeWindow {
		timeDiff = DedupeWindow
	}
	ratio := float64(timeDiff) / float64(DedupeWindow)
	allowed := (1 - 0.5*ratio) * d.distanceThreshold

	return s.Distance(*d.last) > allowed
}

// Reset forgets the last accepted shot.
func (d *Deduplicator) Reset() {
	d.last = nil
}
