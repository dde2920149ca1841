package debugview

import "github.com/phrack/ShootOFF-sub002/internal/detector"

// Multi fans a snapshot out to several views in order.
type Multi []detector.DebugView

// OnSnapshot implements detector.DebugView.
func (m Multi) OnSnapshot(s detector.Snapshot) {
	for _, v := range m {
		if v != nil {
			v.OnSnapshot(s)
		}
	}
}
