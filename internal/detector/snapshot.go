package detector

import (
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// Cluster outcomes reported in snapshots.
const (
	OutcomeAccepted  = "accepted"
	OutcomeTooSmall  = "too_small"
	OutcomeAmbiguous = "ambiguous"
	OutcomeIgnored   = "ignored_color"
	OutcomeDuplicate = "duplicate"
)

// Snapshot describes what a session did with one frame.
type Snapshot struct {
	SessionID        string        `json:"session_id"`
	Frame            int           `json:"frame"`
	Timestamp        time.Time     `json:"timestamp"`
	State            string        `json:"state"`
	HotPixels        int           `json:"hot_pixels"`
	AverageHotPixels float64       `json:"average_hot_pixels"`
	Verdict          string        `json:"verdict"`
	Clusters         []ClusterInfo `json:"clusters,omitempty"`
	Shots            []ShotInfo    `json:"shots,omitempty"`
}

// ClusterInfo summarises one region found in a frame.
type ClusterInfo struct {
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Size              int     `json:"size"`
	MeanConnectedness float64 `json:"mean_connectedness"`
	Score             float64 `json:"score"`
	Color             string  `json:"color,omitempty"`
	Outcome           string  `json:"outcome"`
}

// ShotInfo is the serialisable form of an accepted shot.
type ShotInfo struct {
	Color string  `json:"color"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func shotInfo(s shot.Shot) ShotInfo {
	return ShotInfo{Color: s.Color.String(), X: s.X, Y: s.Y}
}
