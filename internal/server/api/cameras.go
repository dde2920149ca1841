package api

import (
	"net/http"

	"github.com/phrack/ShootOFF-sub002/internal/app"
)

// CameraLister reports the attached cameras.
type CameraLister interface {
	Cameras() []app.CameraStatus
}

// CamerasHandler serves GET /api/cameras.
type CamerasHandler struct {
	cameras CameraLister
}

// NewCamerasHandler creates a new CamerasHandler.
func NewCamerasHandler(c CameraLister) *CamerasHandler {
	return &CamerasHandler{cameras: c}
}

type listCamerasResponse struct {
	Cameras []app.CameraStatus `json:"cameras"`
}

func (h *CamerasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, listCamerasResponse{Cameras: h.cameras.Cameras()})
}
