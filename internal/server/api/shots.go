package api

import (
	"net/http"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/store"
)

// ShotsHandler serves the shot journal.
type ShotsHandler struct {
	store *store.Store
}

// NewShotsHandler creates a new ShotsHandler with the given store.
func NewShotsHandler(s *store.Store) *ShotsHandler {
	return &ShotsHandler{store: s}
}

// ServeHTTP handles /api/shots. Both methods accept an optional camera
// query parameter; GET also takes limit.
func (h *ShotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type shotResponse struct {
	ID           string  `json:"id"`
	Camera       string  `json:"camera"`
	SessionID    string  `json:"session_id"`
	Color        string  `json:"color"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Frame        int     `json:"frame"`
	MarkerRadius int     `json:"marker_radius"`
	ShotAt       string  `json:"shot_at"`
}

type listShotsResponse struct {
	Shots []shotResponse `json:"shots"`
	Total int            `json:"total"`
}

type deleteShotsResponse struct {
	Deleted int64 `json:"deleted"`
}

func toShotResponse(rec *store.ShotRecord) shotResponse {
	return shotResponse{
		ID:           rec.ID,
		Camera:       rec.Camera,
		SessionID:    rec.SessionID,
		Color:        rec.Color,
		X:            rec.X,
		Y:            rec.Y,
		Frame:        rec.Frame,
		MarkerRadius: rec.MarkerRadius,
		ShotAt:       rec.ShotAt.Format(time.RFC3339Nano),
	}
}

// list handles GET /api/shots, newest first.
func (h *ShotsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	var (
		records []*store.ShotRecord
		err     error
	)
	if camera := r.URL.Query().Get("camera"); camera != "" {
		records, err = h.store.Shots().ListByCamera(camera, limit)
	} else {
		records, err = h.store.Shots().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shots")
		return
	}

	total, err := h.store.Shots().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count shots")
		return
	}

	response := listShotsResponse{
		Shots: make([]shotResponse, 0, len(records)),
		Total: total,
	}
	for _, rec := range records {
		response.Shots = append(response.Shots, toShotResponse(rec))
	}
	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/shots and clears the journal.
func (h *ShotsHandler) delete(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Shots().DeleteAll(r.URL.Query().Get("camera"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete shots")
		return
	}
	writeJSON(w, http.StatusOK, deleteShotsResponse{Deleted: n})
}
