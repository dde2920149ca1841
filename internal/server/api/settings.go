package api

import (
	"encoding/json"
	"net/http"

	"github.com/phrack/ShootOFF-sub002/internal/store"
)

// SettingsService reads and applies runtime detection settings.
type SettingsService interface {
	DetectionSettings() store.DetectionSettings
	ApplySettings(d store.DetectionSettings) error
}

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	settings SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: s}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.settings.DetectionSettings())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update handles PUT /api/settings. Fields missing from the body keep their
// current value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	d := h.settings.DetectionSettings()
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.ApplySettings(d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply settings")
		return
	}

	writeJSON(w, http.StatusOK, h.settings.DetectionSettings())
}
