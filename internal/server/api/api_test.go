package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/app"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
	"github.com/phrack/ShootOFF-sub002/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func seedShots(t *testing.T, s *store.Store) {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	shots := []struct {
		camera string
		shot   shot.Shot
	}{
		{"lane1", shot.New(shot.ColorRed, 10, 20, base, 13, 2)},
		{"lane1", shot.New(shot.ColorGreen, 30, 40, base.Add(time.Second), 43, 2)},
		{"lane2", shot.New(shot.ColorRed, 50, 60, base.Add(2*time.Second), 73, 2)},
	}
	for _, sh := range shots {
		if err := s.Shots().Create(store.NewShotRecord(sh.camera, "session", sh.shot)); err != nil {
			t.Fatalf("failed to create shot: %v", err)
		}
	}
}

func TestShotsHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedShots(t, s)
	handler := NewShotsHandler(s)

	tests := []struct {
		name      string
		url       string
		wantCode  int
		wantShots int
		wantFirst string
	}{
		{"all shots newest first", "/api/shots", http.StatusOK, 3, "lane2"},
		{"filtered by camera", "/api/shots?camera=lane1", http.StatusOK, 2, "lane1"},
		{"limited", "/api/shots?limit=1", http.StatusOK, 1, "lane2"},
		{"unknown camera", "/api/shots?camera=nope", http.StatusOK, 0, ""},
		{"bad limit", "/api/shots?limit=-3", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var response listShotsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Shots) != tt.wantShots {
				t.Fatalf("expected %d shots, got %d", tt.wantShots, len(response.Shots))
			}
			if response.Total != 3 {
				t.Errorf("expected total 3, got %d", response.Total)
			}
			if tt.wantShots > 0 && response.Shots[0].Camera != tt.wantFirst {
				t.Errorf("expected first shot from %s, got %s", tt.wantFirst, response.Shots[0].Camera)
			}
		})
	}
}

func TestShotsHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	seedShots(t, s)
	handler := NewShotsHandler(s)

	req := httptest.NewRequest(http.MethodDelete, "/api/shots?camera=lane1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response deleteShotsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", response.Deleted)
	}

	n, err := s.Shots().Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 remaining shot, got %d", n)
	}
}

func TestShotsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewShotsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodPost, "/api/shots", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

type fakeSettings struct {
	current  store.DetectionSettings
	applyErr error
	applied  int
}

func (f *fakeSettings) DetectionSettings() store.DetectionSettings { return f.current }

func (f *fakeSettings) ApplySettings(d store.DetectionSettings) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.current = d
	f.applied++
	return nil
}

func defaultSettings() store.DetectionSettings {
	return store.DetectionSettings{
		Enabled:          true,
		MinShotDimension: 9,
		IgnoreLaserColor: "none",
		MarkerRadius:     2,
	}
}

func TestSettingsHandler_Get(t *testing.T) {
	handler := NewSettingsHandler(&fakeSettings{current: defaultSettings()})

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var got store.DetectionSettings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != defaultSettings() {
		t.Errorf("expected %+v, got %+v", defaultSettings(), got)
	}
}

func TestSettingsHandler_Put(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		applyErr    error
		wantCode    int
		wantApplied int
	}{
		{"partial update", `{"ignore_laser_color": "green"}`, nil, http.StatusOK, 1},
		{"invalid json", `{`, nil, http.StatusBadRequest, 0},
		{"invalid color", `{"ignore_laser_color": "blue"}`, nil, http.StatusBadRequest, 0},
		{"invalid dimension", `{"min_shot_dimension": 0}`, nil, http.StatusBadRequest, 0},
		{"apply fails", `{"marker_radius": 3}`, errors.New("disk full"), http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSettings{current: defaultSettings(), applyErr: tt.applyErr}
			handler := NewSettingsHandler(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if svc.applied != tt.wantApplied {
				t.Errorf("expected %d applies, got %d", tt.wantApplied, svc.applied)
			}
			if tt.wantCode == http.StatusOK {
				want := defaultSettings()
				want.IgnoreLaserColor = "green"
				if svc.current != want {
					t.Errorf("expected %+v, got %+v", want, svc.current)
				}
			} else {
				var response errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&response); err != nil || response.Error == "" {
					t.Errorf("expected JSON error body, got %q", rec.Body.String())
				}
			}
		})
	}
}

type fakeCameras []app.CameraStatus

func (f fakeCameras) Cameras() []app.CameraStatus { return f }

func TestCamerasHandler(t *testing.T) {
	handler := NewCamerasHandler(fakeCameras{
		{Name: "lane1", State: "active", Frames: 120, FPS: 30, Enabled: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response listCamerasResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Cameras) != 1 || response.Cameras[0].Name != "lane1" || response.Cameras[0].Frames != 120 {
		t.Errorf("unexpected cameras: %+v", response.Cameras)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/cameras", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
