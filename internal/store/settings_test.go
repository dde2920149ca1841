package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultDetection = DetectionSettings{
	Enabled:          true,
	MinShotDimension: 9,
	IgnoreLaserColor: "none",
	MarkerRadius:     2,
}

func TestSettingsRepository_GetSet(t *testing.T) {
	repo := newTestStore(t).Settings()

	_, err := repo.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	require.NoError(t, repo.Set("a", "1"))
	require.NoError(t, repo.Set("a", "2"))
	require.NoError(t, repo.Set("b", "x"))

	v, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	all, err := repo.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2", "b": "x"}, all)
}

func TestSettingsRepository_DetectionSettings(t *testing.T) {
	t.Run("defaults when nothing is stored", func(t *testing.T) {
		repo := newTestStore(t).Settings()
		got, err := repo.DetectionSettings(defaultDetection)
		require.NoError(t, err)
		assert.Equal(t, defaultDetection, got)
	})

	t.Run("partial overrides", func(t *testing.T) {
		repo := newTestStore(t).Settings()
		require.NoError(t, repo.Set(KeyIgnoreLaserColor, "green"))
		require.NoError(t, repo.Set(KeyDetectionEnabled, "false"))

		got, err := repo.DetectionSettings(defaultDetection)
		require.NoError(t, err)
		want := defaultDetection
		want.IgnoreLaserColor = "green"
		want.Enabled = false
		assert.Equal(t, want, got)
	})

	t.Run("save round trip", func(t *testing.T) {
		repo := newTestStore(t).Settings()
		saved := DetectionSettings{Enabled: false, MinShotDimension: 16, IgnoreLaserColor: "red", MarkerRadius: 4}
		require.NoError(t, repo.SaveDetectionSettings(saved))

		got, err := repo.DetectionSettings(defaultDetection)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})

	t.Run("corrupt value", func(t *testing.T) {
		repo := newTestStore(t).Settings()
		require.NoError(t, repo.Set(KeyMinShotDimension, "lots"))
		got, err := repo.DetectionSettings(defaultDetection)
		assert.Error(t, err)
		assert.Equal(t, defaultDetection, got)
	})
}

func TestDetectionSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DetectionSettings)
		wantErr bool
	}{
		{"defaults", func(*DetectionSettings) {}, false},
		{"zero min dimension", func(d *DetectionSettings) { d.MinShotDimension = 0 }, true},
		{"zero marker radius", func(d *DetectionSettings) { d.MarkerRadius = 0 }, true},
		{"unknown color", func(d *DetectionSettings) { d.IgnoreLaserColor = "blue" }, true},
		{"empty color", func(d *DetectionSettings) { d.IgnoreLaserColor = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := defaultDetection
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettingsRepository_SaveRejectsInvalid(t *testing.T) {
	repo := newTestStore(t).Settings()
	bad := defaultDetection
	bad.MinShotDimension = -1
	require.Error(t, repo.SaveDetectionSettings(bad))

	all, err := repo.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
