package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// Detection setting keys.
const (
	KeyDetectionEnabled = "detection.enabled"
	KeyMinShotDimension = "detection.min_shot_dimension"
	KeyIgnoreLaserColor = "detection.ignore_laser_color"
	KeyMarkerRadius     = "detection.marker_radius"
)

// DetectionSettings are the runtime-editable detection options.
type DetectionSettings struct {
	Enabled          bool   `json:"enabled"`
	MinShotDimension int    `json:"min_shot_dimension"`
	IgnoreLaserColor string `json:"ignore_laser_color"`
	MarkerRadius     int    `json:"marker_radius"`
}

// Validate checks the settings for out-of-range values.
func (d DetectionSettings) Validate() error {
	if d.MinShotDimension < 1 {
		return fmt.Errorf("min_shot_dimension must be at least 1, got %d", d.MinShotDimension)
	}
	if d.MarkerRadius < 1 {
		return fmt.Errorf("marker_radius must be at least 1, got %d", d.MarkerRadius)
	}
	if _, err := shot.ParseColor(d.IgnoreLaserColor); err != nil {
		return err
	}
	return nil
}

// SettingsRepository provides access to key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// All returns every stored setting.
func (r *SettingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return settings, nil
}

// DetectionSettings overlays the stored detection settings on defaults.
// Keys that were never saved keep their default value.
func (r *SettingsRepository) DetectionSettings(defaults DetectionSettings) (DetectionSettings, error) {
	all, err := r.All()
	if err != nil {
		return defaults, err
	}

	d := defaults
	if v, ok := all[KeyDetectionEnabled]; ok {
		if d.Enabled, err = strconv.ParseBool(v); err != nil {
			return defaults, fmt.Errorf("setting %s: %w", KeyDetectionEnabled, err)
		}
	}
	if v, ok := all[KeyMinShotDimension]; ok {
		if d.MinShotDimension, err = strconv.Atoi(v); err != nil {
			return defaults, fmt.Errorf("setting %s: %w", KeyMinShotDimension, err)
		}
	}
	if v, ok := all[KeyIgnoreLaserColor]; ok {
		d.IgnoreLaserColor = v
	}
	if v, ok := all[KeyMarkerRadius]; ok {
		if d.MarkerRadius, err = strconv.Atoi(v); err != nil {
			return defaults, fmt.Errorf("setting %s: %w", KeyMarkerRadius, err)
		}
	}

	return d, nil
}

// SaveDetectionSettings validates and stores d in a single transaction.
func (r *SettingsRepository) SaveDetectionSettings(d DetectionSettings) error {
	if err := d.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	values := map[string]string{
		KeyDetectionEnabled: strconv.FormatBool(d.Enabled),
		KeyMinShotDimension: strconv.Itoa(d.MinShotDimension),
		KeyIgnoreLaserColor: d.IgnoreLaserColor,
		KeyMarkerRadius:     strconv.Itoa(d.MarkerRadius),
	}
	for k, v := range values {
		_, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, v,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
