// Package config loads the JSON configuration file for the shot detector
// service. Every field is optional: a nil pointer means "use the default",
// so a partial file only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// Defaults.
const (
	DefaultListenAddr       = ":8080"
	DefaultMinShotDimension = 9
	DefaultMarkerRadius     = 2
	DefaultCameraFPS        = 30
	DefaultDataDirName      = ".shotdetect"
)

// Config is the service configuration.
type Config struct {
	ListenAddr *string `json:"listen_addr,omitempty"`
	DataDir    *string `json:"data_dir,omitempty"`
	StaticDir  *string `json:"static_dir,omitempty"`

	DetectionEnabled *bool   `json:"detection_enabled,omitempty"`
	MinShotDimension *int    `json:"min_shot_dimension,omitempty"`
	IgnoreLaserColor *string `json:"ignore_laser_color,omitempty"` // "red", "green" or "none"
	MarkerRadius     *int    `json:"marker_radius,omitempty"`

	Cameras []CameraConfig `json:"cameras,omitempty"`

	// SnapshotLog, when set, records a CBOR snapshot per processed frame.
	SnapshotLog *string `json:"snapshot_log,omitempty"`
	// PlotPath, when set, writes a hot pixel plot on shutdown.
	PlotPath *string `json:"plot_path,omitempty"`
}

// CameraConfig describes one capture device.
type CameraConfig struct {
	Name   string `json:"name"`
	Device int    `json:"device"`
	FPS    *int   `json:"fps,omitempty"`

	// Width and Height request a capture size; 0 selects 640x480.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// ROI is [x, y, width, height] in frame pixels.
	ROI *[4]int `json:"roi,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// DefaultConfig returns a Config with every field set to its default and a
// single camera on device 0.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ptrString(DefaultListenAddr),
		DetectionEnabled: ptrBool(true),
		MinShotDimension: ptrInt(DefaultMinShotDimension),
		IgnoreLaserColor: ptrString("none"),
		MarkerRadius:     ptrInt(DefaultMarkerRadius),
		Cameras: []CameraConfig{
			{Name: "camera0", Device: 0, FPS: ptrInt(DefaultCameraFPS)},
		},
	}
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.MinShotDimension != nil && *c.MinShotDimension < 1 {
		return fmt.Errorf("min_shot_dimension must be at least 1, got %d", *c.MinShotDimension)
	}
	if c.MarkerRadius != nil && *c.MarkerRadius < 1 {
		return fmt.Errorf("marker_radius must be at least 1, got %d", *c.MarkerRadius)
	}
	if c.IgnoreLaserColor != nil {
		if _, err := shot.ParseColor(*c.IgnoreLaserColor); err != nil {
			return fmt.Errorf("ignore_laser_color: %w", err)
		}
	}

	seen := make(map[string]bool)
	for i, cam := range c.Cameras {
		if cam.Name == "" {
			return fmt.Errorf("cameras[%d]: name is required", i)
		}
		if seen[cam.Name] {
			return fmt.Errorf("cameras[%d]: duplicate name %q", i, cam.Name)
		}
		seen[cam.Name] = true
		if cam.FPS != nil && *cam.FPS <= 0 {
			return fmt.Errorf("cameras[%d]: fps must be positive, got %d", i, *cam.FPS)
		}
		if cam.Width < 0 || cam.Height < 0 {
			return fmt.Errorf("cameras[%d]: width and height must not be negative", i)
		}
		if cam.ROI != nil && (cam.ROI[2] <= 0 || cam.ROI[3] <= 0 || cam.ROI[0] < 0 || cam.ROI[1] < 0) {
			return fmt.Errorf("cameras[%d]: roi must have a non-negative origin and positive size, got %v", i, *cam.ROI)
		}
	}

	return nil
}

func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetDataDir returns the data directory, defaulting to ~/.shotdetect.
func (c *Config) GetDataDir() (string, error) {
	if c.DataDir != nil && *c.DataDir != "" {
		return *c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultDataDirName), nil
}

func (c *Config) GetStaticDir() string {
	if c.StaticDir == nil {
		return ""
	}
	return *c.StaticDir
}

func (c *Config) GetDetectionEnabled() bool {
	if c.DetectionEnabled == nil {
		return true
	}
	return *c.DetectionEnabled
}

func (c *Config) GetMinShotDimension() int {
	if c.MinShotDimension == nil {
		return DefaultMinShotDimension
	}
	return *c.MinShotDimension
}

func (c *Config) GetIgnoreLaserColor() string {
	if c.IgnoreLaserColor == nil || *c.IgnoreLaserColor == "" {
		return "none"
	}
	return *c.IgnoreLaserColor
}

func (c *Config) GetMarkerRadius() int {
	if c.MarkerRadius == nil {
		return DefaultMarkerRadius
	}
	return *c.MarkerRadius
}

func (c *Config) GetSnapshotLog() string {
	if c.SnapshotLog == nil {
		return ""
	}
	return *c.SnapshotLog
}

func (c *Config) GetPlotPath() string {
	if c.PlotPath == nil {
		return ""
	}
	return *c.PlotPath
}

// GetCameras returns the configured cameras, or the single default camera.
func (c *Config) GetCameras() []CameraConfig {
	if len(c.Cameras) == 0 {
		return DefaultConfig().Cameras
	}
	return c.Cameras
}

func (cc CameraConfig) GetFPS() int {
	if cc.FPS == nil {
		return DefaultCameraFPS
	}
	return *cc.FPS
}

// Rect returns the ROI as a rectangle; the zero rectangle means full frame.
func (cc CameraConfig) Rect() image.Rectangle {
	if cc.ROI == nil {
		return image.Rectangle{}
	}
	return image.Rect(cc.ROI[0], cc.ROI[1], cc.ROI[0]+cc.ROI[2], cc.ROI[1]+cc.ROI[3])
}
