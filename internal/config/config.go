// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Camera   CameraConfig   `yaml:"camera"`
	Controls ControlsConfig `yaml:"controls"`
	Lighting LightingConfig `yaml:"lighting"`
	Floor    FloorConfig    `yaml:"floor"`
	Logging  LoggingConfig  `yaml:"logging"`
	Debug    DebugConfig    `yaml:"debug"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// ViewerConfig holds the model and playback settings.
type ViewerConfig struct {
	AssetRoot  string  `yaml:"asset_root"` // Directory model paths are resolved against
	Model      string  `yaml:"model"`
	TimeStep   float32 `yaml:"time_step"` // Mixer advance per rendered frame
	Background string  `yaml:"background"`
}

// CameraConfig holds the perspective camera settings.
type CameraConfig struct {
	FOV           float32    `yaml:"fov"` // Vertical, degrees
	Near          float32    `yaml:"near"`
	Far           float32    `yaml:"far"`
	StartPosition [3]float32 `yaml:"start_position"`
	Target        [3]float32 `yaml:"target"`
}

// ControlsConfig holds orbit control settings.
type ControlsConfig struct {
	Damping       bool    `yaml:"damping"`
	DampingFactor float32 `yaml:"damping_factor"`
	RotateSpeed   float32 `yaml:"rotate_speed"`
	ZoomSpeed     float32 `yaml:"zoom_speed"`
	PanSpeed      float32 `yaml:"pan_speed"`
	MinDistance   float32 `yaml:"min_distance"`
	MaxDistance   float32 `yaml:"max_distance"`
}

// LightingConfig holds the two scene lights.
type LightingConfig struct {
	AmbientColor         string     `yaml:"ambient_color"`
	AmbientIntensity     float32    `yaml:"ambient_intensity"`
	DirectionalColor     string     `yaml:"directional_color"`
	DirectionalIntensity float32    `yaml:"directional_intensity"`
	DirectionalPosition  [3]float32 `yaml:"directional_position"`
}

// FloorConfig holds the ground plane settings.
type FloorConfig struct {
	Width float32 `yaml:"width"`
	Depth float32 `yaml:"depth"`
	Color string  `yaml:"color"`
	Y     float32 `yaml:"y"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DebugConfig holds developer tooling settings.
type DebugConfig struct {
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// Default returns a Config with the stock viewer values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "GLB Viewer",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Viewer: ViewerConfig{
			AssetRoot:  ".",
			Model:      "/master1.glb",
			TimeStep:   0.006,
			Background: "#fff5e1",
		},
		Camera: CameraConfig{
			FOV:           50,
			Near:          0.1,
			Far:           1000,
			StartPosition: [3]float32{0, 3, 6},
			Target:        [3]float32{0, 0, 0},
		},
		Controls: ControlsConfig{
			Damping:       true,
			DampingFactor: 0.05,
			RotateSpeed:   1.0,
			ZoomSpeed:     1.0,
			PanSpeed:      1.0,
			MinDistance:   0,
			MaxDistance:   0, // 0 means unbounded
		},
		Lighting: LightingConfig{
			AmbientColor:         "#ffffff",
			AmbientIntensity:     1.82,
			DirectionalColor:     "#ffffff",
			DirectionalIntensity: 1.71,
			DirectionalPosition:  [3]float32{1, 1, 1},
		},
		Floor: FloorConfig{
			Width: 10,
			Depth: 10,
			Color: "#d8efd3",
			Y:     -2,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Debug: DebugConfig{
			ScreenshotDir: "screenshots",
		},
	}
}

// Validate checks the settings the viewer cannot run without.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Viewer.Model == "" {
		return fmt.Errorf("%w: no model path", ErrInvalid)
	}
	if c.Viewer.TimeStep <= 0 {
		return fmt.Errorf("%w: time_step must be positive, got %v", ErrInvalid, c.Viewer.TimeStep)
	}
	if c.Camera.Near <= 0 || c.Camera.Near >= c.Camera.Far {
		return fmt.Errorf("%w: camera near %v / far %v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	}
	for name, s := range map[string]string{
		"viewer.background":          c.Viewer.Background,
		"lighting.ambient_color":     c.Lighting.AmbientColor,
		"lighting.directional_color": c.Lighting.DirectionalColor,
		"floor.color":                c.Floor.Color,
	} {
		if _, err := ParseColor(s); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	return nil
}

// ParseColor parses "#rrggbb" (or "rrggbb", or "0xrrggbb") into 0..1 RGB.
func ParseColor(s string) ([3]float32, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(hex) != 6 {
		return [3]float32{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [3]float32{}, fmt.Errorf("color %q: %w", s, err)
	}
	return [3]float32{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

// MustColor is ParseColor for values already checked by Validate.
func MustColor(s string) [3]float32 {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
