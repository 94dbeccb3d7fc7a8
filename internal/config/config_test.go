package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test window defaults
	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Test viewer defaults
	if cfg.Viewer.Model != "/master1.glb" {
		t.Errorf("expected model /master1.glb, got %s", cfg.Viewer.Model)
	}
	if cfg.Viewer.TimeStep != 0.006 {
		t.Errorf("expected time step 0.006, got %f", cfg.Viewer.TimeStep)
	}

	// Test camera defaults
	if cfg.Camera.FOV != 50 || cfg.Camera.Near != 0.1 || cfg.Camera.Far != 1000 {
		t.Errorf("expected camera 50/0.1/1000, got %v/%v/%v", cfg.Camera.FOV, cfg.Camera.Near, cfg.Camera.Far)
	}
	if cfg.Camera.StartPosition != [3]float32{0, 3, 6} {
		t.Errorf("expected start position (0, 3, 6), got %v", cfg.Camera.StartPosition)
	}

	// Test lighting and floor defaults
	if cfg.Lighting.AmbientIntensity != 1.82 || cfg.Lighting.DirectionalIntensity != 1.71 {
		t.Errorf("expected intensities 1.82/1.71, got %v/%v",
			cfg.Lighting.AmbientIntensity, cfg.Lighting.DirectionalIntensity)
	}
	if cfg.Floor.Y != -2 {
		t.Errorf("expected floor at y=-2, got %v", cfg.Floor.Y)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "viewer.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

viewer:
  asset_root: "/srv/models"
  model: "robot.glb"
  time_step: 0.016
  background: "#000000"

camera:
  fov: 60
  start_position: [1, 2, 3]

controls:
  damping: false

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 1080 {
		t.Errorf("expected height 1080, got %d", cfg.Window.Height)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Window.VSync {
		t.Error("expected vsync to be false")
	}

	if cfg.Viewer.AssetRoot != "/srv/models" || cfg.Viewer.Model != "robot.glb" {
		t.Errorf("expected /srv/models + robot.glb, got %s + %s", cfg.Viewer.AssetRoot, cfg.Viewer.Model)
	}
	if cfg.Viewer.TimeStep != 0.016 {
		t.Errorf("expected time step 0.016, got %f", cfg.Viewer.TimeStep)
	}

	if cfg.Camera.FOV != 60 {
		t.Errorf("expected fov 60, got %v", cfg.Camera.FOV)
	}
	if cfg.Camera.StartPosition != [3]float32{1, 2, 3} {
		t.Errorf("expected start position (1, 2, 3), got %v", cfg.Camera.StartPosition)
	}
	// Untouched keys keep their defaults
	if cfg.Camera.Far != 1000 {
		t.Errorf("expected far to stay 1000, got %v", cfg.Camera.Far)
	}

	if cfg.Controls.Damping {
		t.Error("expected damping to be false")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.Window.Width != 1280 {
		t.Errorf("expected default width, got %d", cfg.Window.Width)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := map[string]string{
		"bad syntax": `
window:
  width: not a number
  invalid syntax here
`,
		"unknown key": `
window:
  widht: 800
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg := Default()
			if err := loadFromFile(cfg, configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/viewer.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Isolate from any real user config
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create viewer.yaml in current directory
	configPath := filepath.Join(tmpDir, "viewer.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find viewer.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "model and assets flags",
			setup: func() {
				*flagModel = "scenes/fox.glb"
				*flagAssets = "/data"
			},
			verify: func(cfg *Config) {
				if cfg.Viewer.Model != "scenes/fox.glb" {
					t.Errorf("expected model scenes/fox.glb, got %s", cfg.Viewer.Model)
				}
				if cfg.Viewer.AssetRoot != "/data" {
					t.Errorf("expected asset root /data, got %s", cfg.Viewer.AssetRoot)
				}
			},
			teardown: func() {
				*flagModel = ""
				*flagAssets = ""
			},
		},
		{
			name: "windowed flag",
			setup: func() {
				*flagWindowed = true
			},
			verify: func(cfg *Config) {
				if cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() {
				*flagWindowed = false
			},
		},
		{
			name: "fullscreen flag",
			setup: func() {
				*flagFullscreen = true
			},
			verify: func(cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() {
				*flagFullscreen = false
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Window.Width)
				}
				if cfg.Window.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "viewer.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"empty model", func(c *Config) { c.Viewer.Model = "" }},
		{"zero time step", func(c *Config) { c.Viewer.TimeStep = 0 }},
		{"near beyond far", func(c *Config) { c.Camera.Near = 2000 }},
		{"bad floor color", func(c *Config) { c.Floor.Color = "green" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want [3]float32
		ok   bool
	}{
		{"#ffffff", [3]float32{1, 1, 1}, true},
		{"#000000", [3]float32{0, 0, 0}, true},
		{"0xff0000", [3]float32{1, 0, 0}, true},
		{"00ff00", [3]float32{0, 1, 0}, true},
		{"#fff", [3]float32{}, false},
		{"#gggggg", [3]float32{}, false},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseColor(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "viewer.yaml")

	cfg := Default()
	cfg.Viewer.Model = "saved.glb"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if loaded.Viewer.Model != "saved.glb" {
		t.Errorf("expected saved.glb, got %s", loaded.Viewer.Model)
	}
}

func TestSaveIsFoundByLoad(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("config dir override via XDG_CONFIG_HOME is linux only")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := Default()
	cfg.Viewer.TimeStep = 0.01
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := findConfigFile()
	if path != filepath.Join(ConfigDir(), "viewer.yaml") {
		t.Fatalf("findConfigFile = %q, want the saved file", path)
	}
	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if loaded.Viewer.TimeStep != 0.01 {
		t.Errorf("time step = %v, want 0.01", loaded.Viewer.TimeStep)
	}
}
