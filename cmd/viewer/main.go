// Package main is the entry point for the GLB viewer.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/glb-viewer/internal/app"
	"github.com/Faultbox/glb-viewer/internal/config"
	"github.com/Faultbox/glb-viewer/internal/logger"
)

func main() {
	os.Exit(run())
}

// run does the work of main and returns the exit code, so deferred
// cleanup runs before the process exits.
func run() int {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("=== GLB Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Warn("saving config failed", zap.Error(err))
		} else {
			logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		}
	}

	if config.PickModel() {
		path, err := dialog.File().Title("Open model").Filter("glTF models", "glb", "gltf").Load()
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Info("no model chosen")
			return 0
		}
		if err != nil {
			logger.Error("file dialog failed", zap.Error(err))
			return 1
		}
		// Serve the chosen file from its own directory
		cfg.Viewer.AssetRoot = filepath.Dir(path)
		cfg.Viewer.Model = "/" + filepath.Base(path)
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		return 1
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		return 1
	}

	logger.Info("viewer closed normally")
	return 0
}
