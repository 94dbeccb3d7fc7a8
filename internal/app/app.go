// Package app hosts the viewer: it owns the window, renderer and main loop.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/glb-viewer/internal/asset"
	"github.com/Faultbox/glb-viewer/internal/config"
	"github.com/Faultbox/glb-viewer/internal/engine/debug"
	"github.com/Faultbox/glb-viewer/internal/engine/input"
	"github.com/Faultbox/glb-viewer/internal/engine/renderer"
	"github.com/Faultbox/glb-viewer/internal/engine/window"
	"github.com/Faultbox/glb-viewer/internal/logger"
	"github.com/Faultbox/glb-viewer/internal/viewer"
)

// App is the running viewer application.
type App struct {
	cfg         *config.Config
	log         *zap.Logger
	window      *window.Window
	renderer    *renderer.Renderer
	viewer      *viewer.Viewer
	screenshots *debug.ScreenshotCapture
}

// New opens the window, creates the renderer and builds the viewer.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:         cfg,
		log:         logger.Named("app"),
		screenshots: debug.NewScreenshotCapture(cfg.Debug.ScreenshotDir, "viewer"),
	}

	a.log.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.String("model", cfg.Viewer.Model),
	)

	var err error
	a.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer needs the GL context the window just created
	a.renderer, err = renderer.New(logger.Named("renderer"), a.window.PixelRatio())
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	w, h := a.window.Size()
	a.viewer, err = viewer.New(cfg, a.renderer, asset.FileLoader{Root: cfg.Viewer.AssetRoot}, logger.Named("viewer"), w, h)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create viewer: %w", err)
	}

	return a, nil
}

// Run starts the model load and loops until the window is closed.
func (a *App) Run() error {
	if err := a.viewer.Start(); err != nil {
		return err
	}

	frames := 0
	fpsTimer := time.Now()
	titled := false

	a.log.Info("starting main loop")
	for {
		events := a.window.PollEvents()
		if input.Quit(events) {
			return nil
		}
		if input.KeyPressed(events, input.KeyF12) {
			a.screenshot()
		}
		for _, e := range events {
			a.handleEvent(e)
		}

		if a.viewer.Tick() {
			a.window.Present()
			frames++
			if !titled {
				a.window.SetTitle(a.cfg.Window.Title + " - " + a.viewer.Model().Name)
				titled = true
			}
		} else {
			// Nothing drawn, keep pumping events at the refresh rate
			a.window.WaitFrame()
		}

		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frames), zap.Stringer("state", a.viewer.State()))
			frames = 0
			fpsTimer = time.Now()
		}
	}
}

func (a *App) handleEvent(e input.Event) {
	if e.Type == input.EventWindowResize {
		a.renderer.SetPixelRatio(a.window.PixelRatio())
	}
	a.viewer.HandleEvent(e)
}

func (a *App) screenshot() {
	if a.viewer.State() != viewer.StateRunning {
		a.log.Debug("screenshot skipped, nothing rendered yet")
		return
	}
	pixels, w, h := a.renderer.ReadPixels()
	path, err := a.screenshots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

// Close releases the renderer and window.
func (a *App) Close() {
	a.log.Info("closing viewer")

	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
