// Package viewer wires the scene, camera, model load, animation mixer and
// orbit controls into the load-gated render loop.
package viewer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/glb-viewer/internal/asset"
	"github.com/Faultbox/glb-viewer/internal/config"
	"github.com/Faultbox/glb-viewer/internal/engine/anim"
	"github.com/Faultbox/glb-viewer/internal/engine/camera"
	"github.com/Faultbox/glb-viewer/internal/engine/input"
	"github.com/Faultbox/glb-viewer/internal/engine/scene"
	"github.com/Faultbox/glb-viewer/pkg/math"
)

// ErrAlreadyStarted is returned when Start is called more than once.
var ErrAlreadyStarted = errors.New("viewer: already started")

// keyPanPixels is how far one arrow key press pans.
const keyPanPixels = 7

// State is the render loop state.
type State int

const (
	// StateIdle draws nothing. The viewer stays here until a model loads,
	// and forever if the load fails.
	StateIdle State = iota
	// StateRunning advances the mixer and renders every tick.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Surface is the drawable the viewer renders into.
type Surface interface {
	SetSize(width, height int)
	Render(s *scene.Scene, cam *camera.PerspectiveCamera)
}

// Viewer owns everything the render loop touches.
type Viewer struct {
	cfg     *config.Config
	log     *zap.Logger
	surface Surface
	loader  asset.Loader

	scene       *scene.Scene
	camera      *camera.PerspectiveCamera
	floor       *scene.Node
	ambient     *scene.AmbientLight
	directional *scene.DirectionalLight

	request  *asset.Request
	model    *scene.Node
	mixer    *anim.Mixer
	controls *camera.OrbitControls

	state  State
	frames uint64
	height int
}

// New builds the scene, camera, lights and floor and sizes the surface.
// Nothing is loaded until Start.
func New(cfg *config.Config, surface Surface, loader asset.Loader, log *zap.Logger, width, height int) (*Viewer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if width <= 0 || height <= 0 {
		width, height = cfg.Window.Width, cfg.Window.Height
	}

	v := &Viewer{
		cfg:     cfg,
		log:     log,
		surface: surface,
		loader:  loader,
		scene:   scene.New(config.MustColor(cfg.Viewer.Background)),
		camera: camera.NewPerspective(cfg.Camera.FOV, float32(width)/float32(height),
			cfg.Camera.Near, cfg.Camera.Far),
	}

	lc := cfg.Lighting
	v.ambient = scene.NewAmbientLight(config.MustColor(lc.AmbientColor), lc.AmbientIntensity)
	v.directional = scene.NewDirectionalLight(config.MustColor(lc.DirectionalColor), lc.DirectionalIntensity,
		math.Vec3FromArray(lc.DirectionalPosition))
	v.scene.AddLight(v.ambient)
	v.scene.AddLight(v.directional)

	fc := cfg.Floor
	v.floor = scene.NewFloor(fc.Width, fc.Depth, config.MustColor(fc.Color), fc.Y)
	v.scene.Add(v.floor)

	v.Resize(width, height)
	return v, nil
}

// Start issues the model load. It may only be called once.
func (v *Viewer) Start() error {
	if v.request != nil {
		return ErrAlreadyStarted
	}
	path := v.cfg.Viewer.Model
	v.log.Info("loading model", zap.String("path", path))
	v.request = asset.Fetch(v.loader, path)
	return nil
}

// LoadDone is closed once the load has finished either way. It is nil
// before Start.
func (v *Viewer) LoadDone() <-chan struct{} {
	if v.request == nil {
		return nil
	}
	return v.request.Done()
}

// Tick runs one loop iteration and reports whether a frame was rendered.
// The host presents the surface only when it was.
func (v *Viewer) Tick() bool {
	if v.state == StateIdle {
		if v.request == nil {
			return false
		}
		res, ok := v.request.Poll()
		if !ok {
			return false
		}
		if res.Err == nil && (res.Bundle == nil || res.Bundle.Root == nil) {
			res.Err = fmt.Errorf("loading %s: no model returned", v.request.Path())
		}
		if res.Err != nil {
			v.onLoadFailure(res.Err)
			return false
		}
		v.onLoadSuccess(res.Bundle)
	}

	// Fixed step per frame, independent of wall-clock time
	v.mixer.Update(v.cfg.Viewer.TimeStep)
	v.controls.Update()
	v.surface.Render(v.scene, v.camera)
	v.frames++
	return true
}

func (v *Viewer) onLoadSuccess(b *asset.Bundle) {
	v.model = b.Root
	v.scene.Add(b.Root)

	v.mixer = anim.NewMixer(b.Root)
	for _, clip := range b.Clips {
		v.mixer.ClipAction(clip).Play()
	}

	cc := v.cfg.Controls
	v.controls = camera.NewOrbitControls(v.camera, v.height)
	v.controls.RotateSpeed = cc.RotateSpeed
	v.controls.ZoomSpeed = cc.ZoomSpeed
	v.controls.PanSpeed = cc.PanSpeed
	v.controls.MinDistance = cc.MinDistance
	v.controls.MaxDistance = cc.MaxDistance
	v.controls.DampingFactor = cc.DampingFactor
	v.controls.EnableDamping = cc.Damping

	target := math.Vec3FromArray(v.cfg.Camera.Target)
	v.camera.Position = math.Vec3FromArray(v.cfg.Camera.StartPosition)
	v.controls.Target = target
	v.camera.LookAt(target)
	v.controls.SaveState()

	v.state = StateRunning
	v.log.Info("model loaded", b.Summary()...)
}

func (v *Viewer) onLoadFailure(err error) {
	v.log.Error("an error happened",
		zap.String("path", v.request.Path()),
		zap.Error(err),
	)
}

// Resize refits the camera and surface to a new viewport. Non-positive
// sizes (minimised windows) are ignored.
func (v *Viewer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.height = height
	v.camera.Aspect = float32(width) / float32(height)
	v.camera.UpdateProjectionMatrix()
	v.surface.SetSize(width, height)
	if v.controls != nil {
		v.controls.SetViewHeight(height)
	}
}

// HandleEvent applies a window or pointer event. Pointer and key input
// only reaches the controls once they exist.
func (v *Viewer) HandleEvent(e input.Event) {
	if e.Type == input.EventWindowResize {
		v.Resize(e.Width, e.Height)
		return
	}
	c := v.controls
	if c == nil {
		return
	}

	switch e.Type {
	case input.EventPointerDown:
		c.PointerDown(e.Button, e.X, e.Y)
	case input.EventPointerMove:
		c.PointerMove(e.X, e.Y)
	case input.EventPointerUp:
		c.PointerUp()
	case input.EventWheel:
		c.Wheel(e.Wheel)
	case input.EventKeyDown:
		switch e.Key {
		case input.KeyR:
			c.Reset()
		case input.KeyLeft:
			c.Pan(keyPanPixels, 0)
		case input.KeyRight:
			c.Pan(-keyPanPixels, 0)
		case input.KeyUp:
			c.Pan(0, keyPanPixels)
		case input.KeyDown:
			c.Pan(0, -keyPanPixels)
		}
	}
}

// State returns the render loop state.
func (v *Viewer) State() State {
	return v.state
}

// Frames returns how many frames have been rendered.
func (v *Viewer) Frames() uint64 {
	return v.frames
}

// Scene returns the scene.
func (v *Viewer) Scene() *scene.Scene {
	return v.scene
}

// Camera returns the camera.
func (v *Viewer) Camera() *camera.PerspectiveCamera {
	return v.camera
}

// Floor returns the ground plane node.
func (v *Viewer) Floor() *scene.Node {
	return v.floor
}

// Model returns the loaded model root, nil until the load succeeds.
func (v *Viewer) Model() *scene.Node {
	return v.model
}

// Mixer returns the animation mixer, nil until the load succeeds.
func (v *Viewer) Mixer() *anim.Mixer {
	return v.mixer
}

// Controls returns the orbit controls, nil until the load succeeds.
func (v *Viewer) Controls() *camera.OrbitControls {
	return v.controls
}
