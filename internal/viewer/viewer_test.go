package viewer

import (
	"errors"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/glb-viewer/internal/asset"
	"github.com/Faultbox/glb-viewer/internal/config"
	"github.com/Faultbox/glb-viewer/internal/engine/anim"
	"github.com/Faultbox/glb-viewer/internal/engine/camera"
	"github.com/Faultbox/glb-viewer/internal/engine/input"
	"github.com/Faultbox/glb-viewer/internal/engine/scene"
)

type fakeSurface struct {
	width, height int
	resizes       int
	renders       int
}

func (s *fakeSurface) SetSize(w, h int) {
	s.width, s.height = w, h
	s.resizes++
}

func (s *fakeSurface) Render(*scene.Scene, *camera.PerspectiveCamera) {
	s.renders++
}

type fakeLoader struct {
	bundle  *asset.Bundle
	err     error
	release chan struct{}
	calls   atomic.Int32
	path    atomic.Value
}

func (l *fakeLoader) Load(path string) (*asset.Bundle, error) {
	l.calls.Add(1)
	l.path.Store(path)
	if l.release != nil {
		<-l.release
	}
	return l.bundle, l.err
}

// newBundle returns a model whose "hand" node is animated by n clips.
func newBundle(n int) *asset.Bundle {
	root := scene.NewNode("model")
	hand := scene.NewNode("hand")
	root.Add(hand)

	b := &asset.Bundle{Path: "/master1.glb", Root: root}
	for i := 0; i < n; i++ {
		b.Clips = append(b.Clips, anim.NewClip("clip", []*anim.Track{{
			Target: hand,
			Path:   anim.PathTranslation,
			Times:  []float32{0, 1},
			Values: []float32{0, 0, 0, 1, 0, 0},
		}}))
	}
	return b
}

func newTestViewer(t *testing.T, l asset.Loader, w, h int) (*Viewer, *fakeSurface, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	surface := &fakeSurface{}
	v, err := New(config.Default(), surface, l, zap.New(core), w, h)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v, surface, logs
}

// settle waits for the load and runs the tick that consumes it.
func settle(t *testing.T, v *Viewer) bool {
	t.Helper()
	<-v.LoadDone()
	return v.Tick()
}

func TestNewBuildsStaticScene(t *testing.T) {
	v, surface, _ := newTestViewer(t, &fakeLoader{}, 800, 600)

	if v.State() != StateIdle {
		t.Errorf("State = %v, want idle", v.State())
	}
	if len(v.Scene().Lights()) != 2 {
		t.Fatalf("got %d lights, want 2", len(v.Scene().Lights()))
	}
	if v.Scene().Directional() == nil {
		t.Error("directional light missing")
	}
	if amb := v.Scene().Ambient(); amb[0] < 1.81 || amb[0] > 1.83 {
		t.Errorf("ambient = %v, want 1.82 white", amb)
	}

	floor := v.Floor()
	if !v.Scene().Contains(floor) || floor.Translation.Y != -2 {
		t.Errorf("floor should be in the scene at y=-2, got %v", floor.Translation)
	}

	cam := v.Camera()
	if cam.FOV != 50 || cam.Near != 0.1 || cam.Far != 1000 {
		t.Errorf("camera = fov %v near %v far %v", cam.FOV, cam.Near, cam.Far)
	}
	if surface.width != 800 || surface.height != 600 {
		t.Errorf("surface = %dx%d, want 800x600", surface.width, surface.height)
	}
	if v.Controls() != nil || v.Mixer() != nil {
		t.Error("controls and mixer must not exist before the load")
	}
}

func TestLoadSuccessScenario(t *testing.T) {
	l := &fakeLoader{bundle: newBundle(2)}
	v, surface, logs := newTestViewer(t, l, 1920, 1080)

	if err := v.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !settle(t, v) {
		t.Fatal("first tick after load should render")
	}

	if got := v.Camera().Aspect; got < 1.7777 || got > 1.7778 {
		t.Errorf("aspect = %v, want 1.7778", got)
	}
	if v.State() != StateRunning {
		t.Errorf("State = %v, want running", v.State())
	}
	if n := len(v.Mixer().Actions()); n != 2 {
		t.Errorf("got %d actions, want 2", n)
	}
	if n := v.Mixer().Running(); n != 2 {
		t.Errorf("got %d running actions, want 2", n)
	}
	if !v.Scene().Contains(v.Model()) {
		t.Error("model root should be attached to the scene")
	}
	if !v.Scene().Contains(v.Floor()) || v.Floor().Translation.Y != -2 {
		t.Error("floor should stay at y=-2")
	}
	if len(v.Scene().Lights()) != 2 {
		t.Error("ambient and directional lights should be present")
	}
	if surface.renders != 1 || v.Frames() != 1 {
		t.Errorf("renders = %d frames = %d, want 1", surface.renders, v.Frames())
	}
	if got, _ := l.path.Load().(string); got != "/master1.glb" {
		t.Errorf("loaded path = %q", got)
	}

	if logs.FilterMessage("model loaded").Len() != 1 {
		t.Error("expected one \"model loaded\" log")
	}
	if logs.FilterMessage("an error happened").Len() != 0 {
		t.Error("unexpected failure log")
	}
}

func TestControlsStartPosition(t *testing.T) {
	v, _, _ := newTestViewer(t, &fakeLoader{bundle: newBundle(0)}, 640, 480)
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	settle(t, v)

	c := v.Controls()
	if c == nil {
		t.Fatal("controls should exist after the load")
	}
	if !c.EnableDamping {
		t.Error("damping should be enabled")
	}
	pos := v.Camera().Position
	if pos.X < -0.01 || pos.X > 0.01 || pos.Y < 2.99 || pos.Y > 3.01 || pos.Z < 5.99 || pos.Z > 6.01 {
		t.Errorf("camera position = %v, want (0, 3, 6)", pos)
	}
	if v.Camera().Target() != c.Target {
		t.Error("camera should look at the controls target")
	}
}

func TestLoadFailureScenario(t *testing.T) {
	l := &fakeLoader{err: errors.New("404 not found")}
	v, surface, logs := newTestViewer(t, l, 1920, 1080)

	if err := v.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if settle(t, v) {
		t.Fatal("no frame may be rendered after a failed load")
	}
	for i := 0; i < 10; i++ {
		if v.Tick() {
			t.Fatal("no frame may be rendered after a failed load")
		}
	}

	if surface.renders != 0 || v.Frames() != 0 {
		t.Errorf("renders = %d, want 0", surface.renders)
	}
	if v.State() != StateIdle {
		t.Errorf("State = %v, want idle", v.State())
	}
	if v.Controls() != nil || v.Mixer() != nil {
		t.Error("controls and mixer must not be created on failure")
	}

	nodes := v.Scene().Nodes()
	if len(nodes) != 1 || nodes[0] != v.Floor() {
		t.Errorf("scene should hold only the floor, got %d nodes", len(nodes))
	}
	if len(v.Scene().Lights()) != 2 {
		t.Error("lights should remain")
	}

	failures := logs.FilterMessage("an error happened")
	if failures.Len() != 1 {
		t.Fatalf("got %d failure logs, want exactly 1", failures.Len())
	}
	if failures.All()[0].Level != zap.ErrorLevel {
		t.Error("failure should be logged at error level")
	}
}

func TestNilBundleIsFailure(t *testing.T) {
	v, surface, logs := newTestViewer(t, &fakeLoader{}, 640, 480)
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	settle(t, v)

	if v.State() != StateIdle || surface.renders != 0 {
		t.Error("a load without a model must leave the viewer idle")
	}
	if logs.FilterMessage("an error happened").Len() != 1 {
		t.Error("expected one failure log")
	}
}

func TestNoFramesBeforeLoad(t *testing.T) {
	l := &fakeLoader{bundle: newBundle(1), release: make(chan struct{})}
	v, surface, _ := newTestViewer(t, l, 640, 480)

	if v.Tick() {
		t.Fatal("tick before Start must not render")
	}
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if v.Tick() {
			t.Fatal("tick during load must not render")
		}
	}
	v.HandleEvent(input.Event{Type: input.EventWheel, Wheel: 1})
	if surface.renders != 0 {
		t.Fatalf("renders = %d before load", surface.renders)
	}

	close(l.release)
	if !settle(t, v) {
		t.Fatal("tick after load should render")
	}
}

func TestStartOnce(t *testing.T) {
	l := &fakeLoader{bundle: newBundle(1)}
	v, _, _ := newTestViewer(t, l, 640, 480)

	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	if err := v.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	settle(t, v)
	for i := 0; i < 3; i++ {
		v.Tick()
	}
	if n := l.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if n := len(v.Scene().Nodes()); n != 2 {
		t.Errorf("scene has %d nodes, want floor + model", n)
	}
}

func TestFixedTimeStep(t *testing.T) {
	v, _, _ := newTestViewer(t, &fakeLoader{bundle: newBundle(1)}, 640, 480)
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	settle(t, v)
	v.Tick()
	v.Tick()

	got := v.Mixer().Time()
	if got < 0.0179 || got > 0.0181 {
		t.Errorf("mixer time after 3 frames = %v, want 0.018", got)
	}
	hand := v.Model().FindByName("hand")
	if hand.Translation.X < 0.0179 || hand.Translation.X > 0.0181 {
		t.Errorf("hand x = %v, want 0.018", hand.Translation.X)
	}
}

func TestZeroClips(t *testing.T) {
	v, _, _ := newTestViewer(t, &fakeLoader{bundle: newBundle(0)}, 640, 480)
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	if !settle(t, v) {
		t.Fatal("a model without clips still renders")
	}
	if len(v.Mixer().Actions()) != 0 {
		t.Error("no actions expected")
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"full hd", 1920, 1080},
		{"portrait", 600, 900},
		{"square", 512, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, surface, _ := newTestViewer(t, &fakeLoader{}, 100, 100)

			v.Resize(tt.w, tt.h)

			want := float32(tt.w) / float32(tt.h)
			if v.Camera().Aspect != want {
				t.Errorf("aspect = %v, want %v", v.Camera().Aspect, want)
			}
			if surface.width != tt.w || surface.height != tt.h {
				t.Errorf("surface = %dx%d, want %dx%d", surface.width, surface.height, tt.w, tt.h)
			}
		})
	}
}

func TestResizeDependsOnLastEventOnly(t *testing.T) {
	a, sa, _ := newTestViewer(t, &fakeLoader{}, 100, 100)
	b, sb, _ := newTestViewer(t, &fakeLoader{}, 100, 100)

	for _, e := range []input.Event{
		{Type: input.EventWindowResize, Width: 300, Height: 200},
		{Type: input.EventWindowResize, Width: 1024, Height: 768},
		{Type: input.EventWindowResize, Width: 1024, Height: 768},
	} {
		a.HandleEvent(e)
	}
	b.HandleEvent(input.Event{Type: input.EventWindowResize, Width: 1024, Height: 768})

	if a.Camera().Aspect != b.Camera().Aspect {
		t.Errorf("aspect %v != %v", a.Camera().Aspect, b.Camera().Aspect)
	}
	if a.Camera().ProjectionMatrix() != b.Camera().ProjectionMatrix() {
		t.Error("projection differs")
	}
	if sa.width != sb.width || sa.height != sb.height {
		t.Error("surface size differs")
	}
}

func TestResizeIgnoresEmptyViewport(t *testing.T) {
	v, surface, _ := newTestViewer(t, &fakeLoader{}, 800, 400)
	v.Resize(0, 0)
	v.Resize(-5, 10)

	if v.Camera().Aspect != 2 {
		t.Errorf("aspect = %v, want 2", v.Camera().Aspect)
	}
	if surface.resizes != 1 {
		t.Errorf("surface resized %d times, want 1", surface.resizes)
	}
}

func TestResizeWhileRunning(t *testing.T) {
	v, surface, _ := newTestViewer(t, &fakeLoader{bundle: newBundle(1)}, 640, 480)
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	settle(t, v)

	v.HandleEvent(input.Event{Type: input.EventWindowResize, Width: 1920, Height: 1080})
	if surface.width != 1920 || v.Camera().Aspect != float32(1920)/float32(1080) {
		t.Error("resize after load should refit camera and surface")
	}
}

func TestPointerInputReachesControls(t *testing.T) {
	v, _, _ := newTestViewer(t, &fakeLoader{bundle: newBundle(0)}, 800, 600)
	if err := v.Start(); err != nil {
		t.Fatal(err)
	}
	settle(t, v)

	before := v.Camera().Position
	v.HandleEvent(input.Event{Type: input.EventPointerDown, Button: input.ButtonLeft, X: 100, Y: 100})
	v.HandleEvent(input.Event{Type: input.EventPointerMove, X: 160, Y: 100})
	v.HandleEvent(input.Event{Type: input.EventPointerUp})
	v.Tick()

	if v.Camera().Position == before {
		t.Error("drag should orbit the camera")
	}

	v.HandleEvent(input.Event{Type: input.EventKeyDown, Key: input.KeyR})
	if d := v.Camera().Position.Distance(before); d > 1e-4 {
		t.Errorf("reset should restore %v, got %v", before, v.Camera().Position)
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateRunning.String() != "running" {
		t.Error("unexpected state names")
	}
}
