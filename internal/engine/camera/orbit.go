package camera

import (
	gomath "math"

	"github.com/Faultbox/glb-viewer/pkg/math"
)

// polarEpsilon keeps the camera off the poles where LookAt degenerates.
const polarEpsilon = 0.000001

type dragMode int

const (
	dragNone dragMode = iota
	dragRotate
	dragPan
)

// Pointer buttons understood by the controls.
const (
	ButtonLeft   = 1
	ButtonMiddle = 2
	ButtonRight  = 3
)

// OrbitControls rotates, zooms and pans a camera around Target.
// Input only accumulates deltas; Update applies them to the camera.
type OrbitControls struct {
	Camera *PerspectiveCamera
	Target math.Vec3

	Enabled       bool
	EnableDamping bool
	DampingFactor float32

	RotateSpeed float32
	ZoomSpeed   float32
	PanSpeed    float32

	// Constraints
	MinDistance float32
	MaxDistance float32 // 0 means unbounded
	MinPolar    float32
	MaxPolar    float32

	// Pending input
	deltaTheta float32
	deltaPhi   float32
	scale      float32
	panOffset  math.Vec3

	mode         dragMode
	lastX, lastY int
	viewHeight   int

	savedTarget   math.Vec3
	savedPosition math.Vec3
}

// NewOrbitControls binds controls to a camera, orbiting the origin.
func NewOrbitControls(cam *PerspectiveCamera, viewHeight int) *OrbitControls {
	if viewHeight <= 0 {
		viewHeight = 1
	}
	c := &OrbitControls{
		Camera:        cam,
		Enabled:       true,
		DampingFactor: 0.05,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		MaxPolar:      gomath.Pi,
		scale:         1,
		viewHeight:    viewHeight,
	}
	c.SaveState()
	return c
}

// SetViewHeight updates the pixel height used to normalize drags.
func (c *OrbitControls) SetViewHeight(h int) {
	if h > 0 {
		c.viewHeight = h
	}
}

// PointerDown starts a drag: left rotates, right or middle pans.
func (c *OrbitControls) PointerDown(button uint8, x, y int) {
	if !c.Enabled {
		return
	}
	switch button {
	case ButtonLeft:
		c.mode = dragRotate
	case ButtonRight, ButtonMiddle:
		c.mode = dragPan
	default:
		return
	}
	c.lastX, c.lastY = x, y
}

// PointerMove continues the current drag.
func (c *OrbitControls) PointerMove(x, y int) {
	if !c.Enabled || c.mode == dragNone {
		return
	}
	dx, dy := float32(x-c.lastX), float32(y-c.lastY)
	c.lastX, c.lastY = x, y

	switch c.mode {
	case dragRotate:
		h := float32(c.viewHeight)
		c.Rotate(2*gomath.Pi*dx/h*c.RotateSpeed, 2*gomath.Pi*dy/h*c.RotateSpeed)
	case dragPan:
		c.Pan(dx, dy)
	}
}

// PointerUp ends the current drag.
func (c *OrbitControls) PointerUp() {
	c.mode = dragNone
}

// Wheel zooms in for positive delta and out for negative.
func (c *OrbitControls) Wheel(delta float32) {
	if !c.Enabled || delta == 0 {
		return
	}
	step := float32(gomath.Pow(0.95, float64(c.ZoomSpeed)))
	if delta > 0 {
		c.scale *= step
	} else {
		c.scale /= step
	}
}

// Rotate queues a rotation: left around the target by dTheta, up by dPhi (radians).
func (c *OrbitControls) Rotate(dTheta, dPhi float32) {
	if !c.Enabled {
		return
	}
	c.deltaTheta -= dTheta
	c.deltaPhi -= dPhi
}

// Pan queues a screen-space pan of dx, dy pixels.
func (c *OrbitControls) Pan(dx, dy float32) {
	if !c.Enabled {
		return
	}
	cam := c.Camera
	offset := cam.Position.Sub(c.Target)
	// Pixels to world units at the target distance
	halfFov := float64(cam.FOV) * gomath.Pi / 360
	worldPerPixel := 2 * offset.Length() * float32(gomath.Tan(halfFov)) / float32(c.viewHeight)

	forward := c.Target.Sub(cam.Position).Normalize()
	right := forward.Cross(cam.Up).Normalize()
	up := right.Cross(forward)

	move := right.Scale(-dx * worldPerPixel * c.PanSpeed).Add(up.Scale(dy * worldPerPixel * c.PanSpeed))
	c.panOffset = c.panOffset.Add(move)
}

// Update applies pending input to the camera and reports whether it moved.
// With damping enabled the pending deltas decay instead of being consumed,
// so Update must run every frame.
func (c *OrbitControls) Update() bool {
	cam := c.Camera
	before := cam.Position

	s := math.SphericalFromVec3(cam.Position.Sub(c.Target))

	if c.EnableDamping {
		s.Theta += c.deltaTheta * c.DampingFactor
		s.Phi += c.deltaPhi * c.DampingFactor
		c.Target = c.Target.Add(c.panOffset.Scale(c.DampingFactor))
	} else {
		s.Theta += c.deltaTheta
		s.Phi += c.deltaPhi
		c.Target = c.Target.Add(c.panOffset)
	}

	s.Phi = clamp(s.Phi, maxf(c.MinPolar, polarEpsilon), minf(c.MaxPolar, gomath.Pi-polarEpsilon))

	s.Radius *= c.scale
	if s.Radius < c.MinDistance {
		s.Radius = c.MinDistance
	}
	if c.MaxDistance > 0 && s.Radius > c.MaxDistance {
		s.Radius = c.MaxDistance
	}

	cam.Position = c.Target.Add(s.Vec3())
	cam.LookAt(c.Target)

	if c.EnableDamping {
		decay := 1 - c.DampingFactor
		c.deltaTheta *= decay
		c.deltaPhi *= decay
		c.panOffset = c.panOffset.Scale(decay)
	} else {
		c.deltaTheta, c.deltaPhi = 0, 0
		c.panOffset = math.Vec3{}
	}
	c.scale = 1

	return cam.Position.Distance(before) > 1e-6
}

// SaveState remembers the current target and camera position for Reset.
func (c *OrbitControls) SaveState() {
	c.savedTarget = c.Target
	c.savedPosition = c.Camera.Position
}

// Reset restores the last saved state and drops pending input.
func (c *OrbitControls) Reset() {
	c.Target = c.savedTarget
	c.Camera.Position = c.savedPosition
	c.Camera.LookAt(c.Target)
	c.deltaTheta, c.deltaPhi = 0, 0
	c.panOffset = math.Vec3{}
	c.scale = 1
	c.mode = dragNone
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
