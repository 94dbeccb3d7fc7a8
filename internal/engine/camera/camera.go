// Package camera provides the perspective camera and its orbit controls.
package camera

import (
	gomath "math"

	"github.com/Faultbox/glb-viewer/pkg/math"
)

// PerspectiveCamera holds perspective projection state.
type PerspectiveCamera struct {
	FOV    float32 // Vertical field of view, degrees
	Aspect float32 // Width / height
	Near   float32
	Far    float32

	Position math.Vec3
	Up       math.Vec3

	target     math.Vec3
	projection math.Mat4
}

// NewPerspective creates a camera at the origin looking down -Z.
func NewPerspective(fov, aspect, near, far float32) *PerspectiveCamera {
	c := &PerspectiveCamera{
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     math.Vec3{Y: 1},
		target: math.Vec3{Z: -1},
	}
	c.UpdateProjectionMatrix()
	return c
}

// UpdateProjectionMatrix recomputes the projection after FOV, Aspect,
// Near or Far changed.
func (c *PerspectiveCamera) UpdateProjectionMatrix() {
	fovRad := c.FOV * gomath.Pi / 180
	c.projection = math.Perspective(fovRad, c.Aspect, c.Near, c.Far)
}

// ProjectionMatrix returns the projection computed by the last UpdateProjectionMatrix.
func (c *PerspectiveCamera) ProjectionMatrix() math.Mat4 {
	return c.projection
}

// LookAt orients the camera towards a world point.
func (c *PerspectiveCamera) LookAt(target math.Vec3) {
	c.target = target
}

// Target returns the point the camera looks at.
func (c *PerspectiveCamera) Target() math.Vec3 {
	return c.target
}

// ViewMatrix returns the world-to-camera transform.
func (c *PerspectiveCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.target, c.Up)
}

// ViewProjection returns projection * view.
func (c *PerspectiveCamera) ViewProjection() math.Mat4 {
	return c.projection.Mul(c.ViewMatrix())
}
