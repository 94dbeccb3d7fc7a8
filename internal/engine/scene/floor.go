package scene

import (
	gomath "math"

	"github.com/Faultbox/glb-viewer/pkg/math"
)

// FloorName is the node name given to the ground plane.
const FloorName = "floor"

// NewFloor builds the static ground plane: a width x depth plane laid flat
// (rotated -90 degrees around X) at height y. The floor receives shadows.
func NewFloor(width, depth float32, rgb [3]float32, y float32) *Node {
	mat := NewMaterial(rgb)
	mat.ReceiveShadow = true

	floor := NewNode(FloorName)
	floor.Mesh = NewPlane(width, depth, mat)
	floor.Rotation = math.QuatFromAxisAngle(math.Vec3{X: 1}, -gomath.Pi/2)
	floor.Translation = math.Vec3{Y: y}
	return floor
}
