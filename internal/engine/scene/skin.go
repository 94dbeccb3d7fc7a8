package scene

import "github.com/Faultbox/glb-viewer/pkg/math"

// MaxJoints is the joint palette size the skinning shader supports.
const MaxJoints = 128

// Skin binds a mesh to a joint hierarchy.
type Skin struct {
	Name        string
	Joints      []*Node
	InverseBind []math.Mat4
}

// JointMatrices returns the per-joint skinning matrices for a mesh whose
// node has the given world transform. The result has at most MaxJoints entries.
func (s *Skin) JointMatrices(meshWorld math.Mat4) []math.Mat4 {
	count := len(s.Joints)
	if count > MaxJoints {
		count = MaxJoints
	}
	inv := meshWorld.Inverse()
	out := make([]math.Mat4, count)
	for i := 0; i < count; i++ {
		bind := math.Identity()
		if i < len(s.InverseBind) {
			bind = s.InverseBind[i]
		}
		out[i] = inv.Mul(s.Joints[i].WorldMatrix()).Mul(bind)
	}
	return out
}
