// Package scene provides the scene graph the viewer renders: nodes, meshes,
// materials, skins and lights.
package scene

import (
	"github.com/Faultbox/glb-viewer/pkg/math"
)

// Node is a transform in the scene graph with an optional mesh.
type Node struct {
	Name string

	// Local transform. Ignored when Matrix is set.
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3

	// Matrix overrides the TRS transform (glTF nodes may carry a matrix
	// instead of TRS; such nodes are never animation targets).
	Matrix *math.Mat4

	Mesh    *Mesh
	Skin    *Skin
	Visible bool

	parent   *Node
	children []*Node
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
		Visible:  true,
	}
}

// Add attaches child to n, detaching it from any previous parent.
// Adding a node to its current parent is a no-op.
func (n *Node) Add(child *Node) {
	if child == nil || child == n || child.parent == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child from n. It reports whether child was attached.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct children. The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// LocalMatrix returns the node transform relative to its parent.
func (n *Node) LocalMatrix() math.Mat4 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	return math.FromTRS(n.Translation, n.Rotation, n.Scale)
}

// WorldMatrix returns the node transform relative to the graph root.
func (n *Node) WorldMatrix() math.Mat4 {
	if n.parent == nil {
		return n.LocalMatrix()
	}
	return n.parent.WorldMatrix().Mul(n.LocalMatrix())
}

// Traverse calls fn for n and every descendant, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// TraverseVisible walks visible nodes with their accumulated world matrix.
// Hidden nodes hide their whole subtree.
func (n *Node) TraverseVisible(parentWorld math.Mat4, fn func(node *Node, world math.Mat4)) {
	if !n.Visible {
		return
	}
	world := parentWorld.Mul(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.children {
		c.TraverseVisible(world, fn)
	}
}

// FindByName returns the first node named name in the subtree, or nil.
func (n *Node) FindByName(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.FindByName(name); found != nil {
			return found
		}
	}
	return nil
}
