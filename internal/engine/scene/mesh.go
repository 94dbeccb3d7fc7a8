package scene

import (
	"image"
	gomath "math"

	"github.com/Faultbox/glb-viewer/pkg/math"
)

// Vertex is the interleaved vertex layout uploaded to the GPU.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Joints   [4]float32
	Weights  [4]float32
}

// Material holds the surface parameters the renderer understands.
type Material struct {
	Name             string
	BaseColor        [4]float32
	BaseColorTexture *image.RGBA
	DoubleSided      bool
	ReceiveShadow    bool
}

// NewMaterial returns an opaque material of the given RGB colour.
func NewMaterial(rgb [3]float32) *Material {
	return &Material{BaseColor: [4]float32{rgb[0], rgb[1], rgb[2], 1}}
}

// Primitive is one indexed triangle list sharing a material.
type Primitive struct {
	Vertices []Vertex
	Indices  []uint32
	Material *Material
}

// Mesh groups the primitives of one glTF mesh.
type Mesh struct {
	Name       string
	Primitives []*Primitive
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return b.Min[0] > b.Max[0]
}

// Center returns the box center.
func (b Bounds) Center() math.Vec3 {
	return math.Vec3{
		X: (b.Min[0] + b.Max[0]) / 2,
		Y: (b.Min[1] + b.Max[1]) / 2,
		Z: (b.Min[2] + b.Max[2]) / 2,
	}
}

func emptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{gomath.MaxFloat32, gomath.MaxFloat32, gomath.MaxFloat32},
		Max: [3]float32{-gomath.MaxFloat32, -gomath.MaxFloat32, -gomath.MaxFloat32},
	}
}

func (b *Bounds) extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Bounds returns the mesh bounds in its local space.
func (m *Mesh) Bounds() Bounds {
	b := emptyBounds()
	for _, p := range m.Primitives {
		for _, v := range p.Vertices {
			b.extend(v.Position)
		}
	}
	return b
}

// WorldBounds returns the bounds of every mesh under n, in world space.
func WorldBounds(n *Node) Bounds {
	b := emptyBounds()
	n.TraverseVisible(math.Identity(), func(node *Node, world math.Mat4) {
		if node.Mesh == nil {
			return
		}
		for _, p := range node.Mesh.Primitives {
			for _, v := range p.Vertices {
				b.extend(world.TransformPoint(v.Position))
			}
		}
	})
	return b
}

// NewPlane builds a width x depth plane in the XY plane facing +Z,
// centered on the origin (the orientation of a freshly made plane geometry).
func NewPlane(width, depth float32, mat *Material) *Mesh {
	hw, hd := width/2, depth/2
	n := [3]float32{0, 0, 1}
	return &Mesh{
		Name: "plane",
		Primitives: []*Primitive{{
			Vertices: []Vertex{
				{Position: [3]float32{-hw, hd, 0}, Normal: n, TexCoord: [2]float32{0, 0}},
				{Position: [3]float32{-hw, -hd, 0}, Normal: n, TexCoord: [2]float32{0, 1}},
				{Position: [3]float32{hw, hd, 0}, Normal: n, TexCoord: [2]float32{1, 0}},
				{Position: [3]float32{hw, -hd, 0}, Normal: n, TexCoord: [2]float32{1, 1}},
			},
			Indices:  []uint32{0, 1, 2, 2, 1, 3},
			Material: mat,
		}},
	}
}
