package scene

// Scene is the root container of everything the renderer draws.
type Scene struct {
	Background [3]float32

	root   *Node
	lights []Light
}

// New creates an empty scene with the given clear colour.
func New(background [3]float32) *Scene {
	return &Scene{
		Background: background,
		root:       NewNode("scene"),
	}
}

// Root returns the graph root. Everything drawn hangs off it.
func (s *Scene) Root() *Node {
	return s.root
}

// Add attaches a node to the scene root.
func (s *Scene) Add(n *Node) {
	s.root.Add(n)
}

// Contains reports whether n is a direct child of the scene root.
func (s *Scene) Contains(n *Node) bool {
	return n != nil && n.parent == s.root
}

// Nodes returns the direct children of the scene root.
func (s *Scene) Nodes() []*Node {
	return s.root.Children()
}

// AddLight adds a light source.
func (s *Scene) AddLight(l Light) {
	s.lights = append(s.lights, l)
}

// Lights returns every light in insertion order.
func (s *Scene) Lights() []Light {
	return s.lights
}

// Ambient returns the summed ambient contribution.
func (s *Scene) Ambient() [3]float32 {
	var sum [3]float32
	for _, l := range s.lights {
		if a, ok := l.(*AmbientLight); ok {
			c := a.LightColor()
			sum[0], sum[1], sum[2] = sum[0]+c[0], sum[1]+c[1], sum[2]+c[2]
		}
	}
	return sum
}

// Directional returns the first directional light, or nil.
func (s *Scene) Directional() *DirectionalLight {
	for _, l := range s.lights {
		if d, ok := l.(*DirectionalLight); ok {
			return d
		}
	}
	return nil
}
