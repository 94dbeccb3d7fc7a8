package scene

import "github.com/Faultbox/glb-viewer/pkg/math"

// Light is a light source the renderer knows how to apply.
type Light interface {
	// LightColor returns the colour premultiplied by intensity.
	LightColor() [3]float32
}

// AmbientLight lights every surface uniformly.
type AmbientLight struct {
	Color     [3]float32
	Intensity float32
}

// NewAmbientLight creates an ambient light.
func NewAmbientLight(color [3]float32, intensity float32) *AmbientLight {
	return &AmbientLight{Color: color, Intensity: intensity}
}

// LightColor implements Light.
func (l *AmbientLight) LightColor() [3]float32 {
	return scaleColor(l.Color, l.Intensity)
}

// DirectionalLight shines parallel rays from Position towards Target.
type DirectionalLight struct {
	Color     [3]float32
	Intensity float32
	Position  math.Vec3
	Target    math.Vec3
}

// NewDirectionalLight creates a directional light aimed at the origin.
func NewDirectionalLight(color [3]float32, intensity float32, position math.Vec3) *DirectionalLight {
	return &DirectionalLight{Color: color, Intensity: intensity, Position: position}
}

// LightColor implements Light.
func (l *DirectionalLight) LightColor() [3]float32 {
	return scaleColor(l.Color, l.Intensity)
}

// Direction returns the normalized vector from the surface towards the light.
func (l *DirectionalLight) Direction() math.Vec3 {
	return l.Position.Sub(l.Target).Normalize()
}

func scaleColor(c [3]float32, s float32) [3]float32 {
	return [3]float32{c[0] * s, c[1] * s, c[2] * s}
}
