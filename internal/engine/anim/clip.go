// Package anim plays keyframed animation clips on scene graph nodes.
package anim

import (
	"fmt"
	"sort"

	"github.com/Faultbox/glb-viewer/internal/engine/scene"
	"github.com/Faultbox/glb-viewer/pkg/math"
)

// Path is the node property a track drives.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

func (p Path) String() string {
	switch p {
	case PathTranslation:
		return "translation"
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	}
	return fmt.Sprintf("Path(%d)", int(p))
}

// Components returns the number of floats per keyframe value.
func (p Path) Components() int {
	if p == PathRotation {
		return 4
	}
	return 3
}

// Interpolation selects how values between keyframes are computed.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// Track animates one property of one node.
//
// Values holds Components() floats per key, or 3*Components() for cubic
// splines laid out as in-tangent, value, out-tangent.
type Track struct {
	Target        *scene.Node
	Path          Path
	Interpolation Interpolation
	Times         []float32
	Values        []float32
}

// Validate checks that keyframe times and values line up.
func (t *Track) Validate() error {
	if t.Target == nil {
		return fmt.Errorf("%s track: no target node", t.Path)
	}
	if len(t.Times) == 0 {
		return fmt.Errorf("%s track on %q: no keyframes", t.Path, t.Target.Name)
	}
	stride := t.stride()
	if len(t.Values) != len(t.Times)*stride {
		return fmt.Errorf("%s track on %q: %d values for %d keys (stride %d)",
			t.Path, t.Target.Name, len(t.Values), len(t.Times), stride)
	}
	return nil
}

func (t *Track) stride() int {
	if t.Interpolation == InterpolationCubicSpline {
		return 3 * t.Path.Components()
	}
	return t.Path.Components()
}

// value returns the keyframe value (not a tangent) of key k.
func (t *Track) value(k int) []float32 {
	n := t.Path.Components()
	base := k * t.stride()
	if t.Interpolation == InterpolationCubicSpline {
		base += n
	}
	return t.Values[base : base+n]
}

// Sample evaluates the track at time tm. Times before the first key hold
// the first value, times after the last key hold the last value.
func (t *Track) Sample(tm float32) []float32 {
	n := t.Path.Components()
	out := make([]float32, n)

	// First key strictly after tm
	next := sort.Search(len(t.Times), func(i int) bool { return t.Times[i] > tm })
	if next == 0 {
		copy(out, t.value(0))
		return out
	}
	if next == len(t.Times) {
		copy(out, t.value(len(t.Times)-1))
		return out
	}

	prev := next - 1
	span := t.Times[next] - t.Times[prev]
	u := float32(0)
	if span > 0 {
		u = (tm - t.Times[prev]) / span
	}

	switch t.Interpolation {
	case InterpolationStep:
		copy(out, t.value(prev))
	case InterpolationCubicSpline:
		t.hermite(out, prev, next, span, u)
	default:
		a, b := t.value(prev), t.value(next)
		if t.Path == PathRotation {
			q := math.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}.
				Slerp(math.Quat{X: b[0], Y: b[1], Z: b[2], W: b[3]}, u)
			out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
		} else {
			for i := range out {
				out[i] = a[i] + u*(b[i]-a[i])
			}
		}
	}
	return out
}

func (t *Track) hermite(out []float32, prev, next int, span, u float32) {
	n := t.Path.Components()
	stride := t.stride()
	p0 := t.Values[prev*stride+n : prev*stride+2*n]
	m0 := t.Values[prev*stride+2*n : prev*stride+3*n] // out-tangent
	m1 := t.Values[next*stride : next*stride+n]       // in-tangent
	p1 := t.Values[next*stride+n : next*stride+2*n]

	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	for i := 0; i < n; i++ {
		out[i] = h00*p0[i] + h10*span*m0[i] + h01*p1[i] + h11*span*m1[i]
	}
	if t.Path == PathRotation {
		q := math.Quat{X: out[0], Y: out[1], Z: out[2], W: out[3]}.Normalize()
		out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
	}
}

// Clip is a named set of tracks played together.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []*Track
}

// NewClip creates a clip whose duration is the last keyframe time of any track.
func NewClip(name string, tracks []*Track) *Clip {
	c := &Clip{Name: name, Tracks: tracks}
	for _, tr := range tracks {
		if n := len(tr.Times); n > 0 && tr.Times[n-1] > c.Duration {
			c.Duration = tr.Times[n-1]
		}
	}
	return c
}
