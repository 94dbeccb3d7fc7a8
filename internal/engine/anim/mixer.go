package anim

import (
	gomath "math"

	"github.com/Faultbox/glb-viewer/internal/engine/scene"
	"github.com/Faultbox/glb-viewer/pkg/math"
)

// LoopMode decides what an action does when it reaches the clip end.
type LoopMode int

const (
	// LoopRepeat wraps around to the start forever.
	LoopRepeat LoopMode = iota
	// LoopOnce holds the last pose and stops.
	LoopOnce
)

// Action is a playable instance of a clip inside a mixer.
type Action struct {
	Loop      LoopMode
	TimeScale float32
	// Weight scales the action's influence when several actions drive the
	// same property. Zero leaves the property to the others.
	Weight float32

	clip    *Clip
	time    float32
	running bool
}

// Play starts the action. Playing an action that is already running is a no-op.
func (a *Action) Play() *Action {
	a.running = true
	return a
}

// Stop halts the action and rewinds it.
func (a *Action) Stop() *Action {
	a.running = false
	a.time = 0
	return a
}

// IsRunning reports whether the action advances on Update.
func (a *Action) IsRunning() bool {
	return a.running
}

// Time returns the local playback time within the clip.
func (a *Action) Time() float32 {
	return a.time
}

// Clip returns the clip this action plays.
func (a *Action) Clip() *Clip {
	return a.clip
}

func (a *Action) advance(dt float32) {
	a.time += dt * a.TimeScale
	d := a.clip.Duration
	if d <= 0 {
		a.time = 0
		return
	}
	switch a.Loop {
	case LoopOnce:
		if a.time >= d {
			a.time = d
			a.running = false
		} else if a.time < 0 {
			a.time = 0
			a.running = false
		}
	default:
		a.time = float32(gomath.Mod(float64(a.time), float64(d)))
		if a.time < 0 {
			a.time += d
		}
	}
}

type bindingKey struct {
	node *scene.Node
	path Path
}

// binding accumulates the weighted samples every running action writes to
// one node property during an Update.
type binding struct {
	key    bindingKey
	rest   [4]float32
	value  [4]float32
	weight float32
}

func (b *binding) accumulate(v []float32, w float32) {
	var in [4]float32
	copy(in[:], v)
	if b.weight == 0 {
		b.value = in
		b.weight = w
		return
	}
	b.weight += w
	b.mix(in, w/b.weight)
}

func (b *binding) mix(in [4]float32, t float32) {
	if b.key.path == PathRotation {
		b.value = math.QuatFromArray(b.value).Slerp(math.QuatFromArray(in), t).Array()
		return
	}
	for i := 0; i < 3; i++ {
		b.value[i] += (in[i] - b.value[i]) * t
	}
}

// apply writes the blended value. A total weight under one is topped up
// with the property's rest value.
func (b *binding) apply() {
	if b.weight < 1 {
		b.mix(b.rest, 1-b.weight)
	}
	n := b.key.node
	switch b.key.path {
	case PathTranslation:
		n.Translation = math.Vec3{X: b.value[0], Y: b.value[1], Z: b.value[2]}
	case PathRotation:
		n.Rotation = math.QuatFromArray(b.value)
	case PathScale:
		n.Scale = math.Vec3{X: b.value[0], Y: b.value[1], Z: b.value[2]}
	}
}

func restValue(n *scene.Node, p Path) [4]float32 {
	switch p {
	case PathRotation:
		return n.Rotation.Array()
	case PathScale:
		return [4]float32{n.Scale.X, n.Scale.Y, n.Scale.Z}
	default:
		return [4]float32{n.Translation.X, n.Translation.Y, n.Translation.Z}
	}
}

// Mixer advances the actions of one animated model.
type Mixer struct {
	root     *scene.Node
	actions  []*Action
	byClip   map[*Clip]*Action
	bindings map[bindingKey]*binding
	order    []*binding
	time     float32
}

// NewMixer creates a mixer bound to a model root.
func NewMixer(root *scene.Node) *Mixer {
	return &Mixer{
		root:     root,
		byClip:   make(map[*Clip]*Action),
		bindings: make(map[bindingKey]*binding),
	}
}

// binding returns the accumulator for a track's property, capturing the
// property's current value as its rest value on first use.
func (m *Mixer) binding(tr *Track) *binding {
	k := bindingKey{node: tr.Target, path: tr.Path}
	if b, ok := m.bindings[k]; ok {
		return b
	}
	b := &binding{key: k, rest: restValue(tr.Target, tr.Path)}
	m.bindings[k] = b
	m.order = append(m.order, b)
	return b
}

// Root returns the node the mixer drives.
func (m *Mixer) Root() *scene.Node {
	return m.root
}

// ClipAction returns the action for clip, creating it on first use.
// The same clip always yields the same action.
func (m *Mixer) ClipAction(clip *Clip) *Action {
	if a, ok := m.byClip[clip]; ok {
		return a
	}
	a := &Action{
		Loop:      LoopRepeat,
		TimeScale: 1,
		Weight:    1,
		clip:      clip,
	}
	m.byClip[clip] = a
	m.actions = append(m.actions, a)
	return a
}

// Update advances every running action by dt and poses the model.
// dt is in clip time units (seconds for glTF). Actions animating the same
// property are blended by weight.
func (m *Mixer) Update(dt float32) {
	m.time += dt
	for _, b := range m.order {
		b.weight = 0
	}
	for _, a := range m.actions {
		if !a.running {
			continue
		}
		a.advance(dt)
		if a.Weight <= 0 {
			continue
		}
		for _, tr := range a.clip.Tracks {
			if tr.Target == nil {
				continue
			}
			m.binding(tr).accumulate(tr.Sample(a.time), a.Weight)
		}
	}
	for _, b := range m.order {
		if b.weight > 0 {
			b.apply()
		}
	}
}

// Time returns the total time the mixer has been advanced by.
func (m *Mixer) Time() float32 {
	return m.time
}

// Actions returns every action created so far.
func (m *Mixer) Actions() []*Action {
	return m.actions
}

// Running returns how many actions are currently playing.
func (m *Mixer) Running() int {
	n := 0
	for _, a := range m.actions {
		if a.running {
			n++
		}
	}
	return n
}
