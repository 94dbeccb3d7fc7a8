// Package asset loads glTF models into scene graphs and animation clips.
package asset

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/glb-viewer/internal/engine/anim"
	"github.com/Faultbox/glb-viewer/internal/engine/scene"
)

// ErrNoScene is returned for documents without any scene to display.
var ErrNoScene = errors.New("asset: document has no scene")

// MaxTextureSize bounds the longest side of decoded base-colour images.
const MaxTextureSize = 2048

// Bundle is a loaded model: its node graph and the clips that animate it.
type Bundle struct {
	Path  string
	Root  *scene.Node
	Clips []*anim.Clip
}

// Summary returns log fields describing the bundle.
func (b *Bundle) Summary() []zap.Field {
	var nodes, meshes, primitives, skins int
	b.Root.Traverse(func(n *scene.Node) {
		nodes++
		if n.Mesh != nil {
			meshes++
			primitives += len(n.Mesh.Primitives)
		}
		if n.Skin != nil {
			skins++
		}
	})

	clips := make([]string, len(b.Clips))
	for i, c := range b.Clips {
		clips[i] = c.Name
	}

	return []zap.Field{
		zap.String("path", b.Path),
		zap.Int("nodes", nodes),
		zap.Int("meshes", meshes),
		zap.Int("primitives", primitives),
		zap.Int("skins", skins),
		zap.Strings("clips", clips),
	}
}
