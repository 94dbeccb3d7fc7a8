package asset

import (
	"encoding/json"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/glb-viewer/internal/engine/anim"
	"github.com/Faultbox/glb-viewer/internal/engine/scene"
	"github.com/Faultbox/glb-viewer/internal/engine/texture"
	"github.com/Faultbox/glb-viewer/internal/logger"
	"github.com/Faultbox/glb-viewer/pkg/math"
)

const extTextureWebP = "EXT_texture_webp"

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Load reads a .glb or .gltf file and converts its default scene.
func Load(path string) (*Bundle, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return FromDocument(doc, path)
}

// FromDocument converts an already parsed document. path is used to
// resolve external images and for naming.
func FromDocument(doc *gltf.Document, path string) (*Bundle, error) {
	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if sceneIdx < 0 || sceneIdx >= len(doc.Scenes) {
		return nil, ErrNoScene
	}

	b := &builder{
		doc:       doc,
		dir:       filepath.Dir(path),
		log:       logger.Named("asset"),
		meshes:    make(map[int]*scene.Mesh),
		materials: make(map[int]*scene.Material),
		skins:     make(map[int]*scene.Skin),
		images:    make(map[int]*image.RGBA),
	}

	gs := doc.Scenes[sceneIdx]
	name := gs.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	root := scene.NewNode(name)

	if err := b.buildNodes(); err != nil {
		return nil, err
	}
	for _, idx := range gs.Nodes {
		if idx < 0 || idx >= len(b.nodes) {
			return nil, fmt.Errorf("scene %d: node %d out of range", sceneIdx, idx)
		}
		root.Add(b.nodes[idx])
	}

	clips, err := b.buildClips()
	if err != nil {
		return nil, err
	}

	return &Bundle{Path: path, Root: root, Clips: clips}, nil
}

type builder struct {
	doc *gltf.Document
	dir string
	log *zap.Logger

	nodes     []*scene.Node
	meshes    map[int]*scene.Mesh
	materials map[int]*scene.Material
	skins     map[int]*scene.Skin
	images    map[int]*image.RGBA
}

// checkHierarchy rejects node graphs that are not a forest: a node listed
// as a child twice, or a parent chain that loops back on itself.
func (b *builder) checkHierarchy() error {
	parent := make([]int, len(b.doc.Nodes))
	for i := range parent {
		parent[i] = -1
	}
	for i, gn := range b.doc.Nodes {
		for _, c := range gn.Children {
			if c < 0 || c >= len(parent) {
				return fmt.Errorf("node %d: child %d out of range", i, c)
			}
			if c == i {
				return fmt.Errorf("node %d: lists itself as a child", i)
			}
			if parent[c] >= 0 {
				return fmt.Errorf("node %d: already a child of node %d", c, parent[c])
			}
			parent[c] = i
		}
	}
	for i := range parent {
		steps := 0
		for p := parent[i]; p >= 0; p = parent[p] {
			if steps++; steps > len(parent) || p == i {
				return fmt.Errorf("node %d: cyclic hierarchy", i)
			}
		}
	}
	return nil
}

func (b *builder) buildNodes() error {
	if err := b.checkHierarchy(); err != nil {
		return err
	}
	b.nodes = make([]*scene.Node, len(b.doc.Nodes))
	for i, gn := range b.doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := scene.NewNode(name)

		if m := gn.MatrixOrDefault(); m != identity64 {
			mat := math.FromArray64(m)
			n.Matrix = &mat
		} else {
			t := gn.TranslationOrDefault()
			r := gn.RotationOrDefault()
			s := gn.ScaleOrDefault()
			n.Translation = math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])}
			n.Rotation = math.QuatFromArray([4]float32{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])})
			n.Scale = math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])}
		}
		b.nodes[i] = n
	}

	// Meshes and skins reference other nodes, so they are resolved after
	// every node exists.
	for i, gn := range b.doc.Nodes {
		n := b.nodes[i]
		for _, c := range gn.Children {
			n.Add(b.nodes[c])
		}
		if gn.Mesh != nil {
			m, err := b.mesh(*gn.Mesh)
			if err != nil {
				return err
			}
			n.Mesh = m
		}
		if gn.Skin != nil {
			s, err := b.skin(*gn.Skin)
			if err != nil {
				return err
			}
			n.Skin = s
		}
	}
	return nil
}

func (b *builder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return b.doc.Accessors[idx], nil
}

func (b *builder) mesh(idx int) (*scene.Mesh, error) {
	if m, ok := b.meshes[idx]; ok {
		return m, nil
	}
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}

	gm := b.doc.Meshes[idx]
	m := &scene.Mesh{Name: gm.Name}
	for pi, p := range gm.Primitives {
		prim, err := b.primitive(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, pi, err)
		}
		if prim != nil {
			m.Primitives = append(m.Primitives, prim)
		}
	}
	b.meshes[idx] = m
	return m, nil
}

func (b *builder) primitive(p *gltf.Primitive) (*scene.Primitive, error) {
	if p.Mode != gltf.PrimitiveTriangles {
		b.log.Debug("skipping non-triangle primitive", zap.Int("mode", int(p.Mode)))
		return nil, nil
	}
	posIdx, ok := p.Attributes["POSITION"]
	if !ok {
		b.log.Debug("skipping primitive without positions")
		return nil, nil
	}

	acr, err := b.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}
	verts := make([]scene.Vertex, len(positions))
	for i, pos := range positions {
		verts[i].Position = pos
	}

	hasNormals := false
	if idx, ok := p.Attributes["NORMAL"]; ok {
		if acr, err = b.accessor(idx); err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		for i := 0; i < len(normals) && i < len(verts); i++ {
			verts[i].Normal = normals[i]
		}
		hasNormals = true
	}

	if idx, ok := p.Attributes["TEXCOORD_0"]; ok {
		if acr, err = b.accessor(idx); err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading texcoords: %w", err)
		}
		for i := 0; i < len(uvs) && i < len(verts); i++ {
			verts[i].TexCoord = uvs[i]
		}
	}

	if err := b.readSkinAttributes(p, verts); err != nil {
		return nil, err
	}

	var indices []uint32
	if p.Indices != nil {
		if acr, err = b.accessor(*p.Indices); err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(b.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(verts) {
				return nil, fmt.Errorf("index %d exceeds %d vertices", i, len(verts))
			}
		}
	} else {
		indices = make([]uint32, len(verts))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if !hasNormals {
		computeNormals(verts, indices)
	}

	prim := &scene.Primitive{Vertices: verts, Indices: indices}
	if p.Material != nil {
		if prim.Material, err = b.material(*p.Material); err != nil {
			return nil, err
		}
	}
	return prim, nil
}

func (b *builder) readSkinAttributes(p *gltf.Primitive, verts []scene.Vertex) error {
	jIdx, hasJoints := p.Attributes["JOINTS_0"]
	wIdx, hasWeights := p.Attributes["WEIGHTS_0"]
	if !hasJoints || !hasWeights {
		return nil
	}

	acr, err := b.accessor(jIdx)
	if err != nil {
		return err
	}
	joints, err := modeler.ReadJoints(b.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("reading joints: %w", err)
	}
	if acr, err = b.accessor(wIdx); err != nil {
		return err
	}
	weights, err := modeler.ReadWeights(b.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("reading weights: %w", err)
	}

	for i := 0; i < len(verts) && i < len(joints) && i < len(weights); i++ {
		w := weights[i]
		sum := w[0] + w[1] + w[2] + w[3]
		if sum == 0 {
			w = [4]float32{1, 0, 0, 0}
			sum = 1
		}
		for k := 0; k < 4; k++ {
			verts[i].Joints[k] = float32(joints[i][k])
			verts[i].Weights[k] = w[k] / sum
		}
	}
	return nil
}

// computeNormals fills in area-weighted smooth normals.
func computeNormals(verts []scene.Vertex, indices []uint32) {
	acc := make([]math.Vec3, len(verts))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		p0 := math.Vec3FromArray(verts[i0].Position)
		p1 := math.Vec3FromArray(verts[i1].Position)
		p2 := math.Vec3FromArray(verts[i2].Position)
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		acc[i0] = acc[i0].Add(n)
		acc[i1] = acc[i1].Add(n)
		acc[i2] = acc[i2].Add(n)
	}
	for i := range verts {
		verts[i].Normal = acc[i].Normalize().Array()
	}
}

func (b *builder) material(idx int) (*scene.Material, error) {
	if m, ok := b.materials[idx]; ok {
		return m, nil
	}
	if idx < 0 || idx >= len(b.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", idx)
	}

	gm := b.doc.Materials[idx]
	mat := &scene.Material{
		Name:        gm.Name,
		BaseColor:   [4]float32{1, 1, 1, 1},
		DoubleSided: gm.DoubleSided,
	}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		f := pbr.BaseColorFactorOrDefault()
		mat.BaseColor = [4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		if pbr.BaseColorTexture != nil {
			img, err := b.texture(pbr.BaseColorTexture.Index)
			if err != nil {
				// The model stays usable untextured
				b.log.Warn("base colour texture unavailable",
					zap.String("material", gm.Name),
					zap.Error(err),
				)
			} else {
				mat.BaseColorTexture = img
			}
		}
	}

	b.materials[idx] = mat
	return mat, nil
}

func (b *builder) texture(idx int) (*image.RGBA, error) {
	if idx < 0 || idx >= len(b.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", idx)
	}
	tex := b.doc.Textures[idx]
	src := tex.Source
	if src == nil {
		src = webpSource(tex)
	}
	if src == nil {
		return nil, fmt.Errorf("texture %d has no image source", idx)
	}
	if img, ok := b.images[*src]; ok {
		return img, nil
	}
	if *src < 0 || *src >= len(b.doc.Images) {
		return nil, fmt.Errorf("image %d out of range", *src)
	}

	gi := b.doc.Images[*src]
	data, err := b.imageData(gi)
	if err != nil {
		return nil, err
	}
	img, err := texture.Decode(data, gi.MimeType)
	if err != nil {
		return nil, err
	}
	img = texture.FitMaxSize(img, MaxTextureSize)

	b.images[*src] = img
	return img, nil
}

func (b *builder) imageData(gi *gltf.Image) ([]byte, error) {
	switch {
	case gi.BufferView != nil:
		if *gi.BufferView < 0 || *gi.BufferView >= len(b.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *gi.BufferView)
		}
		return modeler.ReadBufferView(b.doc, b.doc.BufferViews[*gi.BufferView])
	case gi.IsEmbeddedResource():
		return gi.MarshalData()
	case gi.URI != "":
		uri, err := url.PathUnescape(gi.URI)
		if err != nil {
			return nil, fmt.Errorf("image uri %q: %w", gi.URI, err)
		}
		return os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(uri)))
	}
	return nil, fmt.Errorf("image %q has no data", gi.Name)
}

// webpSource returns the image referenced by EXT_texture_webp, if any.
func webpSource(tex *gltf.Texture) *int {
	raw, ok := tex.Extensions[extTextureWebP].(json.RawMessage)
	if !ok {
		return nil
	}
	var ext struct {
		Source *int `json:"source"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil
	}
	return ext.Source
}

func (b *builder) skin(idx int) (*scene.Skin, error) {
	if s, ok := b.skins[idx]; ok {
		return s, nil
	}
	if idx < 0 || idx >= len(b.doc.Skins) {
		return nil, fmt.Errorf("skin %d out of range", idx)
	}

	gs := b.doc.Skins[idx]
	s := &scene.Skin{Name: gs.Name, Joints: make([]*scene.Node, 0, len(gs.Joints))}
	for _, j := range gs.Joints {
		if j < 0 || j >= len(b.nodes) {
			return nil, fmt.Errorf("skin %d: joint node %d out of range", idx, j)
		}
		s.Joints = append(s.Joints, b.nodes[j])
	}
	if len(s.Joints) > scene.MaxJoints {
		b.log.Warn("skin exceeds joint limit, extra joints ignored",
			zap.String("skin", gs.Name),
			zap.Int("joints", len(s.Joints)),
			zap.Int("max", scene.MaxJoints),
		)
	}

	if gs.InverseBindMatrices != nil {
		acr, err := b.accessor(*gs.InverseBindMatrices)
		if err != nil {
			return nil, err
		}
		data, err := modeler.ReadAccessor(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("skin %d: reading inverse bind matrices: %w", idx, err)
		}
		mats, ok := data.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("skin %d: inverse bind matrices are %T, want float MAT4", idx, data)
		}
		s.InverseBind = make([]math.Mat4, len(mats))
		for i, m := range mats {
			s.InverseBind[i] = math.FromColumns(m)
		}
	}

	b.skins[idx] = s
	return s, nil
}

func (b *builder) buildClips() ([]*anim.Clip, error) {
	clips := make([]*anim.Clip, 0, len(b.doc.Animations))
	for ai, ga := range b.doc.Animations {
		name := ga.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}

		var tracks []*anim.Track
		for ci, ch := range ga.Channels {
			tr, err := b.track(ga, ch)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", name, ci, err)
			}
			if tr == nil {
				continue
			}
			if err := tr.Validate(); err != nil {
				b.log.Warn("dropping malformed track", zap.String("clip", name), zap.Error(err))
				continue
			}
			tracks = append(tracks, tr)
		}
		clips = append(clips, anim.NewClip(name, tracks))
	}
	return clips, nil
}

func (b *builder) track(ga *gltf.Animation, ch *gltf.AnimationChannel) (*anim.Track, error) {
	if ch.Target.Node == nil {
		return nil, nil
	}
	node := *ch.Target.Node
	if node < 0 || node >= len(b.nodes) {
		return nil, fmt.Errorf("target node %d out of range", node)
	}

	var path anim.Path
	switch ch.Target.Path {
	case gltf.TRSTranslation:
		path = anim.PathTranslation
	case gltf.TRSRotation:
		path = anim.PathRotation
	case gltf.TRSScale:
		path = anim.PathScale
	default:
		// Morph target weights
		return nil, nil
	}

	if ch.Sampler < 0 || ch.Sampler >= len(ga.Samplers) {
		return nil, fmt.Errorf("sampler %d out of range", ch.Sampler)
	}
	smp := ga.Samplers[ch.Sampler]

	acr, err := b.accessor(smp.Input)
	if err != nil {
		return nil, err
	}
	in, err := modeler.ReadAccessor(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading key times: %w", err)
	}
	times, ok := in.([]float32)
	if !ok {
		return nil, fmt.Errorf("key times are %T, want float scalars", in)
	}

	if acr, err = b.accessor(smp.Output); err != nil {
		return nil, err
	}
	out, err := modeler.ReadAccessor(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading key values: %w", err)
	}
	values, err := flatten(out)
	if err != nil {
		return nil, err
	}

	interp := anim.InterpolationLinear
	switch smp.Interpolation {
	case gltf.InterpolationStep:
		interp = anim.InterpolationStep
	case gltf.InterpolationCubicSpline:
		interp = anim.InterpolationCubicSpline
	}

	return &anim.Track{
		Target:        b.nodes[node],
		Path:          path,
		Interpolation: interp,
		Times:         times,
		Values:        values,
	}, nil
}

// flatten converts accessor data to floats, undoing normalized integer
// quantization.
func flatten(data any) ([]float32, error) {
	switch v := data.(type) {
	case []float32:
		return v, nil
	case [][3]float32:
		out := make([]float32, 0, len(v)*3)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][4]float32:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][4]int8:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			for _, c := range e {
				out = append(out, maxf(float32(c)/127, -1))
			}
		}
		return out, nil
	case [][4]uint8:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			for _, c := range e {
				out = append(out, float32(c)/255)
			}
		}
		return out, nil
	case [][4]int16:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			for _, c := range e {
				out = append(out, maxf(float32(c)/32767, -1))
			}
		}
		return out, nil
	case [][4]uint16:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			for _, c := range e {
				out = append(out, float32(c)/65535)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported key value type %T", data)
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
