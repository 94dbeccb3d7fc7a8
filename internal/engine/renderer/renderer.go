// Package renderer provides the OpenGL forward renderer that draws a scene
// graph through a perspective camera.
package renderer

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/glb-viewer/internal/engine/camera"
	"github.com/Faultbox/glb-viewer/internal/engine/renderer/shaders"
	"github.com/Faultbox/glb-viewer/internal/engine/scene"
	"github.com/Faultbox/glb-viewer/internal/engine/shader"
	"github.com/Faultbox/glb-viewer/pkg/math"
)

const vertexSize = int32(unsafe.Sizeof(scene.Vertex{}))

// gpuPrimitive holds the GPU objects of one uploaded primitive.
type gpuPrimitive struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// Renderer draws scenes with ambient plus one directional light.
type Renderer struct {
	log     *zap.Logger
	program *shader.Program

	// Uniform locations
	locViewProj     int32
	locModel        int32
	locNormalMatrix int32
	locSkinned      int32
	locJoints       int32
	locBaseColor    int32
	locHasTexture   int32
	locTexture      int32
	locAmbient      int32
	locLightDir     int32
	locLightColor   int32

	primitives map[*scene.Primitive]*gpuPrimitive
	textures   map[*image.RGBA]uint32
	jointBuf   []float32

	width, height int
	pixelRatio    float32
}

// New creates a renderer.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New(log *zap.Logger, pixelRatio float32) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	program, err := shader.Compile(shaders.MeshVertexShader, shaders.MeshFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}

	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	r := &Renderer{
		log:        log,
		program:    program,
		primitives: make(map[*scene.Primitive]*gpuPrimitive),
		textures:   make(map[*image.RGBA]uint32),
		jointBuf:   make([]float32, scene.MaxJoints*16),
		pixelRatio: pixelRatio,
	}

	r.locViewProj = program.Uniform("uViewProj")
	r.locModel = program.Uniform("uModel")
	r.locNormalMatrix = program.Uniform("uNormalMatrix")
	r.locSkinned = program.Uniform("uSkinned")
	r.locJoints = program.Uniform("uJoints")
	r.locBaseColor = program.Uniform("uBaseColor")
	r.locHasTexture = program.Uniform("uHasTexture")
	r.locTexture = program.Uniform("uTexture")
	r.locAmbient = program.Uniform("uAmbient")
	r.locLightDir = program.Uniform("uLightDir")
	r.locLightColor = program.Uniform("uLightColor")

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.MULTISAMPLE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.CullFace(gl.BACK)

	return r, nil
}

// SetSize sets the logical output size. The viewport covers the drawable
// area, which is larger on high-DPI displays.
func (r *Renderer) SetSize(width, height int) {
	r.width = width
	r.height = height
	w, h := r.DrawingBufferSize()
	gl.Viewport(0, 0, int32(w), int32(h))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("drawable_width", w),
		zap.Int("drawable_height", h),
	)
}

// SetPixelRatio sets the drawable-to-logical size ratio. Call SetSize afterwards.
func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio > 0 {
		r.pixelRatio = ratio
	}
}

// DrawingBufferSize returns the output size in pixels.
func (r *Renderer) DrawingBufferSize() (int, int) {
	return int(float32(r.width) * r.pixelRatio), int(float32(r.height) * r.pixelRatio)
}

// Render draws the scene from the camera's point of view.
func (r *Renderer) Render(s *scene.Scene, cam *camera.PerspectiveCamera) {
	bg := s.Background
	gl.ClearColor(bg[0], bg[1], bg[2], 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.program.Use()

	viewProj := cam.ViewProjection()
	gl.UniformMatrix4fv(r.locViewProj, 1, false, &viewProj[0])

	ambient := s.Ambient()
	gl.Uniform3f(r.locAmbient, ambient[0], ambient[1], ambient[2])

	var lightDir math.Vec3
	var lightColor [3]float32
	if d := s.Directional(); d != nil {
		lightDir = d.Direction()
		lightColor = d.LightColor()
	}
	gl.Uniform3f(r.locLightDir, lightDir.X, lightDir.Y, lightDir.Z)
	gl.Uniform3f(r.locLightColor, lightColor[0], lightColor[1], lightColor[2])

	gl.ActiveTexture(gl.TEXTURE0)
	gl.Uniform1i(r.locTexture, 0)

	s.Root().TraverseVisible(math.Identity(), func(n *scene.Node, world math.Mat4) {
		if n.Mesh != nil {
			r.drawMesh(n, world)
		}
	})

	gl.BindVertexArray(0)
}

func (r *Renderer) drawMesh(n *scene.Node, world math.Mat4) {
	gl.UniformMatrix4fv(r.locModel, 1, false, &world[0])
	normal := world.NormalMatrix()
	gl.UniformMatrix3fv(r.locNormalMatrix, 1, false, &normal[0])

	if n.Skin != nil && len(n.Skin.Joints) > 0 {
		joints := n.Skin.JointMatrices(world)
		for i, m := range joints {
			copy(r.jointBuf[i*16:], m[:])
		}
		gl.Uniform1i(r.locSkinned, 1)
		gl.UniformMatrix4fv(r.locJoints, int32(len(joints)), false, &r.jointBuf[0])
	} else {
		gl.Uniform1i(r.locSkinned, 0)
	}

	for _, prim := range n.Mesh.Primitives {
		gp := r.upload(prim)
		if gp == nil {
			continue
		}
		r.bindMaterial(prim.Material)
		gl.BindVertexArray(gp.vao)
		gl.DrawElements(gl.TRIANGLES, gp.indexCount, gl.UNSIGNED_INT, nil)
	}
}

func (r *Renderer) bindMaterial(mat *scene.Material) {
	if mat == nil {
		mat = defaultMaterial
	}
	c := mat.BaseColor
	gl.Uniform4f(r.locBaseColor, c[0], c[1], c[2], c[3])

	if mat.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
	}

	if mat.BaseColorTexture == nil || len(mat.BaseColorTexture.Pix) == 0 {
		gl.Uniform1i(r.locHasTexture, 0)
		return
	}
	gl.Uniform1i(r.locHasTexture, 1)
	gl.BindTexture(gl.TEXTURE_2D, r.texture(mat.BaseColorTexture))
}

var defaultMaterial = scene.NewMaterial([3]float32{1, 1, 1})

// upload creates GPU buffers for a primitive on first use.
func (r *Renderer) upload(prim *scene.Primitive) *gpuPrimitive {
	if gp, ok := r.primitives[prim]; ok {
		return gp
	}
	if len(prim.Vertices) == 0 || len(prim.Indices) == 0 {
		r.primitives[prim] = nil
		return nil
	}

	gp := &gpuPrimitive{indexCount: int32(len(prim.Indices))}

	gl.GenVertexArrays(1, &gp.vao)
	gl.BindVertexArray(gp.vao)

	gl.GenBuffers(1, &gp.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gp.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(prim.Vertices)*int(vertexSize), unsafe.Pointer(&prim.Vertices[0]), gl.STATIC_DRAW)

	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexSize, 0)
	gl.EnableVertexAttribArray(0)
	// Normal
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexSize, 3*4)
	gl.EnableVertexAttribArray(1)
	// TexCoord
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, vertexSize, 6*4)
	gl.EnableVertexAttribArray(2)
	// Joints
	gl.VertexAttribPointerWithOffset(3, 4, gl.FLOAT, false, vertexSize, 8*4)
	gl.EnableVertexAttribArray(3)
	// Weights
	gl.VertexAttribPointerWithOffset(4, 4, gl.FLOAT, false, vertexSize, 12*4)
	gl.EnableVertexAttribArray(4)

	gl.GenBuffers(1, &gp.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gp.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(prim.Indices)*4, unsafe.Pointer(&prim.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)

	r.primitives[prim] = gp
	return gp
}

// texture uploads an image on first use and returns its GL name.
func (r *Renderer) texture(img *image.RGBA) uint32 {
	if tex, ok := r.textures[img]; ok {
		return tex
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(img.Bounds().Dx()), int32(img.Bounds().Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)

	r.textures[img] = tex
	return tex
}

// ReadPixels reads back the current frame as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.DrawingBufferSize()
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, w, h
}

// Close releases every GPU object the renderer created.
func (r *Renderer) Close() {
	r.log.Info("closing renderer",
		zap.Int("primitives", len(r.primitives)),
		zap.Int("textures", len(r.textures)),
	)
	for prim, gp := range r.primitives {
		if gp != nil {
			gl.DeleteVertexArrays(1, &gp.vao)
			gl.DeleteBuffers(1, &gp.vbo)
			gl.DeleteBuffers(1, &gp.ebo)
		}
		delete(r.primitives, prim)
	}
	for img, tex := range r.textures {
		gl.DeleteTextures(1, &tex)
		delete(r.textures, img)
	}
	r.program.Delete()
}
