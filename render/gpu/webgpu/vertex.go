package webgpu

import (
	"image/color"

	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// clipDepth remaps clip-space z from [-w, w] to [0, w].
var clipDepth = mgl64.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// uniforms mirrors the Uniforms struct in scene.wgsl.
type uniforms struct {
	MVP       [16]float32
	ModelView [16]float32
	Color     [4]float32
	Ambient   [4]float32
	Diffuse   [4]float32
	Light     [4]float32
}

const uniformSize = 2*64 + 4*16

func toMat32(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func rgba(c color.RGBA) [4]float32 {
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

func vec4(v mgl32.Vec4) [4]float32 { return [4]float32(v) }

func uniformsFor(s *gpu.State, projection, modelView mgl64.Mat4) uniforms {
	u := uniforms{
		MVP:       toMat32(clipDepth.Mul4(projection).Mul4(modelView)),
		ModelView: toMat32(modelView),
		Color:     rgba(s.Color),
	}
	if s.Enabled[gpu.Lighting] {
		u.Ambient = vec4(s.Light.Ambient.Add(s.Material.Ambient))
		u.Diffuse = vec4(mgl32.Vec4{
			s.Light.Diffuse[0] * s.Material.Diffuse[0],
			s.Light.Diffuse[1] * s.Material.Diffuse[1],
			s.Light.Diffuse[2] * s.Material.Diffuse[2],
			s.Material.Diffuse[3],
		})
		d := s.Light.Direction
		u.Light = [4]float32{d[0], d[1], d[2], 1}
	}
	return u
}

// interleave packs xyz positions with their normals. Missing normals are
// zero, which the shader treats as unlit.
func interleave(vertices, normals []float32) []float32 {
	n := len(vertices) / 3
	out := make([]float32, 0, n*6)
	for i := 0; i < n; i++ {
		out = append(out, vertices[3*i:3*i+3]...)
		if len(normals) >= 3*i+3 {
			out = append(out, normals[3*i:3*i+3]...)
		} else {
			out = append(out, 0, 0, 0)
		}
	}
	return out
}

// stripTriangles expands a triangle strip into a triangle list.
func stripTriangles(strip []uint32) []uint32 {
	if len(strip) < 3 {
		return nil
	}
	out := make([]uint32, 0, 3*(len(strip)-2))
	for i := 0; i+2 < len(strip); i++ {
		a, b, c := strip[i], strip[i+1], strip[i+2]
		if i%2 == 1 {
			a, b = b, a
		}
		out = append(out, a, b, c)
	}
	return out
}

// wireframeEdges returns the outline of each triangle as a line list.
func wireframeEdges(mode geom.DrawMode, elements []uint32) []uint32 {
	tris := elements
	if mode == geom.ModeTriangleStrip {
		tris = stripTriangles(elements)
	}
	out := make([]uint32, 0, 2*len(tris))
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, c := tris[i], tris[i+1], tris[i+2]
		out = append(out, a, b, b, c, c, a)
	}
	return out
}

// texelRow converts a bottom-left framebuffer row to a top-left texture row.
func texelRow(y, height int) int { return height - 1 - y }

// alignedRow is the readback row pitch for width RGBA8 texels.
func alignedRow(width uint32) uint32 { return (width*4 + 255) &^ 255 }
