package gpu

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gekko3d/geoscene/render/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Draw is one recorded DrawElements call with the state it ran under.
type Draw struct {
	Mode       geom.DrawMode
	Count      int
	Vertices   int
	Color      color.RGBA
	ColorWrite [4]bool
	DepthWrite bool
	Offset     [2]float32
	Width      float32
	Lighting   bool
	Blending   bool
}

// Recorder is a headless Context. It tracks state like a real backend,
// records every call by name and answers ReadPixel from Pixels.
type Recorder struct {
	StateStack

	Calls      []string
	Draws      []Draw
	Pixels     map[image.Point]color.RGBA
	Extensions map[string]bool
	Reads      []image.Point

	viewport image.Rectangle
}

func NewRecorder(viewport image.Rectangle) *Recorder {
	return &Recorder{
		StateStack: NewStateStack(),
		Pixels:     make(map[image.Point]color.RGBA),
		Extensions: map[string]bool{ExtBlendFuncSeparate: true},
		viewport:   viewport,
	}
}

func (r *Recorder) record(format string, args ...any) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

// Reset drops recorded calls and draws but keeps state.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
	r.Draws = r.Draws[:0]
	r.Reads = r.Reads[:0]
}

// Count returns how many recorded calls equal name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (r *Recorder) PushAttrib(bits AttribBits) {
	r.record("PushAttrib")
	r.Push(bits)
}

func (r *Recorder) PopAttrib() error {
	r.record("PopAttrib")
	return r.Pop()
}

func (r *Recorder) PushMatrices() {
	r.record("PushMatrices")
	r.StateStack.PushMatrices()
}

func (r *Recorder) PopMatrices() error {
	r.record("PopMatrices")
	return r.StateStack.PopMatrices()
}

func (r *Recorder) Enable(c Capability) {
	r.record("Enable(%s)", c)
	r.Current.Enabled[c] = true
}

func (r *Recorder) Disable(c Capability) {
	r.record("Disable(%s)", c)
	r.Current.Enabled[c] = false
}

func (r *Recorder) IsEnabled(c Capability) bool { return r.Current.Enabled[c] }

func (r *Recorder) SetViewport(v image.Rectangle) {
	r.record("SetViewport")
	r.viewport = v
}

func (r *Recorder) Viewport() image.Rectangle { return r.viewport }

func (r *Recorder) SetClearColor(c color.RGBA) {
	r.Current.ClearColor = c
}

func (r *Recorder) Clear(bits ClearBits) {
	switch bits {
	case ClearColorBuffer | ClearDepthBuffer:
		r.record("Clear(color|depth)")
	case ClearDepthBuffer:
		r.record("Clear(depth)")
	default:
		r.record("Clear(color)")
	}
}

func (r *Recorder) ColorMask(red, green, blue, alpha bool) {
	r.record("ColorMask(%t,%t,%t,%t)", red, green, blue, alpha)
	r.Current.ColorWrite = [4]bool{red, green, blue, alpha}
}

func (r *Recorder) DepthMask(write bool) {
	r.record("DepthMask(%t)", write)
	r.Current.DepthWrite = write
}

func (r *Recorder) SetDepthFunc(f DepthFunc)     { r.Current.Depth = f }
func (r *Recorder) SetPolygonMode(m PolygonMode) { r.Current.Polygon = m }

func (r *Recorder) PolygonOffset(factor, units float32) {
	r.record("PolygonOffset(%g,%g)", factor, units)
	r.Current.OffsetFactor, r.Current.OffsetUnits = factor, units
}

func (r *Recorder) LineWidth(w float32) {
	r.record("LineWidth(%g)", w)
	r.Current.Width = w
}

func (r *Recorder) SetColor(c color.RGBA) { r.Current.Color = c }

func (r *Recorder) BlendFunc(srcRGB, dstRGB, srcAlpha, dstAlpha BlendFactor) {
	r.Current.Blend = [4]BlendFactor{srcRGB, dstRGB, srcAlpha, dstAlpha}
}

func (r *Recorder) SetLight(l Light)       { r.Current.Light = l }
func (r *Recorder) SetMaterial(m Material) { r.Current.Material = m }

func (r *Recorder) LoadProjection(m mgl64.Mat4) { r.ProjectionMatrix = m }
func (r *Recorder) LoadModelView(m mgl64.Mat4)  { r.ModelViewMatrix = m }
func (r *Recorder) ModelView() mgl64.Mat4       { return r.ModelViewMatrix }

func (r *Recorder) DrawElements(mode geom.DrawMode, count int, elements []uint32, vertices, normals []float32) error {
	if count > len(elements) {
		return fmt.Errorf("gpu: draw of %d indices with %d available", count, len(elements))
	}
	nv := len(vertices) / 3
	for _, e := range elements[:count] {
		if int(e) >= nv {
			return fmt.Errorf("gpu: index %d out of range for %d vertices", e, nv)
		}
	}
	r.record("DrawElements")
	s := r.Current
	r.Draws = append(r.Draws, Draw{
		Mode:       mode,
		Count:      count,
		Vertices:   nv,
		Color:      s.Color,
		ColorWrite: s.ColorWrite,
		DepthWrite: s.DepthWrite,
		Offset:     [2]float32{s.OffsetFactor, s.OffsetUnits},
		Width:      s.Width,
		Lighting:   s.Enabled[Lighting],
		Blending:   s.Enabled[Blend],
	})
	return nil
}

func (r *Recorder) ReadPixel(x, y int) (color.RGBA, error) {
	r.record("ReadPixel")
	if x < 0 || y < 0 || x >= r.viewport.Dx() || y >= r.viewport.Dy() {
		return color.RGBA{}, ErrOutOfViewport
	}
	r.Reads = append(r.Reads, image.Pt(x, y))
	return r.Pixels[image.Pt(x, y)], nil
}

func (r *Recorder) HasExtension(name string) bool { return r.Extensions[name] }
