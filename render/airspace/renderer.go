package airspace

import (
	"errors"
	"fmt"
	"image"

	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/gekko3d/geoscene/render/pick"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

var ErrNoGPU = errors.New("airspace: draw context has no GPU context")

const (
	DefaultLinePickWidth     = 8
	DefaultDepthOffsetFactor = -2
	DefaultDepthOffsetUnits  = -4
)

// Renderer draws and picks airspaces, either immediately or deferred through
// the frame's ordered queue. Deferred items queued by one Renderer are drawn
// in a single state scope when they come off the queue back to back.
type Renderer struct {
	Antialiasing bool
	Blending     bool
	// DepthOffset draws interiors in two passes: depth only, then colour
	// pulled towards the eye by the polygon offset.
	DepthOffset bool
	Lighting    bool
	// UseBlendFuncSeparate blends alpha with (One, OneMinusSrcAlpha) when the
	// GPU supports separate factors.
	UseBlendFuncSeparate bool
	DrawExtents          bool
	Wireframe            bool

	LightMaterial  gpu.Material
	LightDirection mgl32.Vec3

	// LinePickWidth widens outlines while picking airspaces whose interior
	// is hidden.
	LinePickWidth     float32
	DepthOffsetFactor float32
	DepthOffsetUnits  float32

	pickSupport *pick.Support
}

func NewRenderer() *Renderer {
	white := mgl32.Vec4{1, 1, 1, 1}
	return &Renderer{
		Blending:             true,
		Lighting:             true,
		UseBlendFuncSeparate: true,
		LightMaterial: gpu.Material{
			Ambient:  white.Mul(0.2),
			Diffuse:  white,
			Specular: mgl32.Vec4{0, 0, 0, 1},
		},
		LightDirection:    mgl32.Vec3{1, 0.5, 1},
		LinePickWidth:     DefaultLinePickWidth,
		DepthOffsetFactor: DefaultDepthOffsetFactor,
		DepthOffsetUnits:  DefaultDepthOffsetUnits,
		pickSupport:       pick.NewSupport(),
	}
}

// orderedAirspace is the payload a Renderer queues for one airspace.
type orderedAirspace struct {
	airspace Airspace
	layer    string
}

// RenderNow draws airspaces immediately in one state scope.
func (r *Renderer) RenderNow(dc *frame.Context, airspaces []Airspace) error {
	if dc.GPU == nil {
		return ErrNoGPU
	}
	return r.drawNow(dc, airspaces)
}

// PickNow draws airspaces in pick colours and resolves the one under pt.
func (r *Renderer) PickNow(dc *frame.Context, airspaces []Airspace, pt image.Point, layer string) error {
	if dc.GPU == nil {
		return ErrNoGPU
	}
	r.pickSupport.Clear()
	err := r.drawNow(dc, airspaces)
	_, perr := r.pickSupport.Resolve(dc.GPU, dc.Viewport(), pt, layer, dc.AddPickedObject)
	return errors.Join(err, perr)
}

// RenderOrdered queues airspaces for drawing after the layer pass.
func (r *Renderer) RenderOrdered(dc *frame.Context, airspaces []Airspace, layer string) {
	r.drawOrdered(dc, airspaces, layer)
}

// PickOrdered queues airspaces for the deferred pick pass.
func (r *Renderer) PickOrdered(dc *frame.Context, airspaces []Airspace, layer string) {
	r.drawOrdered(dc, airspaces, layer)
}

func (r *Renderer) drawOrdered(dc *frame.Context, airspaces []Airspace, layer string) {
	for _, a := range airspaces {
		if a == nil {
			continue
		}
		d := r.distanceFromEye(dc, a)
		dc.AddOrderedRenderable(frame.Produced(r, &orderedAirspace{airspace: a, layer: layer}, d))
	}
}

func (r *Renderer) distanceFromEye(dc *frame.Context, a Airspace) float64 {
	if dc.View == nil || dc.Globe == nil {
		return 0
	}
	return a.Extent(dc).DistanceFromEye(dc.View.EyePoint())
}

// RenderItem draws a queued airspace and every directly following item this
// Renderer queued.
func (r *Renderer) RenderItem(dc *frame.Context, item frame.Ordered) error {
	oa, err := payload(item)
	if err != nil {
		return err
	}
	if dc.GPU == nil {
		return ErrNoGPU
	}
	return r.drawBatch(dc, oa)
}

// PickItem is RenderItem in pick colours, resolved against pt with the
// first item's layer.
func (r *Renderer) PickItem(dc *frame.Context, item frame.Ordered, pt image.Point) error {
	oa, err := payload(item)
	if err != nil {
		return err
	}
	if dc.GPU == nil {
		return ErrNoGPU
	}
	r.pickSupport.Clear()
	err = r.drawBatch(dc, oa)
	_, perr := r.pickSupport.Resolve(dc.GPU, dc.Viewport(), pt, oa.layer, dc.AddPickedObject)
	return errors.Join(err, perr)
}

func payload(item frame.Ordered) (*orderedAirspace, error) {
	oa, ok := item.Payload.(*orderedAirspace)
	if !ok || oa == nil {
		return nil, fmt.Errorf("airspace: unexpected ordered payload %T", item.Payload)
	}
	return oa, nil
}

func (r *Renderer) drawBatch(dc *frame.Context, first *orderedAirspace) (err error) {
	r.beginRendering(dc)
	defer func() { err = errors.Join(err, r.endRendering(dc)) }()

	r.drawAirspace(dc, first.airspace)
	for {
		next, ok := dc.PeekOrdered()
		if !ok || !next.From(r) {
			return nil
		}
		if oa, ok := next.Payload.(*orderedAirspace); ok {
			r.drawAirspace(dc, oa.airspace)
		}
		dc.PollOrdered()
	}
}

func (r *Renderer) drawNow(dc *frame.Context, airspaces []Airspace) (err error) {
	r.beginRendering(dc)
	defer func() { err = errors.Join(err, r.endRendering(dc)) }()
	for _, a := range airspaces {
		if a != nil {
			r.drawAirspace(dc, a)
		}
	}
	return nil
}

// drawAirspace logs failures so one airspace cannot stop the rest.
func (r *Renderer) drawAirspace(dc *frame.Context, a Airspace) {
	if dc.IsPickingMode() {
		r.bindPickableObject(dc, a)
	}
	if err := r.doDrawAirspace(dc, a); err != nil {
		dc.Errorf("airspace: rendering %s: %v", a.Base(), err)
	}
}

func (r *Renderer) bindPickableObject(dc *frame.Context, a Airspace) {
	c := dc.UniquePickColor()
	dc.GPU.SetColor(c)
	r.pickSupport.AddPickableObject(pick.Code(c), a)
}

func (r *Renderer) doDrawAirspace(dc *frame.Context, a Airspace) error {
	if !IsVisible(dc, a) {
		return nil
	}
	if err := r.drawAirspaceShape(dc, a); err != nil {
		return err
	}
	if !dc.IsPickingMode() && r.DrawExtents {
		return r.drawExtent(dc, a)
	}
	return nil
}

// drawAirspaceShape runs the outline and interior passes. With an interior
// the outline is drawn both before and after it, never writing depth.
func (r *Renderer) drawAirspaceShape(dc *frame.Context, a Airspace) error {
	g := dc.GPU
	attrs := a.Base().Attributes

	if attrs.DrawOutline && attrs.DrawInterior {
		g.ColorMask(true, true, true, true)
		g.DepthMask(false)
		if err := r.drawOutline(dc, a); err != nil {
			return err
		}
	}

	if attrs.DrawInterior {
		if r.DepthOffset {
			g.ColorMask(false, false, false, false)
			g.DepthMask(true)
			g.PolygonOffset(0, 0)
			if err := r.drawInterior(dc, a); err != nil {
				return err
			}

			g.ColorMask(true, true, true, true)
			g.DepthMask(false)
			g.PolygonOffset(r.DepthOffsetFactor, r.DepthOffsetUnits)
			if err := r.drawInterior(dc, a); err != nil {
				return err
			}
		} else {
			g.ColorMask(true, true, true, true)
			g.DepthMask(true)
			if err := r.drawInterior(dc, a); err != nil {
				return err
			}
		}
	}

	if attrs.DrawOutline {
		g.ColorMask(true, true, true, true)
		g.DepthMask(false)
		if err := r.drawOutline(dc, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawInterior(dc *frame.Context, a Airspace) error {
	if !dc.IsPickingMode() {
		if r.Lighting {
			dc.GPU.Enable(gpu.Lighting)
		}
		a.Base().Attributes.ApplyInterior(dc.GPU, r.Lighting)
	}
	return a.RenderGeometry(dc, r, DrawFill)
}

func (r *Renderer) drawOutline(dc *frame.Context, a Airspace) error {
	attrs := a.Base().Attributes
	if dc.IsPickingMode() {
		w := attrs.OutlineWidth
		if !attrs.DrawInterior && w != 0 {
			w += r.LinePickWidth
		}
		dc.GPU.LineWidth(w)
	} else {
		if r.Lighting {
			dc.GPU.Disable(gpu.Lighting)
		}
		attrs.ApplyOutline(dc.GPU, false)
	}
	return a.RenderGeometry(dc, r, DrawOutline)
}

func (r *Renderer) drawExtent(dc *frame.Context, a Airspace) error {
	verts, idx := a.Extent(dc).AppendOutline(nil, nil, 32)
	dc.GPU.SetColor(colornames.Cyan)
	return dc.GPU.DrawElements(geom.ModeLines, len(idx), idx, verts, nil)
}

func (r *Renderer) beginRendering(dc *frame.Context) {
	g := dc.GPU
	if !dc.IsPickingMode() {
		bits := gpu.ColorBufferBit | gpu.CurrentBit | gpu.DepthBufferBit | gpu.LineBit |
			gpu.PolygonBit | gpu.TransformBit
		if r.Lighting {
			bits |= gpu.LightingBit
		}
		g.PushAttrib(bits)

		if r.Wireframe {
			g.SetPolygonMode(gpu.Line)
		}
		if r.Blending {
			r.setBlending(dc)
		}
		if r.Lighting {
			r.setLighting(dc)
		}
		if r.Antialiasing {
			g.Enable(gpu.LineSmooth)
		}
	} else {
		g.PushAttrib(gpu.CurrentBit | gpu.DepthBufferBit | gpu.LineBit)
	}

	if r.DepthOffset {
		g.Enable(gpu.PolygonOffsetFill)
	}
	g.Enable(gpu.DepthTest)
	g.SetDepthFunc(gpu.LessEqual)
}

func (r *Renderer) endRendering(dc *frame.Context) error {
	return dc.GPU.PopAttrib()
}

// setBlending uses straight alpha; alpha accumulates separately when the GPU
// allows it.
func (r *Renderer) setBlending(dc *frame.Context) {
	g := dc.GPU
	g.Enable(gpu.Blend)
	if r.UseBlendFuncSeparate && dc.SupportsBlendFuncSeparate() {
		g.BlendFunc(gpu.SrcAlpha, gpu.OneMinusSrcAlpha, gpu.One, gpu.OneMinusSrcAlpha)
	} else {
		g.BlendFunc(gpu.SrcAlpha, gpu.OneMinusSrcAlpha, gpu.SrcAlpha, gpu.OneMinusSrcAlpha)
	}
}

func (r *Renderer) setLighting(dc *frame.Context) {
	g := dc.GPU
	g.Enable(gpu.Lighting)
	dir := r.LightDirection
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	g.SetLight(gpu.Light{
		Direction: dir,
		Ambient:   r.LightMaterial.Ambient,
		Diffuse:   r.LightMaterial.Diffuse,
		Specular:  r.LightMaterial.Specular,
	})
	g.SetMaterial(r.LightMaterial)
}

// DrawGeometry draws element indices over vertex positions, with normals
// only when lit and not picking.
func (r *Renderer) DrawGeometry(dc *frame.Context, elements, vertices *geom.Geometry) error {
	eb := elements.Buffer(geom.Element)
	vb := vertices.Buffer(geom.Vertex)
	if eb == nil || vb == nil {
		return fmt.Errorf("airspace: geometry missing %s or %s buffer", geom.Element, geom.Vertex)
	}
	var normals []float32
	if !dc.IsPickingMode() && r.Lighting {
		if nb := vertices.Buffer(geom.Normal); nb != nil {
			normals = nb.Floats
		}
	}
	if err := dc.GPU.DrawElements(eb.Mode, eb.Count, eb.Ints, vb.Floats, normals); err != nil {
		return err
	}
	if !dc.IsPickingMode() {
		r.logGeometryStatistics(dc, vertices)
	}
	return nil
}

func (r *Renderer) logGeometryStatistics(dc *frame.Context, vertices *geom.Geometry) {
	dc.Stats.Add(frame.StatAirspaceGeometryCount, "Airspace Geometry Count", 1)
	dc.Stats.Add(frame.StatAirspaceVertexCount, "Airspace Vertex Count", vertices.Count(geom.Vertex))
}
