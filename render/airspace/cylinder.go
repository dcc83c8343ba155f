package airspace

import (
	"errors"
	"fmt"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/gekko3d/geoscene/render/lod"
	"github.com/go-gl/mathgl/mgl64"
)

const cylinderOwner = "CappedCylinder"

const (
	DefaultCylinderSlices = 32
	DefaultCylinderStacks = 1
	DefaultCylinderLoops  = 8
)

// DefaultCylinderDetailLevels is the five-step screen size ramp; the coarsest
// level ignores the terrain.
func DefaultCylinderDetailLevels() []lod.DetailLevel {
	ramp := lod.DefaultRamp(5)
	params := []lod.Params{
		{Slices: 32, Stacks: 1, Loops: 8},
		{Slices: 26, Stacks: 1, Loops: 6},
		{Slices: 20, Stacks: 1, Loops: 4},
		{Slices: 14, Stacks: 1, Loops: 2},
		{Slices: 8, Stacks: 1, Loops: 1, DisableTerrainConformance: true},
	}
	levels := make([]lod.DetailLevel, len(params))
	for i, p := range params {
		levels[i] = lod.DetailLevel{
			Name:      fmt.Sprintf("Detail-Level-%d", i),
			Threshold: ramp[i],
			Params:    p,
		}
	}
	return levels
}

// CappedCylinder is a vertical cylinder or annulus between two altitudes,
// optionally closed by disks.
type CappedCylinder struct {
	Shape

	center      geo.LatLon
	innerRadius float64
	outerRadius float64
	enableCaps  bool

	slices int
	stacks int
	loops  int
}

func NewCappedCylinder(center geo.LatLon, radius float64) *CappedCylinder {
	c := &CappedCylinder{
		Shape:       newShape(),
		center:      center,
		outerRadius: radius,
		enableCaps:  true,
		slices:      DefaultCylinderSlices,
		stacks:      DefaultCylinderStacks,
		loops:       DefaultCylinderLoops,
	}
	c.SetDetailLevels(DefaultCylinderDetailLevels())
	return c
}

func (c *CappedCylinder) Center() geo.LatLon { return c.center }

func (c *CappedCylinder) SetCenter(ll geo.LatLon) {
	c.center = ll
	c.invalidateExtent()
}

// Radii returns the inner and outer radius in meters.
func (c *CappedCylinder) Radii() (inner, outer float64) {
	return c.innerRadius, c.outerRadius
}

func (c *CappedCylinder) SetRadii(inner, outer float64) error {
	if inner < 0 || outer < 0 {
		return fmt.Errorf("%w: inner=%g outer=%g", ErrNegativeRadius, inner, outer)
	}
	c.innerRadius, c.outerRadius = inner, outer
	c.invalidateExtent()
	return nil
}

func (c *CappedCylinder) SetRadius(radius float64) error {
	return c.SetRadii(0, radius)
}

func (c *CappedCylinder) CapsEnabled() bool     { return c.enableCaps }
func (c *CappedCylinder) SetCapsEnabled(v bool) { c.enableCaps = v }

// SetTessellation sets the counts used when level of detail is off.
func (c *CappedCylinder) SetTessellation(slices, stacks, loops int) error {
	if slices < 0 || stacks < 0 || loops < 0 {
		return fmt.Errorf("%w: slices=%d stacks=%d loops=%d", ErrNegativeCount, slices, stacks, loops)
	}
	c.slices, c.stacks, c.loops = slices, stacks, loops
	return nil
}

func (c *CappedCylinder) ReferencePosition() geo.Position {
	return geo.NewPosition(c.center, c.altitudes[0])
}

// MoveTo keeps the centre's bearing and distance from the reference position.
func (c *CappedCylinder) MoveTo(p geo.Position) {
	oldRef := c.ReferencePosition()
	c.moveAltitudes(oldRef, p)
	d := geo.GreatCircleDistance(oldRef.LatLon, c.center)
	az := geo.GreatCircleAzimuth(oldRef.LatLon, c.center)
	c.SetCenter(geo.GreatCircleEndPosition(p.LatLon, az, d))
}

func (c *CappedCylinder) Extent(dc *frame.Context) frame.Sphere {
	return c.cachedExtent(dc, c.computeExtent)
}

func (c *CappedCylinder) computeExtent(g frame.Globe, ve float64) frame.Sphere {
	const slices = 8
	b := geom.NewBuilder()
	verts := make([]float32, 3*b.CylinderVertexCount(slices, 0))
	r := max(c.innerRadius, c.outerRadius)
	if err := b.MakeCylinderVertices(float32(r), 0, slices, 0, verts); err != nil {
		return frame.Sphere{}
	}
	transform := c.transform(g, ve)
	locations := make([]geo.LatLon, 0, slices)
	for i := 0; i < len(verts); i += 3 {
		v := mgl64.Vec3{float64(verts[i]), float64(verts[i+1]), float64(verts[i+2])}
		p := transform.Mul4x1(v.Vec4(1)).Vec3()
		locations = append(locations, g.ComputePositionFromPoint(p).LatLon)
	}
	return boundingSphere(g, ve, c.altitudes, locations)
}

func (c *CappedCylinder) transform(g frame.Globe, ve float64) mgl64.Mat4 {
	return ModelOriginTransform(g, geo.NewPosition(c.center, c.altitudes[0]*ve))
}

func (c *CappedCylinder) referenceCenter(dc *frame.Context) mgl64.Vec3 {
	return dc.Globe.ComputePointFromPosition(geo.NewPosition(c.center, c.altitudes[0]*dc.VerticalExaggeration))
}

// cylinderFrame is the per-call tessellation state shared by every buffer a
// cylinder builds.
type cylinderFrame struct {
	altitudes [2]float64
	terrain   [2]bool
	params    lod.Params
	center    mgl64.Vec3
	transform mgl64.Mat4
	expiry    int64
	state     geomcache.StateToken
}

func (c *CappedCylinder) RenderGeometry(dc *frame.Context, r *Renderer, style DrawStyle) error {
	if dc.Globe == nil {
		return ErrNoGlobe
	}
	if dc.View == nil {
		return ErrNoView
	}

	f := cylinderFrame{
		altitudes: c.scaledAltitudes(dc.VerticalExaggeration),
		terrain:   c.terrain,
		params: c.detailParams(dc, c, lod.Params{
			Slices: c.slices, Stacks: c.stacks, Loops: c.loops,
		}),
		center:    c.referenceCenter(dc),
		transform: c.transform(dc.Globe, dc.VerticalExaggeration),
		state:     dc.Globe.StateKey(dc),
	}
	if f.params.DisableTerrainConformance {
		f.terrain = [2]bool{false, false}
	}
	c.clearElevations()
	c.adjustForGroundReference(dc, &f.terrain, &f.altitudes)
	f.expiry = c.nextExpiry(dc, f.terrain)

	dc.PushReferenceCenter(f.center)
	var err error
	switch style {
	case DrawOutline:
		err = c.drawOutline(dc, r, &f)
	default:
		err = c.drawFill(dc, r, &f)
	}
	return errors.Join(err, dc.PopReferenceCenter())
}

func (c *CappedCylinder) drawOutline(dc *frame.Context, r *Renderer, f *cylinderFrame) error {
	if c.outerRadius != 0 {
		if err := c.drawCylinder(dc, r, f, c.outerRadius, geom.Outside, true); err != nil {
			return err
		}
	}
	if c.innerRadius != 0 {
		if err := c.drawCylinder(dc, r, f, c.innerRadius, geom.Inside, true); err != nil {
			return err
		}
	}
	return nil
}

func (c *CappedCylinder) drawFill(dc *frame.Context, r *Renderer, f *cylinderFrame) (err error) {
	if c.enableCaps {
		dc.GPU.PushAttrib(gpu.PolygonBit)
		dc.GPU.Enable(gpu.CullFace)
		defer func() { err = errors.Join(err, dc.GPU.PopAttrib()) }()

		if c.innerRadius != c.outerRadius {
			if err := c.drawDisk(dc, r, f, f.altitudes[1], f.terrain[1], geom.Outside); err != nil {
				return err
			}
			if !c.IsCollapsed() {
				if err := c.drawDisk(dc, r, f, f.altitudes[0], f.terrain[0], geom.Inside); err != nil {
					return err
				}
			}
		}
	}

	if c.IsCollapsed() {
		return nil
	}
	if c.outerRadius != 0 {
		if err := c.drawCylinder(dc, r, f, c.outerRadius, geom.Outside, false); err != nil {
			return err
		}
	}
	if c.innerRadius != 0 {
		if err := c.drawCylinder(dc, r, f, c.innerRadius, geom.Inside, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *CappedCylinder) drawCylinder(dc *frame.Context, r *Renderer, f *cylinderFrame, radius float64, o geom.Orientation, outline bool) error {
	vertices, err := c.cylinderVertices(dc, f, radius, o)
	if err != nil {
		return err
	}
	tag := geomcache.TagCylinderIndices
	if outline {
		tag = geomcache.TagCylinderOutlineIndices
	}
	key := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         tag,
		Slices:      f.params.Slices,
		Stacks:      f.params.Stacks,
		Orientation: int(o),
	}
	elements, err := c.cachedIndices(dc, key, func() (*geom.Geometry, error) {
		b := &geom.Builder{Orientation: o}
		if outline {
			idx := make([]uint32, b.CylinderOutlineIndexCount(f.params.Slices, f.params.Stacks))
			if err := b.MakeCylinderOutlineIndices(f.params.Slices, f.params.Stacks, idx); err != nil {
				return nil, err
			}
			g := geom.New()
			g.SetElementData(b.CylinderOutlineDrawMode(), len(idx), idx)
			return g, nil
		}
		idx := make([]uint32, b.CylinderIndexCount(f.params.Slices, f.params.Stacks))
		if err := b.MakeCylinderIndices(f.params.Slices, f.params.Stacks, idx); err != nil {
			return nil, err
		}
		g := geom.New()
		g.SetElementData(b.CylinderDrawMode(), len(idx), idx)
		return g, nil
	})
	if err != nil {
		return err
	}
	return r.DrawGeometry(dc, elements, vertices)
}

func (c *CappedCylinder) cylinderVertices(dc *frame.Context, f *cylinderFrame, radius float64, o geom.Orientation) (*geom.Geometry, error) {
	key := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         geomcache.TagCylinderVertices,
		OuterRadius: radius,
		Altitudes:   f.altitudes,
		Terrain:     f.terrain,
		Slices:      f.params.Slices,
		Stacks:      f.params.Stacks,
		Orientation: int(o),
		Center:      f.center,
	}
	return c.cachedVertices(dc, f, key, func() (*geom.Geometry, error) {
		return c.makeCylinder(dc, f, radius, o)
	})
}

func (c *CappedCylinder) makeCylinder(dc *frame.Context, f *cylinderFrame, radius float64, o geom.Orientation) (*geom.Geometry, error) {
	b := &geom.Builder{Orientation: o}
	slices, stacks := f.params.Slices, f.params.Stacks
	n := b.CylinderVertexCount(slices, stacks)
	verts := make([]float32, 3*n)
	norms := make([]float32, 3*n)
	if err := b.MakeCylinderVertices(float32(radius), float32(f.altitudes[1]-f.altitudes[0]), slices, stacks, verts); err != nil {
		return nil, err
	}
	if err := b.MakeCylinderNormals(slices, stacks, norms); err != nil {
		return nil, err
	}
	c.conformCylinder(dc, f, slices, stacks, verts)

	g := geom.New()
	g.SetVertexData(n, verts)
	g.SetNormalData(n, norms)
	return g, nil
}

// conformCylinder replaces local vertices with model points relative to the
// reference centre, lifting terrain-conforming surfaces by the elevation
// below each column.
func (c *CappedCylinder) conformCylinder(dc *frame.Context, f *cylinderFrame, slices, stacks int, verts []float32) {
	for i := 0; i < slices; i++ {
		base := 3 * i * (stacks + 1)
		v := mgl64.Vec3{float64(verts[base]), float64(verts[base+1]), float64(verts[base+2])}
		ll := dc.Globe.ComputePositionFromPoint(f.transform.Mul4x1(v.Vec4(1)).Vec3()).LatLon

		var surface float64
		if f.terrain[0] || f.terrain[1] {
			surface = c.elevationAt(dc, ll)
		}
		lo, hi := f.altitudes[0], f.altitudes[1]
		if f.terrain[0] {
			lo += surface
		}
		if f.terrain[1] {
			hi += surface
		}
		for j := 0; j <= stacks; j++ {
			el := lo
			if stacks > 0 {
				el = lo + (hi-lo)*float64(j)/float64(stacks)
			}
			p := dc.Globe.ComputePointFromPosition(geo.NewPosition(ll, el)).Sub(f.center)
			index := 3 * (j + i*(stacks+1))
			verts[index] = float32(p[0])
			verts[index+1] = float32(p[1])
			verts[index+2] = float32(p[2])
		}
	}
}

func (c *CappedCylinder) drawDisk(dc *frame.Context, r *Renderer, f *cylinderFrame, altitude float64, terrain bool, o geom.Orientation) error {
	key := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         geomcache.TagDiskVertices,
		InnerRadius: c.innerRadius,
		OuterRadius: c.outerRadius,
		Altitudes:   [2]float64{altitude, altitude},
		Terrain:     [2]bool{terrain, terrain},
		Slices:      f.params.Slices,
		Loops:       f.params.Loops,
		Orientation: int(o),
		Center:      f.center,
	}
	vertices, err := c.cachedVertices(dc, f, key, func() (*geom.Geometry, error) {
		return c.makeDisk(dc, f, altitude, terrain, o)
	})
	if err != nil {
		return err
	}

	ikey := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         geomcache.TagDiskIndices,
		Slices:      f.params.Slices,
		Loops:       f.params.Loops,
		Orientation: int(o),
	}
	elements, err := c.cachedIndices(dc, ikey, func() (*geom.Geometry, error) {
		b := &geom.Builder{Orientation: o}
		idx := make([]uint32, b.DiskIndexCount(f.params.Slices, f.params.Loops))
		if err := b.MakeDiskIndices(f.params.Slices, f.params.Loops, idx); err != nil {
			return nil, err
		}
		g := geom.New()
		g.SetElementData(b.DiskDrawMode(), len(idx), idx)
		return g, nil
	})
	if err != nil {
		return err
	}
	return r.DrawGeometry(dc, elements, vertices)
}

func (c *CappedCylinder) makeDisk(dc *frame.Context, f *cylinderFrame, altitude float64, terrain bool, o geom.Orientation) (*geom.Geometry, error) {
	b := &geom.Builder{Orientation: o}
	slices, loops := f.params.Slices, f.params.Loops
	n := b.DiskVertexCount(slices, loops)
	verts := make([]float32, 3*n)
	norms := make([]float32, 3*n)
	if err := b.MakeDiskVertices(float32(c.innerRadius), float32(c.outerRadius), slices, loops, verts); err != nil {
		return nil, err
	}
	if err := b.MakeDiskNormals(slices, loops, norms); err != nil {
		return nil, err
	}
	for i := 0; i < len(verts); i += 3 {
		v := mgl64.Vec3{float64(verts[i]), float64(verts[i+1]), float64(verts[i+2])}
		ll := dc.Globe.ComputePositionFromPoint(f.transform.Mul4x1(v.Vec4(1)).Vec3()).LatLon
		el := altitude
		if terrain {
			el += c.elevationAt(dc, ll)
		}
		p := dc.Globe.ComputePointFromPosition(geo.NewPosition(ll, el)).Sub(f.center)
		verts[i], verts[i+1], verts[i+2] = float32(p[0]), float32(p[1]), float32(p[2])
	}

	g := geom.New()
	g.SetVertexData(n, verts)
	g.SetNormalData(n, norms)
	return g, nil
}

// cachedVertices returns the cached vertex geometry for key, rebuilding it
// when missing, expired or built under another globe state. A rebuild
// publishes a new Geometry; the old one is never mutated.
func (c *CappedCylinder) cachedVertices(dc *frame.Context, f *cylinderFrame, key geomcache.Key, build func() (*geom.Geometry, error)) (*geom.Geometry, error) {
	cache := dc.GeometryCache
	if cache != nil {
		if e, ok := cache.Get(key); ok && !geomcache.IsExpired(e, dc.FrameTimestamp, f.state) {
			return e.Geometry, nil
		}
	}
	g, err := build()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		e := &geomcache.Entry{Geometry: g, Expiry: f.expiry, State: f.state}
		if err := cache.Put(key, e); err != nil {
			dc.Warnf("%s: %v", c, err)
		}
	}
	return g, nil
}

// cachedIndices returns index geometry, which depends only on the topology
// and never expires.
func (c *CappedCylinder) cachedIndices(dc *frame.Context, key geomcache.Key, build func() (*geom.Geometry, error)) (*geom.Geometry, error) {
	cache := dc.GeometryCache
	if cache != nil {
		if e, ok := cache.Get(key); ok {
			return e.Geometry, nil
		}
	}
	g, err := build()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Put(key, &geomcache.Entry{Geometry: g, Expiry: geomcache.NoExpiry}); err != nil {
			dc.Warnf("%s: %v", c, err)
		}
	}
	return g, nil
}
