package airspace

import (
	"errors"
	"fmt"
	"math"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/gekko3d/geoscene/render/lod"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var (
	ErrNoGlobe        = errors.New("airspace: draw context has no globe")
	ErrNoView         = errors.New("airspace: draw context has no view")
	ErrNegativeCount  = errors.New("airspace: tessellation count must not be negative")
	ErrNegativeRadius = errors.New("airspace: radius must not be negative")
)

// DrawStyle selects which part of an airspace RenderGeometry emits.
type DrawStyle int

const (
	DrawFill DrawStyle = iota
	DrawOutline
)

func (s DrawStyle) String() string {
	if s == DrawOutline {
		return "outline"
	}
	return "fill"
}

// AltitudeDatum is the reference an altitude is measured from.
type AltitudeDatum int

const (
	AboveMeanSeaLevel AltitudeDatum = iota
	AboveGroundLevel
	// AboveGroundReference measures from the terrain elevation at the
	// shape's ground reference location.
	AboveGroundReference
)

func (d AltitudeDatum) String() string {
	switch d {
	case AboveGroundLevel:
		return "AGL"
	case AboveGroundReference:
		return "AGR"
	}
	return "MSL"
}

// Airspace is a volumetric shape the Renderer can draw.
type Airspace interface {
	Base() *Shape
	// Extent is the shape's bounding sphere for the frame's globe state.
	Extent(dc *frame.Context) frame.Sphere
	// RenderGeometry emits the fill or outline draw calls through r.
	RenderGeometry(dc *frame.Context, r *Renderer, style DrawStyle) error
	ReferencePosition() geo.Position
	MoveTo(p geo.Position)
}

// Move offsets a by delta relative to its reference position.
func Move(a Airspace, delta geo.Position) {
	a.MoveTo(a.ReferencePosition().Add(delta))
}

// IsVisible reports whether a is enabled and its extent intersects the view
// frustum. Nothing is visible without a globe.
func IsVisible(dc *frame.Context, a Airspace) bool {
	if !a.Base().Visible || dc.Globe == nil {
		return false
	}
	if dc.View == nil {
		return true
	}
	return dc.View.Frustum().IntersectsSphere(a.Extent(dc))
}

// Shape is the state shared by every airspace: identity, attributes,
// altitudes and their datums, detail levels, and the per-globe extent cache.
type Shape struct {
	ID         uuid.UUID
	Visible    bool
	Attributes Attributes

	altitudes       [2]float64
	terrain         [2]bool
	datums          [2]AltitudeDatum
	groundReference *geo.LatLon

	enableLOD bool
	levels    *lod.Selector

	expiryMinMs int64
	expiryMaxMs int64

	extents    map[geomcache.StateToken]frame.Sphere
	elevations map[geo.LatLon]float64
}

func newShape() Shape {
	return Shape{
		ID:          uuid.New(),
		Visible:     true,
		Attributes:  DefaultAttributes(),
		altitudes:   [2]float64{0, 1},
		enableLOD:   true,
		levels:      lod.NewSelector(nil),
		expiryMinMs: geomcache.DefaultExpiryMinMs,
		expiryMaxMs: geomcache.DefaultExpiryMaxMs,
		extents:     make(map[geomcache.StateToken]frame.Sphere),
		elevations:  make(map[geo.LatLon]float64),
	}
}

func (s *Shape) Base() *Shape { return s }

func (s *Shape) String() string {
	return fmt.Sprintf("airspace %s", s.ID)
}

// Altitudes returns the lower and upper altitude in meters.
func (s *Shape) Altitudes() (lower, upper float64) {
	return s.altitudes[0], s.altitudes[1]
}

func (s *Shape) SetAltitudes(lower, upper float64) {
	s.altitudes = [2]float64{lower, upper}
	s.invalidateExtent()
}

func (s *Shape) SetAltitude(altitude float64) {
	s.SetAltitudes(altitude, altitude)
}

// scaledAltitudes multiplies both altitudes by the vertical exaggeration.
func (s *Shape) scaledAltitudes(ve float64) [2]float64 {
	return [2]float64{s.altitudes[0] * ve, s.altitudes[1] * ve}
}

// TerrainConforming reports whether the lower and upper surfaces follow the
// terrain.
func (s *Shape) TerrainConforming() (lower, upper bool) {
	return s.terrain[0], s.terrain[1]
}

// SetTerrainConforming also resets the datums to AGL or MSL to match.
func (s *Shape) SetTerrainConforming(lower, upper bool) {
	s.terrain = [2]bool{lower, upper}
	for i, t := range s.terrain {
		if t {
			s.datums[i] = AboveGroundLevel
		} else {
			s.datums[i] = AboveMeanSeaLevel
		}
	}
	s.invalidateExtent()
}

func (s *Shape) AltitudeDatums() (lower, upper AltitudeDatum) {
	return s.datums[0], s.datums[1]
}

// SetAltitudeDatums sets the datums. Ground-relative datums turn on terrain
// conformance for that surface.
func (s *Shape) SetAltitudeDatums(lower, upper AltitudeDatum) {
	s.datums = [2]AltitudeDatum{lower, upper}
	for i, d := range s.datums {
		if d == AboveGroundLevel || d == AboveGroundReference {
			s.terrain[i] = true
		}
	}
	s.invalidateExtent()
}

// GroundReference is the location used by AboveGroundReference datums, or
// nil.
func (s *Shape) GroundReference() *geo.LatLon { return s.groundReference }

func (s *Shape) SetGroundReference(ll *geo.LatLon) {
	s.groundReference = ll
}

// adjustForGroundReference lifts altitudes measured from the ground reference
// to absolute altitudes and disables conformance for them.
func (s *Shape) adjustForGroundReference(dc *frame.Context, terrain *[2]bool, altitudes *[2]float64) {
	if s.groundReference == nil {
		return
	}
	for i, d := range s.datums {
		if d == AboveGroundReference {
			altitudes[i] += s.elevationAt(dc, *s.groundReference)
			terrain[i] = false
		}
	}
}

// IsCollapsed reports whether the lower and upper surfaces coincide.
func (s *Shape) IsCollapsed() bool {
	return s.altitudes[0] == s.altitudes[1] && s.terrain[0] == s.terrain[1]
}

func (s *Shape) LevelOfDetailEnabled() bool     { return s.enableLOD }
func (s *Shape) SetLevelOfDetailEnabled(v bool) { s.enableLOD = v }

func (s *Shape) DetailLevels() []lod.DetailLevel { return s.levels.Levels }

// SetDetailLevels replaces the detail levels; they are sorted most detailed
// first.
func (s *Shape) SetDetailLevels(levels []lod.DetailLevel) {
	s.levels = lod.NewSelector(levels)
}

// ExpiryRange is the window, in milliseconds, from which terrain-conforming
// geometry draws its lifetime.
func (s *Shape) ExpiryRange() (minMs, maxMs int64) {
	return s.expiryMinMs, s.expiryMaxMs
}

func (s *Shape) SetExpiryRange(minMs, maxMs int64) {
	s.expiryMinMs, s.expiryMaxMs = minMs, maxMs
}

// nextExpiry draws the expiry timestamp for geometry rebuilt this frame.
func (s *Shape) nextExpiry(dc *frame.Context, terrain [2]bool) int64 {
	p := geomcache.ExpiryPolicy{MinMs: s.expiryMinMs, MaxMs: s.expiryMaxMs, Rand: dc.Rand}
	return p.Next(dc.FrameTimestamp, terrain[0] || terrain[1])
}

// detailParams picks the tessellation for this frame, falling back to def
// when level of detail is off or no levels are set.
func (s *Shape) detailParams(dc *frame.Context, a Airspace, def lod.Params) lod.Params {
	if !s.enableLOD {
		return def
	}
	level, ok := s.levels.Select(func() float64 { return ScreenSize(dc, a) })
	if !ok {
		return def
	}
	p := level.Params
	if p.Slices == 0 {
		p.Slices = def.Slices
	}
	if p.Stacks == 0 {
		p.Stacks = def.Stacks
	}
	if p.Loops == 0 {
		p.Loops = def.Loops
	}
	return p
}

// ScreenSize is the projected radius of a's extent in pixels.
func ScreenSize(dc *frame.Context, a Airspace) float64 {
	if dc.View == nil {
		return math.Inf(1)
	}
	ext := a.Extent(dc)
	d := dc.View.EyePoint().Sub(ext.Center).Len()
	px := dc.View.ComputePixelSizeAtDistance(d)
	if px <= 0 {
		return math.Inf(1)
	}
	return ext.Radius / px
}

// cachedExtent returns the extent for the current globe state, computing it
// with compute on a miss. The extent is empty without a globe.
func (s *Shape) cachedExtent(dc *frame.Context, compute func(g frame.Globe, ve float64) frame.Sphere) frame.Sphere {
	if dc.Globe == nil {
		return frame.Sphere{}
	}
	state := dc.Globe.StateKey(dc)
	if e, ok := s.extents[state]; ok {
		return e
	}
	e := compute(dc.Globe, dc.VerticalExaggeration)
	s.extents[state] = e
	return e
}

func (s *Shape) invalidateExtent() {
	clear(s.extents)
}

func (s *Shape) clearElevations() {
	clear(s.elevations)
}

// elevationAt is the exaggerated surface elevation at ll, memoized until the
// next rebuild.
func (s *Shape) elevationAt(dc *frame.Context, ll geo.LatLon) float64 {
	if e, ok := s.elevations[ll]; ok {
		return e
	}
	var e float64
	if pt, ok := surfacePoint(dc, ll); ok {
		e = dc.Globe.ComputePositionFromPoint(pt).Elevation
	} else {
		e = dc.VerticalExaggeration * dc.Globe.Elevation(ll)
	}
	s.elevations[ll] = e
	return e
}

func surfacePoint(dc *frame.Context, ll geo.LatLon) (mgl64.Vec3, bool) {
	if dc.Terrain == nil {
		return mgl64.Vec3{}, false
	}
	return dc.Terrain.SurfacePoint(ll, 0)
}

// moveAltitudes shifts both altitudes by the elevation change between two
// reference positions.
func (s *Shape) moveAltitudes(oldRef, newRef geo.Position) {
	d := newRef.Elevation - oldRef.Elevation
	s.SetAltitudes(s.altitudes[0]+d, s.altitudes[1]+d)
}

// ModelOriginTransform maps local east/north/up coordinates at p to model
// coordinates.
func ModelOriginTransform(g frame.Globe, p geo.Position) mgl64.Mat4 {
	lat, lon := p.LatRadians(), p.LonRadians()
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	east := mgl64.Vec3{cosLon, 0, -sinLon}
	north := mgl64.Vec3{-sinLat * sinLon, cosLat, -sinLat * cosLon}
	up := mgl64.Vec3{cosLat * sinLon, sinLat, cosLat * cosLon}
	origin := g.ComputePointFromPosition(p)
	return mgl64.Mat4FromCols(east.Vec4(0), north.Vec4(0), up.Vec4(0), origin.Vec4(1))
}

// boundingSphere bounds locations between the two altitudes.
func boundingSphere(g frame.Globe, ve float64, altitudes [2]float64, locations []geo.LatLon) frame.Sphere {
	if len(locations) == 0 {
		return frame.Sphere{}
	}
	points := make([]mgl64.Vec3, 0, 2*len(locations))
	var sum mgl64.Vec3
	for _, alt := range altitudes {
		for _, ll := range locations {
			p := g.ComputePointFromPosition(geo.NewPosition(ll, ve*alt))
			points = append(points, p)
			sum = sum.Add(p)
		}
	}
	center := sum.Mul(1 / float64(len(points)))
	var r float64
	for _, p := range points {
		r = math.Max(r, p.Sub(center).Len())
	}
	return frame.Sphere{Center: center, Radius: r}
}
