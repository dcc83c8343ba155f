// Package globe provides an ellipsoidal globe and a coarse sector terrain.
package globe

import (
	"math"
	"sync/atomic"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// WGS84 parameters.
const (
	WGS84EquatorialRadius = 6378137.0
	WGS84PolarRadius      = 6356752.3142
	WGS84EsSquared        = 0.00669437999013
)

const DefaultTileDegrees = 10.0

// ElevationModel supplies surface elevations in meters.
type ElevationModel interface {
	Elevation(ll geo.LatLon) float64
	MinElevation() float64
	MaxElevation() float64
}

// ConstantElevation is a flat elevation model.
type ConstantElevation float64

func (c ConstantElevation) Elevation(geo.LatLon) float64 { return float64(c) }
func (c ConstantElevation) MinElevation() float64        { return float64(c) }
func (c ConstantElevation) MaxElevation() float64        { return float64(c) }

// Ellipsoid is a globe of revolution. Model coordinates put +Y through the
// north pole, +Z through (0, 0) and +X through (0, 90E).
type Ellipsoid struct {
	ID               uuid.UUID
	equatorialRadius float64
	polarRadius      float64
	es               float64
	elevations       ElevationModel
	generation       atomic.Uint64

	TileDegrees float64
}

func NewEllipsoid(equatorialRadius, polarRadius, es float64, elevations ElevationModel) *Ellipsoid {
	if elevations == nil {
		elevations = ConstantElevation(0)
	}
	return &Ellipsoid{
		ID:               uuid.New(),
		equatorialRadius: equatorialRadius,
		polarRadius:      polarRadius,
		es:               es,
		elevations:       elevations,
		TileDegrees:      DefaultTileDegrees,
	}
}

func NewEarth(elevations ElevationModel) *Ellipsoid {
	return NewEllipsoid(WGS84EquatorialRadius, WGS84PolarRadius, WGS84EsSquared, elevations)
}

func (e *Ellipsoid) EquatorialRadius() float64 { return e.equatorialRadius }
func (e *Ellipsoid) PolarRadius() float64      { return e.polarRadius }

func (e *Ellipsoid) ElevationModel() ElevationModel { return e.elevations }

// SetElevationModel replaces the elevation source and invalidates geometry
// derived from the old one.
func (e *Ellipsoid) SetElevationModel(m ElevationModel) {
	if m == nil {
		m = ConstantElevation(0)
	}
	e.elevations = m
	e.generation.Add(1)
}

func (e *Ellipsoid) Elevation(ll geo.LatLon) float64 {
	return e.elevations.Elevation(ll)
}

func (e *Ellipsoid) StateKey(dc *frame.Context) geomcache.StateToken {
	ve := 1.0
	if dc != nil {
		ve = dc.VerticalExaggeration
	}
	return geomcache.StateToken{Globe: e.ID, Generation: e.generation.Load(), VerticalExaggeration: ve}
}

func (e *Ellipsoid) ComputePointFromPosition(p geo.Position) mgl64.Vec3 {
	lat, lon := p.LatRadians(), p.LonRadians()
	cosLat, sinLat := math.Cos(lat), math.Sin(lat)
	cosLon, sinLon := math.Cos(lon), math.Sin(lon)
	rpm := e.equatorialRadius / math.Sqrt(1-e.es*sinLat*sinLat)
	return mgl64.Vec3{
		(rpm + p.Elevation) * cosLat * sinLon,
		(rpm*(1-e.es) + p.Elevation) * sinLat,
		(rpm + p.Elevation) * cosLat * cosLon,
	}
}

// ComputePositionFromPoint inverts ComputePointFromPosition by fixed-point
// iteration on latitude.
func (e *Ellipsoid) ComputePositionFromPoint(pt mgl64.Vec3) geo.Position {
	// Conventional ECEF axes.
	x, y, z := pt[2], pt[0], pt[1]
	p := math.Hypot(x, y)
	lon := math.Atan2(y, x)
	if p < 1e-9 {
		lat := math.Pi / 2
		if z < 0 {
			lat = -lat
		}
		return geo.NewPosition(geo.FromDegrees(mgl64.RadToDeg(lat), 0), math.Abs(z)-e.polarRadius)
	}
	lat := math.Atan2(z, p*(1-e.es))
	var h float64
	for i := 0; i < 8; i++ {
		sinLat := math.Sin(lat)
		n := e.equatorialRadius / math.Sqrt(1-e.es*sinLat*sinLat)
		h = p/math.Cos(lat) - n
		lat = math.Atan2(z, p*(1-e.es*n/(n+h)))
	}
	return geo.NewPosition(geo.FromDegrees(mgl64.RadToDeg(lat), mgl64.RadToDeg(lon)), h)
}

func (e *Ellipsoid) SurfaceNormalAtPoint(p mgl64.Vec3) mgl64.Vec3 {
	a2 := e.equatorialRadius * e.equatorialRadius
	b2 := e.polarRadius * e.polarRadius
	n := mgl64.Vec3{p[0] / a2, p[1] / b2, p[2] / a2}
	if n.Len() == 0 {
		return mgl64.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

// IntersectRay returns the nearest intersection of a ray with the ellipsoid
// inflated by elevation meters.
func (e *Ellipsoid) IntersectRay(origin, dir mgl64.Vec3, elevation float64) (mgl64.Vec3, bool) {
	a := e.equatorialRadius + elevation
	b := e.polarRadius + elevation
	// Scale Y so the ellipsoid becomes a sphere of radius a.
	s := a / b
	o := mgl64.Vec3{origin[0], origin[1] * s, origin[2]}
	d := mgl64.Vec3{dir[0], dir[1] * s, dir[2]}
	qa := d.Dot(d)
	qb := 2 * o.Dot(d)
	qc := o.Dot(o) - a*a
	disc := qb*qb - 4*qa*qc
	if qa == 0 || disc < 0 {
		return mgl64.Vec3{}, false
	}
	sq := math.Sqrt(disc)
	t := (-qb - sq) / (2 * qa)
	if t < 0 {
		t = (-qb + sq) / (2 * qa)
	}
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return origin.Add(dir.Mul(t)), true
}

// Tessellate selects the fixed-grid tiles whose bounds intersect the frustum.
func (e *Ellipsoid) Tessellate(dc *frame.Context) (frame.Terrain, error) {
	step := e.TileDegrees
	if step <= 0 {
		step = DefaultTileDegrees
	}
	var frustum *frame.Frustum
	if dc.View != nil {
		f := dc.View.Frustum()
		frustum = &f
	}
	t := &SectorTerrain{globe: e, exaggeration: dc.VerticalExaggeration}
	for lat := -90.0; lat < 90; lat += step {
		for lon := -180.0; lon < 180; lon += step {
			s := geo.Sector{MinLat: lat, MaxLat: math.Min(lat+step, 90), MinLon: lon, MaxLon: math.Min(lon+step, 180)}
			tile := e.newTile(s, dc.VerticalExaggeration)
			if frustum != nil && !frustum.IntersectsSphere(tile.Extent) {
				continue
			}
			t.tiles = append(t.tiles, tile)
		}
	}
	return t, nil
}

func (e *Ellipsoid) newTile(s geo.Sector, ve float64) Tile {
	minEl := e.elevations.MinElevation() * ve
	maxEl := e.elevations.MaxElevation() * ve
	samples := []geo.LatLon{
		{Lat: s.MinLat, Lon: s.MinLon}, {Lat: s.MinLat, Lon: s.MaxLon},
		{Lat: s.MaxLat, Lon: s.MinLon}, {Lat: s.MaxLat, Lon: s.MaxLon},
		{Lat: s.MinLat, Lon: s.Centroid().Lon}, {Lat: s.MaxLat, Lon: s.Centroid().Lon},
		{Lat: s.Centroid().Lat, Lon: s.MinLon}, {Lat: s.Centroid().Lat, Lon: s.MaxLon},
		s.Centroid(),
	}
	center := e.ComputePointFromPosition(geo.NewPosition(s.Centroid(), (minEl+maxEl)/2))
	var r float64
	for _, c := range samples {
		for _, el := range [2]float64{minEl, maxEl} {
			r = math.Max(r, e.ComputePointFromPosition(geo.NewPosition(c, el)).Sub(center).Len())
		}
	}
	return Tile{Sector: s, Extent: frame.Sphere{Center: center, Radius: r}}
}
