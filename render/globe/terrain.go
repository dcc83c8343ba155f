package globe

import (
	"image"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/pick"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/colornames"
)

// Tile is one visible sector of the surface.
type Tile struct {
	Sector geo.Sector
	Extent frame.Sphere
}

// SectorTerrain is the set of tiles tessellated for one frame.
type SectorTerrain struct {
	globe        *Ellipsoid
	exaggeration float64
	tiles        []Tile
}

func (t *SectorTerrain) Len() int { return len(t.tiles) }

func (t *SectorTerrain) Tiles() []Tile { return t.tiles }

func (t *SectorTerrain) contains(ll geo.LatLon) bool {
	for _, tile := range t.tiles {
		if tile.Sector.Contains(ll) {
			return true
		}
	}
	return false
}

// SurfacePoint returns the model point metersOffset above the exaggerated
// surface, if ll lies on a visible tile.
func (t *SectorTerrain) SurfacePoint(ll geo.LatLon, metersOffset float64) (mgl64.Vec3, bool) {
	if !t.contains(ll) {
		return mgl64.Vec3{}, false
	}
	el := t.globe.Elevation(ll) * t.exaggeration
	return t.globe.ComputePointFromPosition(geo.NewPosition(ll, el+metersOffset)), true
}

// Pick casts a ray through every screen point and intersects it with the
// surface at the elevation of the first hit.
func (t *SectorTerrain) Pick(dc *frame.Context, pts []image.Point) []*pick.Object {
	out := make([]*pick.Object, len(pts))
	if dc.View == nil {
		return out
	}
	for i, pt := range pts {
		origin, dir := dc.View.ScreenRay(pt)
		hit, ok := t.globe.IntersectRay(origin, dir, 0)
		if !ok {
			continue
		}
		pos := t.globe.ComputePositionFromPoint(hit)
		el := t.globe.Elevation(pos.LatLon) * t.exaggeration
		if el != 0 {
			// Second pass against the surface raised to the sampled elevation.
			if h, ok := t.globe.IntersectRay(origin, dir, el); ok {
				pos = t.globe.ComputePositionFromPoint(h)
			}
		}
		if !t.contains(pos.LatLon) {
			continue
		}
		pos.Elevation = el
		out[i] = pick.NewTerrainObject(0, pos)
	}
	return out
}

// RenderWireframe outlines every tile on the surface.
func (t *SectorTerrain) RenderWireframe(dc *frame.Context, interior, exterior bool) error {
	if !interior && !exterior {
		return nil
	}
	const segments = 8
	var verts []float32
	var idx []uint32
	for _, tile := range t.tiles {
		s := tile.Sector
		ring := make([]geo.LatLon, 0, 4*segments)
		for i := 0; i < segments; i++ {
			f := float64(i) / segments
			ring = append(ring, geo.LatLon{Lat: s.MinLat, Lon: s.MinLon + f*s.DeltaLon()})
		}
		for i := 0; i < segments; i++ {
			f := float64(i) / segments
			ring = append(ring, geo.LatLon{Lat: s.MinLat + f*s.DeltaLat(), Lon: s.MaxLon})
		}
		for i := 0; i < segments; i++ {
			f := float64(i) / segments
			ring = append(ring, geo.LatLon{Lat: s.MaxLat, Lon: s.MaxLon - f*s.DeltaLon()})
		}
		for i := 0; i < segments; i++ {
			f := float64(i) / segments
			ring = append(ring, geo.LatLon{Lat: s.MaxLat - f*s.DeltaLat(), Lon: s.MinLon})
		}
		base := uint32(len(verts) / 3)
		for i, ll := range ring {
			p := t.globe.ComputePointFromPosition(geo.NewPosition(ll, t.globe.Elevation(ll)*t.exaggeration))
			verts = append(verts, float32(p[0]), float32(p[1]), float32(p[2]))
			next := uint32((i + 1) % len(ring))
			idx = append(idx, base+uint32(i), base+next)
		}
	}
	if len(idx) == 0 {
		return nil
	}
	dc.GPU.SetColor(colornames.Yellow)
	return dc.GPU.DrawElements(geom.ModeLines, len(idx), idx, verts, nil)
}

// RenderBoundingVolumes draws each tile's bounding sphere as three great
// circles.
func (t *SectorTerrain) RenderBoundingVolumes(dc *frame.Context) error {
	const steps = 32
	var verts []float32
	var idx []uint32
	for _, tile := range t.tiles {
		verts, idx = tile.Extent.AppendOutline(verts, idx, steps)
	}
	if len(idx) == 0 {
		return nil
	}
	dc.GPU.SetColor(colornames.Cyan)
	return dc.GPU.DrawElements(geom.ModeLines, len(idx), idx, verts, nil)
}
