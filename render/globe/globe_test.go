package globe

import (
	"image"
	"testing"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointPositionRoundTrip(t *testing.T) {
	g := NewEarth(nil)
	tests := []geo.Position{
		geo.NewPosition(geo.FromDegrees(0, 0), 0),
		geo.NewPosition(geo.FromDegrees(45, -120), 1500),
		geo.NewPosition(geo.FromDegrees(-33.9, 151.2), 40),
		geo.NewPosition(geo.FromDegrees(89, 10), 0),
	}
	for _, p := range tests {
		got := g.ComputePositionFromPoint(g.ComputePointFromPosition(p))
		assert.InDelta(t, p.Lat, got.Lat, 1e-7)
		assert.InDelta(t, p.Lon, got.Lon, 1e-7)
		assert.InDelta(t, p.Elevation, got.Elevation, 1e-3)
	}
}

func TestAxesConvention(t *testing.T) {
	g := NewEarth(nil)
	p := g.ComputePointFromPosition(geo.NewPosition(geo.FromDegrees(0, 0), 0))
	assert.InDelta(t, WGS84EquatorialRadius, p[2], 1e-6)
	n := g.ComputePointFromPosition(geo.NewPosition(geo.FromDegrees(90, 0), 0))
	assert.InDelta(t, WGS84PolarRadius, n[1], 1e-3)
}

func TestStateKeyChangesWithElevationModel(t *testing.T) {
	g := NewEarth(nil)
	dc := frame.NewContext()
	k1 := g.StateKey(dc)
	assert.Equal(t, k1, g.StateKey(dc))

	g.SetElevationModel(ConstantElevation(100))
	k2 := g.StateKey(dc)
	assert.NotEqual(t, k1, k2)

	dc.VerticalExaggeration = 2
	assert.NotEqual(t, k2, g.StateKey(dc))
}

func TestIntersectRay(t *testing.T) {
	g := NewEarth(nil)
	origin := mgl64.Vec3{0, 0, 2 * WGS84EquatorialRadius}
	hit, ok := g.IntersectRay(origin, mgl64.Vec3{0, 0, -1}, 0)
	require.True(t, ok)
	assert.InDelta(t, WGS84EquatorialRadius, hit[2], 1e-6)

	_, ok = g.IntersectRay(origin, mgl64.Vec3{0, 0, 1}, 0)
	assert.False(t, ok)
}

func TestTessellateWithoutViewCoversGlobe(t *testing.T) {
	g := NewEarth(nil)
	dc := frame.NewContext()
	terrain, err := g.Tessellate(dc)
	require.NoError(t, err)
	assert.Equal(t, 18*36, terrain.Len())

	p, ok := terrain.SurfacePoint(geo.FromDegrees(10, 10), 5)
	require.True(t, ok)
	assert.InDelta(t, 5, g.ComputePositionFromPoint(p).Elevation, 1e-3)
}

type straightDown struct{ frame.View }

func (straightDown) ScreenRay(image.Point) (mgl64.Vec3, mgl64.Vec3) {
	return mgl64.Vec3{0, 0, 2 * WGS84EquatorialRadius}, mgl64.Vec3{0, 0, -1}
}

func TestTerrainPick(t *testing.T) {
	g := NewEarth(ConstantElevation(1000))
	dc := frame.NewContext()
	terrain, err := g.Tessellate(dc)
	require.NoError(t, err)

	dc.View = straightDown{}
	hits := terrain.Pick(dc, []image.Point{{1, 1}})
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0])
	assert.True(t, hits[0].IsTerrain)
	assert.InDelta(t, 0, hits[0].Position.Lat, 1e-6)
	assert.Equal(t, 1000.0, hits[0].Position.Elevation)
}
