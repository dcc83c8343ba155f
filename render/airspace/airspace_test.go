package airspace

import (
	"image"
	"math/rand/v2"
	"testing"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/gekko3d/geoscene/render/globe"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/gekko3d/geoscene/render/lod"
	"github.com/gekko3d/geoscene/render/pick"
	"github.com/gekko3d/geoscene/render/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	viewport = image.Rect(0, 0, 800, 600)
	denver   = geo.FromDegrees(40, -105)
)

type scene struct {
	dc    *frame.Context
	rec   *gpu.Recorder
	globe *globe.Ellipsoid
	view  *view.Orbit
}

func newScene(t *testing.T, rangeMeters float64) *scene {
	t.Helper()
	g := globe.NewEarth(globe.ConstantElevation(0))
	v, err := view.NewOrbit(g, geo.NewPosition(denver, 0), rangeMeters, viewport)
	require.NoError(t, err)

	rec := gpu.NewRecorder(viewport)
	dc := frame.NewContext()
	dc.GPU = rec
	dc.Globe = g
	dc.View = v
	dc.GeometryCache = geomcache.NewDefault()
	dc.Rand = rand.New(rand.NewPCG(1, 2))
	dc.Stats.Request(frame.StatAll)
	s := &scene{dc: dc, rec: rec, globe: g, view: v}
	s.newFrame(t, 1_000)
	return s
}

func (s *scene) newFrame(t *testing.T, ts int64) {
	t.Helper()
	s.dc.Reset(ts)
	require.NoError(t, s.view.Apply(s.dc))
	terrain, err := s.globe.Tessellate(s.dc)
	require.NoError(t, err)
	s.dc.Terrain = terrain
	s.rec.Reset()
}

func cylinder(t *testing.T, ll geo.LatLon, radius, lower, upper float64) *CappedCylinder {
	t.Helper()
	c := NewCappedCylinder(ll, radius)
	c.SetAltitudes(lower, upper)
	return c
}

func drain(t *testing.T, dc *frame.Context) int {
	t.Helper()
	n := 0
	for dc.OrderedLen() > 0 {
		o, ok := dc.PollOrdered()
		require.True(t, ok)
		n++
		require.NoError(t, o.Render(dc))
	}
	return n
}

func TestBatchingDrawsSameRendererInOneScope(t *testing.T) {
	s := newScene(t, 50_000)
	r1, r2 := NewRenderer(), NewRenderer()

	r1.RenderOrdered(s.dc, []Airspace{
		cylinder(t, denver, 5_000, 0, 1_000),
		cylinder(t, denver, 5_000, 0, 1_000),
		cylinder(t, denver, 5_000, 0, 1_000),
	}, "near")
	// Closer to the eye, so it comes off the queue last.
	r2.RenderOrdered(s.dc, []Airspace{cylinder(t, denver, 1_000, 30_000, 31_000)}, "far")
	require.Equal(t, 4, s.dc.OrderedLen())

	assert.Equal(t, 2, drain(t, s.dc))
	assert.Zero(t, s.dc.OrderedLen())
	assert.Equal(t, 2, s.rec.Count("Enable(DepthTest)"))
	assert.Zero(t, s.rec.Depth())

	// Two disks and one wall each.
	assert.Len(t, s.rec.Draws, 12)
	stat, ok := s.dc.Stats.Get(frame.StatAirspaceGeometryCount)
	require.True(t, ok)
	assert.Equal(t, 12, stat.Value)
}

func TestRenderNowReusesCachedGeometry(t *testing.T) {
	s := newScene(t, 50_000)
	r := NewRenderer()
	c := cylinder(t, denver, 5_000, 0, 1_000)
	c.SetLevelOfDetailEnabled(false)

	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	key := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         geomcache.TagCylinderVertices,
		OuterRadius: 5_000,
		Altitudes:   [2]float64{0, 1_000},
		Slices:      DefaultCylinderSlices,
		Stacks:      DefaultCylinderStacks,
		Orientation: int(geom.Outside),
		Center:      c.referenceCenter(s.dc),
	}
	first, ok := s.dc.GeometryCache.Get(key)
	require.True(t, ok)
	assert.Equal(t, geomcache.NoExpiry, first.Expiry)
	n := s.dc.GeometryCache.Len()

	s.newFrame(t, 1_000_000)
	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	second, ok := s.dc.GeometryCache.Get(key)
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, n, s.dc.GeometryCache.Len())
}

func TestTerrainConformingGeometryExpires(t *testing.T) {
	s := newScene(t, 50_000)
	r := NewRenderer()
	c := cylinder(t, denver, 5_000, 0, 1_000)
	c.SetLevelOfDetailEnabled(false)
	c.SetTerrainConforming(true, false)
	c.SetExpiryRange(2_000, 2_000)

	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	key := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         geomcache.TagCylinderVertices,
		OuterRadius: 5_000,
		Altitudes:   [2]float64{0, 1_000},
		Terrain:     [2]bool{true, false},
		Slices:      DefaultCylinderSlices,
		Stacks:      DefaultCylinderStacks,
		Orientation: int(geom.Outside),
		Center:      c.referenceCenter(s.dc),
	}
	first, ok := s.dc.GeometryCache.Get(key)
	require.True(t, ok)
	assert.Equal(t, int64(3_000), first.Expiry)
	firstVerts := append([]float32(nil), first.Geometry.Buffer(geom.Vertex).Floats...)

	s.newFrame(t, 2_500)
	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	same, _ := s.dc.GeometryCache.Get(key)
	assert.Same(t, first, same)

	s.newFrame(t, 3_001)
	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	rebuilt, _ := s.dc.GeometryCache.Get(key)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, int64(5_001), rebuilt.Expiry)
	assert.Equal(t, firstVerts, first.Geometry.Buffer(geom.Vertex).Floats)
}

func TestGlobeStateChangeRebuildsGeometry(t *testing.T) {
	s := newScene(t, 50_000)
	r := NewRenderer()
	c := cylinder(t, denver, 5_000, 0, 1_000)
	c.SetLevelOfDetailEnabled(false)
	c.SetTerrainConforming(true, true)

	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	key := geomcache.Key{
		Owner:       cylinderOwner,
		Tag:         geomcache.TagCylinderVertices,
		OuterRadius: 5_000,
		Altitudes:   [2]float64{0, 1_000},
		Terrain:     [2]bool{true, true},
		Slices:      DefaultCylinderSlices,
		Stacks:      DefaultCylinderStacks,
		Orientation: int(geom.Outside),
		Center:      c.referenceCenter(s.dc),
	}
	first, ok := s.dc.GeometryCache.Get(key)
	require.True(t, ok)

	s.globe.SetElevationModel(globe.ConstantElevation(100))
	s.newFrame(t, 1_001)
	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	rebuilt, ok := s.dc.GeometryCache.Get(key)
	require.True(t, ok)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, s.globe.StateKey(s.dc), rebuilt.State)
}

func TestMultipassWithDepthOffset(t *testing.T) {
	s := newScene(t, 50_000)
	r := NewRenderer()
	r.DepthOffset = true
	c := cylinder(t, denver, 5_000, 0, 1_000)
	c.Attributes.DrawOutline = true

	require.NoError(t, r.RenderNow(s.dc, []Airspace{c}))
	require.Len(t, s.rec.Draws, 8)

	all := [4]bool{true, true, true, true}
	none := [4]bool{}
	tests := []struct {
		draws  []gpu.Draw
		mode   geom.DrawMode
		color  [4]bool
		depth  bool
		offset [2]float32
	}{
		{s.rec.Draws[0:1], geom.ModeLines, all, false, [2]float32{0, 0}},
		{s.rec.Draws[1:4], geom.ModeTriangleStrip, none, true, [2]float32{0, 0}},
		{s.rec.Draws[4:7], geom.ModeTriangleStrip, all, false, [2]float32{-2, -4}},
		{s.rec.Draws[7:8], geom.ModeLines, all, false, [2]float32{-2, -4}},
	}
	for i, tt := range tests {
		for _, d := range tt.draws {
			assert.Equal(t, tt.mode, d.Mode, "pass %d", i)
			assert.Equal(t, tt.color, d.ColorWrite, "pass %d", i)
			assert.Equal(t, tt.depth, d.DepthWrite, "pass %d", i)
			if tt.mode != geom.ModeLines {
				assert.Equal(t, tt.offset, d.Offset, "pass %d", i)
			}
		}
	}
	assert.True(t, s.rec.Draws[1].Lighting)
	assert.False(t, s.rec.Draws[7].Lighting)
	assert.True(t, s.rec.Draws[7].Blending)
	assert.Zero(t, s.rec.Depth())
}

func TestCollapsedCylinderDrawsOnlyTopCap(t *testing.T) {
	s := newScene(t, 50_000)
	c := cylinder(t, denver, 5_000, 1_000, 1_000)
	require.NoError(t, NewRenderer().RenderNow(s.dc, []Airspace{c}))
	assert.Len(t, s.rec.Draws, 1)
}

func TestAnnulusDrawsInnerWall(t *testing.T) {
	s := newScene(t, 50_000)
	c := cylinder(t, denver, 5_000, 0, 1_000)
	require.NoError(t, c.SetRadii(2_000, 5_000))
	c.SetCapsEnabled(false)
	require.NoError(t, NewRenderer().RenderNow(s.dc, []Airspace{c}))
	assert.Len(t, s.rec.Draws, 2)
}

func TestHiddenAirspacesAreSkipped(t *testing.T) {
	s := newScene(t, 50_000)
	hidden := cylinder(t, denver, 5_000, 0, 1_000)
	hidden.Visible = false
	antipode := cylinder(t, geo.FromDegrees(-40, 75), 5_000, 0, 1_000)

	require.NoError(t, NewRenderer().RenderNow(s.dc, []Airspace{hidden, antipode}))
	assert.Empty(t, s.rec.Draws)
}

func TestRenderWithoutGlobeDrawsNothing(t *testing.T) {
	s := newScene(t, 50_000)
	s.dc.Globe = nil
	c := cylinder(t, denver, 5_000, 0, 1_000)

	assert.False(t, IsVisible(s.dc, c))
	assert.Equal(t, frame.Sphere{}, c.Extent(s.dc))
	assert.NotPanics(t, func() {
		assert.NoError(t, NewRenderer().RenderNow(s.dc, []Airspace{c}))
	})
	assert.Empty(t, s.rec.Draws)
}

func TestPickWidensOutlineWithoutInterior(t *testing.T) {
	s := newScene(t, 50_000)
	c := cylinder(t, denver, 5_000, 0, 1_000)
	c.Attributes.DrawInterior = false
	c.Attributes.DrawOutline = true
	c.Attributes.OutlineWidth = 2

	pt := image.Pt(400, 300)
	x, y := pick.FramebufferPoint(viewport, pt)
	s.rec.Pixels[image.Pt(x, y)] = pick.CodeColor(1)

	s.dc.EnablePickingMode()
	require.NoError(t, NewRenderer().PickNow(s.dc, []Airspace{c}, pt, "airspaces"))
	s.dc.DisablePickingMode()

	require.Len(t, s.rec.Draws, 1)
	assert.Equal(t, float32(2+DefaultLinePickWidth), s.rec.Draws[0].Width)
	assert.Equal(t, pick.CodeColor(1), s.rec.Draws[0].Color)

	picked := s.dc.PickedObjects()
	require.Equal(t, 1, picked.Len())
	assert.Same(t, c, picked.At(0).Source)
	assert.Equal(t, "airspaces", picked.At(0).Layer)
}

func TestPickOrderedResolvesThroughQueue(t *testing.T) {
	s := newScene(t, 50_000)
	l := NewLayer("airspaces")
	a, b := cylinder(t, denver, 5_000, 0, 1_000), cylinder(t, denver, 5_000, 0, 1_000)
	l.Add(a, b)

	pt := image.Pt(400, 300)
	x, y := pick.FramebufferPoint(viewport, pt)
	s.rec.Pixels[image.Pt(x, y)] = pick.CodeColor(2)

	s.dc.EnablePickingMode()
	require.NoError(t, l.Pick(s.dc, pt))
	require.Equal(t, 2, s.dc.OrderedLen())
	for s.dc.OrderedLen() > 0 {
		o, _ := s.dc.PollOrdered()
		require.NoError(t, o.Pick(s.dc, pt))
	}
	s.dc.DisablePickingMode()

	picked := s.dc.PickedObjects()
	require.Equal(t, 1, picked.Len())
	assert.Same(t, b, picked.At(0).Source)
	assert.Equal(t, 1, s.rec.Count("ReadPixel"))
}

func TestLayerRenderNowWhenNotOrdered(t *testing.T) {
	s := newScene(t, 50_000)
	l := NewLayer("airspaces")
	l.DrawOrdered = false
	c := cylinder(t, denver, 5_000, 0, 1_000)
	l.Add(c)

	require.NoError(t, l.Render(s.dc))
	assert.Zero(t, s.dc.OrderedLen())
	assert.Len(t, s.rec.Draws, 3)

	l.Remove(c)
	assert.Empty(t, l.Airspaces())
}

func TestDetailLevelFollowsScreenSize(t *testing.T) {
	near := newScene(t, 10_000)
	c := cylinder(t, denver, 5_000, 0, 1_000)
	def := lod.Params{Slices: 1, Stacks: 1, Loops: 1}
	p := c.detailParams(near.dc, c, def)
	assert.Equal(t, 32, p.Slices)
	assert.False(t, p.DisableTerrainConformance)

	far := newScene(t, 5_000_000)
	small := cylinder(t, denver, 100, 0, 100)
	p = small.detailParams(far.dc, small, def)
	assert.Equal(t, 8, p.Slices)
	assert.True(t, p.DisableTerrainConformance)

	small.SetLevelOfDetailEnabled(false)
	assert.Equal(t, def, small.detailParams(far.dc, small, def))
}

func TestMoveToKeepsOffsetFromReference(t *testing.T) {
	c := cylinder(t, denver, 5_000, 100, 1_100)
	c.MoveTo(geo.NewPosition(geo.FromDegrees(41, -104), 200))

	assert.InDelta(t, 41, c.Center().Lat, 1e-9)
	assert.InDelta(t, -104, c.Center().Lon, 1e-9)
	lo, hi := c.Altitudes()
	assert.InDelta(t, 200, lo, 1e-9)
	assert.InDelta(t, 1_200, hi, 1e-9)

	Move(c, geo.NewPosition(geo.FromDegrees(1, 0), 0))
	assert.InDelta(t, 42, c.Center().Lat, 1e-9)
}

func TestAltitudeDatumsDriveTerrainConformance(t *testing.T) {
	c := cylinder(t, denver, 5_000, 0, 1_000)
	c.SetAltitudeDatums(AboveGroundReference, AboveMeanSeaLevel)
	lo, hi := c.TerrainConforming()
	assert.True(t, lo)
	assert.False(t, hi)

	c.SetTerrainConforming(false, true)
	dlo, dhi := c.AltitudeDatums()
	assert.Equal(t, AboveMeanSeaLevel, dlo)
	assert.Equal(t, AboveGroundLevel, dhi)
}

func TestGroundReferenceLiftsAltitudes(t *testing.T) {
	s := newScene(t, 50_000)
	s.globe.SetElevationModel(globe.ConstantElevation(1_500))
	s.newFrame(t, 1_000)

	c := cylinder(t, denver, 5_000, 0, 1_000)
	ref := denver
	c.SetGroundReference(&ref)
	c.SetAltitudeDatums(AboveGroundReference, AboveGroundReference)

	terrain := c.terrain
	alts := c.scaledAltitudes(1)
	c.adjustForGroundReference(s.dc, &terrain, &alts)
	assert.Equal(t, [2]bool{false, false}, terrain)
	assert.InDelta(t, 1_500, alts[0], 1e-2)
	assert.InDelta(t, 2_500, alts[1], 1e-2)
}

func TestExtentIsCachedPerGlobeState(t *testing.T) {
	s := newScene(t, 50_000)
	c := cylinder(t, denver, 5_000, 0, 1_000)

	e1 := c.Extent(s.dc)
	assert.Greater(t, e1.Radius, 5_000.0)
	assert.Len(t, c.extents, 1)

	s.dc.VerticalExaggeration = 2
	c.Extent(s.dc)
	assert.Len(t, c.extents, 2)

	c.SetAltitudes(0, 2_000)
	assert.Empty(t, c.extents)
}
