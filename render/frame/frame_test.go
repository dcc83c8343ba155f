package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/gekko3d/geoscene/render/pick"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type producer struct {
	rendered []any
	picked   []any
}

func (p *producer) RenderItem(dc *Context, item Ordered) error {
	p.rendered = append(p.rendered, item.Payload)
	return nil
}

func (p *producer) PickItem(dc *Context, item Ordered, pt image.Point) error {
	p.picked = append(p.picked, item.Payload)
	return nil
}

type custom struct {
	d        float64
	rendered int
}

func (c *custom) DistanceFromEye() float64         { return c.d }
func (c *custom) Render(*Context) error            { c.rendered++; return nil }
func (c *custom) Pick(*Context, image.Point) error { return nil }

func TestOrderedDispatch(t *testing.T) {
	dc := NewContext()
	p := &producer{}
	c := &custom{d: 5}

	dc.AddOrderedRenderable(Produced(p, "near", 1))
	dc.AddOrderedRenderable(Custom(c))
	dc.AddOrderedRenderable(Produced(p, "far", 10))

	for dc.OrderedLen() > 0 {
		o, _ := dc.PollOrdered()
		require.NoError(t, o.Render(dc))
	}
	assert.Equal(t, []any{"far", "near"}, p.rendered)
	assert.Equal(t, 1, c.rendered)
}

func TestOrderedFrom(t *testing.T) {
	p1, p2 := &producer{}, &producer{}
	o := Produced(p1, nil, 0)
	assert.True(t, o.From(p1))
	assert.False(t, o.From(p2))
	assert.False(t, Custom(&custom{}).From(p1))
}

func TestUniquePickColorSkipsClearColor(t *testing.T) {
	dc := NewContext()
	dc.ClearColor = color.RGBA{B: 2, A: 255}
	dc.Reset(0)

	seen := map[uint32]bool{}
	for i := 0; i < 10; i++ {
		code := pick.Code(dc.UniquePickColor())
		assert.NotEqual(t, uint32(2), code)
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestResetClearsFrameState(t *testing.T) {
	dc := NewContext()
	pt := image.Pt(1, 1)
	dc.PickPoint = &pt
	dc.EnablePickingMode()
	dc.AddOrderedRenderable(Custom(&custom{}))
	dc.AddPickedObject(pick.NewObject(1, "x"))
	dc.Stats.Request(StatAll)
	dc.SetPerFrameStatistic(StatFrameTime, "Frame Time", 3)

	dc.Reset(42)
	assert.Nil(t, dc.PickPoint)
	assert.False(t, dc.IsPickingMode())
	assert.Equal(t, 0, dc.OrderedLen())
	assert.Equal(t, 0, dc.PickedObjects().Len())
	assert.Empty(t, dc.Stats.All())
	assert.True(t, dc.Stats.Wants(StatPickTime))
	assert.Equal(t, int64(42), dc.FrameTimestamp)
}

func TestStatisticsOnlyKeepsRequested(t *testing.T) {
	s := NewStatistics(StatMemoryCache)
	s.Set(StatMemoryCache, "Cache", 10)
	s.Set(StatHeapUsed, "Heap", 20)
	s.SetAlways(StatFrameTime, "Frame Time", 1)
	s.Add(StatMemoryCache, "Cache", 5)
	s.Add(StatAirspaceVertexCount, "Vertices", 5)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, StatFrameTime, all[0].Key)
	v, ok := s.Get(StatMemoryCache)
	require.True(t, ok)
	assert.Equal(t, 15, v.Value)
	assert.Equal(t, []StatKey{StatMemoryCache}, s.RequestedKeys())
}

func TestFrustumFromOrthographic(t *testing.T) {
	f := FrustumFromMatrix(mgl64.Ortho(-1, 1, -1, 1, 1, 10))
	assert.True(t, f.ContainsPoint(mgl64.Vec3{0, 0, -5}))
	assert.False(t, f.ContainsPoint(mgl64.Vec3{0, 0, 5}))
	assert.False(t, f.ContainsPoint(mgl64.Vec3{2, 0, -5}))
	assert.True(t, f.IntersectsSphere(Sphere{Center: mgl64.Vec3{1.5, 0, -5}, Radius: 1}))
	assert.False(t, f.IntersectsSphere(Sphere{Center: mgl64.Vec3{3, 0, -5}, Radius: 1}))
}

func TestSphereDistanceFromEye(t *testing.T) {
	s := Sphere{Center: mgl64.Vec3{10, 0, 0}, Radius: 4}
	assert.Equal(t, 6.0, s.DistanceFromEye(mgl64.Vec3{}))
	assert.Equal(t, 0.0, s.DistanceFromEye(mgl64.Vec3{9, 0, 0}))
}
