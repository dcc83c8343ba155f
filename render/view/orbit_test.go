package view

import (
	"image"
	"testing"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/globe"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrbit(t *testing.T) (*Orbit, *globe.Ellipsoid) {
	g := globe.NewEarth(nil)
	o, err := NewOrbit(g, geo.NewPosition(geo.FromDegrees(40, -105), 0), 100_000, image.Rect(0, 0, 800, 600))
	require.NoError(t, err)
	return o, g
}

func TestNewOrbitRejectsNilGlobe(t *testing.T) {
	_, err := NewOrbit(nil, geo.Position{}, 1, image.Rectangle{})
	assert.ErrorIs(t, err, ErrNilGlobe)
}

func TestEyeAboveCenterWhenLookingDown(t *testing.T) {
	o, _ := newOrbit(t)
	eye := o.EyePosition()
	assert.InDelta(t, 40, eye.Lat, 1e-6)
	assert.InDelta(t, -105, eye.Lon, 1e-6)
	assert.InDelta(t, 100_000, eye.Elevation, 1)
}

func TestCenterIsInFrustumAndScreenCenter(t *testing.T) {
	o, g := newOrbit(t)
	c := g.ComputePointFromPosition(o.Center())
	assert.True(t, o.Frustum().ContainsPoint(c))

	origin, dir := o.ScreenRay(image.Pt(400, 300))
	hit, ok := g.IntersectRay(origin, dir, 0)
	require.True(t, ok)
	p := g.ComputePositionFromPoint(hit)
	assert.InDelta(t, 40, p.Lat, 0.05)
	assert.InDelta(t, -105, p.Lon, 0.05)
}

func TestHeadingAndPitch(t *testing.T) {
	o, _ := newOrbit(t)
	o.SetHeading(30)
	o.SetPitch(120)
	assert.Equal(t, 30.0, o.Heading())
	assert.Equal(t, 90.0, o.Pitch())
	var _ frame.Steerable = o
}

func TestPixelSizeGrowsWithDistance(t *testing.T) {
	o, _ := newOrbit(t)
	assert.Greater(t, o.ComputePixelSizeAtDistance(2000), o.ComputePixelSizeAtDistance(1000))
	assert.Equal(t, 0.0, o.ComputePixelSizeAtDistance(0))
}

func TestApplyLoadsMatrices(t *testing.T) {
	o, _ := newOrbit(t)
	rec := gpu.NewRecorder(image.Rectangle{})
	dc := frame.NewContext()
	dc.GPU = rec
	require.NoError(t, o.Apply(dc))
	assert.Equal(t, o.ModelView(), rec.ModelView())
	assert.Equal(t, o.Viewport(), rec.Viewport())
}
