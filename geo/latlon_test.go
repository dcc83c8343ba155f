package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreatCircleRoundTrip(t *testing.T) {
	start := FromDegrees(40, -105)
	end := FromDegrees(41, -104)

	d := GreatCircleDistance(start, end)
	az := GreatCircleAzimuth(start, end)
	got := GreatCircleEndPosition(start, az, d)

	assert.InDelta(t, end.Lat, got.Lat, 1e-9)
	assert.InDelta(t, end.Lon, got.Lon, 1e-9)
}

func TestGreatCircleSamePoint(t *testing.T) {
	p := FromDegrees(10, 10)
	assert.Equal(t, 0.0, GreatCircleDistance(p, p))
	assert.Equal(t, 0.0, GreatCircleAzimuth(p, p))
	assert.Equal(t, p, GreatCircleEndPosition(p, 1, 0))
}

func TestBoundingSector(t *testing.T) {
	s := BoundingSector([]LatLon{{1, 2}, {-3, 4}, {5, -6}})
	assert.Equal(t, Sector{MinLat: -3, MaxLat: 5, MinLon: -6, MaxLon: 4}, s)
	assert.True(t, s.Contains(LatLon{0, 0}))
	assert.False(t, s.Contains(LatLon{6, 0}))
	assert.Equal(t, Sector{}, BoundingSector(nil))
}

func TestLocationsCrossDateLine(t *testing.T) {
	assert.True(t, LocationsCrossDateLine([]LatLon{{0, 179}, {0, -179}}))
	assert.False(t, LocationsCrossDateLine([]LatLon{{0, 1}, {0, -1}}))
}

func TestPositionAddWrapsLongitude(t *testing.T) {
	p := NewPosition(FromDegrees(0, 170), 10).Add(NewPosition(FromDegrees(1, 20), 5))
	assert.InDelta(t, -170, p.Lon, 1e-9)
	assert.Equal(t, 1.0, p.Lat)
	assert.Equal(t, 15.0, p.Elevation)
	assert.False(t, math.IsNaN(p.Lon))
}
