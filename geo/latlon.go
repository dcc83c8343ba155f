package geo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LatLon is a geographic location in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Position is a geographic location with an elevation in meters.
type Position struct {
	LatLon
	Elevation float64
}

var ZeroLatLon = LatLon{}

func FromDegrees(lat, lon float64) LatLon {
	return LatLon{Lat: lat, Lon: lon}
}

func NewPosition(ll LatLon, elevation float64) Position {
	return Position{LatLon: ll, Elevation: elevation}
}

func (ll LatLon) String() string {
	return fmt.Sprintf("(%.6f°, %.6f°)", ll.Lat, ll.Lon)
}

func (ll LatLon) LatRadians() float64 { return mgl64.DegToRad(ll.Lat) }
func (ll LatLon) LonRadians() float64 { return mgl64.DegToRad(ll.Lon) }

// Add offsets a position by another, component-wise.
func (p Position) Add(o Position) Position {
	return Position{
		LatLon:    LatLon{Lat: p.Lat + o.Lat, Lon: normalizeLon(p.Lon + o.Lon)},
		Elevation: p.Elevation + o.Elevation,
	}
}

// GreatCircleDistance returns the angular distance in radians between a and b.
func GreatCircleDistance(a, b LatLon) float64 {
	lat1, lon1 := a.LatRadians(), a.LonRadians()
	lat2, lon2 := b.LatRadians(), b.LonRadians()
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	// Haversine.
	h := math.Pow(math.Sin((lat2-lat1)/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin((lon2-lon1)/2), 2)
	return 2 * math.Asin(math.Sqrt(h))
}

// GreatCircleAzimuth returns the initial bearing in radians from a to b.
func GreatCircleAzimuth(a, b LatLon) float64 {
	lat1, lon1 := a.LatRadians(), a.LonRadians()
	lat2, lon2 := b.LatRadians(), b.LonRadians()
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	return math.Atan2(y, x)
}

// GreatCircleEndPosition travels from p along azimuth for an angular distance, both in radians.
func GreatCircleEndPosition(p LatLon, azimuth, distance float64) LatLon {
	if distance == 0 {
		return p
	}
	lat1, lon1 := p.LatRadians(), p.LonRadians()
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(distance) + math.Cos(lat1)*math.Sin(distance)*math.Cos(azimuth))
	lon2 := lon1 + math.Atan2(math.Sin(azimuth)*math.Sin(distance)*math.Cos(lat1),
		math.Cos(distance)-math.Sin(lat1)*math.Sin(lat2))
	return LatLon{Lat: mgl64.RadToDeg(lat2), Lon: normalizeLon(mgl64.RadToDeg(lon2))}
}

// LocationsCrossDateLine reports whether consecutive locations jump across the antimeridian.
func LocationsCrossDateLine(locations []LatLon) bool {
	for i := 1; i < len(locations); i++ {
		a, b := locations[i-1], locations[i]
		if math.Signbit(a.Lon) != math.Signbit(b.Lon) && math.Abs(a.Lon-b.Lon) > 180 {
			return true
		}
	}
	return false
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
