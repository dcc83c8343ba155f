package geo

import "math"

// Sector is a lat/lon aligned box in degrees.
type Sector struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

var FullSphere = Sector{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

// BoundingSector returns the smallest sector containing every location.
// An empty input yields the zero sector.
func BoundingSector(locations []LatLon) Sector {
	if len(locations) == 0 {
		return Sector{}
	}
	s := Sector{
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
	}
	for _, ll := range locations {
		s.MinLat = math.Min(s.MinLat, ll.Lat)
		s.MaxLat = math.Max(s.MaxLat, ll.Lat)
		s.MinLon = math.Min(s.MinLon, ll.Lon)
		s.MaxLon = math.Max(s.MaxLon, ll.Lon)
	}
	return s
}

// SplitBoundingSectors bounds locations that straddle the antimeridian with
// one sector on each side of it.
func SplitBoundingSectors(locations []LatLon) [2]Sector {
	east := Sector{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	west := east
	for _, ll := range locations {
		dst := &east
		if ll.Lon < 0 {
			dst = &west
		}
		dst.MinLat = math.Min(dst.MinLat, ll.Lat)
		dst.MaxLat = math.Max(dst.MaxLat, ll.Lat)
	}
	east.MinLon, east.MaxLon = 0, 180
	west.MinLon, west.MaxLon = -180, 0
	return [2]Sector{east, west}
}

func (s Sector) Contains(ll LatLon) bool {
	return ll.Lat >= s.MinLat && ll.Lat <= s.MaxLat && ll.Lon >= s.MinLon && ll.Lon <= s.MaxLon
}

func (s Sector) Centroid() LatLon {
	return LatLon{Lat: (s.MinLat + s.MaxLat) / 2, Lon: (s.MinLon + s.MaxLon) / 2}
}

func (s Sector) DeltaLat() float64 { return s.MaxLat - s.MinLat }
func (s Sector) DeltaLon() float64 { return s.MaxLon - s.MinLon }
