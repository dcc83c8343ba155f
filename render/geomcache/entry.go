package geomcache

import (
	"math/rand/v2"

	"github.com/gekko3d/geoscene/render/geom"
	"github.com/google/uuid"
)

// NoExpiry marks an entry that never expires on time alone.
const NoExpiry int64 = -1

// Default expiry range in milliseconds for terrain-conforming geometry.
const (
	DefaultExpiryMinMs int64 = 2000
	DefaultExpiryMaxMs int64 = 6000
)

// StateToken changes whenever the globe's elevation model or reference frame
// changes.
type StateToken struct {
	Globe                uuid.UUID
	Generation           uint64
	VerticalExaggeration float64
}

// Entry is a published geometry plus the conditions under which it is still
// valid. The geometry must not be mutated after Put.
type Entry struct {
	Geometry *geom.Geometry
	Expiry   int64 // ms timestamp, or NoExpiry
	State    StateToken
}

func (e *Entry) SizeInBytes() int64 {
	if e == nil {
		return 0
	}
	return e.Geometry.SizeInBytes()
}

// IsExpired reports whether the entry must be rebuilt at time now (ms) under
// the given globe state.
func IsExpired(e *Entry, now int64, state StateToken) bool {
	if e == nil {
		return true
	}
	if e.Expiry >= 0 && now > e.Expiry {
		return true
	}
	return e.State != state
}

// ExpiryPolicy draws expiry times for terrain-conforming shapes.
type ExpiryPolicy struct {
	MinMs int64
	MaxMs int64
	Rand  *rand.Rand
}

func NewExpiryPolicy(minMs, maxMs int64, seed uint64) *ExpiryPolicy {
	return &ExpiryPolicy{
		MinMs: minMs,
		MaxMs: maxMs,
		Rand:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns now plus a uniform duration in [MinMs, MaxMs] when the shape
// conforms to terrain, otherwise NoExpiry.
func (p *ExpiryPolicy) Next(now int64, terrainConformant bool) int64 {
	if !terrainConformant {
		return NoExpiry
	}
	lo, hi := p.MinMs, p.MaxMs
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	span := hi - lo
	if span == 0 || p.Rand == nil {
		return now + lo
	}
	return now + lo + p.Rand.Int64N(span+1)
}
