package geomcache

import (
	"testing"

	"github.com/gekko3d/geoscene/render/geom"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entryOfSize returns an entry whose geometry occupies n*4 bytes.
func entryOfSize(n int) *Entry {
	g := geom.New()
	g.SetElementData(geom.ModeLines, n, make([]uint32, n))
	return &Entry{Geometry: g, Expiry: NoExpiry}
}

func key(tag string) Key {
	return Key{Owner: "test", Tag: tag}
}

func TestCacheGetReturnsSameEntry(t *testing.T) {
	c := NewDefault()
	e := entryOfSize(16)
	require.NoError(t, c.Put(key("a"), e))

	for i := 0; i < 3; i++ {
		got, ok := c.Get(key("a"))
		require.True(t, ok)
		assert.Same(t, e, got)
	}
	assert.Equal(t, int64(64), c.UsedCapacity())
	assert.Equal(t, 1, c.Len())
}

func TestCacheKeysCompareStructurally(t *testing.T) {
	c := NewDefault()
	k1 := Key{Owner: "cyl", Tag: TagCylinderVertices, OuterRadius: 10, Slices: 32}
	k2 := Key{Owner: "cyl", Tag: TagCylinderVertices, OuterRadius: 10, Slices: 32}
	require.NoError(t, c.Put(k1, entryOfSize(1)))

	assert.True(t, c.Contains(k2))
	k2.OuterRadius = 10.000000001
	assert.False(t, c.Contains(k2))
}

func TestLowWaterDefaults(t *testing.T) {
	assert.Equal(t, DefaultLowWater, NewDefault().LowWater())
	assert.Equal(t, int64(85), New(100, 0).LowWater())
	assert.Equal(t, int64(85), New(100, 150).LowWater())
	assert.Equal(t, int64(40), New(100, 40).LowWater())
}

func TestCacheRejectsOversizedEntry(t *testing.T) {
	c := New(100, 80)
	err := c.Put(key("big"), entryOfSize(26))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsLeastRecentlyUsedToLowWater(t *testing.T) {
	c := New(100, 60)
	var evicted []string
	c.AddEvictionListener(func(k Key, _ *Entry) { evicted = append(evicted, k.Tag) })

	require.NoError(t, c.Put(key("a"), entryOfSize(5))) // 20 bytes
	require.NoError(t, c.Put(key("b"), entryOfSize(5)))
	require.NoError(t, c.Put(key("c"), entryOfSize(5)))
	require.NoError(t, c.Put(key("d"), entryOfSize(5)))
	_, _ = c.Get(key("a"))

	// 80 used, adding 40 must shrink to 60-40 = 20 before inserting.
	require.NoError(t, c.Put(key("e"), entryOfSize(10)))

	assert.Equal(t, []string{"b", "c", "d"}, evicted)
	assert.True(t, c.Contains(key("a")))
	assert.True(t, c.Contains(key("e")))
	assert.Equal(t, int64(60), c.UsedCapacity())
	assert.Equal(t, int64(40), c.FreeCapacity())
}

func TestCacheEvictionIsDeterministic(t *testing.T) {
	run := func() []string {
		c := New(64, 32)
		var out []string
		c.AddEvictionListener(func(k Key, _ *Entry) { out = append(out, k.Tag) })
		for _, tag := range []string{"a", "b", "c", "a", "d", "b", "e", "f"} {
			if _, ok := c.Get(key(tag)); !ok {
				require.NoError(t, c.Put(key(tag), entryOfSize(4)))
			}
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestCacheReplaceAndRemove(t *testing.T) {
	c := NewDefault()
	require.NoError(t, c.Put(key("a"), entryOfSize(4)))
	require.NoError(t, c.Put(key("a"), entryOfSize(8)))
	assert.Equal(t, int64(32), c.UsedCapacity())

	c.Remove(key("a"))
	assert.False(t, c.Contains(key("a")))
	assert.Equal(t, int64(0), c.UsedCapacity())

	require.NoError(t, c.Put(key("b"), entryOfSize(4)))
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestIsExpired(t *testing.T) {
	state := StateToken{Globe: uuid.New(), Generation: 1, VerticalExaggeration: 1}
	other := state
	other.Generation = 2

	tests := []struct {
		name   string
		expiry int64
		now    int64
		state  StateToken
		want   bool
	}{
		{"no expiry", NoExpiry, 1 << 40, state, false},
		{"before expiry", 1000, 999, state, false},
		{"at expiry", 1000, 1000, state, false},
		{"after expiry", 1000, 1001, state, true},
		{"globe changed", NoExpiry, 0, other, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Expiry: tt.expiry, State: state}
			assert.Equal(t, tt.want, IsExpired(e, tt.now, tt.state))
		})
	}
	assert.True(t, IsExpired(nil, 0, state))
}

func TestExpiryPolicyBounds(t *testing.T) {
	p := NewExpiryPolicy(DefaultExpiryMinMs, DefaultExpiryMaxMs, 42)
	now := int64(1_000_000)
	for i := 0; i < 1000; i++ {
		exp := p.Next(now, true)
		assert.GreaterOrEqual(t, exp, now+DefaultExpiryMinMs)
		assert.LessOrEqual(t, exp, now+DefaultExpiryMaxMs)
	}
	assert.Equal(t, NoExpiry, p.Next(now, false))
}

func TestExpiryPolicyIsSeeded(t *testing.T) {
	a := NewExpiryPolicy(0, 10_000, 7)
	b := NewExpiryPolicy(0, 10_000, 7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(0, true), b.Next(0, true))
	}
}
