package lod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cylinderLevels() []DetailLevel {
	ramp := DefaultRamp(5)
	return []DetailLevel{
		{Name: "Detail-Level-0", Threshold: ramp[0], Params: Params{Slices: 32, Stacks: 1, Loops: 8}},
		{Name: "Detail-Level-1", Threshold: ramp[1], Params: Params{Slices: 26, Stacks: 1, Loops: 6}},
		{Name: "Detail-Level-2", Threshold: ramp[2], Params: Params{Slices: 20, Stacks: 1, Loops: 4}},
		{Name: "Detail-Level-3", Threshold: ramp[3], Params: Params{Slices: 14, Stacks: 1, Loops: 2}},
		{Name: "Detail-Level-4", Threshold: ramp[4], Params: Params{Slices: 8, Stacks: 1, Loops: 1, DisableTerrainConformance: true}},
	}
}

func TestDefaultRamp(t *testing.T) {
	assert.Equal(t, []float64{300, 230, 160, 90, 20}, DefaultRamp(5))
	assert.Equal(t, []float64{300}, Ramp(1, 20, 300))
	assert.Nil(t, Ramp(0, 20, 300))
}

func TestSelectFirstSatisfied(t *testing.T) {
	s := NewSelector(cylinderLevels())
	tests := []struct {
		size float64
		want string
	}{
		{1000, "Detail-Level-0"},
		{300, "Detail-Level-0"},
		{299, "Detail-Level-1"},
		{100, "Detail-Level-3"},
		{20, "Detail-Level-4"},
		{5, "Detail-Level-4"}, // fallback
	}
	for _, tt := range tests {
		got, ok := s.Select(func() float64 { return tt.size })
		require.True(t, ok)
		assert.Equal(t, tt.want, got.Name, "size %v", tt.size)
	}
}

func TestSelectSortsInput(t *testing.T) {
	levels := cylinderLevels()
	levels[0], levels[4] = levels[4], levels[0]
	s := NewSelector(levels)
	assert.Equal(t, "Detail-Level-0", s.Levels[0].Name)
	assert.Equal(t, "Detail-Level-4", s.Levels[4].Name)
}

func TestSelectMonotonic(t *testing.T) {
	s := NewSelector(cylinderLevels())
	prev := 0
	for size := 1000.0; size >= 0; size -= 3 {
		idx := s.Index(size)
		assert.GreaterOrEqual(t, idx, prev, "size %v selected more detail than a larger size", size)
		prev = idx
	}
}

func TestSelectEmpty(t *testing.T) {
	_, ok := NewSelector(nil).Select(func() float64 { return 1 })
	assert.False(t, ok)
	assert.Equal(t, -1, NewSelector(nil).Index(1))
}

func TestCustomCriteria(t *testing.T) {
	calls := 0
	s := &Selector{Levels: []DetailLevel{
		{Name: "never", Criteria: CriteriaFunc(func(float64) bool { return false })},
		{Name: "last"},
	}}
	got, _ := s.Select(func() float64 { calls++; return 50 })
	assert.Equal(t, "last", got.Name)
	assert.Equal(t, 1, calls)
}
