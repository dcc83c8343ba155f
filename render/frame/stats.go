package frame

import (
	"fmt"
	"sort"
)

// StatKey names one per-frame statistic.
type StatKey string

const (
	StatAll                   StatKey = "All"
	StatFrameTime             StatKey = "FrameTime"
	StatFrameRate             StatKey = "FrameRate"
	StatPickTime              StatKey = "PickTime"
	StatTerrainTileCount      StatKey = "TerrainTileCount"
	StatMemoryCache           StatKey = "MemoryCache"
	StatTextureCache          StatKey = "TextureCache"
	StatHeapTotal             StatKey = "HeapTotal"
	StatHeapUsed              StatKey = "HeapUsed"
	StatAirspaceGeometryCount StatKey = "AirspaceGeometryCount"
	StatAirspaceVertexCount   StatKey = "AirspaceVertexCount"
)

// Statistic is one named value recorded during a frame.
type Statistic struct {
	Key         StatKey
	DisplayName string
	Value       any
}

func (s Statistic) String() string {
	return fmt.Sprintf("%s=%v", s.DisplayName, s.Value)
}

// Statistics collects the values of one frame. Only requested keys are kept,
// plus any value set with SetAlways.
type Statistics struct {
	requested map[StatKey]bool
	values    map[StatKey]Statistic
}

func NewStatistics(keys ...StatKey) *Statistics {
	s := &Statistics{values: make(map[StatKey]Statistic)}
	s.Request(keys...)
	return s
}

// Request replaces the requested key set.
func (s *Statistics) Request(keys ...StatKey) {
	s.requested = make(map[StatKey]bool, len(keys))
	for _, k := range keys {
		s.requested[k] = true
	}
}

func (s *Statistics) RequestedKeys() []StatKey {
	out := make([]StatKey, 0, len(s.requested))
	for k := range s.requested {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Wants reports whether key (or All) was requested.
func (s *Statistics) Wants(key StatKey) bool {
	return s.requested[StatAll] || s.requested[key]
}

// Set records value if key was requested.
func (s *Statistics) Set(key StatKey, name string, value any) {
	if s.Wants(key) {
		s.SetAlways(key, name, value)
	}
}

func (s *Statistics) SetAlways(key StatKey, name string, value any) {
	s.values[key] = Statistic{Key: key, DisplayName: name, Value: value}
}

// Add accumulates an int value for key.
func (s *Statistics) Add(key StatKey, name string, delta int) {
	if !s.Wants(key) {
		return
	}
	cur, _ := s.values[key].Value.(int)
	s.SetAlways(key, name, cur+delta)
}

func (s *Statistics) Get(key StatKey) (Statistic, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Statistics) Reset() {
	clear(s.values)
}

// All returns the recorded values sorted by key.
func (s *Statistics) All() []Statistic {
	out := make([]Statistic, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
