// Package lod selects a tessellation profile from a shape's projected size.
package lod

import (
	"fmt"
	"sort"
)

// Params are the tessellation overrides a detail level applies.
type Params struct {
	Slices int
	Stacks int
	Loops  int
	// DisableTerrainConformance renders the shape at fixed altitudes.
	DisableTerrainConformance bool
}

// Criteria decides whether a level applies for a projected screen size in pixels.
type Criteria interface {
	Meets(screenSize float64) bool
}

// ScreenSize is met when the projected size is at least the threshold.
type ScreenSize float64

func (s ScreenSize) Meets(screenSize float64) bool {
	return screenSize >= float64(s)
}

// CriteriaFunc adapts a function to Criteria.
type CriteriaFunc func(screenSize float64) bool

func (f CriteriaFunc) Meets(screenSize float64) bool { return f(screenSize) }

type DetailLevel struct {
	Name      string
	Threshold float64
	Params    Params
	// Criteria overrides the default ScreenSize(Threshold) test.
	Criteria Criteria
}

func (d DetailLevel) Meets(screenSize float64) bool {
	if d.Criteria != nil {
		return d.Criteria.Meets(screenSize)
	}
	return ScreenSize(d.Threshold).Meets(screenSize)
}

func (d DetailLevel) String() string {
	return fmt.Sprintf("%s(>=%.0fpx slices=%d stacks=%d loops=%d)", d.Name, d.Threshold,
		d.Params.Slices, d.Params.Stacks, d.Params.Loops)
}

// Sort orders levels by threshold, highest first, so iteration runs from most
// to least detailed. Levels with equal thresholds keep their relative order.
func Sort(levels []DetailLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Threshold > levels[j].Threshold
	})
}

// Ramp returns n thresholds spaced linearly between lo and hi, highest first.
func Ramp(n int, lo, hi float64) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{hi}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = hi - float64(i)*step
	}
	return out
}

// DefaultRamp is the screen size ramp used by the built-in shapes.
func DefaultRamp(n int) []float64 {
	return Ramp(n, 20, 300)
}
