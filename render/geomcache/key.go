package geomcache

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Semantic tags for the buffers a cylindrical shape produces.
const (
	TagCylinderVertices       = "Cylinder.Vertices"
	TagCylinderIndices        = "Cylinder.Indices"
	TagCylinderOutlineIndices = "Cylinder.OutlineIndices"
	TagDiskVertices           = "Disk.Vertices"
	TagDiskIndices            = "Disk.Indices"
)

// Key identifies one cached buffer. Two keys are equal only when every field
// compares equal, floats included (exact equality).
type Key struct {
	Owner string // producing type or instance identity
	Tag   string

	InnerRadius float64
	OuterRadius float64
	Altitudes   [2]float64
	Terrain     [2]bool

	Slices      int
	Stacks      int
	Loops       int
	Orientation int

	Center mgl64.Vec3
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s r=[%g %g] alt=%v slices=%d stacks=%d loops=%d", k.Owner, k.Tag,
		k.InnerRadius, k.OuterRadius, k.Altitudes, k.Slices, k.Stacks, k.Loops)
}
