package geom

import (
	"fmt"
	"math"
)

// Orientation selects which side of a surface faces outward.
type Orientation int

const (
	Outside Orientation = iota
	Inside
)

func (o Orientation) String() string {
	if o == Inside {
		return "inside"
	}
	return "outside"
}

// Builder tessellates unit shapes into flat coordinate and index arrays.
// Vertices of slice i, stack j live at index j + i*(stacks+1).
type Builder struct {
	Orientation Orientation
}

func NewBuilder() *Builder {
	return &Builder{Orientation: Outside}
}

func (b *Builder) CylinderVertexCount(slices, stacks int) int {
	return slices * (stacks + 1)
}

func (b *Builder) CylinderIndexCount(slices, stacks int) int {
	return stacks*2*(slices+1) + 2*(stacks-1)
}

func (b *Builder) CylinderOutlineIndexCount(slices, stacks int) int {
	return slices * 4
}

func (b *Builder) CylinderDrawMode() DrawMode        { return ModeTriangleStrip }
func (b *Builder) CylinderOutlineDrawMode() DrawMode { return ModeLines }

func checkDest(name string, n, have int) error {
	if n < 0 {
		return fmt.Errorf("%s: negative element count %d", name, n)
	}
	if have < n {
		return fmt.Errorf("%s: destination length %d < %d", name, have, n)
	}
	return nil
}

// MakeCylinderVertices writes an open cylinder of the given radius and height
// around the +Z axis, base at z=0.
func (b *Builder) MakeCylinderVertices(radius, height float32, slices, stacks int, dest []float32) error {
	if err := checkDest("cylinder vertices", 3*b.CylinderVertexCount(slices, stacks), len(dest)); err != nil {
		return err
	}
	var dz float32
	if stacks != 0 {
		dz = height / float32(stacks)
	}
	da := 2 * math.Pi / float64(slices)
	for i := 0; i < slices; i++ {
		a := float64(i) * da
		x := float32(math.Sin(a))
		y := float32(math.Cos(a))
		var z float32
		for j := 0; j <= stacks; j++ {
			index := 3 * (j + i*(stacks+1))
			dest[index] = x * radius
			dest[index+1] = y * radius
			dest[index+2] = z
			z += dz
		}
	}
	return nil
}

func (b *Builder) MakeCylinderNormals(slices, stacks int, dest []float32) error {
	if err := checkDest("cylinder normals", 3*b.CylinderVertexCount(slices, stacks), len(dest)); err != nil {
		return err
	}
	nsign := b.normalSign()
	da := 2 * math.Pi / float64(slices)
	for i := 0; i < slices; i++ {
		a := float64(i) * da
		nx := float32(math.Sin(a)) * nsign
		ny := float32(math.Cos(a)) * nsign
		l := float32(math.Hypot(float64(nx), float64(ny)))
		if l > 0 {
			nx, ny = nx/l, ny/l
		}
		for j := 0; j <= stacks; j++ {
			index := 3 * (j + i*(stacks+1))
			dest[index] = nx
			dest[index+1] = ny
			dest[index+2] = 0
		}
	}
	return nil
}

// MakeCylinderIndices writes a triangle strip covering every stack, joined by
// degenerate triangles.
func (b *Builder) MakeCylinderIndices(slices, stacks int, dest []uint32) error {
	if err := checkDest("cylinder indices", b.CylinderIndexCount(slices, stacks), len(dest)); err != nil {
		return err
	}
	index := 0
	put := func(v int) {
		dest[index] = uint32(v)
		index++
	}
	for j := 0; j < stacks; j++ {
		if j != 0 {
			v := j
			if b.Orientation == Inside {
				v = j + 1
			}
			put(v)
			put(v)
		}
		for i := 0; i <= slices; i++ {
			v := j + i*(stacks+1)
			if i == slices {
				v = j
			}
			if b.Orientation == Inside {
				put(v + 1)
				put(v)
			} else {
				put(v)
				put(v + 1)
			}
		}
	}
	return nil
}

// MakeCylinderOutlineIndices writes line segments for the bottom and top rings.
func (b *Builder) MakeCylinderOutlineIndices(slices, stacks int, dest []uint32) error {
	if err := checkDest("cylinder outline indices", b.CylinderOutlineIndexCount(slices, stacks), len(dest)); err != nil {
		return err
	}
	index := 0
	for i := 0; i < slices; i++ {
		v := i * (stacks + 1)
		next := v + stacks + 1
		if i == slices-1 {
			next = 0
		}
		dest[index], dest[index+1] = uint32(v), uint32(next)
		index += 2
	}
	for i := 0; i < slices; i++ {
		v := i*(stacks+1) + stacks
		next := v + stacks + 1
		if i == slices-1 {
			next = stacks
		}
		dest[index], dest[index+1] = uint32(v), uint32(next)
		index += 2
	}
	return nil
}

func (b *Builder) DiskVertexCount(slices, loops int) int {
	return slices * (loops + 1)
}

func (b *Builder) DiskIndexCount(slices, loops int) int {
	return loops*2*(slices+1) + 2*(loops-1)
}

func (b *Builder) DiskDrawMode() DrawMode { return ModeTriangleStrip }

// MakeDiskVertices writes an annulus in the z=0 plane. Vertices of slice s,
// loop l live at index l + s*(loops+1).
func (b *Builder) MakeDiskVertices(innerRadius, outerRadius float32, slices, loops int, dest []float32) error {
	if err := checkDest("disk vertices", 3*b.DiskVertexCount(slices, loops), len(dest)); err != nil {
		return err
	}
	da := 2 * math.Pi / float64(slices)
	var dr float32
	if loops != 0 {
		dr = (outerRadius - innerRadius) / float32(loops)
	}
	for s := 0; s < slices; s++ {
		a := float64(s) * da
		x := float32(math.Sin(a))
		y := float32(math.Cos(a))
		for l := 0; l <= loops; l++ {
			index := 3 * (l + s*(loops+1))
			r := innerRadius + float32(l)*dr
			dest[index] = r * x
			dest[index+1] = r * y
			dest[index+2] = 0
		}
	}
	return nil
}

// MakeDiskNormals writes the flat +Z (or -Z for Inside) normal for every vertex.
func (b *Builder) MakeDiskNormals(slices, loops int, dest []float32) error {
	if err := checkDest("disk normals", 3*b.DiskVertexCount(slices, loops), len(dest)); err != nil {
		return err
	}
	nz := b.normalSign()
	for s := 0; s < slices; s++ {
		for l := 0; l <= loops; l++ {
			index := 3 * (l + s*(loops+1))
			dest[index] = 0
			dest[index+1] = 0
			dest[index+2] = nz
		}
	}
	return nil
}

func (b *Builder) MakeDiskIndices(slices, loops int, dest []uint32) error {
	if err := checkDest("disk indices", b.DiskIndexCount(slices, loops), len(dest)); err != nil {
		return err
	}
	index := 0
	put := func(v int) {
		dest[index] = uint32(v)
		index++
	}
	for l := 0; l < loops; l++ {
		if l != 0 {
			if b.Orientation == Inside {
				put(l)
				put(l)
			} else {
				put(l - 1)
				put(l + 1)
			}
		}
		for s := 0; s <= slices; s++ {
			v := l + s*(loops+1)
			if s == slices {
				v = l
			}
			if b.Orientation == Inside {
				put(v)
				put(v + 1)
			} else {
				put(v + 1)
				put(v)
			}
		}
	}
	return nil
}

func (b *Builder) normalSign() float32 {
	if b.Orientation == Outside {
		return 1
	}
	return -1
}
