package geom

// BufferKind selects one of the typed buffers held by a Geometry.
type BufferKind int

const (
	Element BufferKind = iota
	Vertex
	Normal
	numBufferKinds
)

func (k BufferKind) String() string {
	switch k {
	case Element:
		return "element"
	case Vertex:
		return "vertex"
	case Normal:
		return "normal"
	}
	return "unknown"
}

// DataType is the numeric type of a buffer's components.
type DataType int

const (
	TypeNone DataType = iota
	TypeByte
	TypeShort
	TypeUnsignedShort
	TypeInt
	TypeUnsignedInt
	TypeFloat
	TypeDouble
)

// Size returns the size in bytes of one component of this type.
func (t DataType) Size() int64 {
	switch t {
	case TypeByte:
		return 1
	case TypeShort, TypeUnsignedShort:
		return 2
	case TypeInt, TypeUnsignedInt, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	}
	return 0
}

// DrawMode is the primitive topology of an element buffer.
type DrawMode int

const (
	ModeNone DrawMode = iota
	ModePoints
	ModeLines
	ModeLineStrip
	ModeTriangles
	ModeTriangleStrip
)

// Buffer is one typed buffer with its layout metadata. Exactly one of Ints or
// Floats holds data, depending on Type.
type Buffer struct {
	Mode   DrawMode
	Count  int // number of elements (indices or vertices)
	Size   int // components per element
	Type   DataType
	Stride int
	Ints   []uint32
	Floats []float32
}

// Capacity returns the number of components stored.
func (b *Buffer) Capacity() int {
	if b == nil {
		return 0
	}
	if b.Type == TypeFloat {
		return len(b.Floats)
	}
	return len(b.Ints)
}

func (b *Buffer) SizeInBytes() int64 {
	if b == nil {
		return 0
	}
	return int64(b.Capacity()) * b.Type.Size()
}

func (b *Buffer) empty() bool {
	return b == nil || (b.Ints == nil && b.Floats == nil)
}

// Geometry stores the element, vertex and normal buffers of one tessellated
// shape. A Geometry published to a cache is treated as immutable: rebuilds
// produce a new Geometry.
type Geometry struct {
	buffers [numBufferKinds]*Buffer
}

func New() *Geometry {
	return &Geometry{}
}

// Buffer returns the buffer of the given kind, or nil when unset.
func (g *Geometry) Buffer(kind BufferKind) *Buffer {
	if g == nil || kind < 0 || kind >= numBufferKinds {
		return nil
	}
	b := g.buffers[kind]
	if b.empty() {
		return nil
	}
	return b
}

func (g *Geometry) Mode(kind BufferKind) DrawMode { return g.field(kind).Mode }
func (g *Geometry) Count(kind BufferKind) int     { return g.field(kind).Count }
func (g *Geometry) Size(kind BufferKind) int      { return g.field(kind).Size }
func (g *Geometry) Type(kind BufferKind) DataType { return g.field(kind).Type }
func (g *Geometry) Stride(kind BufferKind) int    { return g.field(kind).Stride }

func (g *Geometry) field(kind BufferKind) Buffer {
	if b := g.Buffer(kind); b != nil {
		return *b
	}
	return Buffer{}
}

// SetMode sets the draw mode of a buffer, allocating an empty one if needed.
func (g *Geometry) SetMode(kind BufferKind, mode DrawMode) {
	if g.buffers[kind] == nil {
		g.buffers[kind] = &Buffer{}
	}
	g.buffers[kind].Mode = mode
}

// SetIntData copies count*size integer components from src into the buffer.
func (g *Geometry) SetIntData(kind BufferKind, size int, dataType DataType, stride, count int, src []uint32) {
	b := g.reset(kind, size, dataType, stride, count)
	n := size * count
	if cap(b.Ints) < n {
		b.Ints = make([]uint32, n)
	}
	b.Ints = b.Ints[:n]
	b.Floats = nil
	copy(b.Ints, src[:n])
}

// SetFloatData copies count*size float components from src into the buffer.
func (g *Geometry) SetFloatData(kind BufferKind, size, stride, count int, src []float32) {
	b := g.reset(kind, size, TypeFloat, stride, count)
	n := size * count
	if cap(b.Floats) < n {
		b.Floats = make([]float32, n)
	}
	b.Floats = b.Floats[:n]
	b.Ints = nil
	copy(b.Floats, src[:n])
}

func (g *Geometry) reset(kind BufferKind, size int, dataType DataType, stride, count int) *Buffer {
	b := g.buffers[kind]
	if b == nil {
		b = &Buffer{}
		g.buffers[kind] = b
	}
	b.Size = size
	b.Type = dataType
	b.Stride = stride
	b.Count = count
	return b
}

func (g *Geometry) SetElementData(mode DrawMode, count int, src []uint32) {
	g.SetMode(Element, mode)
	g.SetIntData(Element, 1, TypeUnsignedInt, 0, count, src)
}

func (g *Geometry) SetVertexData(count int, src []float32) {
	g.SetFloatData(Vertex, 3, 0, count, src)
}

func (g *Geometry) SetNormalData(count int, src []float32) {
	g.SetFloatData(Normal, 3, 0, count, src)
}

func (g *Geometry) Clear(kind BufferKind) {
	g.buffers[kind] = nil
}

// SizeInBytes is the summed size of all buffers; caches use it as the entry cost.
func (g *Geometry) SizeInBytes() int64 {
	var n int64
	for _, b := range g.buffers {
		n += b.SizeInBytes()
	}
	return n
}

// Clone returns a deep copy.
func (g *Geometry) Clone() *Geometry {
	out := New()
	for i, b := range g.buffers {
		if b == nil {
			continue
		}
		cp := *b
		if b.Ints != nil {
			cp.Ints = append([]uint32(nil), b.Ints...)
		}
		if b.Floats != nil {
			cp.Floats = append([]float32(nil), b.Floats...)
		}
		out.buffers[i] = &cp
	}
	return out
}
