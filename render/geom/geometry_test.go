package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometrySetDataCopiesSource(t *testing.T) {
	g := New()
	src := []float32{1, 2, 3, 4, 5, 6}
	g.SetVertexData(2, src)
	src[0] = 99

	b := g.Buffer(Vertex)
	require.NotNil(t, b)
	assert.Equal(t, float32(1), b.Floats[0])
	assert.Equal(t, 2, g.Count(Vertex))
	assert.Equal(t, 3, g.Size(Vertex))
	assert.Equal(t, TypeFloat, g.Type(Vertex))
	assert.Equal(t, int64(24), g.SizeInBytes())
}

func TestGeometryElementData(t *testing.T) {
	g := New()
	g.SetElementData(ModeLines, 4, []uint32{0, 1, 1, 2, 7})

	assert.Equal(t, ModeLines, g.Mode(Element))
	assert.Equal(t, TypeUnsignedInt, g.Type(Element))
	assert.Equal(t, []uint32{0, 1, 1, 2}, g.Buffer(Element).Ints)
	assert.Nil(t, g.Buffer(Normal))

	g.Clear(Element)
	assert.Nil(t, g.Buffer(Element))
	assert.Equal(t, 0, g.Count(Element))
}

func TestGeometryCloneIsDeep(t *testing.T) {
	g := New()
	g.SetNormalData(1, []float32{0, 0, 1})
	c := g.Clone()
	c.Buffer(Normal).Floats[2] = -1

	assert.Equal(t, float32(1), g.Buffer(Normal).Floats[2])
	assert.Equal(t, g.SizeInBytes(), c.SizeInBytes())
}

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		t    DataType
		size int64
	}{
		{TypeByte, 1},
		{TypeShort, 2},
		{TypeUnsignedShort, 2},
		{TypeInt, 4},
		{TypeUnsignedInt, 4},
		{TypeFloat, 4},
		{TypeDouble, 8},
		{TypeNone, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, tt.t.Size())
	}
}
