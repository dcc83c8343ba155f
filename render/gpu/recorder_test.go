package gpu

import (
	"image"
	"image/color"
	"testing"

	"github.com/gekko3d/geoscene/render/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopAttribRestoresSelectedGroups(t *testing.T) {
	r := NewRecorder(image.Rect(0, 0, 10, 10))
	r.PushAttrib(ColorBufferBit | DepthBufferBit)
	r.ColorMask(true, false, false, false)
	r.DepthMask(false)
	r.LineWidth(4)
	require.NoError(t, r.PopAttrib())

	assert.Equal(t, [4]bool{true, true, true, true}, r.Current.ColorWrite)
	assert.True(t, r.Current.DepthWrite)
	// LineBit was not pushed.
	assert.Equal(t, float32(4), r.Current.Width)
	assert.ErrorIs(t, r.PopAttrib(), ErrStackUnderflow)
}

func TestPopAttribAll(t *testing.T) {
	r := NewRecorder(image.Rect(0, 0, 10, 10))
	r.PushAttrib(AllAttribBits)
	r.Enable(Blend)
	r.Enable(Lighting)
	r.PolygonOffset(-2, -4)
	require.NoError(t, r.PopAttrib())
	assert.Equal(t, DefaultState(), r.Current)
}

func TestRecorderDraws(t *testing.T) {
	r := NewRecorder(image.Rect(0, 0, 10, 10))
	r.SetColor(color.RGBA{R: 1, A: 255})
	verts := make([]float32, 9)
	require.NoError(t, r.DrawElements(geom.ModeTriangles, 3, []uint32{0, 1, 2}, verts, nil))
	require.Len(t, r.Draws, 1)
	assert.Equal(t, 3, r.Draws[0].Vertices)
	assert.Equal(t, uint8(1), r.Draws[0].Color.R)

	assert.Error(t, r.DrawElements(geom.ModeTriangles, 3, []uint32{0, 1, 5}, verts, nil))
	assert.Error(t, r.DrawElements(geom.ModeTriangles, 4, []uint32{0, 1, 2}, verts, nil))
	assert.Equal(t, 1, r.Count("DrawElements"))
}

func TestRecorderReadPixel(t *testing.T) {
	r := NewRecorder(image.Rect(0, 0, 10, 10))
	r.Pixels[image.Pt(2, 3)] = color.RGBA{B: 9, A: 255}
	c, err := r.ReadPixel(2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), c.B)

	_, err = r.ReadPixel(10, 0)
	assert.ErrorIs(t, err, ErrOutOfViewport)
}

func TestMatrixStack(t *testing.T) {
	r := NewRecorder(image.Rect(0, 0, 1, 1))
	r.PushMatrices()
	m := r.ModelView()
	m[12] = 5
	r.LoadModelView(m)
	require.NoError(t, r.PopMatrices())
	assert.Equal(t, 0.0, r.ModelView()[12])
	assert.ErrorIs(t, r.PopMatrices(), ErrStackUnderflow)
}
