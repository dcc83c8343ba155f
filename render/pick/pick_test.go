package pick

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gekko3d/geoscene/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pixels struct {
	at    map[image.Point]color.RGBA
	reads []image.Point
	err   error
}

func (p *pixels) ReadPixel(x, y int) (color.RGBA, error) {
	p.reads = append(p.reads, image.Pt(x, y))
	return p.at[image.Pt(x, y)], p.err
}

func TestCodeRoundTrip(t *testing.T) {
	assert.Equal(t, uint32(0x123456), Code(CodeColor(0x123456)))
	assert.Equal(t, uint32(0), Code(color.RGBA{A: 0xff}))
}

func TestColorGeneratorSkipsClearColor(t *testing.T) {
	g := NewColorGenerator(2)
	assert.Equal(t, uint32(1), g.Next())
	assert.Equal(t, uint32(3), g.Next())
	assert.Equal(t, uint32(4), g.Next())
}

func TestColorGeneratorWraps(t *testing.T) {
	g := NewColorGenerator(1)
	g.next = MaxCode - 1
	assert.Equal(t, MaxCode, g.Next())
	// wraps to 1, which is the clear colour, so 2.
	assert.Equal(t, uint32(2), g.Next())

	g.Reset(0)
	assert.Equal(t, uint32(1), g.Next())
}

func TestSupportResolvesCandidateUnderPoint(t *testing.T) {
	vp := image.Rect(0, 0, 100, 50)
	px := &pixels{at: map[image.Point]color.RGBA{
		image.Pt(10, 39): CodeColor(7),
	}}
	s := NewSupport()
	s.AddPickableObject(5, "five")
	s.AddPickableObject(7, "seven")

	var got []*Object
	o, err := s.Resolve(px, vp, image.Pt(10, 10), "airspaces", func(o *Object) { got = append(got, o) })
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "seven", o.Source)
	assert.Equal(t, "airspaces", o.Layer)
	assert.Len(t, got, 1)
	assert.Equal(t, []image.Point{image.Pt(10, 39)}, px.reads)
	assert.Equal(t, 0, s.Len())
}

func TestSupportNoCandidatesSkipsReadback(t *testing.T) {
	px := &pixels{}
	o, err := NewSupport().TopObject(px, image.Rect(0, 0, 10, 10), image.Pt(1, 1))
	assert.NoError(t, err)
	assert.Nil(t, o)
	assert.Empty(t, px.reads)
}

func TestSupportReadError(t *testing.T) {
	px := &pixels{err: errors.New("lost device")}
	s := NewSupport()
	s.AddPickableObject(1, "x")
	_, err := s.Resolve(px, image.Rect(0, 0, 10, 10), image.Pt(1, 1), "", func(*Object) {})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestListQueries(t *testing.T) {
	var l List
	l.Add(NewTerrainObject(0, geo.NewPosition(geo.FromDegrees(1, 2), 3)))
	assert.False(t, l.HasNonTerrainObjects())
	l.Add(NewObject(9, "shape"))
	l.Add(nil)

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.HasNonTerrainObjects())
	require.NotNil(t, l.TerrainObject())
	assert.Nil(t, l.TopObject())

	l.At(1).OnTop = true
	assert.Equal(t, "shape", l.TopObject().Source)

	cp := l.Copy()
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 2, cp.Len())
}
