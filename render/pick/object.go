// Package pick implements colour-coded hit testing.
package pick

import (
	"fmt"
	"image/color"

	"github.com/gekko3d/geoscene/geo"
)

// Code packs the RGB channels of c into 0xRRGGBB.
func Code(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r>>8)<<16 | (g>>8)<<8 | b>>8
}

// CodeColor expands a code into an opaque colour.
func CodeColor(code uint32) color.RGBA {
	return color.RGBA{R: uint8(code >> 16), G: uint8(code >> 8), B: uint8(code), A: 0xff}
}

// Object is one candidate produced by a pick operation. Source is borrowed,
// never owned.
type Object struct {
	Code      uint32
	Source    any
	Position  *geo.Position
	OnTop     bool
	IsTerrain bool
	Layer     string
}

func NewObject(code uint32, source any) *Object {
	return &Object{Code: code, Source: source}
}

// NewTerrainObject marks a surface hit at pos.
func NewTerrainObject(code uint32, pos geo.Position) *Object {
	p := pos
	return &Object{Code: code, Source: &p, Position: &p, IsTerrain: true}
}

func (o *Object) String() string {
	if o.IsTerrain && o.Position != nil {
		return fmt.Sprintf("terrain %v %.1fm", o.Position.LatLon, o.Position.Elevation)
	}
	return fmt.Sprintf("%06x %v", o.Code, o.Source)
}

// List holds the objects picked in one operation, in insertion order.
type List struct {
	objects []*Object
}

func (l *List) Add(o *Object) {
	if o != nil {
		l.objects = append(l.objects, o)
	}
}

func (l *List) Len() int { return len(l.objects) }

func (l *List) All() []*Object { return l.objects }

func (l *List) At(i int) *Object { return l.objects[i] }

func (l *List) Clear() {
	clear(l.objects)
	l.objects = l.objects[:0]
}

// TopObject returns the object marked on-top, or nil.
func (l *List) TopObject() *Object {
	for _, o := range l.objects {
		if o.OnTop {
			return o
		}
	}
	return nil
}

func (l *List) TerrainObject() *Object {
	for _, o := range l.objects {
		if o.IsTerrain {
			return o
		}
	}
	return nil
}

func (l *List) HasNonTerrainObjects() bool {
	for _, o := range l.objects {
		if !o.IsTerrain {
			return true
		}
	}
	return false
}

// Copy returns an independent list sharing the same objects.
func (l *List) Copy() *List {
	return &List{objects: append([]*Object(nil), l.objects...)}
}
