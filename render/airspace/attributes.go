// Package airspace draws volumetric overlays over the globe with cached,
// level-of-detail tessellation.
package airspace

import (
	"image/color"

	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

// Attributes control how an airspace's interior and outline are shaded.
type Attributes struct {
	DrawInterior bool
	DrawOutline  bool

	InteriorColor   color.RGBA
	InteriorOpacity float64
	OutlineColor    color.RGBA
	OutlineOpacity  float64
	OutlineWidth    float32
}

func DefaultAttributes() Attributes {
	return Attributes{
		DrawInterior:    true,
		DrawOutline:     false,
		InteriorColor:   colornames.Lightgray,
		InteriorOpacity: 1,
		OutlineColor:    colornames.Black,
		OutlineOpacity:  1,
		OutlineWidth:    1,
	}
}

// ApplyInterior sets the current colour, and the material when lit.
func (a Attributes) ApplyInterior(g gpu.Context, lit bool) {
	c := withOpacity(a.InteriorColor, a.InteriorOpacity)
	if lit {
		g.SetMaterial(materialFor(c))
	}
	g.SetColor(c)
}

// ApplyOutline sets the outline colour and line width.
func (a Attributes) ApplyOutline(g gpu.Context, lit bool) {
	c := withOpacity(a.OutlineColor, a.OutlineOpacity)
	if lit {
		g.SetMaterial(materialFor(c))
	}
	g.SetColor(c)
	g.LineWidth(a.OutlineWidth)
}

func withOpacity(c color.RGBA, opacity float64) color.RGBA {
	switch {
	case opacity < 0:
		opacity = 0
	case opacity > 1:
		opacity = 1
	}
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c
}

func materialFor(c color.RGBA) gpu.Material {
	diffuse := rgbaVec(c)
	return gpu.Material{
		Ambient:   diffuse.Mul(0.2),
		Diffuse:   diffuse,
		Specular:  mgl32.Vec4{0, 0, 0, diffuse[3]},
		Shininess: 0,
	}
}

func rgbaVec(c color.RGBA) mgl32.Vec4 {
	return mgl32.Vec4{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}
