package airspace

import (
	"image"
	"slices"

	"github.com/gekko3d/geoscene/render/frame"
)

// Layer is a frame layer holding airspaces drawn by one Renderer.
type Layer struct {
	name        string
	enabled     bool
	pickEnabled bool
	// DrawOrdered defers drawing to the ordered queue instead of drawing
	// during the layer pass.
	DrawOrdered bool

	renderer  *Renderer
	airspaces []Airspace
}

func NewLayer(name string) *Layer {
	return &Layer{
		name:        name,
		enabled:     true,
		pickEnabled: true,
		DrawOrdered: true,
		renderer:    NewRenderer(),
	}
}

func (l *Layer) Name() string              { return l.name }
func (l *Layer) Enabled() bool             { return l.enabled }
func (l *Layer) SetEnabled(v bool)         { l.enabled = v }
func (l *Layer) PickEnabled() bool         { return l.pickEnabled }
func (l *Layer) SetPickEnabled(v bool)     { l.pickEnabled = v }
func (l *Layer) Renderer() *Renderer       { return l.renderer }
func (l *Layer) Airspaces() []Airspace     { return l.airspaces }
func (l *Layer) Add(airspaces ...Airspace) { l.airspaces = append(l.airspaces, airspaces...) }

func (l *Layer) Remove(a Airspace) {
	l.airspaces = slices.DeleteFunc(l.airspaces, func(x Airspace) bool { return x == a })
}

func (l *Layer) Clear() {
	l.airspaces = nil
}

func (l *Layer) PreRender(*frame.Context) error { return nil }

func (l *Layer) Render(dc *frame.Context) error {
	if l.DrawOrdered {
		l.renderer.RenderOrdered(dc, l.airspaces, l.name)
		return nil
	}
	return l.renderer.RenderNow(dc, l.airspaces)
}

func (l *Layer) Pick(dc *frame.Context, pt image.Point) error {
	if l.DrawOrdered {
		l.renderer.PickOrdered(dc, l.airspaces, l.name)
		return nil
	}
	return l.renderer.PickNow(dc, l.airspaces, pt, l.name)
}
