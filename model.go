package geoscene

import (
	"slices"

	"github.com/gekko3d/geoscene/render/frame"
)

// Model is what the controller draws: a globe, its layers in draw order, and
// the terrain diagnostics to overlay.
type Model struct {
	Globe  frame.Globe
	Layers []frame.Layer

	ShowWireframeInterior           bool
	ShowWireframeExterior           bool
	ShowTessellationBoundingVolumes bool
}

func NewModel(globe frame.Globe, layers ...frame.Layer) *Model {
	return &Model{Globe: globe, Layers: layers}
}

// ApplyDiagnostics copies the diagnostics flags from cfg.
func (m *Model) ApplyDiagnostics(cfg DiagnosticsConfig) {
	m.ShowWireframeInterior = cfg.WireframeInterior
	m.ShowWireframeExterior = cfg.WireframeExterior
	m.ShowTessellationBoundingVolumes = cfg.TessellationBounds
}

func (m *Model) AddLayer(l frame.Layer) {
	m.Layers = append(m.Layers, l)
}

func (m *Model) RemoveLayer(l frame.Layer) {
	m.Layers = slices.DeleteFunc(m.Layers, func(x frame.Layer) bool { return x == l })
}

// LayerByName returns the first layer called name.
func (m *Model) LayerByName(name string) (frame.Layer, bool) {
	for _, l := range m.Layers {
		if l != nil && l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

func (m *Model) showDiagnostics() bool {
	return m.ShowWireframeInterior || m.ShowWireframeExterior || m.ShowTessellationBoundingVolumes
}
