package geoscene

import (
	"errors"
	"fmt"

	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/gpu"
)

// DrawMode names a draw strategy in configuration.
type DrawMode string

const (
	DrawMono     DrawMode = "mono"
	DrawAnaglyph DrawMode = "anaglyph"
)

var drawModes = map[DrawMode]struct{}{
	DrawMono:     {},
	DrawAnaglyph: {},
}

const (
	DefaultFocusAngle = 1.6
	DefaultMinPitch   = 20.0
)

// DrawStrategy runs the Draw phase of a frame. pass draws every layer once
// and drains the ordered queue; a strategy may call it more than once.
type DrawStrategy interface {
	Mode() DrawMode
	Draw(dc *frame.Context, pass func(dc *frame.Context)) error
}

// NewDrawStrategy builds the strategy named by mode.
func NewDrawStrategy(mode DrawMode, anaglyph AnaglyphConfig) (DrawStrategy, error) {
	switch mode {
	case DrawMono, "":
		return MonoDraw{}, nil
	case DrawAnaglyph:
		return &AnaglyphDraw{
			Stereo:     anaglyph.Stereo,
			FocusAngle: anaglyph.FocusAngle,
			MinPitch:   anaglyph.MinPitch,
		}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDrawMode, mode)
}

// MonoDraw draws once.
type MonoDraw struct{}

func (MonoDraw) Mode() DrawMode { return DrawMono }

func (MonoDraw) Draw(dc *frame.Context, pass func(*frame.Context)) error {
	pass(dc)
	return nil
}

// AnaglyphDraw draws the left eye into the red channel and the right eye,
// rotated by FocusAngle, into green and blue. It only does so while the view
// is steerable and pitched above MinPitch; otherwise it draws once.
type AnaglyphDraw struct {
	Stereo     bool
	FocusAngle float64
	MinPitch   float64
}

func (a *AnaglyphDraw) Mode() DrawMode { return DrawAnaglyph }

func (a *AnaglyphDraw) stereoView(dc *frame.Context) (frame.Steerable, bool) {
	if !a.Stereo || dc.View == nil {
		return nil, false
	}
	v, ok := dc.View.(frame.Steerable)
	if !ok || v.Pitch() <= a.MinPitch {
		return nil, false
	}
	return v, true
}

func (a *AnaglyphDraw) Draw(dc *frame.Context, pass func(*frame.Context)) (err error) {
	v, ok := a.stereoView(dc)
	if !ok {
		pass(dc)
		return nil
	}
	g := dc.GPU

	g.ColorMask(true, false, false, true)
	pass(dc)

	heading := v.Heading()
	defer func() {
		v.SetHeading(heading)
		err = errors.Join(err, dc.View.Apply(dc))
		g.ColorMask(true, true, true, true)
	}()

	v.SetHeading(heading - a.FocusAngle)
	if err := dc.View.Apply(dc); err != nil {
		return fmt.Errorf("apply right eye view: %w", err)
	}
	g.Clear(gpu.ClearDepthBuffer)
	g.Disable(gpu.Fog)
	g.ColorMask(false, true, true, true)
	pass(dc)
	return nil
}
