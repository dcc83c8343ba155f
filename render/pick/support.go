package pick

import (
	"image"
	"image/color"
)

// PixelReader reads back a single colour from the framebuffer. Coordinates
// are in framebuffer space, origin bottom-left.
type PixelReader interface {
	ReadPixel(x, y int) (color.RGBA, error)
}

// Support collects pick candidates drawn with unique colours and resolves the
// one under the pick point.
type Support struct {
	candidates map[uint32]*Object
}

func NewSupport() *Support {
	return &Support{candidates: make(map[uint32]*Object)}
}

func (s *Support) Clear() {
	clear(s.candidates)
}

func (s *Support) Len() int { return len(s.candidates) }

// AddPickableObject registers source under the colour code it is drawn with.
func (s *Support) AddPickableObject(code uint32, source any) *Object {
	o := NewObject(code, source)
	s.candidates[code] = o
	return o
}

func (s *Support) AddObject(o *Object) {
	s.candidates[o.Code] = o
}

// TopObject reads the pixel at pt (screen space, origin top-left) and returns
// the candidate drawn there.
func (s *Support) TopObject(r PixelReader, viewport image.Rectangle, pt image.Point) (*Object, error) {
	if len(s.candidates) == 0 {
		return nil, nil
	}
	x, y := FramebufferPoint(viewport, pt)
	c, err := r.ReadPixel(x, y)
	if err != nil {
		return nil, err
	}
	code := Code(c)
	if code == 0 {
		return nil, nil
	}
	return s.candidates[code], nil
}

// Resolve finds the top candidate at pt, hands it to add, and clears the
// candidate table. It returns the resolved object or nil.
func (s *Support) Resolve(r PixelReader, viewport image.Rectangle, pt image.Point, layer string, add func(*Object)) (*Object, error) {
	defer s.Clear()
	o, err := s.TopObject(r, viewport, pt)
	if err != nil || o == nil {
		return nil, err
	}
	o.Layer = layer
	add(o)
	return o, nil
}

// FramebufferPoint converts a top-left screen point to bottom-left
// framebuffer coordinates.
func FramebufferPoint(viewport image.Rectangle, pt image.Point) (int, int) {
	return pt.X, viewport.Dy() - pt.Y - 1
}
