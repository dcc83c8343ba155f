// Package frame holds the per-frame drawing context and the collaborator
// interfaces the scene controller drives.
package frame

import (
	"image"
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/gekko3d/geoscene/render/ordered"
	"github.com/gekko3d/geoscene/render/pick"
	"github.com/go-gl/mathgl/mgl64"
)

// Context is built by the scene controller at the start of a frame and passed
// by reference through every phase. Nothing may retain it after the frame.
type Context struct {
	GPU     gpu.Context
	Globe   Globe
	View    View
	Layers  []Layer
	Terrain Terrain
	Log     Logger

	GeometryCache *geomcache.Cache
	Rand          *rand.Rand
	Capabilities  *Capabilities

	VerticalExaggeration float64
	ClearColor           color.RGBA
	// FrameTimestamp is the frame start in unix milliseconds.
	FrameTimestamp int64

	PickPoint                 *image.Point
	ViewportCenterScreenPoint *image.Point
	ViewportCenterPosition    *geo.Position

	Stats *Statistics

	picking    bool
	redraw     time.Duration
	queue      *ordered.Queue[Ordered]
	picked     pick.List
	pickColors *pick.ColorGenerator
}

func NewContext() *Context {
	return &Context{
		VerticalExaggeration: 1,
		Stats:                NewStatistics(),
		queue:                ordered.New[Ordered](),
		pickColors:           pick.NewColorGenerator(0),
	}
}

// Reset prepares the context for a new frame. Requested statistic keys are
// kept.
func (dc *Context) Reset(timestamp int64) {
	dc.FrameTimestamp = timestamp
	dc.Terrain = nil
	dc.PickPoint = nil
	dc.ViewportCenterScreenPoint = nil
	dc.ViewportCenterPosition = nil
	dc.picking = false
	dc.redraw = 0
	dc.queue.Clear()
	dc.picked.Clear()
	dc.pickColors.Reset(pick.Code(dc.ClearColor))
	dc.Stats.Reset()
}

func (dc *Context) IsPickingMode() bool { return dc.picking }
func (dc *Context) EnablePickingMode()  { dc.picking = true }
func (dc *Context) DisablePickingMode() { dc.picking = false }

// RequestRedraw asks the driver for another frame within d. The shortest
// request of the frame wins; zero means no request.
func (dc *Context) RequestRedraw(d time.Duration) {
	if d <= 0 {
		return
	}
	if dc.redraw == 0 || d < dc.redraw {
		dc.redraw = d
	}
}

func (dc *Context) RedrawRequested() time.Duration { return dc.redraw }

func (dc *Context) AddOrderedRenderable(o Ordered) {
	dc.queue.Add(o)
}

func (dc *Context) PeekOrdered() (Ordered, bool) { return dc.queue.Peek() }
func (dc *Context) PollOrdered() (Ordered, bool) { return dc.queue.Poll() }
func (dc *Context) OrderedLen() int              { return dc.queue.Len() }

// DiscardOrdered empties the queue and returns how many items were dropped.
func (dc *Context) DiscardOrdered() int {
	n := dc.queue.Len()
	dc.queue.Clear()
	return n
}

func (dc *Context) AddPickedObject(o *pick.Object) {
	dc.picked.Add(o)
}

func (dc *Context) PickedObjects() *pick.List { return &dc.picked }

// UniquePickColor returns a colour not yet used this frame and never equal to
// the clear colour.
func (dc *Context) UniquePickColor() color.RGBA {
	return pick.CodeColor(dc.pickColors.Next())
}

func (dc *Context) SetPerFrameStatistic(key StatKey, name string, value any) {
	dc.Stats.Set(key, name, value)
}

// Capabilities records optional features of the GPU context. The scene
// controller refreshes it before every frame.
type Capabilities struct {
	BlendFuncSeparate bool
}

// Initialize queries g for each optional feature.
func (c *Capabilities) Initialize(g gpu.Context) {
	c.BlendFuncSeparate = g.HasExtension(gpu.ExtBlendFuncSeparate)
}

// SupportsBlendFuncSeparate falls back to asking the GPU when no
// capabilities were attached.
func (dc *Context) SupportsBlendFuncSeparate() bool {
	if dc.Capabilities != nil {
		return dc.Capabilities.BlendFuncSeparate
	}
	return dc.GPU != nil && dc.GPU.HasExtension(gpu.ExtBlendFuncSeparate)
}

// Viewport is the current view's viewport, or the GPU viewport when no view
// is set.
func (dc *Context) Viewport() image.Rectangle {
	if dc.View != nil {
		return dc.View.Viewport()
	}
	if dc.GPU != nil {
		return dc.GPU.Viewport()
	}
	return image.Rectangle{}
}

// PushReferenceCenter loads the view's modelview translated to center so that
// geometry relative to center keeps float32 precision.
func (dc *Context) PushReferenceCenter(center mgl64.Vec3) {
	dc.GPU.PushMatrices()
	mv := dc.View.ModelView().Mul4(mgl64.Translate3D(center[0], center[1], center[2]))
	dc.GPU.LoadModelView(mv)
}

func (dc *Context) PopReferenceCenter() error {
	return dc.GPU.PopMatrices()
}

// Warnf, Errorf and Debugf tolerate a nil logger.
func (dc *Context) Warnf(format string, args ...any) {
	if dc.Log != nil {
		dc.Log.Warnf(format, args...)
	}
}

func (dc *Context) Errorf(format string, args ...any) {
	if dc.Log != nil {
		dc.Log.Errorf(format, args...)
	}
}

func (dc *Context) Debugf(format string, args ...any) {
	if dc.Log != nil {
		dc.Log.Debugf(format, args...)
	}
}
