// Package geoscene drives frames of a 3D globe scene: terrain, layers,
// deferred ordered renderables and colour-coded picking.
package geoscene

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/gekko3d/geoscene/render/pick"
	"github.com/go-gl/mathgl/mgl64"
)

// fpsInterval is how often the frame rate is recomputed.
const fpsInterval = 2 * time.Second

// Overlay is drawn and picked after the layers and before the ordered queue
// is drained.
type Overlay interface {
	Render(dc *frame.Context) error
	Pick(dc *frame.Context, pt image.Point) error
}

// CapacityReporter is any cache whose usage is reported in the statistics.
type CapacityReporter interface {
	UsedCapacity() int64
}

// SceneController runs frames through a fixed phase order:
// init, apply view, build terrain, pre-render, clear, pick, clear, draw,
// finalize. It is not safe for concurrent use; all calls must come from the
// goroutine that owns the GPU context.
type SceneController struct {
	log      Logger
	model    *Model
	view     frame.View
	gpu      gpu.Context
	caps     *frame.Capabilities
	strategy DrawStrategy
	overlay  Overlay

	cache        *geomcache.Cache
	textureCache CapacityReporter
	rng          *rand.Rand
	dc           *frame.Context

	verticalExaggeration float64
	clearColor           color.RGBA
	pickPoint            *image.Point

	lastPicked *pick.List
	lastStats  []frame.Statistic

	frames    int
	timebase  time.Time
	fps       float64
	frameTime time.Duration
	pickTime  time.Duration

	now func() time.Time
}

// NewSceneController builds a controller from cfg. A nil log discards
// output.
func NewSceneController(cfg Config, log Logger) (*SceneController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := NewDrawStrategy(cfg.DrawMode, cfg.Anaglyph)
	if err != nil {
		return nil, err
	}
	clearColor, err := cfg.ClearRGBA()
	if err != nil {
		return nil, err
	}
	sc := &SceneController{
		log:                  orNop(log),
		caps:                 &frame.Capabilities{},
		strategy:             strategy,
		cache:                geomcache.New(cfg.Cache.Capacity, cfg.Cache.LowWater),
		rng:                  rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		dc:                   frame.NewContext(),
		verticalExaggeration: cfg.VerticalExaggeration,
		clearColor:           clearColor,
		now:                  time.Now,
	}
	sc.cache.AddEvictionListener(func(k geomcache.Key, _ *geomcache.Entry) {
		sc.log.Debugf("geometry cache evicted %s", k)
	})
	sc.SetPerFrameStatisticsKeys(cfg.StatKeys()...)
	sc.timebase = sc.now()
	sc.log.Infof("Scene controller created (draw mode %s)", strategy.Mode())
	return sc, nil
}

func (sc *SceneController) Model() *Model          { return sc.model }
func (sc *SceneController) SetModel(m *Model)      { sc.model = m }
func (sc *SceneController) View() frame.View       { return sc.view }
func (sc *SceneController) SetView(v frame.View)   { sc.view = v }
func (sc *SceneController) GPU() gpu.Context       { return sc.gpu }
func (sc *SceneController) Overlay() Overlay       { return sc.overlay }
func (sc *SceneController) SetOverlay(o Overlay)   { sc.overlay = o }
func (sc *SceneController) Logger() Logger         { return sc.log }
func (sc *SceneController) ClearColor() color.RGBA { return sc.clearColor }

// SetGPU makes g the current GPU context. A nil context makes the next
// Repaint fail with ErrNoGPUContext.
func (sc *SceneController) SetGPU(g gpu.Context) { sc.gpu = g }

func (sc *SceneController) SetClearColor(c color.RGBA) { sc.clearColor = c }

func (sc *SceneController) VerticalExaggeration() float64 { return sc.verticalExaggeration }

func (sc *SceneController) SetVerticalExaggeration(ve float64) {
	sc.verticalExaggeration = ve
}

// GeometryCache is shared by every airspace drawn through this controller.
func (sc *SceneController) GeometryCache() *geomcache.Cache { return sc.cache }

func (sc *SceneController) SetTextureCache(c CapacityReporter) { sc.textureCache = c }

// DrawContext exposes the per-frame context. It is only meaningful during a
// frame.
func (sc *SceneController) DrawContext() *frame.Context { return sc.dc }

func (sc *SceneController) DrawStrategy() DrawStrategy { return sc.strategy }

// SetDrawStrategy swaps the Draw phase variant.
func (sc *SceneController) SetDrawStrategy(s DrawStrategy) error {
	if s == nil {
		return ErrNilDrawStrategy
	}
	if sc.strategy != nil && sc.strategy.Mode() != s.Mode() {
		sc.log.Infof("Draw strategy changed: %s -> %s", sc.strategy.Mode(), s.Mode())
	}
	sc.strategy = s
	return nil
}

func (sc *SceneController) Capabilities() *frame.Capabilities { return sc.caps }

func (sc *SceneController) SetCapabilities(c *frame.Capabilities) error {
	if c == nil {
		sc.log.Errorf("SetCapabilities: %v", ErrNilCapabilities)
		return ErrNilCapabilities
	}
	sc.caps = c
	return nil
}

// SetPickPoint sets the screen point (origin top-left) to pick at on the
// next frame. nil disables object picking.
func (sc *SceneController) SetPickPoint(pt *image.Point) {
	if pt == nil {
		sc.pickPoint = nil
		return
	}
	p := *pt
	sc.pickPoint = &p
}

func (sc *SceneController) PickPoint() *image.Point { return sc.pickPoint }

// Pick sets the pick point and runs a frame.
func (sc *SceneController) Pick(pt image.Point) (*pick.List, error) {
	sc.SetPickPoint(&pt)
	if _, err := sc.Repaint(); err != nil {
		return nil, err
	}
	return sc.lastPicked, nil
}

// PickedObjectList is the result of the last pick, or nil when the last
// frame had no pick point or its pick failed.
func (sc *SceneController) PickedObjectList() *pick.List { return sc.lastPicked }

// Terrain is the surface tessellated for the last frame.
func (sc *SceneController) Terrain() frame.Terrain { return sc.dc.Terrain }

func (sc *SceneController) FramesPerSecond() float64 { return sc.fps }
func (sc *SceneController) FrameTime() time.Duration { return sc.frameTime }
func (sc *SceneController) PickTime() time.Duration  { return sc.pickTime }

// SetPerFrameStatisticsKeys replaces the requested statistics. Empty keys
// are ignored.
func (sc *SceneController) SetPerFrameStatisticsKeys(keys ...frame.StatKey) {
	kept := keys[:0:0]
	for _, k := range keys {
		if k != "" {
			kept = append(kept, k)
		}
	}
	sc.dc.Stats.Request(kept...)
}

// PerFrameStatistics returns the statistics of the last frame, sorted by
// key.
func (sc *SceneController) PerFrameStatistics() []frame.Statistic {
	return append([]frame.Statistic(nil), sc.lastStats...)
}

// Reinitialize drops GPU-derived state after the context was recreated.
func (sc *SceneController) Reinitialize() {
	sc.cache.Clear()
	if sc.gpu != nil {
		sc.caps.Initialize(sc.gpu)
	}
	sc.log.Infof("Scene controller reinitialized")
}

// Dispose releases cached geometry and the last pick result.
func (sc *SceneController) Dispose() {
	if sc.lastPicked != nil {
		sc.lastPicked.Clear()
	}
	sc.lastPicked = nil
	sc.lastStats = nil
	sc.dc.DiscardOrdered()
	sc.cache.Clear()
}

// Repaint runs one frame and returns the delay the driver should wait before
// the next one; zero means no particular request. A missing GPU context
// aborts the frame with ErrNoGPUContext.
func (sc *SceneController) Repaint() (time.Duration, error) {
	start := sc.now()
	if sc.gpu != nil {
		sc.caps.Initialize(sc.gpu)
	}
	dc := sc.initializeDrawContext(start)
	if err := sc.doRepaint(dc); err != nil {
		return 0, err
	}

	sc.frames++
	now := sc.now()
	sc.frameTime = now.Sub(start)
	if elapsed := now.Sub(sc.timebase); elapsed > fpsInterval {
		sc.fps = float64(sc.frames) * 1000 / float64(elapsed.Milliseconds())
		sc.timebase = now
		sc.frames = 0
	}

	dc.SetPerFrameStatistic(frame.StatFrameTime, "Frame Time (ms)", int(sc.frameTime.Milliseconds()))
	dc.SetPerFrameStatistic(frame.StatFrameRate, "Frame Rate (fps)", int(sc.fps))
	dc.SetPerFrameStatistic(frame.StatPickTime, "Pick Time (ms)", int(sc.pickTime.Milliseconds()))
	sc.setCacheStatistics(dc)
	sc.lastStats = dc.Stats.All()
	return dc.RedrawRequested(), nil
}

func (sc *SceneController) initializeDrawContext(start time.Time) *frame.Context {
	dc := sc.dc
	dc.ClearColor = sc.clearColor
	dc.Reset(start.UnixMilli())
	dc.GPU = sc.gpu
	dc.Capabilities = sc.caps
	dc.Log = sc.log
	dc.GeometryCache = sc.cache
	dc.Rand = sc.rng
	dc.View = sc.view
	dc.VerticalExaggeration = sc.verticalExaggeration
	dc.Globe, dc.Layers = nil, nil
	if sc.model != nil {
		dc.Globe = sc.model.Globe
		dc.Layers = sc.model.Layers
	}
	if sc.pickPoint != nil {
		p := *sc.pickPoint
		dc.PickPoint = &p
	}
	dc.ViewportCenterScreenPoint = viewportCenter(dc.View)
	return dc
}

func viewportCenter(v frame.View) *image.Point {
	if v == nil {
		return nil
	}
	vp := v.Viewport()
	if vp.Empty() {
		return nil
	}
	cx := float64(vp.Min.X) + float64(vp.Dx())/2
	cy := float64(vp.Min.Y) + float64(vp.Dy())/2
	return &image.Point{X: int(cx + 0.5), Y: int(cy + 0.5)}
}

func (sc *SceneController) doRepaint(dc *frame.Context) error {
	if err := sc.initializeFrame(dc); err != nil {
		return err
	}
	defer sc.finalizeFrame(dc)

	sc.applyView(dc)
	sc.createTerrain(dc)
	sc.preRender(dc)
	sc.clearFrame(dc)
	sc.pick(dc)
	sc.clearFrame(dc)
	if err := guard(func() error { return sc.strategy.Draw(dc, sc.draw) }); err != nil {
		sc.log.Errorf("draw: %v", err)
	}
	if n := dc.DiscardOrdered(); n > 0 {
		sc.log.Errorf("draw left %d ordered renderables queued", n)
	}
	return nil
}

func (sc *SceneController) initializeFrame(dc *frame.Context) error {
	if dc.GPU == nil {
		sc.log.Errorf("Repaint: %v", ErrNoGPUContext)
		return ErrNoGPUContext
	}
	g := dc.GPU
	g.PushAttrib(gpu.EnableBit | gpu.TransformBit)
	g.PushMatrices()
	g.LoadModelView(mgl64.Ident4())
	g.LoadProjection(mgl64.Ident4())
	g.Enable(gpu.DepthTest)
	return nil
}

func (sc *SceneController) finalizeFrame(dc *frame.Context) {
	if err := errors.Join(dc.GPU.PopMatrices(), dc.GPU.PopAttrib()); err != nil {
		sc.log.Errorf("finalize frame: %v", err)
	}
}

func (sc *SceneController) clearFrame(dc *frame.Context) {
	dc.GPU.SetClearColor(dc.ClearColor)
	dc.GPU.Clear(gpu.ClearColorBuffer | gpu.ClearDepthBuffer)
}

func (sc *SceneController) applyView(dc *frame.Context) {
	if dc.View == nil {
		return
	}
	if err := guard(func() error { return dc.View.Apply(dc) }); err != nil {
		sc.log.Errorf("apply view: %v", err)
	}
}

func (sc *SceneController) createTerrain(dc *frame.Context) {
	if dc.Terrain == nil && dc.Globe != nil {
		err := guard(func() error {
			t, err := dc.Globe.Tessellate(dc)
			dc.Terrain = t
			return err
		})
		if err != nil {
			sc.log.Errorf("tessellate: %v", err)
			dc.Terrain = nil
		}
	}
	if dc.Terrain == nil {
		sc.log.Warnf("No surface geometry this frame")
		dc.SetPerFrameStatistic(frame.StatTerrainTileCount, "Terrain Tiles", 0)
		return
	}
	dc.SetPerFrameStatistic(frame.StatTerrainTileCount, "Terrain Tiles", dc.Terrain.Len())
}

func (sc *SceneController) preRender(dc *frame.Context) {
	for _, l := range dc.Layers {
		if l == nil || !l.Enabled() {
			continue
		}
		if err := guard(func() error { return l.PreRender(dc) }); err != nil {
			sc.log.Errorf("Layer %q pre-render: %v", l.Name(), err)
		}
	}
}

// pick always leaves picking mode off and records the pick time. Any failure
// leaves the frame without a pick result.
func (sc *SceneController) pick(dc *frame.Context) {
	start := sc.now()
	sc.lastPicked = nil
	dc.EnablePickingMode()
	defer func() {
		dc.DisablePickingMode()
		if n := dc.DiscardOrdered(); n > 0 {
			sc.log.Warnf("Discarded %d ordered renderables left by pick", n)
		}
		sc.pickTime = sc.now().Sub(start)
	}()

	err := guard(func() error {
		sc.pickTerrain(dc)
		if dc.PickPoint == nil {
			return nil
		}
		pt := *dc.PickPoint
		sc.pickLayers(dc, pt)
		if sc.overlay != nil {
			if err := sc.overlay.Pick(dc, pt); err != nil {
				return fmt.Errorf("overlay: %w", err)
			}
		}
		for {
			o, ok := dc.PollOrdered()
			if !ok {
				break
			}
			if err := o.Pick(dc, pt); err != nil {
				return fmt.Errorf("ordered %s: %w", o.Kind, err)
			}
		}
		if err := sc.resolveTopPick(dc); err != nil {
			return err
		}
		sc.lastPicked = dc.PickedObjects().Copy()
		return nil
	})
	if err != nil {
		sc.log.Errorf("pick: %v", err)
		sc.lastPicked = nil
	}
}

// pickTerrain intersects the pick point and the viewport centre with the
// surface. Only the pick point hit becomes a picked object.
func (sc *SceneController) pickTerrain(dc *frame.Context) {
	if !dc.IsPickingMode() || dc.Terrain == nil || dc.Terrain.Len() == 0 {
		return
	}
	dc.ViewportCenterPosition = nil
	var pts []image.Point
	if dc.PickPoint != nil {
		pts = append(pts, *dc.PickPoint)
	}
	if vpc := dc.ViewportCenterScreenPoint; vpc != nil {
		pts = append(pts, *vpc)
	}
	if len(pts) == 0 {
		return
	}
	for i, po := range dc.Terrain.Pick(dc, pts) {
		if po == nil {
			continue
		}
		if i == 0 && dc.PickPoint != nil {
			dc.AddPickedObject(po)
		} else {
			dc.ViewportCenterPosition = po.Position
		}
	}
}

func (sc *SceneController) pickLayers(dc *frame.Context, pt image.Point) {
	for _, l := range dc.Layers {
		if l == nil || !l.Enabled() || !l.PickEnabled() {
			continue
		}
		if err := guard(func() error { return l.Pick(dc, pt) }); err != nil {
			sc.log.Errorf("Layer %q pick: %v", l.Name(), err)
		}
	}
}

// resolveTopPick marks at most one picked object on top. A single object is
// on top outright; otherwise the colour under the pick point decides and the
// first object with that code wins.
func (sc *SceneController) resolveTopPick(dc *frame.Context) error {
	list := dc.PickedObjects()
	switch {
	case list.Len() == 1:
		list.At(0).OnTop = true
	case list.Len() > 1:
		x, y := pick.FramebufferPoint(dc.Viewport(), *dc.PickPoint)
		c, err := dc.GPU.ReadPixel(x, y)
		if err != nil {
			return fmt.Errorf("read top pick colour: %w", err)
		}
		code := pick.Code(c)
		if code == 0 {
			return nil
		}
		for _, o := range list.All() {
			if o.Code == code {
				o.OnTop = true
				break
			}
		}
	}
	return nil
}

// draw is one pass of the Draw phase.
func (sc *SceneController) draw(dc *frame.Context) {
	for _, l := range dc.Layers {
		if l == nil || !l.Enabled() {
			continue
		}
		if err := guard(func() error { return l.Render(dc) }); err != nil {
			sc.log.Errorf("Layer %q render: %v", l.Name(), err)
		}
	}
	if sc.overlay != nil {
		if err := guard(func() error { return sc.overlay.Render(dc) }); err != nil {
			sc.log.Errorf("overlay render: %v", err)
		}
	}
	for {
		o, ok := dc.PollOrdered()
		if !ok {
			break
		}
		if err := guard(func() error { return o.Render(dc) }); err != nil {
			sc.log.Errorf("ordered %s render: %v", o.Kind, err)
		}
	}
	if err := guard(func() error { return sc.drawDiagnostics(dc) }); err != nil {
		sc.log.Errorf("diagnostics: %v", err)
	}
}

func (sc *SceneController) drawDiagnostics(dc *frame.Context) error {
	m := sc.model
	if dc.Terrain == nil || m == nil || !m.showDiagnostics() {
		return nil
	}
	g := dc.GPU
	g.PushAttrib(gpu.CurrentBit)
	var errs []error
	if m.ShowWireframeInterior || m.ShowWireframeExterior {
		errs = append(errs, dc.Terrain.RenderWireframe(dc, m.ShowWireframeInterior, m.ShowWireframeExterior))
	}
	if m.ShowTessellationBoundingVolumes {
		g.SetColor(color.RGBA{R: 0xff, A: 0xff})
		errs = append(errs, dc.Terrain.RenderBoundingVolumes(dc))
	}
	errs = append(errs, g.PopAttrib())
	return errors.Join(errs...)
}
