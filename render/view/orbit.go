// Package view implements an orbiting camera around a point on the globe.
package view

import (
	"errors"
	"image"
	"math"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/frame"
	"github.com/go-gl/mathgl/mgl64"
)

var ErrNilGlobe = errors.New("view: nil globe")

const (
	DefaultFieldOfView = 45.0
	minNearDistance    = 1.0
)

// Orbit looks at Center from Range meters away, rotated by Heading clockwise
// from north and tilted by Pitch from straight down. Angles are degrees.
type Orbit struct {
	globe frame.Globe

	center      geo.Position
	heading     float64
	pitch       float64
	rng         float64
	fieldOfView float64
	viewport    image.Rectangle

	eye        mgl64.Vec3
	modelView  mgl64.Mat4
	projection mgl64.Mat4
	frustum    frame.Frustum
}

func NewOrbit(globe frame.Globe, center geo.Position, rangeMeters float64, viewport image.Rectangle) (*Orbit, error) {
	if globe == nil {
		return nil, ErrNilGlobe
	}
	o := &Orbit{
		globe:       globe,
		center:      center,
		rng:         rangeMeters,
		fieldOfView: DefaultFieldOfView,
		viewport:    viewport,
	}
	o.update()
	return o, nil
}

func (o *Orbit) Center() geo.Position { return o.center }
func (o *Orbit) Heading() float64     { return o.heading }
func (o *Orbit) Pitch() float64       { return o.pitch }
func (o *Orbit) Range() float64       { return o.rng }
func (o *Orbit) FieldOfView() float64 { return o.fieldOfView }

func (o *Orbit) SetCenter(p geo.Position) { o.center = p; o.update() }
func (o *Orbit) SetHeading(deg float64)   { o.heading = deg; o.update() }

// SetPitch clamps to [0, 90].
func (o *Orbit) SetPitch(deg float64) {
	o.pitch = math.Max(0, math.Min(90, deg))
	o.update()
}

func (o *Orbit) SetRange(m float64) {
	o.rng = math.Max(minNearDistance, m)
	o.update()
}

func (o *Orbit) SetFieldOfView(deg float64) {
	if deg > 0 && deg < 180 {
		o.fieldOfView = deg
		o.update()
	}
}

func (o *Orbit) SetViewport(r image.Rectangle) { o.viewport = r; o.update() }

func (o *Orbit) Viewport() image.Rectangle { return o.viewport }
func (o *Orbit) EyePoint() mgl64.Vec3      { return o.eye }
func (o *Orbit) ModelView() mgl64.Mat4     { return o.modelView }
func (o *Orbit) Projection() mgl64.Mat4    { return o.projection }
func (o *Orbit) Frustum() frame.Frustum    { return o.frustum }
func (o *Orbit) EyePosition() geo.Position { return o.globe.ComputePositionFromPoint(o.eye) }

// Apply recomputes the matrices and loads them into the GPU context.
func (o *Orbit) Apply(dc *frame.Context) error {
	if o.globe == nil {
		return ErrNilGlobe
	}
	o.update()
	if dc.GPU != nil {
		dc.GPU.SetViewport(o.viewport)
		dc.GPU.LoadProjection(o.projection)
		dc.GPU.LoadModelView(o.modelView)
	}
	return nil
}

// ComputePixelSizeAtDistance is the model-space size of one pixel d meters
// from the eye.
func (o *Orbit) ComputePixelSizeAtDistance(d float64) float64 {
	h := o.viewport.Dy()
	if h <= 0 {
		return 0
	}
	return 2 * math.Abs(d) * math.Tan(mgl64.DegToRad(o.fieldOfView)/2) / float64(h)
}

// ScreenRay unprojects a screen point (origin top-left) into a model ray
// starting at the eye.
func (o *Orbit) ScreenRay(pt image.Point) (mgl64.Vec3, mgl64.Vec3) {
	w, h := o.viewport.Dx(), o.viewport.Dy()
	win := mgl64.Vec3{float64(pt.X), float64(h - pt.Y - 1), 1}
	far, err := mgl64.UnProject(win, o.modelView, o.projection, 0, 0, w, h)
	if err != nil {
		return o.eye, o.centerPoint().Sub(o.eye).Normalize()
	}
	return o.eye, far.Sub(o.eye).Normalize()
}

func (o *Orbit) centerPoint() mgl64.Vec3 {
	return o.globe.ComputePointFromPosition(o.center)
}

func (o *Orbit) update() {
	if o.globe == nil {
		return
	}
	c := o.centerPoint()
	up := o.globe.SurfaceNormalAtPoint(c)
	north := mgl64.Vec3{0, 1, 0}.Sub(up.Mul(up[1]))
	if north.Len() < 1e-9 {
		north = mgl64.Vec3{0, 0, -1}
	}
	north = north.Normalize()
	east := north.Cross(up)

	h, p := mgl64.DegToRad(o.heading), mgl64.DegToRad(o.pitch)
	forward := north.Mul(math.Cos(h)).Add(east.Mul(math.Sin(h)))
	back := up.Mul(math.Cos(p)).Sub(forward.Mul(math.Sin(p)))
	o.eye = c.Add(back.Mul(o.rng))
	camUp := forward.Mul(math.Cos(p)).Add(up.Mul(math.Sin(p)))
	o.modelView = mgl64.LookAtV(o.eye, c, camUp)

	aspect := 1.0
	if o.viewport.Dy() > 0 {
		aspect = float64(o.viewport.Dx()) / float64(o.viewport.Dy())
	}
	near, far := o.clipDistances()
	o.projection = mgl64.Perspective(mgl64.DegToRad(o.fieldOfView), aspect, near, far)
	o.frustum = frame.FrustumFromMatrix(o.projection.Mul4(o.modelView))
}

// clipDistances keeps the near plane close to the surface and the far plane
// past the horizon.
func (o *Orbit) clipDistances() (float64, float64) {
	r := o.globe.EquatorialRadius()
	alt := math.Max(o.eye.Len()-r, minNearDistance)
	horizon := math.Sqrt(2*r*alt + alt*alt)
	near := math.Max(minNearDistance, alt/4)
	far := math.Max(horizon+o.rng, near*2)
	return near, far
}
