package frame

import (
	"image"
	"math"

	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/gekko3d/geoscene/render/pick"
	"github.com/go-gl/mathgl/mgl64"
)

// Logger is the logging surface frame collaborators use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Layer contributes work to each frame. Hooks return an error instead of
// aborting; the controller logs it and moves on to the next layer.
type Layer interface {
	Name() string
	Enabled() bool
	PickEnabled() bool
	PreRender(dc *Context) error
	Render(dc *Context) error
	Pick(dc *Context, pt image.Point) error
}

// Globe maps geographic positions to model coordinates and tessellates the
// visible surface.
type Globe interface {
	Tessellate(dc *Context) (Terrain, error)
	ComputePointFromPosition(p geo.Position) mgl64.Vec3
	ComputePositionFromPoint(p mgl64.Vec3) geo.Position
	SurfaceNormalAtPoint(p mgl64.Vec3) mgl64.Vec3
	Elevation(ll geo.LatLon) float64
	EquatorialRadius() float64
	// StateKey changes whenever cached geometry derived from the globe must
	// be rebuilt.
	StateKey(dc *Context) geomcache.StateToken
}

// Terrain is the tessellated surface for the current frame.
type Terrain interface {
	// Len is the number of surface tiles.
	Len() int
	// Pick intersects each screen point with the surface. The result is
	// aligned with pts; misses are nil.
	Pick(dc *Context, pts []image.Point) []*pick.Object
	SurfacePoint(ll geo.LatLon, metersOffset float64) (mgl64.Vec3, bool)
	RenderWireframe(dc *Context, interior, exterior bool) error
	RenderBoundingVolumes(dc *Context) error
}

// View owns the camera for a frame.
type View interface {
	Apply(dc *Context) error
	Viewport() image.Rectangle
	EyePoint() mgl64.Vec3
	EyePosition() geo.Position
	Frustum() Frustum
	ModelView() mgl64.Mat4
	Projection() mgl64.Mat4
	ComputePixelSizeAtDistance(d float64) float64
	// ScreenRay returns the model-space ray through a screen point.
	ScreenRay(pt image.Point) (origin, dir mgl64.Vec3)
}

// Steerable views expose heading and pitch in degrees.
type Steerable interface {
	Heading() float64
	SetHeading(deg float64)
	Pitch() float64
}

// Sphere is a bounding extent in model coordinates.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// DistanceFromEye is the distance from eye to the sphere surface, zero when
// the eye is inside.
func (s Sphere) DistanceFromEye(eye mgl64.Vec3) float64 {
	d := eye.Sub(s.Center).Len() - s.Radius
	if d < 0 {
		return 0
	}
	return d
}

// AppendOutline appends three axis-aligned great circles of s as line
// segments to verts and idx.
func (s Sphere) AppendOutline(verts []float32, idx []uint32, steps int) ([]float32, []uint32) {
	c, r := s.Center, s.Radius
	for axis := 0; axis < 3; axis++ {
		base := uint32(len(verts) / 3)
		for i := 0; i < steps; i++ {
			a := 2 * math.Pi * float64(i) / float64(steps)
			u, v := math.Cos(a)*r, math.Sin(a)*r
			var p mgl64.Vec3
			switch axis {
			case 0:
				p = mgl64.Vec3{u, v, 0}
			case 1:
				p = mgl64.Vec3{u, 0, v}
			default:
				p = mgl64.Vec3{0, u, v}
			}
			p = p.Add(c)
			verts = append(verts, float32(p[0]), float32(p[1]), float32(p[2]))
			idx = append(idx, base+uint32(i), base+uint32((i+1)%steps))
		}
	}
	return verts, idx
}

// Frustum is six normalized planes (left, right, bottom, top, near, far),
// each Ax + By + Cz + D = 0 with the normal pointing inward.
type Frustum [6]mgl64.Vec4

// FrustumFromMatrix extracts the planes of a combined projection * modelview.
func FrustumFromMatrix(vp mgl64.Mat4) Frustum {
	row := func(r int) mgl64.Vec4 {
		return mgl64.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	f := Frustum{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r3.Add(r2),
		r3.Sub(r2),
	}
	for i := range f {
		l := math.Sqrt(f[i][0]*f[i][0] + f[i][1]*f[i][1] + f[i][2]*f[i][2])
		if l > 0 {
			f[i] = f[i].Mul(1 / l)
		}
	}
	return f
}

func (f Frustum) Distance(i int, p mgl64.Vec3) float64 {
	return f[i][0]*p[0] + f[i][1]*p[1] + f[i][2]*p[2] + f[i][3]
}

func (f Frustum) ContainsPoint(p mgl64.Vec3) bool {
	for i := range f {
		if f.Distance(i, p) < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) IntersectsSphere(s Sphere) bool {
	for i := range f {
		if f.Distance(i, s.Center) < -s.Radius {
			return false
		}
	}
	return true
}
