// Package gpu is the boundary between scene code and the graphics backend.
// It exposes an immediate-mode, state-machine style context: attribute
// push/pop, masks, polygon offset, lighting, indexed draws and single-pixel
// readback.
package gpu

import (
	"errors"
	"image"
	"image/color"

	"github.com/gekko3d/geoscene/render/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrStackUnderflow = errors.New("gpu: attribute stack underflow")
	ErrOutOfViewport  = errors.New("gpu: pixel outside viewport")
)

// ExtBlendFuncSeparate names the capability of separate alpha blend factors.
const ExtBlendFuncSeparate = "GL_EXT_blend_func_separate"

type Capability int

const (
	DepthTest Capability = iota
	Blend
	Lighting
	CullFace
	PolygonOffsetFill
	LineSmooth
	Fog
	Texture2D
	numCapabilities
)

var capabilityNames = [...]string{"DepthTest", "Blend", "Lighting", "CullFace", "PolygonOffsetFill", "LineSmooth", "Fog", "Texture2D"}

func (c Capability) String() string {
	if c < 0 || c >= numCapabilities {
		return "Capability(?)"
	}
	return capabilityNames[c]
}

// AttribBits selects the state groups saved by PushAttrib.
type AttribBits uint32

const (
	CurrentBit AttribBits = 1 << iota
	ColorBufferBit
	DepthBufferBit
	EnableBit
	LightingBit
	LineBit
	PolygonBit
	TransformBit
	FogBit
	AllAttribBits AttribBits = 0xFFFFFFFF
)

type ClearBits uint32

const (
	ClearColorBuffer ClearBits = 1 << iota
	ClearDepthBuffer
)

type DepthFunc int

const (
	Less DepthFunc = iota
	LessEqual
	Always
)

type BlendFactor int

const (
	Zero BlendFactor = iota
	One
	SrcAlpha
	OneMinusSrcAlpha
)

type PolygonMode int

const (
	Fill PolygonMode = iota
	Line
)

// Light is a single directional light in eye space.
type Light struct {
	Direction mgl32.Vec3
	Ambient   mgl32.Vec4
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
}

// Material describes front-face lighting response.
type Material struct {
	Ambient   mgl32.Vec4
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
	Shininess float32
}

// Context is one current graphics context. It is not safe for concurrent use;
// all calls happen on the thread that owns the frame.
type Context interface {
	PushAttrib(bits AttribBits)
	PopAttrib() error
	PushMatrices()
	PopMatrices() error

	Enable(c Capability)
	Disable(c Capability)
	IsEnabled(c Capability) bool

	SetViewport(r image.Rectangle)
	Viewport() image.Rectangle
	SetClearColor(c color.RGBA)
	Clear(bits ClearBits)

	ColorMask(r, g, b, a bool)
	DepthMask(write bool)
	SetDepthFunc(f DepthFunc)
	PolygonOffset(factor, units float32)
	SetPolygonMode(m PolygonMode)
	LineWidth(w float32)
	SetColor(c color.RGBA)
	BlendFunc(srcRGB, dstRGB, srcAlpha, dstAlpha BlendFactor)
	SetLight(l Light)
	SetMaterial(m Material)

	LoadProjection(m mgl64.Mat4)
	LoadModelView(m mgl64.Mat4)
	ModelView() mgl64.Mat4

	// DrawElements draws count indices of elements over the given packed xyz
	// vertices and optional normals.
	DrawElements(mode geom.DrawMode, count int, elements []uint32, vertices, normals []float32) error

	// ReadPixel returns the colour at framebuffer coordinates (origin bottom-left).
	ReadPixel(x, y int) (color.RGBA, error)

	HasExtension(name string) bool
}

// State is the snapshot of everything PushAttrib can save. Backends embed it
// to share push/pop bookkeeping.
type State struct {
	Enabled      [numCapabilities]bool
	ColorWrite   [4]bool
	DepthWrite   bool
	Depth        DepthFunc
	OffsetFactor float32
	OffsetUnits  float32
	Polygon      PolygonMode
	Width        float32
	Color        color.RGBA
	ClearColor   color.RGBA
	Blend        [4]BlendFactor
	Light        Light
	Material     Material
}

// DefaultState mirrors a freshly created context.
func DefaultState() State {
	return State{
		ColorWrite: [4]bool{true, true, true, true},
		DepthWrite: true,
		Depth:      Less,
		Width:      1,
		Color:      color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Blend:      [4]BlendFactor{One, Zero, One, Zero},
	}
}

type savedState struct {
	bits  AttribBits
	state State
}

// StateStack implements the attribute and matrix stacks on top of State.
type StateStack struct {
	Current          State
	ProjectionMatrix mgl64.Mat4
	ModelViewMatrix  mgl64.Mat4

	saved    []savedState
	matrices [][2]mgl64.Mat4
}

func NewStateStack() StateStack {
	return StateStack{
		Current:          DefaultState(),
		ProjectionMatrix: mgl64.Ident4(),
		ModelViewMatrix:  mgl64.Ident4(),
	}
}

func (s *StateStack) Push(bits AttribBits) {
	s.saved = append(s.saved, savedState{bits: bits, state: s.Current})
}

// Pop restores the groups selected by the matching Push.
func (s *StateStack) Pop() error {
	if len(s.saved) == 0 {
		return ErrStackUnderflow
	}
	top := s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	prev, cur := top.state, &s.Current
	if top.bits&EnableBit != 0 {
		cur.Enabled = prev.Enabled
	}
	if top.bits&ColorBufferBit != 0 {
		cur.ColorWrite = prev.ColorWrite
		cur.ClearColor = prev.ClearColor
		cur.Blend = prev.Blend
		cur.Enabled[Blend] = prev.Enabled[Blend]
	}
	if top.bits&DepthBufferBit != 0 {
		cur.DepthWrite = prev.DepthWrite
		cur.Depth = prev.Depth
		cur.Enabled[DepthTest] = prev.Enabled[DepthTest]
	}
	if top.bits&CurrentBit != 0 {
		cur.Color = prev.Color
	}
	if top.bits&LightingBit != 0 {
		cur.Light = prev.Light
		cur.Material = prev.Material
		cur.Enabled[Lighting] = prev.Enabled[Lighting]
	}
	if top.bits&LineBit != 0 {
		cur.Width = prev.Width
		cur.Enabled[LineSmooth] = prev.Enabled[LineSmooth]
	}
	if top.bits&PolygonBit != 0 {
		cur.Polygon = prev.Polygon
		cur.OffsetFactor = prev.OffsetFactor
		cur.OffsetUnits = prev.OffsetUnits
		cur.Enabled[PolygonOffsetFill] = prev.Enabled[PolygonOffsetFill]
		cur.Enabled[CullFace] = prev.Enabled[CullFace]
	}
	if top.bits&FogBit != 0 {
		cur.Enabled[Fog] = prev.Enabled[Fog]
	}
	return nil
}

func (s *StateStack) Depth() int { return len(s.saved) }

func (s *StateStack) PushMatrices() {
	s.matrices = append(s.matrices, [2]mgl64.Mat4{s.ProjectionMatrix, s.ModelViewMatrix})
}

func (s *StateStack) PopMatrices() error {
	if len(s.matrices) == 0 {
		return ErrStackUnderflow
	}
	top := s.matrices[len(s.matrices)-1]
	s.matrices = s.matrices[:len(s.matrices)-1]
	s.ProjectionMatrix, s.ModelViewMatrix = top[0], top[1]
	return nil
}
