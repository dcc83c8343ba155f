// Package webgpu implements gpu.Context on WebGPU. Calls are recorded into
// a pending list and encoded into one render pass per Clear, ReadPixel or
// Present, against an offscreen colour and depth target the size of the
// window.
package webgpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/gekko3d/geoscene/render/gpu/webgpu/shaders"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl64"
)

var ErrMapFailed = errors.New("webgpu: readback map failed")

var _ gpu.Context = (*Context)(nil)

type drawCall struct {
	key       pipelineKey
	viewport  image.Rectangle
	vertices  *wgpu.Buffer
	indices   *wgpu.Buffer
	uniforms  *wgpu.Buffer
	bindGroup *wgpu.BindGroup
	count     uint32
}

func (d *drawCall) release() {
	if d.bindGroup != nil {
		d.bindGroup.Release()
	}
	for _, b := range []*wgpu.Buffer{d.vertices, d.indices, d.uniforms} {
		if b != nil {
			b.Release()
		}
	}
}

// Context is a gpu.Context drawing into a glfw window.
type Context struct {
	gpu.StateStack

	instance      *wgpu.Instance
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	sceneShader *wgpu.ShaderModule
	sceneGroup  *wgpu.BindGroupLayout
	sceneLayout *wgpu.PipelineLayout
	pipelines   map[pipelineKey]*wgpu.RenderPipeline
	blit        *wgpu.RenderPipeline
	blitGroup   *wgpu.BindGroup

	color     *wgpu.Texture
	colorView *wgpu.TextureView
	depth     *wgpu.Texture
	depthView *wgpu.TextureView
	readback  *wgpu.Buffer

	width, height int
	viewport      image.Rectangle

	pending    []drawCall
	clearBits  gpu.ClearBits
	clearValue color.RGBA
	// flush failures from Clear, reported by the next Present
	deferred error
}

// New creates a device for win and sizes the offscreen target to its
// framebuffer.
func New(win *glfw.Window) (*Context, error) {
	c := &Context{
		StateStack: gpu.NewStateStack(),
		pipelines:  make(map[pipelineKey]*wgpu.RenderPipeline),
	}
	c.instance = wgpu.CreateInstance(nil)
	c.surface = c.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))

	var err error
	c.adapter, err = c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: c.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	c.device, err = c.adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "geoscene"})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	c.queue = c.device.GetQueue()

	caps := c.surface.GetCapabilities(c.adapter)
	w, h := win.GetFramebufferSize()
	c.surfaceConfig = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(w),
		Height:      uint32(h),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}

	if err := c.createPipelines(); err != nil {
		c.Release()
		return nil, err
	}
	if err := c.Resize(w, h); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

func (c *Context) createPipelines() error {
	var err error
	c.sceneShader, err = c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SceneShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SceneWGSL},
	})
	if err != nil {
		return fmt.Errorf("webgpu: scene shader: %w", err)
	}
	c.sceneGroup, err = c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SceneUniformsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uniformSize,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("webgpu: scene bind group layout: %w", err)
	}
	c.sceneLayout, err = c.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{c.sceneGroup},
	})
	if err != nil {
		return fmt.Errorf("webgpu: scene pipeline layout: %w", err)
	}

	blit, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BlitShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlitWGSL},
	})
	if err != nil {
		return fmt.Errorf("webgpu: blit shader: %w", err)
	}
	defer blit.Release()
	c.blit, err = c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "BlitPipeline",
		Vertex: wgpu.VertexState{Module: blit, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     blit,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    c.surfaceConfig.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("webgpu: blit pipeline: %w", err)
	}

	c.readback, err = c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PixelReadback",
		Size:  uint64(alignedRow(1)),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("webgpu: readback buffer: %w", err)
	}
	return nil
}

// Resize reconfigures the surface and recreates the offscreen target. The
// viewport is reset to the whole framebuffer.
func (c *Context) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	c.dropPending()
	c.releaseTargets()
	c.width, c.height = width, height
	c.surfaceConfig.Width, c.surfaceConfig.Height = uint32(width), uint32(height)
	c.surface.Configure(c.adapter, c.device, c.surfaceConfig)

	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	var err error
	c.color, err = c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "SceneColor",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        colorFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("webgpu: colour target: %w", err)
	}
	if c.colorView, err = c.color.CreateView(nil); err != nil {
		return fmt.Errorf("webgpu: colour view: %w", err)
	}
	c.depth, err = c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "SceneDepth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("webgpu: depth target: %w", err)
	}
	if c.depthView, err = c.depth.CreateView(nil); err != nil {
		return fmt.Errorf("webgpu: depth view: %w", err)
	}
	c.blitGroup, err = c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "BlitBG",
		Layout:  c.blit.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{{Binding: 0, TextureView: c.colorView}},
	})
	if err != nil {
		return fmt.Errorf("webgpu: blit bind group: %w", err)
	}
	c.viewport = image.Rect(0, 0, width, height)
	return nil
}

func (c *Context) releaseTargets() {
	if c.blitGroup != nil {
		c.blitGroup.Release()
		c.blitGroup = nil
	}
	for _, v := range []*wgpu.TextureView{c.colorView, c.depthView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{c.color, c.depth} {
		if t != nil {
			t.Release()
		}
	}
	c.colorView, c.depthView, c.color, c.depth = nil, nil, nil, nil
}

func (c *Context) dropPending() {
	for i := range c.pending {
		c.pending[i].release()
	}
	c.pending = c.pending[:0]
	c.clearBits = 0
}

// Release frees every GPU object owned by the context.
func (c *Context) Release() {
	c.dropPending()
	c.releaseTargets()
	for _, p := range c.pipelines {
		p.Release()
	}
	clear(c.pipelines)
	if c.blit != nil {
		c.blit.Release()
	}
	if c.readback != nil {
		c.readback.Release()
	}
	if c.sceneLayout != nil {
		c.sceneLayout.Release()
	}
	if c.sceneGroup != nil {
		c.sceneGroup.Release()
	}
	if c.sceneShader != nil {
		c.sceneShader.Release()
	}
	if c.device != nil {
		c.device.Release()
	}
	if c.adapter != nil {
		c.adapter.Release()
	}
	if c.surface != nil {
		c.surface.Release()
	}
	if c.instance != nil {
		c.instance.Release()
	}
	*c = Context{}
}

func (c *Context) PushAttrib(bits gpu.AttribBits) { c.Push(bits) }
func (c *Context) PopAttrib() error               { return c.Pop() }

func (c *Context) Enable(cp gpu.Capability)         { c.Current.Enabled[cp] = true }
func (c *Context) Disable(cp gpu.Capability)        { c.Current.Enabled[cp] = false }
func (c *Context) IsEnabled(cp gpu.Capability) bool { return c.Current.Enabled[cp] }

func (c *Context) SetViewport(r image.Rectangle) {
	c.viewport = r.Intersect(image.Rect(0, 0, c.width, c.height))
}
func (c *Context) Viewport() image.Rectangle    { return c.viewport }
func (c *Context) SetClearColor(col color.RGBA) { c.Current.ClearColor = col }

// Clear encodes the draws issued so far and makes the next pass start by
// clearing the selected buffers.
func (c *Context) Clear(bits gpu.ClearBits) {
	if len(c.pending) > 0 {
		c.deferred = errors.Join(c.deferred, c.flush())
	}
	c.clearBits |= bits
	if bits&gpu.ClearColorBuffer != 0 {
		c.clearValue = c.Current.ClearColor
	}
}

func (c *Context) ColorMask(r, g, b, a bool) { c.Current.ColorWrite = [4]bool{r, g, b, a} }
func (c *Context) DepthMask(write bool)      { c.Current.DepthWrite = write }
func (c *Context) SetDepthFunc(f gpu.DepthFunc) {
	c.Current.Depth = f
}

func (c *Context) PolygonOffset(factor, units float32) {
	c.Current.OffsetFactor, c.Current.OffsetUnits = factor, units
}

func (c *Context) SetPolygonMode(m gpu.PolygonMode) { c.Current.Polygon = m }

// LineWidth is tracked but WebGPU rasterises every line one pixel wide.
func (c *Context) LineWidth(w float32)        { c.Current.Width = w }
func (c *Context) SetColor(col color.RGBA)    { c.Current.Color = col }
func (c *Context) SetLight(l gpu.Light)       { c.Current.Light = l }
func (c *Context) SetMaterial(m gpu.Material) { c.Current.Material = m }

func (c *Context) BlendFunc(srcRGB, dstRGB, srcAlpha, dstAlpha gpu.BlendFactor) {
	c.Current.Blend = [4]gpu.BlendFactor{srcRGB, dstRGB, srcAlpha, dstAlpha}
}

func (c *Context) LoadProjection(m mgl64.Mat4) { c.ProjectionMatrix = m }
func (c *Context) LoadModelView(m mgl64.Mat4)  { c.ModelViewMatrix = m }
func (c *Context) ModelView() mgl64.Mat4       { return c.ModelViewMatrix }

// HasExtension reports blend-func-separate, which WebGPU blend states always
// support.
func (c *Context) HasExtension(name string) bool {
	return name == gpu.ExtBlendFuncSeparate
}

func (c *Context) DrawElements(mode geom.DrawMode, count int, elements []uint32, vertices, normals []float32) error {
	if count > len(elements) {
		return fmt.Errorf("webgpu: draw of %d indices with %d available", count, len(elements))
	}
	nv := len(vertices) / 3
	indices := elements[:count]
	for _, e := range indices {
		if int(e) >= nv {
			return fmt.Errorf("webgpu: index %d out of range for %d vertices", e, nv)
		}
	}
	topology, err := topologyFor(mode, c.Current.Polygon)
	if err != nil {
		return err
	}
	if c.Current.Polygon == gpu.Line && (mode == geom.ModeTriangles || mode == geom.ModeTriangleStrip) {
		indices = wireframeEdges(mode, indices)
	}
	if len(indices) == 0 || c.viewport.Empty() {
		return nil
	}

	key := keyFor(&c.Current, topology, true)
	if _, err := c.pipeline(key); err != nil {
		return err
	}
	d := drawCall{key: key, viewport: c.viewport, count: uint32(len(indices))}
	if err := c.upload(&d, indices, interleave(vertices, normals)); err != nil {
		d.release()
		return err
	}
	c.pending = append(c.pending, d)
	return nil
}

func (c *Context) upload(d *drawCall, indices []uint32, vertices []float32) error {
	var err error
	d.vertices, err = c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Vertex Buffer",
		Contents: wgpu.ToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("webgpu: vertex buffer: %w", err)
	}
	d.indices, err = c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Index Buffer",
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		return fmt.Errorf("webgpu: index buffer: %w", err)
	}
	u := uniformsFor(&c.Current, c.ProjectionMatrix, c.ModelViewMatrix)
	d.uniforms, err = c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Uniform Buffer",
		Contents: wgpu.ToBytes([]uniforms{u}),
		Usage:    wgpu.BufferUsageUniform,
	})
	if err != nil {
		return fmt.Errorf("webgpu: uniform buffer: %w", err)
	}
	d.bindGroup, err = c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "SceneUniformsBG",
		Layout:  c.sceneGroup,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: d.uniforms, Size: uniformSize}},
	})
	if err != nil {
		return fmt.Errorf("webgpu: uniform bind group: %w", err)
	}
	return nil
}

func loadOp(clearing bool) wgpu.LoadOp {
	if clearing {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

// flush encodes pending clears and draws into one render pass and submits it.
func (c *Context) flush() error {
	if len(c.pending) == 0 && c.clearBits == 0 {
		return nil
	}
	defer c.dropPending()

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: command encoder: %w", err)
	}
	defer encoder.Release()

	cv := rgba(c.clearValue)
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       c.colorView,
			LoadOp:     loadOp(c.clearBits&gpu.ClearColorBuffer != 0),
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(cv[0]), G: float64(cv[1]), B: float64(cv[2]), A: float64(cv[3])},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            c.depthView,
			DepthLoadOp:     loadOp(c.clearBits&gpu.ClearDepthBuffer != 0),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	for _, d := range c.pending {
		r := d.viewport
		pass.SetPipeline(c.pipelines[d.key])
		pass.SetViewport(float32(r.Min.X), float32(c.height-r.Max.Y), float32(r.Dx()), float32(r.Dy()), 0, 1)
		pass.SetBindGroup(0, d.bindGroup, nil)
		pass.SetVertexBuffer(0, d.vertices, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(d.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(d.count, 1, 0, 0, 0)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("webgpu: end scene pass: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish scene pass: %w", err)
	}
	defer cmd.Release()
	c.queue.Submit(cmd)
	return nil
}

// ReadPixel flushes pending work and reads one texel back from the
// offscreen target.
func (c *Context) ReadPixel(x, y int) (color.RGBA, error) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return color.RGBA{}, gpu.ErrOutOfViewport
	}
	if err := c.flush(); err != nil {
		return color.RGBA{}, err
	}
	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("webgpu: command encoder: %w", err)
	}
	defer encoder.Release()
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture: c.color,
			Origin:  wgpu.Origin3D{X: uint32(x), Y: uint32(texelRow(y, c.height)), Z: 0},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: c.readback,
			Layout: wgpu.TextureDataLayout{BytesPerRow: alignedRow(1), RowsPerImage: 1},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("webgpu: copy pixel: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("webgpu: finish readback: %w", err)
	}
	defer cmd.Release()
	c.queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	done := false
	err = c.readback.MapAsync(wgpu.MapModeRead, 0, c.readback.GetSize(), func(s wgpu.BufferMapAsyncStatus) {
		status, done = s, true
	})
	if err != nil {
		return color.RGBA{}, fmt.Errorf("webgpu: map readback: %w", err)
	}
	for !done {
		c.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return color.RGBA{}, fmt.Errorf("%w: status %d", ErrMapFailed, status)
	}
	defer c.readback.Unmap()
	px := c.readback.GetMappedRange(0, 4)
	return color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}, nil
}

// Present flushes pending work and copies the offscreen target to the
// window surface.
func (c *Context) Present() error {
	err := errors.Join(c.deferred, c.flush())
	c.deferred = nil
	if err != nil {
		return err
	}
	next, err := c.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("webgpu: surface texture: %w", err)
	}
	defer next.Release()
	view, err := next.CreateView(nil)
	if err != nil {
		return fmt.Errorf("webgpu: surface view: %w", err)
	}
	defer view.Release()

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(c.blit)
	pass.SetBindGroup(0, c.blitGroup, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("webgpu: end blit pass: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish blit pass: %w", err)
	}
	defer cmd.Release()
	c.queue.Submit(cmd)
	c.surface.Present()
	return nil
}
