package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/gpu"
)

const (
	colorFormat = wgpu.TextureFormatRGBA8Unorm
	depthFormat = wgpu.TextureFormatDepth24Plus

	// position + normal, float32 each
	vertexStride = 6 * 4
)

// pipelineKey is the subset of context state that WebGPU bakes into a
// render pipeline. Draws with equal keys share a pipeline.
type pipelineKey struct {
	topology   wgpu.PrimitiveTopology
	strip      bool
	writeMask  wgpu.ColorWriteMask
	depthTest  bool
	depthWrite bool
	compare    wgpu.CompareFunction
	blend      bool
	factors    [4]gpu.BlendFactor
	cull       bool
	bias       int32
	biasSlope  float32
}

// topologyFor maps a draw mode to a primitive topology. Triangles drawn in
// Line polygon mode become line lists; see wireframeEdges.
func topologyFor(mode geom.DrawMode, polygon gpu.PolygonMode) (wgpu.PrimitiveTopology, error) {
	switch mode {
	case geom.ModePoints:
		return wgpu.PrimitiveTopologyPointList, nil
	case geom.ModeLines:
		return wgpu.PrimitiveTopologyLineList, nil
	case geom.ModeLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case geom.ModeTriangles, geom.ModeTriangleStrip:
		if polygon == gpu.Line {
			return wgpu.PrimitiveTopologyLineList, nil
		}
		if mode == geom.ModeTriangleStrip {
			return wgpu.PrimitiveTopologyTriangleStrip, nil
		}
		return wgpu.PrimitiveTopologyTriangleList, nil
	}
	return 0, fmt.Errorf("webgpu: unsupported draw mode %d", mode)
}

func isTriangles(t wgpu.PrimitiveTopology) bool {
	return t == wgpu.PrimitiveTopologyTriangleList || t == wgpu.PrimitiveTopologyTriangleStrip
}

// keyFor derives the pipeline for a draw from the current state. Without
// separate blend factors the alpha channel blends like colour.
func keyFor(s *gpu.State, topology wgpu.PrimitiveTopology, separateBlend bool) pipelineKey {
	k := pipelineKey{
		topology:  topology,
		strip:     topology == wgpu.PrimitiveTopologyLineStrip || topology == wgpu.PrimitiveTopologyTriangleStrip,
		writeMask: writeMaskFor(s.ColorWrite),
		depthTest: s.Enabled[gpu.DepthTest],
		compare:   wgpu.CompareFunctionAlways,
		blend:     s.Enabled[gpu.Blend],
		cull:      s.Enabled[gpu.CullFace],
	}
	if k.depthTest {
		k.depthWrite = s.DepthWrite
		k.compare = compareFor(s.Depth)
	}
	if k.blend {
		k.factors = s.Blend
		if !separateBlend {
			k.factors[2], k.factors[3] = k.factors[0], k.factors[1]
		}
	}
	// depth bias is only legal on triangle topologies
	if s.Enabled[gpu.PolygonOffsetFill] && isTriangles(topology) {
		k.bias = int32(s.OffsetUnits)
		k.biasSlope = s.OffsetFactor
	}
	return k
}

func writeMaskFor(c [4]bool) wgpu.ColorWriteMask {
	var m wgpu.ColorWriteMask
	if c[0] {
		m |= wgpu.ColorWriteMaskRed
	}
	if c[1] {
		m |= wgpu.ColorWriteMaskGreen
	}
	if c[2] {
		m |= wgpu.ColorWriteMaskBlue
	}
	if c[3] {
		m |= wgpu.ColorWriteMaskAlpha
	}
	return m
}

func compareFor(f gpu.DepthFunc) wgpu.CompareFunction {
	switch f {
	case gpu.LessEqual:
		return wgpu.CompareFunctionLessEqual
	case gpu.Always:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}

func blendFactorFor(f gpu.BlendFactor) wgpu.BlendFactor {
	switch f {
	case gpu.Zero:
		return wgpu.BlendFactorZero
	case gpu.SrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case gpu.OneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	}
	return wgpu.BlendFactorOne
}

func (k pipelineKey) blendState() *wgpu.BlendState {
	if !k.blend {
		return nil
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: blendFactorFor(k.factors[0]),
			DstFactor: blendFactorFor(k.factors[1]),
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: blendFactorFor(k.factors[2]),
			DstFactor: blendFactorFor(k.factors[3]),
		},
	}
}

func (k pipelineKey) primitiveState() wgpu.PrimitiveState {
	p := wgpu.PrimitiveState{
		Topology:  k.topology,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
	if k.strip {
		p.StripIndexFormat = wgpu.IndexFormatUint32
	}
	if k.cull {
		p.CullMode = wgpu.CullModeBack
	}
	return p
}

// pipeline returns the cached pipeline for k, building it on first use.
func (c *Context) pipeline(k pipelineKey) (*wgpu.RenderPipeline, error) {
	if p, ok := c.pipelines[k]; ok {
		return p, nil
	}
	p, err := c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ScenePipeline",
		Layout: c.sceneLayout,
		Vertex: wgpu.VertexState{
			Module:     c.sceneShader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: vertexStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     c.sceneShader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    colorFormat,
				Blend:     k.blendState(),
				WriteMask: k.writeMask,
			}},
		},
		Primitive: k.primitiveState(),
		DepthStencil: &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   k.depthWrite,
			DepthCompare:        k.compare,
			DepthBias:           k.bias,
			DepthBiasSlopeScale: k.biasSlope,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create pipeline: %w", err)
	}
	c.pipelines[k] = p
	return p, nil
}
