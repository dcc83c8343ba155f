package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/geoscene/render/geom"
	"github.com/gekko3d/geoscene/render/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologyFor(t *testing.T) {
	tests := []struct {
		mode    geom.DrawMode
		polygon gpu.PolygonMode
		want    wgpu.PrimitiveTopology
	}{
		{geom.ModePoints, gpu.Fill, wgpu.PrimitiveTopologyPointList},
		{geom.ModeLines, gpu.Fill, wgpu.PrimitiveTopologyLineList},
		{geom.ModeLineStrip, gpu.Line, wgpu.PrimitiveTopologyLineStrip},
		{geom.ModeTriangles, gpu.Fill, wgpu.PrimitiveTopologyTriangleList},
		{geom.ModeTriangleStrip, gpu.Fill, wgpu.PrimitiveTopologyTriangleStrip},
		{geom.ModeTriangles, gpu.Line, wgpu.PrimitiveTopologyLineList},
		{geom.ModeTriangleStrip, gpu.Line, wgpu.PrimitiveTopologyLineList},
	}
	for _, tt := range tests {
		got, err := topologyFor(tt.mode, tt.polygon)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "mode %d polygon %d", tt.mode, tt.polygon)
	}

	_, err := topologyFor(geom.ModeNone, gpu.Fill)
	assert.Error(t, err)
}

func TestKeyForDepthAndMasks(t *testing.T) {
	s := gpu.DefaultState()
	k := keyFor(&s, wgpu.PrimitiveTopologyTriangleList, true)
	assert.False(t, k.depthTest)
	assert.False(t, k.depthWrite, "no depth writes without depth test")
	assert.Equal(t, wgpu.CompareFunctionAlways, k.compare)
	assert.Equal(t, wgpu.ColorWriteMaskAll, k.writeMask)

	s.Enabled[gpu.DepthTest] = true
	s.Depth = gpu.LessEqual
	s.ColorWrite = [4]bool{false, true, true, true}
	k = keyFor(&s, wgpu.PrimitiveTopologyTriangleList, true)
	assert.True(t, k.depthWrite)
	assert.Equal(t, wgpu.CompareFunctionLessEqual, k.compare)
	assert.Equal(t, wgpu.ColorWriteMaskGreen|wgpu.ColorWriteMaskBlue|wgpu.ColorWriteMaskAlpha, k.writeMask)
}

func TestKeyForPolygonOffsetOnlyOnTriangles(t *testing.T) {
	s := gpu.DefaultState()
	s.Enabled[gpu.PolygonOffsetFill] = true
	s.OffsetFactor, s.OffsetUnits = 1, 2

	k := keyFor(&s, wgpu.PrimitiveTopologyTriangleStrip, true)
	assert.Equal(t, int32(2), k.bias)
	assert.Equal(t, float32(1), k.biasSlope)
	assert.True(t, k.strip)

	k = keyFor(&s, wgpu.PrimitiveTopologyLineList, true)
	assert.Zero(t, k.bias)
	assert.Zero(t, k.biasSlope)
}

func TestKeyForBlendWithoutSeparateFactors(t *testing.T) {
	s := gpu.DefaultState()
	s.Enabled[gpu.Blend] = true
	s.Blend = [4]gpu.BlendFactor{gpu.SrcAlpha, gpu.OneMinusSrcAlpha, gpu.One, gpu.OneMinusSrcAlpha}

	k := keyFor(&s, wgpu.PrimitiveTopologyTriangleList, true)
	b := k.blendState()
	require.NotNil(t, b)
	assert.Equal(t, wgpu.BlendFactorOne, b.Alpha.SrcFactor)

	k = keyFor(&s, wgpu.PrimitiveTopologyTriangleList, false)
	b = k.blendState()
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, b.Alpha.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, b.Alpha.DstFactor)

	s.Enabled[gpu.Blend] = false
	assert.Nil(t, keyFor(&s, wgpu.PrimitiveTopologyTriangleList, true).blendState())
}

func TestPrimitiveState(t *testing.T) {
	s := gpu.DefaultState()
	s.Enabled[gpu.CullFace] = true
	p := keyFor(&s, wgpu.PrimitiveTopologyLineStrip, true).primitiveState()
	assert.Equal(t, wgpu.IndexFormatUint32, p.StripIndexFormat)
	assert.Equal(t, wgpu.CullModeBack, p.CullMode)
}
