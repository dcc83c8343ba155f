package geoscene

import (
	"runtime"

	"github.com/gekko3d/geoscene/render/frame"
)

// setCacheStatistics adds cache and heap usage when requested.
func (sc *SceneController) setCacheStatistics(dc *frame.Context) {
	stats := dc.Stats
	if stats.Wants(frame.StatMemoryCache) {
		dc.SetPerFrameStatistic(frame.StatMemoryCache, "Geometry Cache size (Kb)", sc.cache.UsedCapacity()/1000)
	}
	if stats.Wants(frame.StatTextureCache) && sc.textureCache != nil {
		dc.SetPerFrameStatistic(frame.StatTextureCache, "Texture Cache size (Kb)", sc.textureCache.UsedCapacity()/1000)
	}
	if stats.Wants(frame.StatHeapTotal) || stats.Wants(frame.StatHeapUsed) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		dc.SetPerFrameStatistic(frame.StatHeapTotal, "total memory (Kb)", int64(m.Sys/1000))
		dc.SetPerFrameStatistic(frame.StatHeapUsed, "used memory (Kb)", int64(m.HeapAlloc/1000))
	}
}
