package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"strings"

	"github.com/gekko3d/geoscene"
	"github.com/gekko3d/geoscene/geo"
	"github.com/gekko3d/geoscene/render/airspace"
	"github.com/gekko3d/geoscene/render/globe"
	"github.com/gekko3d/geoscene/render/gpu/webgpu"
	"github.com/gekko3d/geoscene/render/view"
	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/image/colornames"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to a TOML scene configuration")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := geoscene.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = geoscene.LoadConfig(*configPath); err != nil {
			panic(err)
		}
	}
	log := geoscene.NewDefaultLogger(geoscene.DefaultLogPrefix, cfg.Debug || *debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	backend, err := webgpu.New(window)
	if err != nil {
		panic(err)
	}
	defer backend.Release()

	sc, err := geoscene.NewSceneController(cfg, log)
	if err != nil {
		panic(err)
	}
	defer sc.Dispose()
	sc.SetGPU(backend)

	earth := globe.NewEarth(globe.ConstantElevation(0))
	layer := airspace.NewLayer("airspaces")
	for i, site := range demoSites {
		c := airspace.NewCappedCylinder(geo.FromDegrees(site.lat, site.lon), site.radius)
		c.SetAltitudes(0, site.ceiling)
		c.SetExpiryRange(cfg.Expiry.MinMs, cfg.Expiry.MaxMs)
		c.Attributes.InteriorColor = demoColors[i%len(demoColors)]
		c.Attributes.DrawOutline = true
		layer.Add(c)
	}
	model := geoscene.NewModel(earth, layer)
	model.ApplyDiagnostics(cfg.Diagnostics)
	sc.SetModel(model)

	fw, fh := window.GetFramebufferSize()
	orbit, err := view.NewOrbit(earth, geo.NewPosition(geo.FromDegrees(39.7, -104.9), 0), 400_000, image.Rect(0, 0, fw, fh))
	if err != nil {
		panic(err)
	}
	orbit.SetPitch(50)
	sc.SetView(orbit)

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if err := backend.Resize(width, height); err != nil {
			log.Errorf("resize: %v", err)
			return
		}
		orbit.SetViewport(image.Rect(0, 0, width, height))
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		ww, _ := w.GetSize()
		fw, _ := w.GetFramebufferSize()
		scale := 1.0
		if ww > 0 {
			scale = float64(fw) / float64(ww)
		}
		pt := image.Pt(int(xpos*scale), int(ypos*scale))
		sc.SetPickPoint(&pt)
	})

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		orbit.SetRange(orbit.Range() * (1 - 0.1*yoff))
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft || action != glfw.Press {
			return
		}
		picked := sc.PickedObjectList()
		if picked == nil {
			return
		}
		if top := picked.TopObject(); top != nil {
			log.Infof("picked %v on layer %q", top, top.Layer)
		} else if t := picked.TerrainObject(); t != nil {
			log.Infof("picked %v", t)
		}
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyLeft:
			orbit.SetHeading(orbit.Heading() - 2)
		case glfw.KeyRight:
			orbit.SetHeading(orbit.Heading() + 2)
		case glfw.KeyUp:
			orbit.SetPitch(orbit.Pitch() + 2)
		case glfw.KeyDown:
			orbit.SetPitch(orbit.Pitch() - 2)
		case glfw.KeyA:
			toggleDrawMode(sc, cfg.Anaglyph, log)
		case glfw.KeyW:
			model.ShowWireframeExterior = !model.ShowWireframeExterior
		case glfw.KeyS:
			logStatistics(sc, log)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		if _, err := sc.Repaint(); err != nil {
			log.Errorf("repaint: %v", err)
			continue
		}
		if err := backend.Present(); err != nil {
			log.Errorf("present: %v", err)
		}
	}
}

type site struct {
	lat, lon, radius, ceiling float64
}

var demoSites = []site{
	{39.86, -104.67, 9_000, 3_000},
	{39.57, -104.85, 5_000, 1_500},
	{40.04, -105.23, 6_500, 2_500},
	{38.81, -104.70, 8_000, 2_000},
}

var demoColors = []color.RGBA{
	colornames.Steelblue,
	colornames.Orange,
	colornames.Seagreen,
	colornames.Crimson,
}

func toggleDrawMode(sc *geoscene.SceneController, anaglyph geoscene.AnaglyphConfig, log geoscene.Logger) {
	next := geoscene.DrawAnaglyph
	if sc.DrawStrategy().Mode() == geoscene.DrawAnaglyph {
		next = geoscene.DrawMono
	}
	s, err := geoscene.NewDrawStrategy(next, anaglyph)
	if err != nil {
		log.Errorf("draw mode: %v", err)
		return
	}
	if err := sc.SetDrawStrategy(s); err != nil {
		log.Errorf("draw mode: %v", err)
	}
}

func logStatistics(sc *geoscene.SceneController, log geoscene.Logger) {
	stats := sc.PerFrameStatistics()
	parts := make([]string, 0, len(stats)+1)
	parts = append(parts, fmt.Sprintf("fps=%.1f", sc.FramesPerSecond()))
	for _, s := range stats {
		parts = append(parts, s.String())
	}
	log.Infof("%s", strings.Join(parts, " "))
}
