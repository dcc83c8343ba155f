package shaders

import (
	_ "embed"
)

//go:embed scene.wgsl
var SceneWGSL string

//go:embed blit.wgsl
var BlitWGSL string
