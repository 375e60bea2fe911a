package panorama

import (
	_ "embed"

	"github.com/teslashibe/go-teslacam/pkg/rig"
)

// ShaderVersion identifies the shader pair. Bump it with any change to the
// uniform interface.
const ShaderVersion = 3

//go:embed shaders/panorama.frag
var FragmentShader string

//go:embed shaders/panorama.vert
var VertexShader string

// Shader constants mirrored from panorama.frag.
const (
	// PoleStretch extends vertical coverage past the native FOV.
	PoleStretch = 1.8

	// MinWeight is the blend weight below which a camera is skipped.
	MinWeight = 0.001
)

// Uniform names of the fragment shader's binding interface.
const (
	UniformEnabled     = "uEnabled"
	UniformYaw         = "uYaw"
	UniformFOVH        = "uFovH"
	UniformFOVV        = "uFovV"
	UniformOverlap     = "uOverlap"
	UniformPriorityCam = "uPriorityCam"
)

// TextureUniform returns the sampler name for camera slot i.
func TextureUniform(i int) string {
	return "uCam" + string(rune('0'+i))
}

// UniformNames lists every uniform the fragment shader declares.
func UniformNames() []string {
	names := []string{
		UniformEnabled, UniformYaw, UniformFOVH, UniformFOVV,
		UniformOverlap, UniformPriorityCam,
	}
	for i := 0; i < rig.NumCameras; i++ {
		names = append(names, TextureUniform(i))
	}
	return names
}
