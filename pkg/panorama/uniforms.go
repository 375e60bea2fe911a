package panorama

import (
	"math"

	"github.com/teslashibe/go-teslacam/pkg/rig"
)

const (
	// DefaultOverlap is the blend band beyond each camera's native FOV (15°).
	DefaultOverlap = 15.0 * math.Pi / 180.0

	// PriorityNone disables the priority camera.
	PriorityNone = -1

	// maxFOV keeps user-scaled FOVs strictly below 180°.
	maxFOV = math.Pi - 1e-3
)

// CameraParams are the user-adjustable per-camera values of a session.
type CameraParams struct {
	Enabled  bool    `json:"enabled"`
	YawDeg   float64 `json:"yaw_deg"`
	FOVScale float64 `json:"fov_scale"` // multiplies the rig's horizontal FOV
}

// DefaultParams returns enabled params at the rig's mount yaw and native FOV.
func DefaultParams(r rig.Rig) []CameraParams {
	out := make([]CameraParams, len(r))
	for i, c := range r {
		out[i] = CameraParams{Enabled: true, YawDeg: c.YawDeg, FOVScale: 1}
	}
	return out
}

// Uniforms is the per-frame uniform block. Angles are radians.
type Uniforms struct {
	Enabled     [rig.NumCameras]bool    `json:"enabled"`
	Yaw         [rig.NumCameras]float64 `json:"yaw"`
	FOVH        [rig.NumCameras]float64 `json:"fov_h"`
	FOVV        [rig.NumCameras]float64 `json:"fov_v"`
	Overlap     float64                 `json:"overlap"`
	PriorityCam int                     `json:"priority_cam"`
}

// AssembleUniforms builds the uniform block from the rig and the session's
// camera params. Out-of-range priority indices are treated as PriorityNone.
func AssembleUniforms(r rig.Rig, params []CameraParams, overlap float64, priority int) Uniforms {
	u := Uniforms{Overlap: math.Max(0, overlap), PriorityCam: PriorityNone}
	if priority >= 0 && priority < rig.NumCameras {
		u.PriorityCam = priority
	}

	for i := 0; i < rig.NumCameras && i < len(r); i++ {
		p := CameraParams{Enabled: true, YawDeg: r[i].YawDeg, FOVScale: 1}
		if i < len(params) {
			p = params[i]
		}
		scale := p.FOVScale
		if scale <= 0 {
			scale = 1
		}
		fovH := math.Min(r[i].FOVH()*scale, maxFOV)

		u.Enabled[i] = p.Enabled
		u.Yaw[i] = rig.Radians(p.YawDeg)
		u.FOVH[i] = fovH
		u.FOVV[i] = rig.VerticalFOV(fovH, r[i].Aspect())
	}
	return u
}

// Bindings returns the uniform values keyed by shader name, converted to the
// GL-side types (bool arrays as int32, angles as float32).
func (u Uniforms) Bindings() map[string]any {
	var enabled [rig.NumCameras]int32
	var yaw, fovH, fovV [rig.NumCameras]float32
	for i := 0; i < rig.NumCameras; i++ {
		if u.Enabled[i] {
			enabled[i] = 1
		}
		yaw[i] = float32(u.Yaw[i])
		fovH[i] = float32(u.FOVH[i])
		fovV[i] = float32(u.FOVV[i])
	}
	return map[string]any{
		UniformEnabled:     enabled,
		UniformYaw:         yaw,
		UniformFOVH:        fovH,
		UniformFOVV:        fovV,
		UniformOverlap:     float32(u.Overlap),
		UniformPriorityCam: int32(u.PriorityCam),
	}
}
