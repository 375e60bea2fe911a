// Package rig describes the fixed camera mounts of the vehicle.
// Cameras are assumed co-located and differ only in yaw, so each mount is
// fully described by its yaw, horizontal FOV and native resolution.
package rig

import (
	"fmt"
	"math"
)

// NumCameras is the number of physical cameras on the vehicle.
const NumCameras = 6

// Camera identifiers as they appear in dashcam clip file names.
const (
	Front         = "front"
	RightPillar   = "right_pillar"
	RightRepeater = "right_repeater"
	Back          = "back"
	LeftRepeater  = "left_repeater"
	LeftPillar    = "left_pillar"
)

// CameraSpec is the immutable description of one physical camera.
type CameraSpec struct {
	ID      string  `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	YawDeg  float64 `yaml:"yaw_deg" json:"yaw_deg"`   // 0 = front, increasing clockwise
	FOVHDeg float64 `yaml:"fov_h_deg" json:"fov_h_deg"` // horizontal field of view
	Width   int     `yaml:"width" json:"width"`       // native pixel width
	Height  int     `yaml:"height" json:"height"`     // native pixel height
}

// Aspect returns width/height of the native frame.
func (c CameraSpec) Aspect() float64 {
	if c.Height == 0 {
		return 1
	}
	return float64(c.Width) / float64(c.Height)
}

// Yaw returns the mount yaw in radians.
func (c CameraSpec) Yaw() float64 {
	return Radians(c.YawDeg)
}

// FOVH returns the horizontal field of view in radians.
func (c CameraSpec) FOVH() float64 {
	return Radians(c.FOVHDeg)
}

// FOVV returns the vertical field of view in radians derived from the aspect ratio.
func (c CameraSpec) FOVV() float64 {
	return VerticalFOV(c.FOVH(), c.Aspect())
}

// ClipName returns the dashcam file name for this camera within an event,
// e.g. "2025-11-02_14-03-11-front.mp4".
func (c CameraSpec) ClipName(stamp string) string {
	return fmt.Sprintf("%s-%s.mp4", stamp, c.ID)
}

// VerticalFOV converts a horizontal FOV (radians) to the vertical FOV of a
// pinhole camera with the given aspect ratio.
func VerticalFOV(fovH, aspect float64) float64 {
	if aspect <= 0 {
		return fovH
	}
	return 2 * math.Atan(math.Tan(fovH/2)/aspect)
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}
