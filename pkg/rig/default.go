package rig

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Rig is the ordered list of camera mounts. Index order is the camera slot
// order used by the blend engine and the playback synchronizer.
type Rig []CameraSpec

// Default returns the six-camera layout of a HW4 vehicle.
// Repeaters face rearward, pillars face forward-outward.
func Default() Rig {
	return Rig{
		{ID: Front, Name: "Front", YawDeg: 0, FOVHDeg: 80, Width: 2896, Height: 1876},
		{ID: RightPillar, Name: "Right Pillar", YawDeg: 60, FOVHDeg: 90, Width: 1448, Height: 938},
		{ID: RightRepeater, Name: "Right Repeater", YawDeg: 120, FOVHDeg: 90, Width: 1448, Height: 938},
		{ID: Back, Name: "Back", YawDeg: 180, FOVHDeg: 130, Width: 1448, Height: 938},
		{ID: LeftRepeater, Name: "Left Repeater", YawDeg: 240, FOVHDeg: 90, Width: 1448, Height: 938},
		{ID: LeftPillar, Name: "Left Pillar", YawDeg: 300, FOVHDeg: 90, Width: 1448, Height: 938},
	}
}

// Index returns the slot index of the camera with the given ID, or -1.
func (r Rig) Index(id string) int {
	for i, c := range r {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the rig invariants.
// Returns a list of validation errors, or nil if valid.
func (r Rig) Validate() []string {
	var errors []string

	if len(r) != NumCameras {
		errors = append(errors, fmt.Sprintf("rig must have %d cameras, got %d", NumCameras, len(r)))
	}

	seenYaw := make(map[float64]string, len(r))
	seenID := make(map[string]bool, len(r))
	for _, c := range r {
		if c.ID == "" {
			errors = append(errors, "camera id must not be empty")
		} else if seenID[c.ID] {
			errors = append(errors, fmt.Sprintf("duplicate camera id %q", c.ID))
		}
		seenID[c.ID] = true

		if !(c.FOVHDeg > 0 && c.FOVHDeg < 180) {
			errors = append(errors, fmt.Sprintf("%s: fov_h_deg must be in (0, 180)", c.ID))
		}
		if c.Width <= 0 || c.Height <= 0 {
			errors = append(errors, fmt.Sprintf("%s: width and height must be positive", c.ID))
		}

		if math.IsNaN(c.YawDeg) || math.IsInf(c.YawDeg, 0) {
			errors = append(errors, fmt.Sprintf("%s: yaw_deg must be finite", c.ID))
			continue
		}
		yaw := normalizeDeg(c.YawDeg)
		if other, ok := seenYaw[yaw]; ok {
			errors = append(errors, fmt.Sprintf("%s: yaw %.1f duplicates %s", c.ID, c.YawDeg, other))
		}
		seenYaw[yaw] = c.ID
	}

	return errors
}

// rigFile is the on-disk shape: a list of per-camera overrides keyed by id.
type rigFile struct {
	Cameras []CameraSpec `yaml:"cameras"`
}

// LoadYAML reads camera overrides and merges them onto the default rig.
// Unknown camera ids are rejected; zero-valued fields keep their defaults.
func LoadYAML(r io.Reader) (Rig, error) {
	var f rigFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("rig: decode yaml: %w", err)
	}

	out := Default()
	for _, o := range f.Cameras {
		i := out.Index(o.ID)
		if i < 0 {
			return nil, fmt.Errorf("rig: unknown camera %q", o.ID)
		}
		out[i] = merge(out[i], o)
	}

	if errs := out.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("rig: validation failed: %v", errs)
	}
	return out, nil
}

func merge(base, o CameraSpec) CameraSpec {
	if o.Name != "" {
		base.Name = o.Name
	}
	if o.YawDeg != 0 {
		base.YawDeg = o.YawDeg
	}
	if o.FOVHDeg != 0 {
		base.FOVHDeg = o.FOVHDeg
	}
	if o.Width != 0 {
		base.Width = o.Width
	}
	if o.Height != 0 {
		base.Height = o.Height
	}
	return base
}

// normalizeDeg maps a finite angle into [0, 360).
func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
