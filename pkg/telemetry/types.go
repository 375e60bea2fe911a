// Package telemetry holds per-frame vehicle state and resolves the sample
// active at an arbitrary playback time.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Gear is the transmission state reported with each frame.
type Gear int

const (
	GearPark Gear = iota
	GearDrive
	GearReverse
	GearNeutral
)

var gearNames = map[Gear]string{
	GearPark:    "GEAR_PARK",
	GearDrive:   "GEAR_DRIVE",
	GearReverse: "GEAR_REVERSE",
	GearNeutral: "GEAR_NEUTRAL",
}

func (g Gear) String() string {
	if s, ok := gearNames[g]; ok {
		return s
	}
	return fmt.Sprintf("GEAR_%d", int(g))
}

// Letter returns the single-letter shifter display (P, D, R, N).
func (g Gear) Letter() string {
	switch g {
	case GearDrive:
		return "D"
	case GearReverse:
		return "R"
	case GearNeutral:
		return "N"
	default:
		return "P"
	}
}

// ParseGear accepts an enum name ("GEAR_DRIVE", "drive") or its number.
func ParseGear(s string) (Gear, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Gear(n), nil
	}
	key := strings.ToUpper(s)
	for g, name := range gearNames {
		if key == name || "GEAR_"+key == name {
			return g, nil
		}
	}
	return GearPark, fmt.Errorf("%w: gear %q", ErrBadField, s)
}

// AutopilotState is the driver-assist mode active for a frame.
type AutopilotState int

const (
	AutopilotNone AutopilotState = iota
	AutopilotSelfDriving
	AutopilotAutosteer
	AutopilotTACC
)

var autopilotNames = map[AutopilotState]string{
	AutopilotNone:        "NONE",
	AutopilotSelfDriving: "SELF_DRIVING",
	AutopilotAutosteer:   "AUTOSTEER",
	AutopilotTACC:        "TACC",
}

func (a AutopilotState) String() string {
	if s, ok := autopilotNames[a]; ok {
		return s
	}
	return fmt.Sprintf("AUTOPILOT_%d", int(a))
}

// ParseAutopilot accepts an enum name ("AUTOSTEER") or its number.
func ParseAutopilot(s string) (AutopilotState, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return AutopilotState(n), nil
	}
	key := strings.ToUpper(s)
	for a, name := range autopilotNames {
		if key == name {
			return a, nil
		}
	}
	return AutopilotNone, fmt.Errorf("%w: autopilot state %q", ErrBadField, s)
}

// Vec3 is a three-axis reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"` // includes gravity for acceleration
}

// Sample is the vehicle state decoded for one media frame. Samples are
// immutable once built.
//
// Presence flags distinguish "field absent" from "field is zero": the encoder
// omits default values, so a missing acceleration block means no data.
type Sample struct {
	FrameSeq uint64 `json:"frame_seq"`

	SpeedMps float64 `json:"speed_mps"`
	HasSpeed bool    `json:"has_speed"`

	Accel    Vec3 `json:"accel"` // m/s²
	HasAccel bool `json:"has_accel"`

	SteeringWheelAngleDeg float64 `json:"steering_wheel_angle_deg"`
	HeadingDeg            float64 `json:"heading_deg"` // 0-360, wraps
	HasHeading            bool    `json:"has_heading"`

	Gear           Gear           `json:"gear"`
	BlinkerLeft    bool           `json:"blinker_left"`
	BlinkerRight   bool           `json:"blinker_right"`
	BrakeApplied   bool           `json:"brake_applied"`
	AcceleratorPct float64        `json:"accelerator_pct"` // 0-100
	Autopilot      AutopilotState `json:"autopilot"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Valid reports whether the sample carries any speed or acceleration data.
func (s Sample) Valid() bool {
	return s.HasSpeed || s.HasAccel
}

// SpeedKph returns the speed in km/h.
func (s Sample) SpeedKph() float64 {
	return s.SpeedMps * 3.6
}

// SpeedMph returns the speed in mph.
func (s Sample) SpeedMph() float64 {
	return s.SpeedMps * 2.2369362920544
}
