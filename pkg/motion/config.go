// Package motion turns telemetry into bounded view-motion offsets: body
// roll/pitch from G-forces, chassis shake from speed and bumps, and an
// auto-steer yaw from steering input blended with GPS heading change.
package motion

import (
	"fmt"
	"math"
)

// Fixed tuning that is not exposed to users.
const (
	// MovingSpeed is the speed (m/s) above which the vehicle counts as moving
	// for road-texture shake.
	MovingSpeed = 0.5

	// ShakeSmoothingScale makes shake react faster than roll/pitch.
	ShakeSmoothingScale = 3.0

	// BumpGain converts baseline-adjusted vertical accel (m/s²) to shake.
	BumpGain = 0.002

	// MaxShake bounds each shake axis.
	MaxShake = 0.05

	// MaxAutoSteerYaw is the largest auto-steer view rotation (15°).
	MaxAutoSteerYaw = 15.0 * math.Pi / 180.0

	// AutoSteerMinSpeed is the speed (m/s) below which auto-steer yaw decays to zero.
	AutoSteerMinSpeed = 1.0

	// SteeringFullScaleDeg is the wheel angle that maps to full auto-steer.
	SteeringFullScaleDeg = 90.0

	// SteerSmoothing is the per-tick factor for the wheel-angle signal.
	SteerSmoothing = 0.1

	// AutoSteerSmoothing is the per-tick factor for the yaw output.
	AutoSteerSmoothing = 0.05

	// HeadingGain scales each heading delta (degrees) into the accumulator.
	HeadingGain = 0.05

	// HeadingDecay is applied to the accumulator every tick.
	HeadingDecay = 0.95

	// HeadingAccumLimit bounds the accumulator (same units as the wheel factor).
	HeadingAccumLimit = 1.0

	// Between these speeds (m/s) the blend moves from wheel angle to heading.
	BlendLowSpeed  = 5.0
	BlendHighSpeed = 20.0

	// Sensor ranges; readings outside are clipped before smoothing.
	MaxAccel         = 100.0 // m/s², ~10 g
	MaxSpeed         = 120.0 // m/s
	MaxWheelAngleDeg = 720.0

	// ReferenceTick is the tick length the per-tick factors were tuned at.
	ReferenceTick = 1.0 / 60.0
)

// Config holds the user-adjustable motion parameters.
// These can be modified via the motion API at runtime.
type Config struct {
	// === Switches ===
	MotionEffectsEnabled bool    `json:"motion_effects_enabled" yaml:"motion_effects_enabled"`
	MotionIntensity      float64 `json:"motion_intensity" yaml:"motion_intensity"` // 0-2, scales roll/pitch/shake
	AutoSteerEnabled     bool    `json:"auto_steer_enabled" yaml:"auto_steer_enabled"`
	AutoSteerIntensity   float64 `json:"auto_steer_intensity" yaml:"auto_steer_intensity"` // 0-1

	// === G-force ===
	// RollMultiplier is radians of roll per m/s² of lateral acceleration.
	RollMultiplier float64 `json:"roll_multiplier" yaml:"roll_multiplier"`
	// PitchMultiplier is radians of pitch per m/s² of longitudinal acceleration.
	PitchMultiplier float64 `json:"pitch_multiplier" yaml:"pitch_multiplier"`
	// ShakeMultiplier scales both road texture and bump shake.
	ShakeMultiplier float64 `json:"shake_multiplier" yaml:"shake_multiplier"`
	// SmoothingFactor is the per-tick blend toward new G readings and roll/pitch
	// targets (0-1, higher = more responsive).
	SmoothingFactor float64 `json:"smoothing_factor" yaml:"smoothing_factor"`
	MaxRoll         float64 `json:"max_roll" yaml:"max_roll"`   // radians
	MaxPitch        float64 `json:"max_pitch" yaml:"max_pitch"` // radians

	// === Road texture ===
	// SpeedShakeBase is road-texture amplitude per m/s of speed.
	SpeedShakeBase float64 `json:"speed_shake_base" yaml:"speed_shake_base"`
	// RoadTextureFreq is oscillator phase (radians) advanced per metre travelled.
	RoadTextureFreq float64 `json:"road_texture_freq" yaml:"road_texture_freq"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		MotionEffectsEnabled: true,
		MotionIntensity:      1.0,
		AutoSteerEnabled:     true,
		AutoSteerIntensity:   0.5,

		RollMultiplier:  0.012, // ~0.7° per m/s²
		PitchMultiplier: 0.010,
		ShakeMultiplier: 1.0,
		SmoothingFactor: 0.08,
		MaxRoll:         0.06, // ~3.4°
		MaxPitch:        0.05, // ~2.9°

		SpeedShakeBase:  0.00015,
		RoadTextureFreq: 1.2,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.MotionIntensity < 0 || c.MotionIntensity > 2 {
		errors = append(errors, "motion_intensity must be between 0 and 2")
	}
	if c.AutoSteerIntensity < 0 || c.AutoSteerIntensity > 1 {
		errors = append(errors, "auto_steer_intensity must be between 0 and 1")
	}
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		errors = append(errors, "smoothing_factor must be in (0, 1]")
	}
	if c.MaxRoll < 0 || c.MaxRoll > math.Pi/4 {
		errors = append(errors, "max_roll must be between 0 and π/4")
	}
	if c.MaxPitch < 0 || c.MaxPitch > math.Pi/4 {
		errors = append(errors, "max_pitch must be between 0 and π/4")
	}
	for name, v := range map[string]float64{
		"roll_multiplier":   c.RollMultiplier,
		"pitch_multiplier":  c.PitchMultiplier,
		"shake_multiplier":  c.ShakeMultiplier,
		"speed_shake_base":  c.SpeedShakeBase,
		"road_texture_freq": c.RoadTextureFreq,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errors = append(errors, fmt.Sprintf("%s must be a finite non-negative number", name))
		}
	}

	return errors
}

// Clamp returns a copy with every tunable pulled into its valid range.
// Non-finite values fall back to the defaults.
func (c Config) Clamp() Config {
	d := DefaultConfig()
	fix := func(v, def, lo, hi float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return clamp(v, lo, hi)
	}

	c.MotionIntensity = fix(c.MotionIntensity, d.MotionIntensity, 0, 2)
	c.AutoSteerIntensity = fix(c.AutoSteerIntensity, d.AutoSteerIntensity, 0, 1)
	c.SmoothingFactor = fix(c.SmoothingFactor, d.SmoothingFactor, 1e-3, 1)
	c.MaxRoll = fix(c.MaxRoll, d.MaxRoll, 0, math.Pi/4)
	c.MaxPitch = fix(c.MaxPitch, d.MaxPitch, 0, math.Pi/4)
	c.RollMultiplier = fix(c.RollMultiplier, d.RollMultiplier, 0, math.MaxFloat64)
	c.PitchMultiplier = fix(c.PitchMultiplier, d.PitchMultiplier, 0, math.MaxFloat64)
	c.ShakeMultiplier = fix(c.ShakeMultiplier, d.ShakeMultiplier, 0, math.MaxFloat64)
	c.SpeedShakeBase = fix(c.SpeedShakeBase, d.SpeedShakeBase, 0, math.MaxFloat64)
	c.RoadTextureFreq = fix(c.RoadTextureFreq, d.RoadTextureFreq, 0, math.MaxFloat64)
	return c
}
