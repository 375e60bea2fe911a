package motion

import (
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-teslacam/pkg/telemetry"
)

// Offsets is the motion applied to the panorama once per render tick.
// It is never applied to the user's orbit controls.
type Offsets struct {
	Roll         float64 `json:"roll"`  // radians
	Pitch        float64 `json:"pitch"` // radians
	ShakeX       float64 `json:"shake_x"`
	ShakeY       float64 `json:"shake_y"`
	AutoSteerYaw float64 `json:"auto_steer_yaw"` // radians
}

// State is a snapshot of the engine's internal motion state.
type State struct {
	Offsets

	// G is the smoothed acceleration: X longitudinal, Y lateral,
	// Z vertical relative to the gravity baseline.
	G telemetry.Vec3 `json:"g"`

	// Baseline is the latched gravity reading, nil until calibrated.
	Baseline *float64 `json:"baseline,omitempty"`

	HasTelemetry bool `json:"has_telemetry"`
}

// Engine converts telemetry samples into smoothed, clamped motion offsets.
// Update is called once per render tick.
type Engine struct {
	mu       sync.Mutex
	config   Config
	smoother Smoother

	g        telemetry.Vec3
	baseline float64
	latched  bool
	valid    bool
	speed    float64

	roll  float64
	pitch float64

	// Shake components, each smoothed on the faster constant.
	roadX     float64
	roadY     float64
	bump      float64
	roadPhase float64

	// Auto-steer
	wheel        float64 // smoothed steering wheel angle, degrees
	headingAccum float64
	prevHeading  float64
	hasHeading   bool
	yaw          float64
}

// NewEngine creates an engine with the given config and the per-tick Lerp smoother.
func NewEngine(cfg Config) *Engine {
	return &Engine{config: cfg, smoother: Lerp{}}
}

// SetSmoother swaps the smoothing strategy.
func (e *Engine) SetSmoother(s Smoother) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s == nil {
		s = Lerp{}
	}
	e.smoother = s
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetConfig replaces the configuration. State is kept, so toggling effects
// off makes the output decay rather than snap.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg
}

// Reset returns every value to zero and clears the calibration latch.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.g = telemetry.Vec3{}
	e.baseline, e.latched, e.valid, e.speed = 0, false, false, 0
	e.roll, e.pitch = 0, 0
	e.roadX, e.roadY, e.bump, e.roadPhase = 0, 0, 0, 0
	e.wheel, e.headingAccum, e.prevHeading, e.hasHeading = 0, 0, 0, false
	e.yaw = 0
}

// Discontinuity tells the engine the timeline jumped (seek), so the next
// heading is not compared against one from a different place in the clip.
func (e *Engine) Discontinuity() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hasHeading = false
}

// Current returns the offsets to apply this tick.
func (e *Engine) Current() Offsets {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offsets()
}

// State returns a full snapshot of the motion state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Offsets:      e.offsets(),
		G:            e.g,
		HasTelemetry: e.valid,
	}
	if e.latched {
		b := e.baseline
		st.Baseline = &b
	}
	return st
}

func (e *Engine) offsets() Offsets {
	return Offsets{
		Roll:         e.roll,
		Pitch:        e.pitch,
		ShakeX:       e.roadX,
		ShakeY:       e.roadY + e.bump,
		AutoSteerYaw: e.yaw,
	}
}

// Update advances the motion state by one tick. A nil sample means no
// telemetry is available at the current playback time.
func (e *Engine) Update(sample *telemetry.Sample, dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.valid = sample != nil && sample.Valid()
	e.speed = 0
	if e.valid && sample.HasSpeed {
		e.speed = math.Min(math.Abs(finite(sample.SpeedMps)), MaxSpeed)
	}

	e.updateGForce(sample, dt)
	e.updateAutoSteer(sample, dt)
}

func (e *Engine) smooth(current, target, factor float64, dt time.Duration) float64 {
	return e.smoother.Smooth(current, target, factor, dt)
}

func (e *Engine) updateGForce(sample *telemetry.Sample, dt time.Duration) {
	cfg := e.config
	f := cfg.SmoothingFactor
	shakeF := math.Min(1, f*ShakeSmoothingScale)
	active := e.valid && cfg.MotionEffectsEnabled

	var raw telemetry.Vec3
	if e.valid && sample.HasAccel {
		z := clamp(finite(sample.Accel.Z), -MaxAccel, MaxAccel)
		if !e.latched && z != 0 {
			e.baseline = z
			e.latched = true
		}
		raw = telemetry.Vec3{
			X: clamp(finite(sample.Accel.X), -MaxAccel, MaxAccel),
			Y: clamp(finite(sample.Accel.Y), -MaxAccel, MaxAccel),
		}
		if e.latched {
			raw.Z = z - e.baseline
		}
	}

	if active {
		e.g.X = e.smooth(e.g.X, raw.X, f, dt)
		e.g.Y = e.smooth(e.g.Y, raw.Y, f, dt)
		e.g.Z = e.smooth(e.g.Z, raw.Z, f, dt)
	} else {
		e.g.X = e.smooth(e.g.X, 0, f, dt)
		e.g.Y = e.smooth(e.g.Y, 0, f, dt)
		e.g.Z = e.smooth(e.g.Z, 0, f, dt)
	}

	var targetRoll, targetPitch float64
	if active {
		targetRoll = clamp(e.g.Y*cfg.RollMultiplier*cfg.MotionIntensity, -cfg.MaxRoll, cfg.MaxRoll)
		targetPitch = clamp(e.g.X*cfg.PitchMultiplier*cfg.MotionIntensity, -cfg.MaxPitch, cfg.MaxPitch)
	}
	e.roll = clamp(e.smooth(e.roll, targetRoll, f, dt), -cfg.MaxRoll, cfg.MaxRoll)
	e.pitch = clamp(e.smooth(e.pitch, targetPitch, f, dt), -cfg.MaxPitch, cfg.MaxPitch)

	var roadX, roadY, bump float64
	if active && e.speed > MovingSpeed {
		secs := dt.Seconds()
		if secs <= 0 {
			secs = ReferenceTick
		}
		e.roadPhase = math.Mod(e.roadPhase+e.speed*cfg.RoadTextureFreq*secs, 2*math.Pi*1000)

		amp := cfg.SpeedShakeBase * e.speed * cfg.ShakeMultiplier * cfg.MotionIntensity
		p := e.roadPhase
		roadY = amp * (0.6*math.Sin(p) + 0.3*math.Sin(2.7*p+1.3) + 0.1*math.Sin(6.1*p+0.7))
		roadX = amp * 0.5 * (0.6*math.Sin(1.3*p+2.1) + 0.4*math.Sin(3.7*p+0.4))
		bump = e.g.Z * BumpGain * cfg.ShakeMultiplier * cfg.MotionIntensity
	}
	e.roadX = clamp(e.smooth(e.roadX, roadX, shakeF, dt), -MaxShake, MaxShake)
	e.roadY = clamp(e.smooth(e.roadY, roadY, shakeF, dt), -MaxShake, MaxShake)
	e.bump = clamp(e.smooth(e.bump, bump, shakeF, dt), -MaxShake, MaxShake)
}

func (e *Engine) updateAutoSteer(sample *telemetry.Sample, dt time.Duration) {
	cfg := e.config

	wheelTarget := 0.0
	if e.valid {
		wheelTarget = clamp(finite(sample.SteeringWheelAngleDeg), -MaxWheelAngleDeg, MaxWheelAngleDeg)
	}
	e.wheel = e.smooth(e.wheel, wheelTarget, SteerSmoothing, dt)

	if e.valid && sample.HasHeading && !math.IsNaN(sample.HeadingDeg) && !math.IsInf(sample.HeadingDeg, 0) {
		if e.hasHeading {
			e.headingAccum += HeadingDelta(e.prevHeading, sample.HeadingDeg) * HeadingGain
		}
		e.prevHeading = sample.HeadingDeg
		e.hasHeading = true
	}
	e.headingAccum = clamp(e.headingAccum*HeadingDecay, -HeadingAccumLimit, HeadingAccumLimit)

	target := 0.0
	if cfg.AutoSteerEnabled && e.valid && e.speed >= AutoSteerMinSpeed {
		wheelFactor := clamp(e.wheel/SteeringFullScaleDeg, -1, 1)
		w := clamp((e.speed-BlendLowSpeed)/(BlendHighSpeed-BlendLowSpeed), 0, 1)
		blended := wheelFactor*(1-w) + e.headingAccum*w
		target = clamp(blended*cfg.AutoSteerIntensity*MaxAutoSteerYaw, -MaxAutoSteerYaw, MaxAutoSteerYaw)
	}
	e.yaw = clamp(e.smooth(e.yaw, target, AutoSteerSmoothing, dt), -MaxAutoSteerYaw, MaxAutoSteerYaw)
}

// finite maps NaN and ±Inf readings to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
