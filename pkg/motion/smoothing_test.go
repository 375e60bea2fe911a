package motion

import (
	"math"
	"testing"
	"time"
)

func TestHeadingDelta(t *testing.T) {
	tests := []struct {
		prev, cur, want float64
	}{
		{359, 2, 3},
		{2, 359, -3},
		{0, 180, 180},
		{180, 0, 180},
		{90, 100, 10},
		{350, 350, 0},
		{10, 370, 0},
	}
	for _, tc := range tests {
		if got := HeadingDelta(tc.prev, tc.cur); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("HeadingDelta(%v, %v) = %v, want %v", tc.prev, tc.cur, got, tc.want)
		}
	}
}

func TestLerp(t *testing.T) {
	if got := (Lerp{}).Smooth(0, 10, 0.1, 0); math.Abs(got-1) > 1e-12 {
		t.Errorf("Lerp = %v, want 1", got)
	}
	if got := (Lerp{}).Smooth(0, 10, 5, 0); got != 10 {
		t.Errorf("factor above 1 should clamp, got %v", got)
	}
}

// After one second the exponential smoother reaches the same value no
// matter how the second is divided into ticks.
func TestExponential_TickRateIndependent(t *testing.T) {
	run := func(hz int) float64 {
		sm := Exponential{}
		dt := time.Second / time.Duration(hz)
		v := 0.0
		for i := 0; i < hz; i++ {
			v = sm.Smooth(v, 1, 0.08, dt)
		}
		return v
	}

	want := 1 - math.Pow(0.92, 60)
	for _, hz := range []int{30, 60, 120, 144} {
		if got := run(hz); math.Abs(got-want) > 1e-6 {
			t.Errorf("%d Hz: got %v, want %v", hz, got, want)
		}
	}

	// At the reference tick it matches Lerp.
	a := (Exponential{}).Smooth(0, 1, 0.08, time.Second/60)
	if math.Abs(a-0.08) > 1e-6 {
		t.Errorf("reference tick alpha = %v, want 0.08", a)
	}

	if got := (Exponential{}).Smooth(3, 1, 0.5, 0); got != 3 {
		t.Errorf("zero dt should not move, got %v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config invalid: %v", errs)
	}

	cfg.MotionIntensity = 2.5
	cfg.AutoSteerIntensity = -0.1
	cfg.SmoothingFactor = 0
	cfg.RollMultiplier = math.NaN()
	if errs := cfg.Validate(); len(errs) != 4 {
		t.Errorf("Expected 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestConfig_Clamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MotionIntensity = 2.5
	cfg.AutoSteerIntensity = -0.1
	cfg.SmoothingFactor = 0
	cfg.RollMultiplier = math.NaN()
	cfg.MaxRoll = math.Inf(1)

	got := cfg.Clamp()
	if errs := got.Validate(); len(errs) != 0 {
		t.Fatalf("clamped config invalid: %v", errs)
	}
	if got.MotionIntensity != 2 || got.AutoSteerIntensity != 0 {
		t.Errorf("Expected intensities 2/0, got %v/%v", got.MotionIntensity, got.AutoSteerIntensity)
	}
	if got.RollMultiplier != DefaultConfig().RollMultiplier || got.MaxRoll != DefaultConfig().MaxRoll {
		t.Errorf("Expected non-finite values to fall back to defaults, got %+v", got)
	}
	if cfg.MotionIntensity != 2.5 {
		t.Error("Clamp must not modify the receiver")
	}
}
