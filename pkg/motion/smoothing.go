package motion

import (
	"math"
	"time"
)

// Smoother moves a value toward a target. factor is the per-reference-tick
// blend (0-1); dt is the time since the previous tick.
type Smoother interface {
	Smooth(current, target, factor float64, dt time.Duration) float64
}

// Lerp applies the factor once per tick regardless of dt.
// Convergence speed therefore depends on the tick rate.
type Lerp struct{}

// Smooth implements Smoother.
func (Lerp) Smooth(current, target, factor float64, _ time.Duration) float64 {
	return current + (target-current)*clamp(factor, 0, 1)
}

// Exponential rescales the factor by dt so the response per second is the
// same at any tick rate.
type Exponential struct {
	// Reference is the tick length factor was tuned at. Zero means 60 Hz.
	Reference time.Duration
}

// Smooth implements Smoother.
func (e Exponential) Smooth(current, target, factor float64, dt time.Duration) float64 {
	ref := e.Reference
	if ref <= 0 {
		ref = time.Second / 60
	}
	f := clamp(factor, 0, 1)
	if dt <= 0 {
		return current
	}
	alpha := 1 - math.Pow(1-f, dt.Seconds()/ref.Seconds())
	return current + (target-current)*alpha
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HeadingDelta returns the signed shortest-path change from prev to cur in
// degrees, in (-180, 180]. 359° → 2° gives +3°.
func HeadingDelta(prev, cur float64) float64 {
	d := math.Mod(cur-prev, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
