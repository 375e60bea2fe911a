package telemetry

import (
	"fmt"
	"math"
	"sort"
)

// Timeline holds the cumulative start time (seconds) of each frame.
// Start times are non-decreasing.
type Timeline []float64

// UniformTimeline builds a timeline of n frames at a constant frame rate.
func UniformTimeline(n int, fps float64) (Timeline, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("%w: fps %v", ErrBadTimeline, fps)
	}
	tl := make(Timeline, n)
	for i := range tl {
		tl[i] = float64(i) / fps
	}
	return tl, nil
}

// TimelineFromDurations accumulates per-frame durations into start times.
// Decoders report irregular frame durations, so frames need not be evenly spaced.
func TimelineFromDurations(durations []float64) (Timeline, error) {
	tl := make(Timeline, len(durations))
	var acc float64
	for i, d := range durations {
		if d < 0 || math.IsNaN(d) {
			return nil, fmt.Errorf("%w: frame %d duration %v", ErrBadTimeline, i, d)
		}
		tl[i] = acc
		acc += d
	}
	return tl, nil
}

// Sampler resolves the telemetry sample active at a playback time.
// It is a pure function of its two immutable arrays.
type Sampler struct {
	samples []Sample
	starts  Timeline
}

// NewSampler pairs samples with frame start times. When the two differ in
// length the extra tail of the longer one is ignored.
func NewSampler(samples []Sample, starts Timeline) *Sampler {
	n := min(len(samples), len(starts))
	return &Sampler{
		samples: samples[:n:n],
		starts:  starts[:n:n],
	}
}

// Len returns the number of addressable frames.
func (s *Sampler) Len() int {
	if s == nil {
		return 0
	}
	return len(s.starts)
}

// IndexAt returns the greatest frame index whose start time is <= t,
// or -1 if t precedes the first frame or there are no frames.
func (s *Sampler) IndexAt(t float64) int {
	n := s.Len()
	if n == 0 || math.IsNaN(t) || t < s.starts[0] {
		return -1
	}
	return sort.Search(n, func(i int) bool { return s.starts[i] > t }) - 1
}

// SampleAt returns the sample active at playback time t.
// Times past the last frame resolve to the last frame.
func (s *Sampler) SampleAt(t float64) (Sample, bool) {
	i := s.IndexAt(t)
	if i < 0 {
		return Sample{}, false
	}
	return s.samples[i], true
}

// StartTime returns the start time of frame i.
func (s *Sampler) StartTime(i int) float64 {
	return s.starts[i]
}
