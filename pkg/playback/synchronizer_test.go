package playback

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource records calls and exposes a settable clock.
type fakeSource struct {
	mu       sync.Mutex
	duration float64
	now      float64
	primeErr error
	primeDly time.Duration

	primed  bool
	playing bool
	closed  int
	seeks   []float64
}

func (f *fakeSource) Prime(ctx context.Context) error {
	if f.primeDly > 0 {
		select {
		case <-time.After(f.primeDly):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.primeErr != nil {
		return f.primeErr
	}
	f.primed = true
	f.now = 0
	return nil
}

func (f *fakeSource) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	return nil
}

func (f *fakeSource) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeSource) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeSource) Duration() float64 { return f.duration }

func (f *fakeSource) Seek(t float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	f.seeks = append(f.seeks, t)
	return nil
}

func (f *fakeSource) Frame() image.Image { return nil }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSource) setNow(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fakeSource) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func sources(durations ...float64) ([]Source, []*fakeSource) {
	out := make([]Source, len(durations))
	fakes := make([]*fakeSource, len(durations))
	for i, d := range durations {
		fakes[i] = &fakeSource{duration: d}
		out[i] = fakes[i]
	}
	return out, fakes
}

func TestStart_MasterDurationIsMinimumOfEnabled(t *testing.T) {
	srcs, fakes := sources(42.0, 37.5, 40.0, 10.0)
	s := NewSynchronizer(srcs, []bool{true, true, true, false})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.MasterDuration(); got != 37.5 {
		t.Errorf("Expected master duration 37.5, got %v", got)
	}
	for i, f := range fakes[:3] {
		if !f.primed || !f.isPlaying() {
			t.Errorf("camera %d not primed and playing", i)
		}
	}
	if fakes[3].primed || fakes[3].isPlaying() {
		t.Error("disabled camera should not be primed or started")
	}
}

func TestStart_LeaderIsFirstEnabled(t *testing.T) {
	srcs, fakes := sources(30, 30, 30)
	srcs[0] = nil // no source bound for slot 0
	s := NewSynchronizer(srcs, []bool{true, false, true})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Leader() != 2 {
		t.Fatalf("Expected leader 2, got %d", s.Leader())
	}

	fakes[2].setNow(12.5)
	fakes[1].setNow(3) // followers never drive time
	if got := s.CurrentTime(); got != 12.5 {
		t.Errorf("Expected leader time 12.5, got %v", got)
	}

	fakes[2].setNow(99)
	if got := s.CurrentTime(); got != 30 {
		t.Errorf("Expected time bounded by duration, got %v", got)
	}
	if !s.Ended() {
		t.Error("Expected Ended at master duration")
	}
}

func TestSetEnabled_DecidesNextStart(t *testing.T) {
	srcs, fakes := sources(42.0, 37.5, 40.0)
	fakes[1].primeErr = errors.New("decoder rejected stream")
	s := NewSynchronizer(srcs, []bool{true, true, true})

	for _, i := range []int{0, 1} {
		if err := s.SetEnabled(i, false); err != nil {
			t.Fatalf("SetEnabled(%d): %v", i, err)
		}
	}
	if err := s.SetEnabled(6, true); err == nil {
		t.Error("Expected error for out-of-range slot")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.MasterDuration(); got != 40 {
		t.Errorf("Expected master duration 40, got %v", got)
	}
	if s.Leader() != 2 {
		t.Errorf("Expected leader 2, got %d", s.Leader())
	}
	if fakes[0].primed || fakes[1].primed {
		t.Error("disabled cameras should not be primed")
	}
	if err := s.SetEnabled(0, true); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}

	if err := s.CommitSeek(5); err != nil {
		t.Fatalf("CommitSeek: %v", err)
	}
	if len(fakes[0].seeks) != 0 {
		t.Error("disabled camera should not be seeked")
	}
}

func TestStart_NoEnabledSources(t *testing.T) {
	srcs, _ := sources(10, 10)
	s := NewSynchronizer(srcs, []bool{false, false})
	if err := s.Start(context.Background()); !errors.Is(err, ErrNoEnabledSources) {
		t.Errorf("Expected ErrNoEnabledSources, got %v", err)
	}
}

func TestStart_PrimeFailureReleasesEverything(t *testing.T) {
	srcs, fakes := sources(10, 10, 10, 10)
	fakes[2].primeErr = errors.New("moov atom not found")
	fakes[0].primeDly = 20 * time.Millisecond

	s := NewSynchronizer(srcs, []bool{true, true, true, false})
	err := s.Start(context.Background())
	if !errors.Is(err, ErrPrimeFailed) {
		t.Fatalf("Expected ErrPrimeFailed, got %v", err)
	}
	if !errors.Is(err, fakes[2].primeErr) {
		t.Errorf("Expected cause to be wrapped, got %v", err)
	}

	for i, f := range fakes {
		if f.closed != 1 {
			t.Errorf("camera %d closed %d times, want 1", i, f.closed)
		}
		if f.isPlaying() {
			t.Errorf("camera %d started despite failure", i)
		}
	}

	// Teardown after failure is still safe and does not double-close.
	if err := s.Teardown(); err != nil {
		t.Errorf("Teardown: %v", err)
	}
	for i, f := range fakes {
		if f.closed != 1 {
			t.Errorf("camera %d closed %d times after teardown", i, f.closed)
		}
	}
}

func TestStart_ContextCancelled(t *testing.T) {
	srcs, fakes := sources(10)
	fakes[0].primeDly = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSynchronizer(srcs, []bool{true})
	if err := s.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}

func TestSeek(t *testing.T) {
	srcs, fakes := sources(20, 25)
	s := NewSynchronizer(srcs, []bool{true, true})

	if err := s.CommitSeek(1); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.BeginSeek()
	if !s.Seeking() {
		t.Fatal("Expected seeking")
	}
	if err := s.CommitSeek(7.25); err != nil {
		t.Fatalf("CommitSeek: %v", err)
	}
	if s.Seeking() {
		t.Error("Expected seek to end on commit")
	}
	for i, f := range fakes {
		if f.CurrentTime() != 7.25 {
			t.Errorf("camera %d at %v, want 7.25", i, f.CurrentTime())
		}
	}

	if err := s.CommitSeek(1000); err != nil {
		t.Fatalf("CommitSeek: %v", err)
	}
	if got := s.CurrentTime(); got != 20 {
		t.Errorf("Expected seek clamped to 20, got %v", got)
	}
}

func TestPauseResume(t *testing.T) {
	srcs, fakes := sources(20, 20)
	s := NewSynchronizer(srcs, []bool{true, true})
	if err := s.Resume(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.Pause()
	s.Pause() // idempotent
	if s.Playing() {
		t.Error("Expected paused")
	}
	for i, f := range fakes {
		if f.isPlaying() {
			t.Errorf("camera %d still playing", i)
		}
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	for i, f := range fakes {
		if !f.isPlaying() {
			t.Errorf("camera %d not resumed", i)
		}
	}
}

type countingCloser struct {
	fakeSource
	n *atomic.Int32
}

func (c *countingCloser) Close() error {
	c.n.Add(1)
	return errors.New("already gone")
}

func TestTeardown_ReleasesAllBindings(t *testing.T) {
	var n atomic.Int32
	srcs := []Source{
		&countingCloser{fakeSource: fakeSource{duration: 5}, n: &n},
		nil,
		&countingCloser{fakeSource: fakeSource{duration: 5}, n: &n},
	}
	s := NewSynchronizer(srcs, []bool{true, true, false})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.Teardown(); err == nil {
		t.Error("Expected close errors to be reported")
	}
	if n.Load() != 2 {
		t.Errorf("Expected 2 closes, got %d", n.Load())
	}
	if s.Source(0) != nil || s.Source(2) != nil {
		t.Error("Expected bindings cleared")
	}

	if err := s.Teardown(); err != nil {
		t.Errorf("second Teardown: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrTornDown) {
		t.Errorf("Expected ErrTornDown, got %v", err)
	}
}
