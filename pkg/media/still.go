package media

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a closed source.
var ErrClosed = errors.New("media: source closed")

// Still is a source that shows one image for a fixed duration. It is used to
// calibrate the rig from photos and as a deterministic source in tests.
type Still struct {
	mu       sync.Mutex
	img      image.Image
	duration float64
	clock    *Clock
	closed   bool
}

// NewStill creates a still source. now may be nil for wall time.
func NewStill(img image.Image, duration time.Duration, now func() time.Time) *Still {
	return &Still{
		img:      img,
		duration: duration.Seconds(),
		clock:    NewClock(now),
	}
}

// Prime implements playback.Source.
func (s *Still) Prime(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.clock.Set(0)
	return nil
}

// Play implements playback.Source.
func (s *Still) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.clock.Start()
	return nil
}

// Pause implements playback.Source.
func (s *Still) Pause() { s.clock.Stop() }

// CurrentTime implements playback.Source.
func (s *Still) CurrentTime() float64 { return s.clock.Time() }

// Duration implements playback.Source.
func (s *Still) Duration() float64 { return s.duration }

// Seek implements playback.Source.
func (s *Still) Seek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.clock.Set(t)
	return nil
}

// Frame implements playback.Source.
func (s *Still) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.img
}

// Close implements playback.Source.
func (s *Still) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.clock.Stop()
	return nil
}
