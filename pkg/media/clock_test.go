package media

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestClock(t *testing.T) {
	fn := &fakeNow{t: time.Unix(1000, 0)}
	c := NewClock(fn.now)

	fn.advance(time.Second)
	if c.Time() != 0 {
		t.Errorf("stopped clock advanced: %v", c.Time())
	}

	c.Start()
	fn.advance(1500 * time.Millisecond)
	if got := c.Time(); got != 1.5 {
		t.Errorf("Expected 1.5, got %v", got)
	}

	c.Stop()
	fn.advance(time.Second)
	if got := c.Time(); got != 1.5 {
		t.Errorf("Expected frozen at 1.5, got %v", got)
	}

	c.Set(10)
	c.Start()
	fn.advance(250 * time.Millisecond)
	if got := c.Time(); got != 10.25 {
		t.Errorf("Expected 10.25, got %v", got)
	}
	if !c.Running() {
		t.Error("Expected running")
	}
}

func TestStill_Lifecycle(t *testing.T) {
	fn := &fakeNow{t: time.Unix(0, 0)}
	img := image.NewUniform(color.RGBA{R: 200, A: 255})
	s := NewStill(img, 30*time.Second, fn.now)

	if err := s.Prime(context.Background()); err != nil {
		t.Fatalf("Prime: %v", err)
	}
	if s.Duration() != 30 {
		t.Errorf("Expected duration 30, got %v", s.Duration())
	}
	if err := s.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	fn.advance(2 * time.Second)
	if s.CurrentTime() != 2 {
		t.Errorf("Expected 2s, got %v", s.CurrentTime())
	}
	if err := s.Seek(12); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if s.CurrentTime() != 12 {
		t.Errorf("Expected 12s after seek, got %v", s.CurrentTime())
	}
	if s.Frame() != img {
		t.Error("Expected still image")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.Frame() != nil {
		t.Error("Expected nil frame after close")
	}
	if err := s.Play(); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestStill_PrimeHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStill(image.NewUniform(color.Black), time.Second, nil)
	if err := s.Prime(ctx); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestVideoFile_MissingFile(t *testing.T) {
	v := NewVideoFile("/nonexistent/2025-01-01_00-00-00-front.mp4")
	if err := v.Prime(context.Background()); err == nil {
		t.Fatal("Expected error for missing clip")
	}
	if err := v.Close(); err != nil {
		t.Errorf("Close after failed prime: %v", err)
	}
	if v.Frame() != nil {
		t.Error("Expected nil frame")
	}
}
