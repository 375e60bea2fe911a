package media

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-teslacam/internal/log"
)

// VideoFile decodes a clip with OpenCV. Frames are decoded lazily: Frame
// reads forward until the decoder catches up with the media clock.
type VideoFile struct {
	path string

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	fps      float64
	frames   int
	decoded  int // index of the frame held in latest, -1 if none
	latest   image.Image
	clock    *Clock
	closed   bool
	duration float64
}

// NewVideoFile creates an unopened video source. The file is opened in Prime.
func NewVideoFile(path string) *VideoFile {
	return &VideoFile{path: path, decoded: -1, clock: NewClock(nil)}
}

// Path returns the clip path.
func (v *VideoFile) Path() string { return v.path }

// Prime opens the file, reads stream properties and decodes the first frame.
func (v *VideoFile) Prime(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	capture, err := gocv.VideoCaptureFile(v.path)
	if err != nil {
		return fmt.Errorf("media: open %s: %w", v.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("media: open %s: decoder not ready", v.path)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	frames := int(capture.Get(gocv.VideoCaptureFrameCount))
	if fps <= 0 || math.IsNaN(fps) || frames <= 0 {
		capture.Close()
		return fmt.Errorf("media: %s: unusable stream (fps=%v frames=%d)", v.path, fps, frames)
	}

	v.capture = capture
	v.mat = gocv.NewMat()
	v.fps = fps
	v.frames = frames
	v.duration = float64(frames) / fps
	v.decoded = -1
	v.clock.Set(0)

	if err := ctx.Err(); err != nil {
		v.closeLocked()
		return err
	}
	v.decodeUntil(0)

	log.Component("media").Debug("video primed", "path", v.path, "fps", fps, "frames", frames)
	return nil
}

// Play implements playback.Source.
func (v *VideoFile) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.capture == nil {
		return ErrClosed
	}
	v.clock.Start()
	return nil
}

// Pause implements playback.Source.
func (v *VideoFile) Pause() { v.clock.Stop() }

// CurrentTime implements playback.Source.
func (v *VideoFile) CurrentTime() float64 {
	t := v.clock.Time()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.duration > 0 && t > v.duration {
		return v.duration
	}
	return t
}

// Duration implements playback.Source.
func (v *VideoFile) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

// Seek repositions the decoder and the clock.
func (v *VideoFile) Seek(t float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.capture == nil {
		return ErrClosed
	}

	target := int(t * v.fps)
	if target >= v.frames {
		target = v.frames - 1
	}
	if target < 0 {
		target = 0
	}
	v.capture.Set(gocv.VideoCapturePosFrames, float64(target))
	v.decoded = target - 1
	v.clock.Set(t)
	v.decodeUntil(target)
	return nil
}

// Frame returns the frame for the current media time.
func (v *VideoFile) Frame() image.Image {
	t := v.clock.Time()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.capture == nil {
		return nil
	}

	target := min(int(t*v.fps), v.frames-1)
	v.decodeUntil(target)
	return v.latest
}

// decodeUntil reads forward to frame index target. Frames skipped on the way
// are grabbed but not converted.
func (v *VideoFile) decodeUntil(target int) {
	for v.decoded < target {
		if skip := target - 1 - v.decoded; skip > 0 {
			v.capture.Grab(skip)
			v.decoded += skip
		}
		if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
			return
		}
		v.decoded++
		img, err := v.mat.ToImage()
		if err != nil {
			log.Component("media").Warn("frame conversion failed", "path", v.path, "frame", v.decoded, "error", err)
			return
		}
		v.latest = img
	}
}

// Close releases the decoder. Safe to call more than once.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.clock.Stop()
	return v.closeLocked()
}

func (v *VideoFile) closeLocked() error {
	var err error
	if v.capture != nil {
		err = v.capture.Close()
		v.capture = nil
		v.mat.Close()
	}
	v.latest = nil
	return err
}
