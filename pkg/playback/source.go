// Package playback keeps up to six independently decoding media sources on
// one timeline. The first enabled source leads: its clock is the session's
// playback time.
package playback

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrNoEnabledSources is returned by Start when no slot has a bound, enabled source.
	ErrNoEnabledSources = errors.New("playback: no enabled sources")

	// ErrPrimeFailed is returned by Start when any enabled source fails to become ready.
	ErrPrimeFailed = errors.New("playback: source failed to prime")

	// ErrNotStarted is returned by operations that need a started session.
	ErrNotStarted = errors.New("playback: not started")

	// ErrAlreadyStarted is returned by SetEnabled once playback has started.
	ErrAlreadyStarted = errors.New("playback: already started")

	// ErrTornDown is returned after Teardown.
	ErrTornDown = errors.New("playback: torn down")
)

// Source is one camera's decoded media. Implementations expose a clock that
// advances on its own while playing; the synchronizer only reads it.
type Source interface {
	// Prime seeks to time 0 and blocks until the source is ready to play.
	Prime(ctx context.Context) error

	// Play starts or resumes the media clock.
	Play() error

	// Pause halts the media clock.
	Pause()

	// CurrentTime returns the media clock in seconds.
	CurrentTime() float64

	// Duration returns the media length in seconds. Valid after Prime.
	Duration() float64

	// Seek moves the media clock to t seconds.
	Seek(t float64) error

	// Frame returns the decoded frame for the current time, or nil if none
	// has been decoded yet.
	Frame() image.Image

	// Close releases decoder resources. It must be safe to call more than once.
	Close() error
}
