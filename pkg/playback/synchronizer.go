package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/teslashibe/go-teslacam/internal/log"
	"github.com/teslashibe/go-teslacam/pkg/rig"
)

// Synchronizer owns the camera slots of one playback session.
type Synchronizer struct {
	mu sync.Mutex

	sources [rig.NumCameras]Source
	enabled [rig.NumCameras]bool

	leader   int
	duration float64

	started  bool
	playing  bool
	seeking  bool
	tornDown bool
}

// NewSynchronizer binds sources to camera slots. A nil entry is the
// "no source" placeholder; extra entries beyond NumCameras are ignored.
func NewSynchronizer(sources []Source, enabled []bool) *Synchronizer {
	s := &Synchronizer{leader: -1}
	for i := 0; i < rig.NumCameras; i++ {
		if i < len(sources) {
			s.sources[i] = sources[i]
		}
		if i < len(enabled) {
			s.enabled[i] = enabled[i]
		}
	}
	return s
}

// SetEnabled sets whether slot i takes part in the next Start. Slots are
// fixed once playback has started.
func (s *Synchronizer) SetEnabled(i int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= rig.NumCameras {
		return fmt.Errorf("playback: camera index %d out of range", i)
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.enabled[i] = enabled
	return nil
}

// active reports whether slot i participates in playback.
func (s *Synchronizer) active(i int) bool {
	return s.enabled[i] && s.sources[i] != nil
}

// Start primes every enabled source concurrently and waits for all of them.
// If any fails, every bound source is released before the error is returned.
// On success all sources are started together.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tornDown {
		return ErrTornDown
	}

	leader := -1
	for i := range s.sources {
		if s.active(i) {
			leader = i
			break
		}
	}
	if leader < 0 {
		return ErrNoEnabledSources
	}

	logger := log.Component("playback")

	errs := make([]error, rig.NumCameras)
	var wg sync.WaitGroup
	for i, src := range s.sources {
		if !s.active(i) {
			continue
		}
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			if err := src.Prime(ctx); err != nil {
				errs[i] = fmt.Errorf("camera %d: %w", i, err)
			}
		}(i, src)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		s.releaseLocked()
		logger.Error("session start failed", "error", err)
		return fmt.Errorf("%w: %w", ErrPrimeFailed, err)
	}

	duration := math.Inf(1)
	for i, src := range s.sources {
		if s.active(i) {
			duration = math.Min(duration, src.Duration())
		}
	}

	for i, src := range s.sources {
		if !s.active(i) {
			continue
		}
		if err := src.Play(); err != nil {
			s.releaseLocked()
			return fmt.Errorf("playback: start camera %d: %w", i, err)
		}
	}

	s.leader = leader
	s.duration = duration
	s.started = true
	s.playing = true
	logger.Info("playback started", "leader", leader, "duration", duration)
	return nil
}

// MasterDuration is the shortest duration among enabled sources.
func (s *Synchronizer) MasterDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Leader returns the leader slot index, or -1 before Start.
func (s *Synchronizer) Leader() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leader
}

// CurrentTime reads the leader's media clock, bounded by the master duration.
func (s *Synchronizer) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.leader < 0 {
		return 0
	}
	t := s.sources[s.leader].CurrentTime()
	return math.Max(0, math.Min(t, s.duration))
}

// Ended reports whether the leader reached the master duration.
func (s *Synchronizer) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && s.sources[s.leader].CurrentTime() >= s.duration
}

// Playing reports whether sources are running.
func (s *Synchronizer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Seeking reports whether a seek is in progress.
func (s *Synchronizer) Seeking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeking
}

// BeginSeek marks a seek in progress (e.g. while a scrubber is dragged).
func (s *Synchronizer) BeginSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeking = true
}

// CommitSeek moves every enabled source to t and ends the seek.
func (s *Synchronizer) CommitSeek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seeking = false
	if !s.started {
		return ErrNotStarted
	}
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(t, s.duration))

	var errs []error
	for i, src := range s.sources {
		if !s.active(i) {
			continue
		}
		if err := src.Seek(t); err != nil {
			errs = append(errs, fmt.Errorf("camera %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Pause halts every enabled source.
func (s *Synchronizer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || !s.playing {
		return
	}
	for i, src := range s.sources {
		if s.active(i) {
			src.Pause()
		}
	}
	s.playing = false
}

// Resume restarts every enabled source.
func (s *Synchronizer) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.playing {
		return nil
	}
	for i, src := range s.sources {
		if !s.active(i) {
			continue
		}
		if err := src.Play(); err != nil {
			return fmt.Errorf("playback: resume camera %d: %w", i, err)
		}
	}
	s.playing = true
	return nil
}

// Source returns the source bound to slot i, or nil.
func (s *Synchronizer) Source(i int) Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= rig.NumCameras {
		return nil
	}
	return s.sources[i]
}

// Enabled reports whether slot i is enabled and bound.
func (s *Synchronizer) Enabled(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= rig.NumCameras {
		return false
	}
	return s.active(i)
}

// Teardown releases every source binding. It is safe to call at any point,
// including after a failed Start, and more than once.
func (s *Synchronizer) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.releaseLocked()
	s.tornDown = true
	return err
}

func (s *Synchronizer) releaseLocked() error {
	var errs []error
	for i, src := range s.sources {
		if src == nil {
			continue
		}
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("camera %d: %w", i, err))
		}
		s.sources[i] = nil
	}
	s.started = false
	s.playing = false
	s.seeking = false
	s.leader = -1
	return errors.Join(errs...)
}
