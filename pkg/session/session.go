// Package session ties one playback session together: camera slots, the
// synchronizer, the telemetry sampler, the motion engine and the panorama
// textures. All state lives on the Session value and is reset as a unit.
package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-teslacam/internal/log"
	"github.com/teslashibe/go-teslacam/pkg/motion"
	"github.com/teslashibe/go-teslacam/pkg/panorama"
	"github.com/teslashibe/go-teslacam/pkg/playback"
	"github.com/teslashibe/go-teslacam/pkg/rig"
	"github.com/teslashibe/go-teslacam/pkg/telemetry"
)

// DefaultTickInterval approximates a 60 Hz display refresh.
const DefaultTickInterval = time.Second / 60

// Config holds the per-session settings.
type Config struct {
	Rig          rig.Rig
	Motion       motion.Config
	Smoother     motion.Smoother // nil = per-tick Lerp
	Overlap      float64         // radians; 0 = panorama.DefaultOverlap
	TextureWidth int             // max texture width; 0 = native

	// RenderWidth and RenderHeight size the software viewport rendered on
	// every tick. Zero disables per-tick rendering.
	RenderWidth  int
	RenderHeight int

	// TickInterval is the loop period. Zero means DefaultTickInterval;
	// negative disables the loop so the caller drives Tick.
	TickInterval time.Duration
}

// DefaultConfig returns settings for the default rig.
func DefaultConfig() Config {
	return Config{
		Rig:          rig.Default(),
		Motion:       motion.DefaultConfig(),
		Overlap:      panorama.DefaultOverlap,
		TextureWidth: 1024,
		TickInterval: DefaultTickInterval,
	}
}

// CameraState is the runtime state of one camera slot.
type CameraState struct {
	ID       string          `json:"id"`
	Enabled  bool            `json:"enabled"`
	YawDeg   float64         `json:"yaw_deg"`
	FOVScale float64         `json:"fov_scale"`
	Bound    bool            `json:"bound"`
	Source   playback.Source `json:"-"`
}

// Snapshot is published to observers after every tick.
type Snapshot struct {
	SessionID   string               `json:"session_id"`
	Tick        uint64               `json:"tick"`
	Time        float64              `json:"time"`
	Duration    float64              `json:"duration"`
	Playing     bool                 `json:"playing"`
	Seeking     bool                 `json:"seeking"`
	Sample      *telemetry.Sample    `json:"sample,omitempty"`
	Motion      motion.Offsets       `json:"motion"`
	Orientation panorama.Orientation `json:"orientation"`
}

// Observer receives tick snapshots. It is called outside the session lock.
type Observer func(Snapshot)

// Status describes the session for API consumers.
type Status struct {
	ID              string        `json:"id"`
	Started         bool          `json:"started"`
	Playing         bool          `json:"playing"`
	Seeking         bool          `json:"seeking"`
	Ended           bool          `json:"ended"`
	TornDown        bool          `json:"torn_down"`
	Time            float64       `json:"time"`
	Duration        float64       `json:"duration"`
	Leader          int           `json:"leader"`
	Ticks           uint64        `json:"ticks"`
	TelemetryFrames int           `json:"telemetry_frames"`
	PriorityCam     int           `json:"priority_cam"`
	Cameras         []CameraState `json:"cameras"`
}

// Session is the explicit context of one playback session.
type Session struct {
	mu sync.Mutex

	id      uuid.UUID
	cfg     Config
	cameras [rig.NumCameras]CameraState

	priority int
	view     panorama.View

	motion   *motion.Engine
	sampler  *telemetry.Sampler
	sync     *playback.Synchronizer
	textures *panorama.TextureSet
	engine   *panorama.Engine
	loop     *Loop

	uniforms    panorama.Uniforms
	orientation panorama.Orientation
	frame       *image.RGBA

	sample    telemetry.Sample
	hasSample bool

	// seekFrom is the time shown while a seek is in progress.
	seekFrom float64

	ticks    uint64
	started  bool
	tornDown bool

	observers []Observer
	logger    *slog.Logger
}

// New creates a session over the given per-camera sources (nil entries are
// "no source" slots) and the telemetry of the reference camera.
func New(cfg Config, sources []playback.Source, samples []telemetry.Sample, timeline telemetry.Timeline) *Session {
	if len(cfg.Rig) != rig.NumCameras {
		cfg.Rig = rig.Default()
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = panorama.DefaultOverlap
	}

	s := &Session{
		id:       uuid.New(),
		cfg:      cfg,
		priority: panorama.PriorityNone,
		view:     panorama.DefaultView(),
		motion:   motion.NewEngine(cfg.Motion),
		sampler:  telemetry.NewSampler(samples, timeline),
		textures: panorama.NewTextureSet(cfg.TextureWidth),
	}
	s.logger = log.Component("session").With("session", s.id.String())
	s.engine = panorama.NewEngine(s.textures)
	if cfg.Smoother != nil {
		s.motion.SetSmoother(cfg.Smoother)
	}

	enabled := make([]bool, rig.NumCameras)
	bound := make([]playback.Source, rig.NumCameras)
	for i, c := range cfg.Rig {
		var src playback.Source
		if i < len(sources) {
			src = sources[i]
		}
		bound[i] = src
		enabled[i] = true
		s.cameras[i] = CameraState{
			ID:       c.ID,
			Enabled:  true,
			YawDeg:   c.YawDeg,
			FOVScale: 1,
			Bound:    src != nil,
			Source:   src,
		}
	}
	s.sync = playback.NewSynchronizer(bound, enabled)

	if cfg.RenderWidth > 0 && cfg.RenderHeight > 0 {
		s.frame = image.NewRGBA(image.Rect(0, 0, cfg.RenderWidth, cfg.RenderHeight))
	}
	if cfg.TickInterval >= 0 {
		s.loop = NewLoop(s, cfg.TickInterval)
	}
	s.configureLocked()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id.String()
}

// Start primes every enabled source and starts playback and the tick loop.
// On failure the session is left torn down at the source level and may be
// discarded or torn down again safely.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tornDown {
		return ErrTornDown
	}
	if s.started {
		return nil
	}

	for i, c := range s.cameras {
		if err := s.sync.SetEnabled(i, c.Enabled); err != nil {
			return err
		}
	}

	s.logger.Info("starting session", "telemetry_frames", s.sampler.Len())
	if err := s.sync.Start(ctx); err != nil {
		s.textures.Release()
		s.unbindLocked()
		return err
	}

	s.motion.Reset()
	s.started = true
	if s.loop != nil {
		s.loop.Start()
	}
	return nil
}

// Pause halts all sources and stops tick scheduling.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync.Pause()
	if s.loop != nil {
		s.loop.Stop()
	}
}

// Resume restarts all sources and reschedules the tick loop.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tornDown {
		return ErrTornDown
	}
	if err := s.sync.Resume(); err != nil {
		return err
	}
	if s.loop != nil {
		s.loop.Start()
	}
	return nil
}

// BeginSeek marks a seek in progress; telemetry sampling is skipped and the
// reported time is held until SeekTo commits it.
func (s *Session) BeginSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sync.Seeking() {
		s.seekFrom = s.sync.CurrentTime()
	}
	s.sync.BeginSeek()
}

// timeLocked is the playback time to display.
func (s *Session) timeLocked() float64 {
	if s.sync.Seeking() {
		return s.seekFrom
	}
	return s.sync.CurrentTime()
}

// SeekTo moves every source to t seconds and ends the seek.
func (s *Session) SeekTo(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tornDown {
		return ErrTornDown
	}
	if err := s.sync.CommitSeek(t); err != nil {
		return err
	}
	s.motion.Discontinuity()
	s.logger.Debug("seek", "time", t)
	return nil
}

// Teardown stops the loop, releases every source and texture and resets the
// motion state. It is safe to call at any time, including after a failed
// Start, and more than once.
func (s *Session) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != nil {
		s.loop.Stop()
	}
	err := s.sync.Teardown()
	s.textures.Release()
	s.unbindLocked()
	s.motion.Reset()
	s.hasSample = false
	s.started = false
	if !s.tornDown {
		s.logger.Info("session torn down", "ticks", s.ticks)
	}
	s.tornDown = true
	return err
}

func (s *Session) unbindLocked() {
	for i := range s.cameras {
		s.cameras[i].Source = nil
		s.cameras[i].Bound = false
	}
}

// Subscribe registers an observer for tick snapshots.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Tick runs one render tick: sample telemetry at the leader's time, advance
// motion, upload camera frames, assemble uniforms and orientation, and
// optionally render the viewport.
func (s *Session) Tick(dt time.Duration) {
	s.mu.Lock()
	if !s.started || s.tornDown {
		s.mu.Unlock()
		return
	}
	s.ticks++

	if !s.sync.Seeking() {
		if sample, ok := s.sampler.SampleAt(s.sync.CurrentTime()); ok {
			s.sample, s.hasSample = sample, true
			s.motion.Update(&sample, dt)
		} else {
			s.hasSample = false
			s.motion.Update(nil, dt)
		}
	}

	for i := range s.cameras {
		c := &s.cameras[i]
		if !c.Enabled || c.Source == nil || !s.sync.Enabled(i) {
			continue
		}
		s.textures.Upload(i, c.Source.Frame())
	}

	s.configureLocked()
	s.orientation = panorama.OrientationFrom(s.motion.Current())
	if s.frame != nil {
		s.engine.RenderView(s.frame, s.view, s.orientation)
	}

	snap := s.snapshotLocked()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (s *Session) configureLocked() {
	params := make([]panorama.CameraParams, rig.NumCameras)
	for i, c := range s.cameras {
		params[i] = panorama.CameraParams{Enabled: c.Enabled, YawDeg: c.YawDeg, FOVScale: c.FOVScale}
	}
	s.uniforms = panorama.AssembleUniforms(s.cfg.Rig, params, s.cfg.Overlap, s.priority)
	s.engine.Configure(s.uniforms)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:   s.id.String(),
		Tick:        s.ticks,
		Time:        s.timeLocked(),
		Duration:    s.sync.MasterDuration(),
		Playing:     s.sync.Playing(),
		Seeking:     s.sync.Seeking(),
		Motion:      s.motion.Current(),
		Orientation: s.orientation,
	}
	if s.hasSample {
		sample := s.sample
		snap.Sample = &sample
	}
	return snap
}

// CurrentSample returns the telemetry sample used by the last tick.
func (s *Session) CurrentSample() (telemetry.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample, s.hasSample
}

// SetCameraEnabled toggles camera i in the blend. Flags set before Start
// also decide which sources are primed; a camera disabled at Start has no
// playing source, so enabling it later blends in only the placeholder.
func (s *Session) SetCameraEnabled(i int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= rig.NumCameras {
		return ErrCameraIndex
	}
	s.cameras[i].Enabled = enabled
	if !enabled {
		s.textures.Unbind(i)
	}
	s.configureLocked()
	return nil
}

// SetCameraOverride sets the yaw (degrees) and FOV scale of camera i.
func (s *Session) SetCameraOverride(i int, yawDeg, fovScale float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= rig.NumCameras {
		return ErrCameraIndex
	}
	if math.IsNaN(yawDeg) || math.IsInf(yawDeg, 0) || !(fovScale > 0) || math.IsInf(fovScale, 0) {
		return fmt.Errorf("%w: yaw=%v fov_scale=%v", ErrInvalidOverride, yawDeg, fovScale)
	}
	s.cameras[i].YawDeg = yawDeg
	s.cameras[i].FOVScale = fovScale
	s.configureLocked()
	return nil
}

// SetPriorityCamera makes camera i win outright wherever it has coverage.
// panorama.PriorityNone clears it.
func (s *Session) SetPriorityCamera(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i != panorama.PriorityNone && (i < 0 || i >= rig.NumCameras) {
		return ErrCameraIndex
	}
	s.priority = i
	s.configureLocked()
	return nil
}

// SetMotionConfig validates and applies a new motion configuration. The
// motion state is kept so disabling effects decays instead of snapping.
func (s *Session) SetMotionConfig(cfg motion.Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMotionConfig, strings.Join(errs, "; "))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Motion = cfg
	s.motion.SetConfig(cfg)
	return nil
}

// MotionConfig returns the active motion configuration.
func (s *Session) MotionConfig() motion.Config {
	return s.motion.Config()
}

// Motion returns the full motion state.
func (s *Session) Motion() motion.State {
	return s.motion.State()
}

// SetView sets the user's viewport.
func (s *Session) SetView(v panorama.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// View returns the user's viewport.
func (s *Session) View() panorama.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Uniforms returns the uniform block of the last tick.
func (s *Session) Uniforms() panorama.Uniforms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniforms
}

// Orientation returns the panorama orientation of the last tick.
func (s *Session) Orientation() panorama.Orientation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orientation
}

// Cameras returns a copy of the camera slots.
func (s *Session) Cameras() []CameraState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CameraState(nil), s.cameras[:]...)
}

// Render draws the current viewport at the given size with the state of the
// last tick.
func (s *Session) Render(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.RenderView(dst, s.view, s.orientation)
	return dst
}

// RenderEquirect draws the full panorama at the given size.
func (s *Session) RenderEquirect(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.RenderEquirect(dst)
	return dst
}

// Status returns a summary of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:              s.id.String(),
		Started:         s.started,
		Playing:         s.sync.Playing(),
		Seeking:         s.sync.Seeking(),
		Ended:           s.sync.Ended(),
		TornDown:        s.tornDown,
		Time:            s.timeLocked(),
		Duration:        s.sync.MasterDuration(),
		Leader:          s.sync.Leader(),
		Ticks:           s.ticks,
		TelemetryFrames: s.sampler.Len(),
		PriorityCam:     s.priority,
		Cameras:         append([]CameraState(nil), s.cameras[:]...),
	}
	return st
}

// Loop returns the tick loop, or nil when the caller drives Tick.
func (s *Session) Loop() *Loop {
	return s.loop
}
