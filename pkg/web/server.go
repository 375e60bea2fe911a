// Package web exposes a playback session over HTTP and streams HUD state to
// websocket clients.
package web

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-teslacam/internal/log"
	"github.com/teslashibe/go-teslacam/pkg/hub"
	"github.com/teslashibe/go-teslacam/pkg/motion"
	"github.com/teslashibe/go-teslacam/pkg/panorama"
	"github.com/teslashibe/go-teslacam/pkg/session"
	"github.com/teslashibe/go-teslacam/pkg/telemetry"
)

// Session is the playback session the server drives.
type Session interface {
	Start(ctx context.Context) error
	Pause()
	Resume() error
	BeginSeek()
	SeekTo(t float64) error
	Teardown() error

	Status() session.Status
	CurrentSample() (telemetry.Sample, bool)
	Motion() motion.State
	MotionConfig() motion.Config
	SetMotionConfig(cfg motion.Config) error

	SetCameraEnabled(i int, enabled bool) error
	SetCameraOverride(i int, yawDeg, fovScale float64) error
	SetPriorityCamera(i int) error

	Uniforms() panorama.Uniforms
	View() panorama.View
	SetView(v panorama.View)
	Render(width, height int) *image.RGBA
	RenderEquirect(width, height int) *image.RGBA
}

// Options configures the server.
type Options struct {
	Port         string
	HUDRate      float64       // max HUD broadcasts per second; 0 = every tick
	FrameRate    float64       // max /ws/frames renders per second; 0 disables the stream
	FrameWidth   int           // default /api/frame.png size
	FrameHeight  int           //
	PrimeTimeout time.Duration // bound on source priming in /api/session/start
}

// DefaultOptions returns the defaults used by cmd/teslacam.
func DefaultOptions() Options {
	return Options{
		Port:         "8080",
		HUDRate:      15,
		FrameRate:    5,
		FrameWidth:   960,
		FrameHeight:  540,
		PrimeTimeout: 30 * time.Second,
	}
}

// Server is the HTTP API and HUD websocket server.
type Server struct {
	app     *fiber.App
	opts    Options
	session Session
	hudHub   *hub.Hub
	frameHub *hub.Hub
	logger   *slog.Logger

	hudMu    sync.Mutex
	lastSent time.Time
	latest   []byte
	prev     HUDFrame
	interval time.Duration

	lastFrame     time.Time
	rendering     bool
	frameInterval time.Duration
}

// NewServer creates a server for sess.
func NewServer(sess Session, opts Options) *Server {
	def := DefaultOptions()
	if opts.Port == "" {
		opts.Port = def.Port
	}
	if opts.FrameWidth <= 0 || opts.FrameHeight <= 0 {
		opts.FrameWidth, opts.FrameHeight = def.FrameWidth, def.FrameHeight
	}
	if opts.PrimeTimeout <= 0 {
		opts.PrimeTimeout = def.PrimeTimeout
	}

	s := &Server{
		opts:    opts,
		session: sess,
		hudHub:   hub.New("hud"),
		frameHub: hub.New("frames"),
		logger:   log.Component("web"),
	}
	if opts.HUDRate > 0 {
		s.interval = time.Duration(float64(time.Second) / opts.HUDRate)
	}
	if opts.FrameRate > 0 {
		s.frameInterval = time.Duration(float64(time.Second) / opts.FrameRate)
	}

	app := fiber.New(fiber.Config{
		AppName:               "TeslaCam Panorama",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/session", s.handleStatus)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/pause", s.handlePause)
	api.Post("/session/resume", s.handleResume)
	api.Post("/session/seek/begin", s.handleBeginSeek)
	api.Post("/session/seek", s.handleSeek)
	api.Post("/session/teardown", s.handleTeardown)

	api.Get("/telemetry", s.handleTelemetry)
	api.Get("/motion", s.handleMotion)
	api.Get("/motion/config", s.handleGetMotionConfig)
	api.Patch("/motion/config", s.handlePatchMotionConfig)

	api.Get("/cameras", s.handleListCameras)
	api.Patch("/cameras/:index", s.handlePatchCamera)
	api.Post("/cameras/priority", s.handlePriority)

	api.Get("/uniforms", s.handleUniforms)
	api.Get("/view", s.handleGetView)
	api.Put("/view", s.handlePutView)
	api.Get("/frame.png", s.handleFrame)
	api.Get("/panorama.png", s.handlePanorama)
	api.Get("/feeds", s.handleFeeds)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/hud", websocket.New(s.handleHUDWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the HUD broadcast hub.
func (s *Server) Hub() *hub.Hub {
	return s.hudHub
}

// Start runs the hubs and listens on the configured port. It blocks.
func (s *Server) Start() error {
	s.logger.Info("web server listening", "url", "http://localhost:"+s.opts.Port)
	s.runHubs()
	return s.app.Listen(":" + s.opts.Port)
}

// Serve runs the hubs and serves on ln. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.runHubs()
	return s.app.Listener(ln)
}

func (s *Server) runHubs() {
	go s.hudHub.Run()
	go s.frameHub.Run()
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Publish is a session.Observer that broadcasts tick snapshots to HUD
// clients, at most HUDRate times per second. Play-state changes are never
// throttled away.
func (s *Server) Publish(snap session.Snapshot) {
	frame := NewHUDFrame(snap)

	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Warn("encode hud frame", "error", err)
		return
	}

	s.hudMu.Lock()
	now := time.Now()
	changed := s.latest == nil || s.prev.Playing != frame.Playing || s.prev.Seeking != frame.Seeking
	s.latest, s.prev = data, frame
	if !changed && s.interval > 0 && now.Sub(s.lastSent) < s.interval {
		s.hudMu.Unlock()
		s.publishFrame()
		return
	}
	s.lastSent = now
	s.hudMu.Unlock()

	s.hudHub.Broadcast(hub.NewJSONMessage(data))
	s.publishFrame()
}

// publishFrame renders the viewport for /ws/frames clients, at most
// FrameRate times per second and never more than one render at a time.
func (s *Server) publishFrame() {
	if s.frameInterval <= 0 || s.frameHub.ClientCount() == 0 {
		return
	}

	s.hudMu.Lock()
	now := time.Now()
	if s.rendering || now.Sub(s.lastFrame) < s.frameInterval {
		s.hudMu.Unlock()
		return
	}
	s.lastFrame, s.rendering = now, true
	s.hudMu.Unlock()

	go func() {
		defer func() {
			s.hudMu.Lock()
			s.rendering = false
			s.hudMu.Unlock()
		}()
		data, err := encodePNG(s.session.Render(s.opts.FrameWidth, s.opts.FrameHeight))
		if err != nil {
			s.logger.Warn("encode frame", "error", err)
			return
		}
		s.frameHub.BroadcastBinary(data)
	}()
}

func (s *Server) latestHUD() []byte {
	s.hudMu.Lock()
	defer s.hudMu.Unlock()
	return s.latest
}

// Shutdown gracefully stops the web server and the hubs
func (s *Server) Shutdown() error {
	s.hudHub.Stop()
	s.frameHub.Stop()
	return s.app.Shutdown()
}
