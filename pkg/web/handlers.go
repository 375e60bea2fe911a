package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-teslacam/pkg/hub"
	"github.com/teslashibe/go-teslacam/pkg/panorama"
	"github.com/teslashibe/go-teslacam/pkg/playback"
	"github.com/teslashibe/go-teslacam/pkg/session"
)

// maxRenderPixels bounds on-demand software renders.
const maxRenderPixels = 4096 * 2048

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, session.ErrCameraIndex):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrInvalidOverride),
		errors.Is(err, session.ErrInvalidMotionConfig):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrTornDown),
		errors.Is(err, playback.ErrTornDown),
		errors.Is(err, playback.ErrNotStarted),
		errors.Is(err, playback.ErrNoEnabledSources):
		return fiber.StatusConflict
	case errors.Is(err, playback.ErrPrimeFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError renders every handler error as {"error": "..."}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := errorStatus(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleStatus returns the session status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.session.Status())
}

// handleStart primes every source and starts playback
func (s *Server) handleStart(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PrimeTimeout)
	defer cancel()
	if err := s.session.Start(ctx); err != nil {
		return err
	}
	return c.JSON(s.session.Status())
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	s.session.Pause()
	return c.JSON(s.session.Status())
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	if err := s.session.Resume(); err != nil {
		return err
	}
	return c.JSON(s.session.Status())
}

func (s *Server) handleBeginSeek(c *fiber.Ctx) error {
	s.session.BeginSeek()
	return c.JSON(s.session.Status())
}

// SeekRequest is the request body for /api/session/seek
type SeekRequest struct {
	Time *float64 `json:"time"`
}

func (s *Server) handleSeek(c *fiber.Ctx) error {
	var req SeekRequest
	if err := c.BodyParser(&req); err != nil || req.Time == nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be {\"time\": seconds}")
	}
	if err := s.session.SeekTo(*req.Time); err != nil {
		return err
	}
	return c.JSON(s.session.Status())
}

func (s *Server) handleTeardown(c *fiber.Ctx) error {
	if err := s.session.Teardown(); err != nil {
		return err
	}
	return c.JSON(s.session.Status())
}

// handleTelemetry returns the current sample, or 204 when there is none
func (s *Server) handleTelemetry(c *fiber.Ctx) error {
	sample, ok := s.session.CurrentSample()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(sample)
}

func (s *Server) handleMotion(c *fiber.Ctx) error {
	return c.JSON(s.session.Motion())
}

func (s *Server) handleGetMotionConfig(c *fiber.Ctx) error {
	return c.JSON(s.session.MotionConfig())
}

// handlePatchMotionConfig applies the fields present in the body on top of
// the current config
func (s *Server) handlePatchMotionConfig(c *fiber.Ctx) error {
	cfg := s.session.MotionConfig()
	if err := json.Unmarshal(c.Body(), &cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	if err := s.session.SetMotionConfig(cfg); err != nil {
		return err
	}
	return c.JSON(s.session.MotionConfig())
}

func (s *Server) handleListCameras(c *fiber.Ctx) error {
	return c.JSON(s.session.Status().Cameras)
}

// CameraPatch is the request body for PATCH /api/cameras/:index.
// Absent fields are left unchanged.
type CameraPatch struct {
	Enabled  *bool    `json:"enabled"`
	YawDeg   *float64 `json:"yaw_deg"`
	FOVScale *float64 `json:"fov_scale"`
}

func (s *Server) handlePatchCamera(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "camera index must be an integer")
	}
	var patch CameraPatch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}

	cams := s.session.Status().Cameras
	if i < 0 || i >= len(cams) {
		return session.ErrCameraIndex
	}
	if patch.YawDeg != nil || patch.FOVScale != nil {
		yaw, scale := cams[i].YawDeg, cams[i].FOVScale
		if patch.YawDeg != nil {
			yaw = *patch.YawDeg
		}
		if patch.FOVScale != nil {
			scale = *patch.FOVScale
		}
		if err := s.session.SetCameraOverride(i, yaw, scale); err != nil {
			return err
		}
	}
	if patch.Enabled != nil {
		if err := s.session.SetCameraEnabled(i, *patch.Enabled); err != nil {
			return err
		}
	}
	return c.JSON(s.session.Status().Cameras[i])
}

// PriorityRequest is the request body for /api/cameras/priority.
// Index -1 clears the priority camera.
type PriorityRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handlePriority(c *fiber.Ctx) error {
	var req PriorityRequest
	if err := c.BodyParser(&req); err != nil || req.Index == nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be {\"index\": n}")
	}
	if err := s.session.SetPriorityCamera(*req.Index); err != nil {
		return err
	}
	return c.JSON(s.session.Uniforms())
}

func (s *Server) handleUniforms(c *fiber.Ctx) error {
	return c.JSON(s.session.Uniforms())
}

func (s *Server) handleGetView(c *fiber.Ctx) error {
	return c.JSON(s.session.View())
}

func (s *Server) handlePutView(c *fiber.Ctx) error {
	view := s.session.View()
	if err := json.Unmarshal(c.Body(), &view); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	if view.FOV <= 0 {
		view.FOV = panorama.DefaultViewFOV
	}
	s.session.SetView(view)
	return c.JSON(view)
}

// handleFrame renders the current viewport as PNG
func (s *Server) handleFrame(c *fiber.Ctx) error {
	w, h, err := renderSize(c, s.opts.FrameWidth, s.opts.FrameHeight)
	if err != nil {
		return err
	}
	return sendPNG(c, s.session.Render(w, h))
}

// handlePanorama renders the full equirectangular panorama as PNG
func (s *Server) handlePanorama(c *fiber.Ctx) error {
	w, h, err := renderSize(c, 2*s.opts.FrameHeight, s.opts.FrameHeight)
	if err != nil {
		return err
	}
	return sendPNG(c, s.session.RenderEquirect(w, h))
}

func renderSize(c *fiber.Ctx, defW, defH int) (int, int, error) {
	w, h := c.QueryInt("w", defW), c.QueryInt("h", defH)
	if w <= 0 || h <= 0 || w > maxRenderPixels/h {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "invalid render size")
	}
	return w, h, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sendPNG(c *fiber.Ctx, img image.Image) error {
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}

// FeedStatus describes one websocket feed.
type FeedStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Clients int    `json:"clients"`
	Dropped uint64 `json:"dropped"`
}

func feedStatus(h *hub.Hub) FeedStatus {
	return FeedStatus{
		Name:    h.Name(),
		Running: h.IsRunning(),
		Clients: h.ClientCount(),
		Dropped: h.Dropped(),
	}
}

// handleFeeds reports the websocket feeds
func (s *Server) handleFeeds(c *fiber.Ctx) error {
	return c.JSON([]FeedStatus{feedStatus(s.hudHub), feedStatus(s.frameHub)})
}

// handleHUDWS streams HUD frames. New clients get the latest frame first.
func (s *Server) handleHUDWS(c *websocket.Conn) {
	var initial []hub.Message
	if latest := s.latestHUD(); latest != nil {
		initial = append(initial, hub.NewJSONMessage(latest))
	}
	client := hub.NewClient(s.hudHub, c, initial...)
	if client == nil {
		return
	}
	client.Run()
}

// handleFramesWS streams rendered viewport PNGs as binary messages.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	if client := hub.NewClient(s.frameHub, c); client != nil {
		client.Run()
	}
}
