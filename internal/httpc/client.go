// Package httpc is the client side of the teslacam HTTP API and HUD feed.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-teslacam/pkg/session"
	"github.com/teslashibe/go-teslacam/pkg/web"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	DefaultKeepAlive      = 30 * time.Second
)

// NewHTTPClient creates an HTTP client with the specified timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("teslacam api: %d %s", e.Status, e.Message)
}

// Client talks to one teslacam server.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for a server base URL such as "http://localhost:8080".
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: NewHTTPClient(DefaultTimeout),
	}
}

// Status returns the session status.
func (c *Client) Status(ctx context.Context) (session.Status, error) {
	var st session.Status
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &st)
	return st, err
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) (session.Status, error) {
	var st session.Status
	err := c.do(ctx, http.MethodPost, "/api/session/pause", nil, &st)
	return st, err
}

// Resume resumes playback.
func (c *Client) Resume(ctx context.Context) (session.Status, error) {
	var st session.Status
	err := c.do(ctx, http.MethodPost, "/api/session/resume", nil, &st)
	return st, err
}

// Seek moves playback to t seconds.
func (c *Client) Seek(ctx context.Context, t float64) (session.Status, error) {
	var st session.Status
	err := c.do(ctx, http.MethodPost, "/api/session/seek", web.SeekRequest{Time: &t}, &st)
	return st, err
}

// SetPriority sets the priority camera; -1 clears it.
func (c *Client) SetPriority(ctx context.Context, index int) error {
	return c.do(ctx, http.MethodPost, "/api/cameras/priority", web.PriorityRequest{Index: &index}, nil)
}

// ToggleCamera enables or disables camera i.
func (c *Client) ToggleCamera(ctx context.Context, i int, enabled bool) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/cameras/%d", i), web.CameraPatch{Enabled: &enabled}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// HUDURL returns the websocket URL of the HUD feed.
func (c *Client) HUDURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/hud"
	return u.String(), nil
}

// StreamHUD dials the HUD feed and calls fn for every frame until ctx is
// done or the connection fails.
func (c *Client) StreamHUD(ctx context.Context, fn func(web.HUDFrame)) error {
	hudURL, err := c.HUDURL()
	if err != nil {
		return err
	}
	dialer := websocket.Dialer{HandshakeTimeout: DefaultConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, hudURL, nil)
	if err != nil {
		return fmt.Errorf("dial hud: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var frame web.HUDFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(frame)
	}
}
