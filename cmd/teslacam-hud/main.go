// teslacam-hud is a terminal dashboard for a running teslacam server. It
// follows the websocket HUD feed and drives playback over the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-teslacam/internal/config"
	"github.com/teslashibe/go-teslacam/internal/httpc"
	"github.com/teslashibe/go-teslacam/internal/log"
	"github.com/teslashibe/go-teslacam/pkg/web"
)

func main() {
	server := flag.String("server", "http://localhost:"+config.Port("8080"), "teslacam server URL")
	flag.Parse()

	// Keep log output off the terminal the TUI owns.
	log.InitWriter(os.Stderr, config.LogLevel("warn"), false)

	client := httpc.New(*server)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(newModel(apiController{client}), tea.WithAltScreen())

	go func() {
		err := client.StreamHUD(ctx, func(f web.HUDFrame) { program.Send(hudMsg(f)) })
		program.Send(streamErrMsg{err})
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// apiController adapts the API client to the HUD's key bindings.
type apiController struct {
	client *httpc.Client
}

func (a apiController) Pause(ctx context.Context) error {
	_, err := a.client.Pause(ctx)
	return err
}

func (a apiController) Resume(ctx context.Context) error {
	_, err := a.client.Resume(ctx)
	return err
}

func (a apiController) Seek(ctx context.Context, t float64) error {
	_, err := a.client.Seek(ctx, t)
	return err
}

func (a apiController) SetPriority(ctx context.Context, index int) error {
	return a.client.SetPriority(ctx, index)
}

func (a apiController) ToggleCamera(ctx context.Context, index int, enabled bool) error {
	return a.client.ToggleCamera(ctx, index, enabled)
}
