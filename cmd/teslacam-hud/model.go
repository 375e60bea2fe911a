package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-teslacam/pkg/panorama"
	"github.com/teslashibe/go-teslacam/pkg/rig"
	"github.com/teslashibe/go-teslacam/pkg/web"
)

// seekStep is the jump for the arrow keys.
const seekStep = 5.0

// toggleKeys are shift+1..6 on a US layout; index is the camera slot.
const toggleKeys = "!@#$%^"

// controller is the part of the API client the HUD drives.
type controller interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, t float64) error
	SetPriority(ctx context.Context, index int) error
	ToggleCamera(ctx context.Context, index int, enabled bool) error
}

type hudMsg web.HUDFrame

type streamErrMsg struct{ err error }

type actionErrMsg struct{ err error }

// model renders the latest HUD frame.
type model struct {
	ctl      controller
	frame    web.HUDFrame
	hasFrame bool
	priority int
	disabled [rig.NumCameras]bool
	err      error
}

func newModel(ctl controller) model {
	return model{ctl: ctl, priority: panorama.PriorityNone}
}

// Init implements tea.Model interface.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model interface.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case hudMsg:
		m.frame, m.hasFrame = web.HUDFrame(msg), true
		return m, nil

	case streamErrMsg:
		m.err = fmt.Errorf("hud feed closed: %w", msg.err)
		return m, nil

	case actionErrMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			if m.frame.Playing {
				return m, m.action(m.ctl.Pause)
			}
			return m, m.action(m.ctl.Resume)
		case "left":
			return m, m.seek(m.frame.Time - seekStep)
		case "right":
			return m, m.seek(m.frame.Time + seekStep)
		case "home":
			return m, m.seek(0)
		case "0":
			m.priority = panorama.PriorityNone
			return m, m.setPriority(m.priority)
		case "1", "2", "3", "4", "5", "6":
			m.priority = int(msg.Runes[0] - '1')
			return m, m.setPriority(m.priority)
		}
		if k := msg.String(); len(k) == 1 {
			if i := strings.Index(toggleKeys, k); i >= 0 {
				m.disabled[i] = !m.disabled[i]
				enabled := !m.disabled[i]
				return m, m.action(func(ctx context.Context) error { return m.ctl.ToggleCamera(ctx, i, enabled) })
			}
		}
	}
	return m, nil
}

func (m model) action(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			return actionErrMsg{err}
		}
		return nil
	}
}

func (m model) seek(t float64) tea.Cmd {
	t = math.Max(0, t)
	if m.frame.Duration > 0 {
		t = math.Min(t, m.frame.Duration)
	}
	return m.action(func(ctx context.Context) error { return m.ctl.Seek(ctx, t) })
}

func (m model) setPriority(i int) tea.Cmd {
	return m.action(func(ctx context.Context) error { return m.ctl.SetPriority(ctx, i) })
}

// View implements tea.Model interface.
func (m model) View() string {
	var b strings.Builder

	b.WriteString("🚗 TeslaCam HUD\n")
	b.WriteString("===============\n\n")

	if !m.hasFrame {
		b.WriteString("Waiting for session...\n")
	} else {
		f := m.frame
		state := "▶ playing"
		switch {
		case f.Seeking:
			state = "⇄ seeking"
		case !f.Playing:
			state = "⏸ paused"
		}
		b.WriteString(fmt.Sprintf("%s  %s\n", state, f.Clock))
		b.WriteString(progressBar(f.Time, f.Duration, 40) + "\n\n")

		if s := f.Sample; s != nil {
			blinkL, blinkR := " ", " "
			if s.BlinkerLeft {
				blinkL = "◀"
			}
			if s.BlinkerRight {
				blinkR = "▶"
			}
			brake := ""
			if s.BrakeApplied {
				brake = "  BRAKE"
			}
			b.WriteString(fmt.Sprintf("%s %3.0f mph %s   gear %s   %s%s\n",
				blinkL, f.SpeedMph, blinkR, f.Gear, f.Autopilot, brake))
			b.WriteString(fmt.Sprintf("wheel %+6.1f°  heading %5.1f°  accel %3.0f%%\n",
				s.SteeringWheelAngleDeg, s.HeadingDeg, s.AcceleratorPct))
			b.WriteString(fmt.Sprintf("g  x %+5.2f  y %+5.2f  z %+5.2f\n", s.Accel.X, s.Accel.Y, s.Accel.Z))
		} else {
			b.WriteString("no telemetry\n")
		}

		mo := f.Motion
		b.WriteString(fmt.Sprintf("\nroll %+5.2f°  pitch %+5.2f°  steer %+5.2f°  shake %+.4f/%+.4f\n",
			rig.Degrees(mo.Roll), rig.Degrees(mo.Pitch), rig.Degrees(mo.AutoSteerYaw), mo.ShakeX, mo.ShakeY))
	}

	b.WriteString("\ncameras")
	for i, off := range m.disabled {
		if off {
			b.WriteString("  ·")
		} else {
			b.WriteString(fmt.Sprintf("  %d", i+1))
		}
	}
	b.WriteString("\n")

	if m.priority != panorama.PriorityNone {
		b.WriteString(fmt.Sprintf("\npriority camera: %d\n", m.priority+1))
	}
	if m.err != nil {
		b.WriteString(fmt.Sprintf("\n⚠️  %v\n", m.err))
	}

	b.WriteString("\n(space pause/resume, ←/→ seek, 1-6 priority, 0 clear, shift+1-6 toggle camera, q quit)")
	return b.String()
}

func progressBar(t, duration float64, width int) string {
	filled := 0
	if duration > 0 {
		filled = int(math.Round(math.Min(1, math.Max(0, t/duration)) * float64(width)))
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
