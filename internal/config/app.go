package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-teslacam/pkg/motion"
	"github.com/teslashibe/go-teslacam/pkg/rig"
	"github.com/teslashibe/go-teslacam/pkg/session"
)

// Smoothing strategies selectable in the config file.
const (
	SmoothingLerp        = "lerp"
	SmoothingExponential = "exponential"
)

// App is the application config file.
type App struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	TickRate float64 `yaml:"tick_rate"` // Hz
	HUDRate  float64 `yaml:"hud_rate"`  // Hz

	TextureWidth int     `yaml:"texture_width"`
	RenderWidth  int     `yaml:"render_width"`
	RenderHeight int     `yaml:"render_height"`
	OverlapDeg   float64 `yaml:"overlap_deg"`

	// TelemetryFPS is the frame rate used to build the telemetry timeline
	// when the decoder does not report per-frame durations.
	TelemetryFPS float64 `yaml:"telemetry_fps"`

	Smoothing string        `yaml:"smoothing"`
	Motion    motion.Config `yaml:"motion"`

	// RigFile optionally points at a YAML file of per-camera overrides.
	RigFile string `yaml:"rig_file"`
}

// Default returns the built-in configuration.
func Default() App {
	return App{
		Port:         "8080",
		LogLevel:     "info",
		TickRate:     60,
		HUDRate:      15,
		TextureWidth: 1024,
		RenderWidth:  960,
		RenderHeight: 540,
		OverlapDeg:   15,
		TelemetryFPS: 36,
		Smoothing:    SmoothingLerp,
		Motion:       motion.DefaultConfig(),
	}
}

// Parse reads a YAML config on top of the defaults. Unknown keys are errors.
func Parse(r io.Reader) (App, error) {
	app := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&app); err != nil && !errors.Is(err, io.EOF) {
		return App{}, fmt.Errorf("config: %w", err)
	}
	return app, nil
}

// Load reads the config file at path. An empty path returns the defaults.
func Load(path string) (App, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return App{}, fmt.Errorf("config: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// ApplyEnv overrides fields set in the environment.
func (a App) ApplyEnv() App {
	a.Port = Port(a.Port)
	a.LogLevel = LogLevel(a.LogLevel)
	return a
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (a *App) Validate() []string {
	var errs []string

	if a.Port == "" {
		errs = append(errs, "port is required")
	}
	if a.TickRate <= 0 || a.TickRate > 1000 {
		errs = append(errs, "tick_rate must be in (0, 1000]")
	}
	if a.HUDRate < 0 {
		errs = append(errs, "hud_rate must be non-negative")
	}
	if a.TextureWidth < 0 {
		errs = append(errs, "texture_width must be non-negative")
	}
	if a.RenderWidth < 0 || a.RenderHeight < 0 {
		errs = append(errs, "render size must be non-negative")
	}
	if a.OverlapDeg < 0 || a.OverlapDeg > 90 || math.IsNaN(a.OverlapDeg) {
		errs = append(errs, "overlap_deg must be between 0 and 90")
	}
	if a.TelemetryFPS <= 0 {
		errs = append(errs, "telemetry_fps must be positive")
	}
	if a.Smoothing != SmoothingLerp && a.Smoothing != SmoothingExponential {
		errs = append(errs, fmt.Sprintf("smoothing must be %q or %q", SmoothingLerp, SmoothingExponential))
	}
	for _, e := range a.Motion.Validate() {
		errs = append(errs, "motion."+e)
	}
	return errs
}

// TickInterval returns the loop period for TickRate.
func (a App) TickInterval() time.Duration {
	if a.TickRate <= 0 {
		return session.DefaultTickInterval
	}
	return time.Duration(float64(time.Second) / a.TickRate)
}

// Smoother returns the configured smoothing strategy.
func (a App) Smoother() motion.Smoother {
	if a.Smoothing == SmoothingExponential {
		return motion.Exponential{Reference: session.DefaultTickInterval}
	}
	return motion.Lerp{}
}

// LoadRig returns the default rig merged with RigFile, if set.
func (a App) LoadRig() (rig.Rig, error) {
	if a.RigFile == "" {
		return rig.Default(), nil
	}
	f, err := os.Open(a.RigFile)
	if err != nil {
		return nil, fmt.Errorf("config: rig file: %w", err)
	}
	defer f.Close()
	return rig.LoadYAML(f)
}

// SessionConfig builds the session settings.
func (a App) SessionConfig(r rig.Rig) session.Config {
	return session.Config{
		Rig:          r,
		Motion:       a.Motion,
		Smoother:     a.Smoother(),
		Overlap:      rig.Radians(a.OverlapDeg),
		TextureWidth: a.TextureWidth,
		TickInterval: a.TickInterval(),
	}
}
