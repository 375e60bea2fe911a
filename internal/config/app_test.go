package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-teslacam/pkg/motion"
	"github.com/teslashibe/go-teslacam/pkg/rig"
)

func TestDefaultIsValid(t *testing.T) {
	app := Default()
	if errs := app.Validate(); len(errs) != 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
	if got := app.TickInterval(); got != time.Second/60 {
		t.Errorf("Expected 60 Hz tick, got %v", got)
	}
	if _, ok := app.Smoother().(motion.Lerp); !ok {
		t.Errorf("Expected Lerp smoother, got %T", app.Smoother())
	}
}

func TestParse(t *testing.T) {
	src := `
port: "9090"
tick_rate: 30
smoothing: exponential
motion:
  motion_intensity: 1.5
  auto_steer_enabled: false
`
	app, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if app.Port != "9090" || app.TickRate != 30 {
		t.Errorf("Expected port 9090 at 30 Hz, got %q at %v", app.Port, app.TickRate)
	}
	if app.Motion.MotionIntensity != 1.5 || app.Motion.AutoSteerEnabled {
		t.Errorf("motion overrides not applied: %+v", app.Motion)
	}
	if app.Motion.SmoothingFactor != motion.DefaultConfig().SmoothingFactor {
		t.Errorf("unset motion field lost its default: %v", app.Motion.SmoothingFactor)
	}
	if app.HUDRate != Default().HUDRate {
		t.Errorf("unset field lost its default: %v", app.HUDRate)
	}
	if _, ok := app.Smoother().(motion.Exponential); !ok {
		t.Errorf("Expected Exponential smoother, got %T", app.Smoother())
	}

	if _, err := Parse(strings.NewReader("prot: 1\n")); err == nil {
		t.Error("Expected error for unknown key")
	}
	if app, err := Parse(strings.NewReader("")); err != nil || app.Port != Default().Port {
		t.Errorf("empty config: %v, %+v", err, app)
	}
}

func TestValidate(t *testing.T) {
	app := Default()
	app.TickRate = 0
	app.OverlapDeg = 120
	app.Smoothing = "spline"
	app.Motion.MotionIntensity = 5
	errs := app.Validate()
	if len(errs) != 4 {
		t.Fatalf("Expected 4 errors, got %d: %v", len(errs), errs)
	}
	if !strings.HasPrefix(errs[3], "motion.") {
		t.Errorf("motion errors should be prefixed, got %q", errs[3])
	}
}

func TestLoadAndRig(t *testing.T) {
	dir := t.TempDir()
	rigPath := filepath.Join(dir, "rig.yaml")
	if err := os.WriteFile(rigPath, []byte("cameras:\n  - id: back\n    fov_h_deg: 120\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "teslacam.yaml")
	if err := os.WriteFile(cfgPath, []byte("rig_file: "+rigPath+"\noverlap_deg: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, err := app.LoadRig()
	if err != nil {
		t.Fatalf("LoadRig: %v", err)
	}
	if got := r[r.Index(rig.Back)].FOVHDeg; got != 120 {
		t.Errorf("Expected back FOV 120, got %v", got)
	}

	sc := app.SessionConfig(r)
	if sc.Overlap != rig.Radians(10) {
		t.Errorf("Expected overlap 10°, got %v", rig.Degrees(sc.Overlap))
	}
	if sc.TickInterval != app.TickInterval() {
		t.Errorf("tick interval not carried: %v", sc.TickInterval)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
	if app, err := Load(""); err != nil || app.Port != "8080" {
		t.Errorf("Load(\"\") = %+v, %v", app, err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "7070")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv("TESLACAM_TEST_FLOAT", "2.5")
	t.Setenv("TESLACAM_TEST_BAD", "abc")

	app := Default().ApplyEnv()
	if app.Port != "7070" || app.LogLevel != "debug" {
		t.Errorf("env not applied: port=%q level=%q", app.Port, app.LogLevel)
	}
	if got := EnvFloat("TESLACAM_TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("EnvFloat = %v", got)
	}
	if got := EnvFloat("TESLACAM_TEST_BAD", 1); got != 1 {
		t.Errorf("EnvFloat malformed = %v", got)
	}
	if got := EventDir("/tmp/x"); got != "/tmp/x" {
		t.Errorf("EventDir default = %q", got)
	}
}
