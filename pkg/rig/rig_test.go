package rig

import (
	"math"
	"strings"
	"testing"
	"time"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestDefault_Valid(t *testing.T) {
	r := Default()
	if errs := r.Validate(); len(errs) != 0 {
		t.Fatalf("default rig invalid: %v", errs)
	}
	if r.Index(Back) != 3 {
		t.Errorf("Expected back camera at slot 3, got %d", r.Index(Back))
	}
	if r.Index("roof") != -1 {
		t.Error("Expected -1 for unknown camera")
	}
}

func TestVerticalFOV(t *testing.T) {
	// Square sensor: vertical equals horizontal.
	if got := VerticalFOV(math.Pi/2, 1); !floatEquals(got, math.Pi/2) {
		t.Errorf("square aspect: got %v", got)
	}

	// 90° horizontal at 2:1 gives 2*atan(0.5).
	want := 2 * math.Atan(0.5)
	if got := VerticalFOV(math.Pi/2, 2); !floatEquals(got, want) {
		t.Errorf("2:1 aspect: got %v, want %v", got, want)
	}

	c := CameraSpec{FOVHDeg: 90, Width: 200, Height: 100}
	if !floatEquals(c.FOVV(), want) {
		t.Errorf("CameraSpec.FOVV: got %v, want %v", c.FOVV(), want)
	}
}

func TestValidate_Errors(t *testing.T) {
	r := Default()
	r[1].YawDeg = 360 // same as front after normalization
	r[2].FOVHDeg = 180
	r[3].Width = 0

	errs := r.Validate()
	if len(errs) != 3 {
		t.Fatalf("Expected 3 errors, got %d: %v", len(errs), errs)
	}

	if errs := Default()[:5].Validate(); len(errs) == 0 {
		t.Error("Expected error for five-camera rig")
	}
}

func TestValidate_ExtremeYaw(t *testing.T) {
	r := Default()
	r[1].YawDeg = 1e20
	r[2].YawDeg = math.Inf(1)
	r[4].YawDeg = math.NaN()
	r[5].FOVHDeg = math.NaN()

	done := make(chan []string, 1)
	go func() { done <- r.Validate() }()
	select {
	case errs := <-done:
		if len(errs) != 3 {
			t.Errorf("Expected 3 errors, got %d: %v", len(errs), errs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Validate did not return")
	}

	if _, err := LoadYAML(strings.NewReader("cameras:\n  - id: back\n    yaw_deg: .inf\n")); err == nil {
		t.Error("Expected validation error for infinite yaw")
	}
}

func TestNormalizeDeg(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-1e-20, 0},
	}
	for _, tt := range tests {
		if got := normalizeDeg(tt.in); !floatEquals(got, tt.want) {
			t.Errorf("normalizeDeg(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := normalizeDeg(1e20); got < 0 || got >= 360 {
		t.Errorf("normalizeDeg(1e20) = %v, want [0, 360)", got)
	}
}

func TestLoadYAML_MergesOverrides(t *testing.T) {
	doc := `
cameras:
  - id: front
    fov_h_deg: 70
  - id: back
    yaw_deg: 179
`
	r, err := LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if r[0].FOVHDeg != 70 {
		t.Errorf("front fov = %v, want 70", r[0].FOVHDeg)
	}
	if r[0].Width != 2896 {
		t.Errorf("front width should keep default, got %d", r[0].Width)
	}
	if r[3].YawDeg != 179 {
		t.Errorf("back yaw = %v, want 179", r[3].YawDeg)
	}
}

func TestLoadYAML_Rejects(t *testing.T) {
	if _, err := LoadYAML(strings.NewReader("cameras:\n  - id: roof\n")); err == nil {
		t.Error("Expected error for unknown camera")
	}
	if _, err := LoadYAML(strings.NewReader("cameras:\n  - id: front\n    fov_h_deg: 200\n")); err == nil {
		t.Error("Expected validation error for fov 200")
	}
	r, err := LoadYAML(strings.NewReader(""))
	if err != nil || len(r) != NumCameras {
		t.Errorf("empty document should yield default rig, got %v, %v", r, err)
	}
}

func TestClipName(t *testing.T) {
	c := Default()[4]
	if got := c.ClipName("2025-11-02_14-03-11"); got != "2025-11-02_14-03-11-left_repeater.mp4" {
		t.Errorf("ClipName = %q", got)
	}
}
