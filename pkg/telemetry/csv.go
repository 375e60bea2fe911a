package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/teslashibe/go-teslacam/internal/log"
)

// Column names as printed by the SEI extractor (proto field names).
const (
	colFrameSeq    = "frame_seq_no"
	colGear        = "gear_state"
	colSpeed       = "vehicle_speed_mps"
	colAccelerator = "accelerator_pedal_position"
	colSteering    = "steering_wheel_angle"
	colBlinkerL    = "blinker_on_left"
	colBlinkerR    = "blinker_on_right"
	colBrake       = "brake_applied"
	colAutopilot   = "autopilot_state"
	colLat         = "latitude_deg"
	colLon         = "longitude_deg"
	colHeading     = "heading_deg"
	colAccelX      = "linear_acceleration_mps2_x"
	colAccelY      = "linear_acceleration_mps2_y"
	colAccelZ      = "linear_acceleration_mps2_z"
)

var knownColumns = []string{
	colFrameSeq, colGear, colSpeed, colAccelerator, colSteering, colBlinkerL, colBlinkerR,
	colBrake, colAutopilot, colLat, colLon, colHeading, colAccelX, colAccelY, colAccelZ,
}

// LoadCSV parses one telemetry row per decoded frame. Empty cells mean the
// field was absent for that frame. Unknown columns are ignored.
func LoadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if !slices.ContainsFunc(knownColumns, func(c string) bool { _, ok := cols[c]; return ok }) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHeader, strings.Join(header, ","))
	}

	var samples []Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("telemetry: line %d: %w", line, err)
		}
		s, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// LoadFile reads a telemetry CSV from disk.
func LoadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadOrEmpty reads a telemetry file, treating any failure as an event with
// zero frames. Playback proceeds without motion effects and a warning is logged.
func LoadOrEmpty(path string) []Sample {
	samples, err := LoadFile(path)
	if err != nil {
		log.Component("telemetry").Warn("telemetry unavailable, continuing without motion",
			"path", path, "error", err)
		return nil
	}
	return samples
}

type row struct {
	rec  []string
	cols map[string]int
	err  error
}

func (r *row) cell(name string) (string, bool) {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return "", false
	}
	v := strings.TrimSpace(r.rec[i])
	return v, v != ""
}

func (r *row) float(name string) (float64, bool) {
	v, ok := r.cell(name)
	if !ok || r.err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s=%q", ErrBadField, name, v)
		return 0, false
	}
	return f, true
}

func (r *row) flag(name string) bool {
	v, ok := r.cell(name)
	if !ok || r.err != nil {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%w: %s=%q", ErrBadField, name, v)
	}
	return b
}

func parseRow(rec []string, cols map[string]int) (Sample, error) {
	r := &row{rec: rec, cols: cols}
	var s Sample

	if v, ok := r.cell(colFrameSeq); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return s, fmt.Errorf("%w: %s=%q", ErrBadField, colFrameSeq, v)
		}
		s.FrameSeq = n
	}

	s.SpeedMps, s.HasSpeed = r.float(colSpeed)

	x, hx := r.float(colAccelX)
	y, hy := r.float(colAccelY)
	z, hz := r.float(colAccelZ)
	s.Accel = Vec3{X: x, Y: y, Z: z}
	s.HasAccel = hx || hy || hz

	s.SteeringWheelAngleDeg, _ = r.float(colSteering)
	s.HeadingDeg, s.HasHeading = r.float(colHeading)
	s.AcceleratorPct, _ = r.float(colAccelerator)
	s.Latitude, _ = r.float(colLat)
	s.Longitude, _ = r.float(colLon)
	s.BlinkerLeft = r.flag(colBlinkerL)
	s.BlinkerRight = r.flag(colBlinkerR)
	s.BrakeApplied = r.flag(colBrake)
	if r.err != nil {
		return s, r.err
	}

	if v, ok := r.cell(colGear); ok {
		g, err := ParseGear(v)
		if err != nil {
			return s, err
		}
		s.Gear = g
	}
	if v, ok := r.cell(colAutopilot); ok {
		a, err := ParseAutopilot(v)
		if err != nil {
			return s, err
		}
		s.Autopilot = a
	}

	return s, nil
}
