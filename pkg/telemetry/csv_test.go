package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractorHeader = "version,gear_state,frame_seq_no,vehicle_speed_mps,accelerator_pedal_position," +
	"steering_wheel_angle,blinker_on_left,blinker_on_right,brake_applied,autopilot_state," +
	"latitude_deg,longitude_deg,heading_deg,linear_acceleration_mps2_x,linear_acceleration_mps2_y," +
	"linear_acceleration_mps2_z"

func TestLoadCSV_ExtractorOutput(t *testing.T) {
	doc := extractorHeader + "\n" +
		"1,GEAR_DRIVE,1042,13.4,22.5,-4.5,True,,,AUTOSTEER,37.77,-122.41,359.5,0.12,-0.4,9.81\n" +
		"1,,1043,,,,,,True,,,,,,,\n"

	samples, err := LoadCSV(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, samples, 2)

	s := samples[0]
	assert.Equal(t, uint64(1042), s.FrameSeq)
	assert.Equal(t, GearDrive, s.Gear)
	assert.True(t, s.HasSpeed)
	assert.InDelta(t, 13.4, s.SpeedMps, 1e-9)
	assert.InDelta(t, 22.5, s.AcceleratorPct, 1e-9)
	assert.InDelta(t, -4.5, s.SteeringWheelAngleDeg, 1e-9)
	assert.True(t, s.BlinkerLeft)
	assert.False(t, s.BlinkerRight)
	assert.Equal(t, AutopilotAutosteer, s.Autopilot)
	assert.True(t, s.HasHeading)
	assert.InDelta(t, 359.5, s.HeadingDeg, 1e-9)
	assert.True(t, s.HasAccel)
	assert.Equal(t, Vec3{X: 0.12, Y: -0.4, Z: 9.81}, s.Accel)
	assert.True(t, s.Valid())

	// Defaults omitted by the encoder: park, no speed, no accel.
	s = samples[1]
	assert.Equal(t, GearPark, s.Gear)
	assert.False(t, s.HasSpeed)
	assert.False(t, s.HasAccel)
	assert.True(t, s.BrakeApplied)
	assert.False(t, s.Valid())
}

func TestLoadCSV_Errors(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	noSEI := "No SEI metadata found. Requirements:\n" +
		"  * Tesla firmware 2025.44.25 or later\n" +
		"  * HW3 or above\n" +
		"  * If car is parked, SEI data may not be present\n"
	samples, err := LoadCSV(strings.NewReader(noSEI))
	assert.ErrorIs(t, err, ErrUnknownHeader)
	assert.Empty(t, samples)

	_, err = LoadCSV(strings.NewReader("vehicle_speed_mps\nfast\n"))
	assert.ErrorIs(t, err, ErrBadField)

	_, err = LoadCSV(strings.NewReader("gear_state\nGEAR_WARP\n"))
	assert.ErrorIs(t, err, ErrBadField)

	_, err = LoadCSV(strings.NewReader("brake_applied\nmaybe\n"))
	assert.ErrorIs(t, err, ErrBadField)
}

func TestLoadOrEmpty_ParseFailureYieldsZeroFrames(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("vehicle_speed_mps\nnot-a-number\n"), 0o644))

	assert.Empty(t, LoadOrEmpty(bad))
	assert.Empty(t, LoadOrEmpty(filepath.Join(dir, "missing.csv")))

	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("vehicle_speed_mps\n3\n4\n"), 0o644))
	assert.Len(t, LoadOrEmpty(good), 2)
}

func TestEnums(t *testing.T) {
	g, err := ParseGear("drive")
	require.NoError(t, err)
	assert.Equal(t, GearDrive, g)
	assert.Equal(t, "D", g.Letter())

	g, err = ParseGear("2")
	require.NoError(t, err)
	assert.Equal(t, GearReverse, g)
	assert.Equal(t, "GEAR_REVERSE", g.String())

	a, err := ParseAutopilot("tacc")
	require.NoError(t, err)
	assert.Equal(t, AutopilotTACC, a)
	assert.Equal(t, "SELF_DRIVING", AutopilotSelfDriving.String())
}
