package telemetry

import "errors"

var (
	// ErrNoHeader is returned when a telemetry file has no header row.
	ErrNoHeader = errors.New("telemetry: missing header row")

	// ErrUnknownHeader is returned when the header names none of the telemetry
	// columns, as with the extractor's "No SEI metadata found" message.
	ErrUnknownHeader = errors.New("telemetry: header has no known columns")

	// ErrBadField is returned when a cell cannot be parsed.
	ErrBadField = errors.New("telemetry: malformed field")

	// ErrBadTimeline is returned for a frame rate or duration that is not positive.
	ErrBadTimeline = errors.New("telemetry: invalid timeline")
)
