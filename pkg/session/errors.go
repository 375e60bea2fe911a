package session

import "errors"

var (
	// ErrTornDown is returned by lifecycle calls after Teardown.
	ErrTornDown = errors.New("session: torn down")

	// ErrCameraIndex is returned for camera slots outside the rig.
	ErrCameraIndex = errors.New("session: camera index out of range")

	// ErrInvalidOverride is returned for non-finite yaw or non-positive FOV scale.
	ErrInvalidOverride = errors.New("session: invalid camera override")

	// ErrInvalidMotionConfig wraps motion config validation failures.
	ErrInvalidMotionConfig = errors.New("session: invalid motion config")
)
