package monitor

import "errors"

var (
	// ErrPublish wraps a publisher failure after the report itself was written.
	ErrPublish = errors.New("monitor: publishing report")

	// ErrInvalidCommand is returned for a malformed calibration command.
	ErrInvalidCommand = errors.New("monitor: invalid calibration command")
)
