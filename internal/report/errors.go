package report

import "errors"

var (
	// ErrNotFound is returned by Archive.Get for an unknown batch ID.
	ErrNotFound = errors.New("report: batch not found")

	// ErrNoPath is returned by OpenFile when no report file is configured.
	ErrNoPath = errors.New("report: file path is required")
)
