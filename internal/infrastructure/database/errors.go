package database

import "errors"

var (
	// ErrNoPath is returned by Open when the configuration names no file.
	ErrNoPath = errors.New("database: path is required")

	// ErrBadMigration is returned when a migration file name cannot be parsed
	// or an up file has no matching version.
	ErrBadMigration = errors.New("database: malformed migration")
)
