package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// FileConfig describes the YAML report file.
type FileConfig struct {
	Path string
	// MaxSize is the size in megabytes at which the file is rotated.
	MaxSize    int
	MaxBackups int
	Compress   bool
}

// OpenFile returns an append-only writer for the report file, rotated by
// size. The file is created with owner-only permissions if it does not
// exist, so an unwritable path fails here rather than on the first report.
func OpenFile(cfg FileConfig) (io.WriteCloser, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening report file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing report file: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}, nil
}

// nopCloser keeps stdout open when the report writer is closed.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Stdout returns a report writer on standard output.
func Stdout() io.WriteCloser {
	return nopCloser{os.Stdout}
}
