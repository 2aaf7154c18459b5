package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenFile_AppendsWithOwnerPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("previous: run\n"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := OpenFile(FileConfig{Path: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if _, err := w.Write([]byte("next: run\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "previous: run\nnext: run\n" {
		t.Errorf("report file = %q, want appended content", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestOpenFile_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "report.yaml")

	w, err := OpenFile(FileConfig{Path: path})
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer w.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("report file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestOpenFile_NoPath(t *testing.T) {
	if _, err := OpenFile(FileConfig{}); !errors.Is(err, ErrNoPath) {
		t.Errorf("OpenFile() error = %v, want ErrNoPath", err)
	}
}

func TestStdout_CloseKeepsStdoutOpen(t *testing.T) {
	if err := Stdout().Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := os.Stdout.Stat(); err != nil {
		t.Errorf("stdout closed: %v", err)
	}
}
