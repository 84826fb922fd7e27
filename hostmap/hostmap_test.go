//go:build unix

package hostmap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dat")

	data := []byte("hello world test data for mmap")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	m, err := New(int(f.Fd()), 0, len(data), false)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if !bytes.Equal(m.Data(), data) {
		t.Errorf("mmap data mismatch: got %q, want %q", m.Data(), data)
	}
	if m.Size() != int64(len(data)) {
		t.Errorf("size mismatch: got %d, want %d", m.Size(), len(data))
	}
}

func TestNewInvalidSize(t *testing.T) {
	if _, err := New(0, 0, 0, false); err != ErrInvalidSize {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestMapFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dat")

	data := []byte("MapFile test data content")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	m, err := MapFile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if m.Path() != path {
		t.Errorf("Path = %q, want %q", m.Path(), path)
	}
	if !bytes.Equal(m.Data(), data) {
		t.Errorf("data mismatch: got %q, want %q", m.Data(), data)
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if m.Mapped() {
		t.Error("still mapped after Close")
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := m.Sync(); err != ErrNotMapped {
		t.Errorf("Sync after Close = %v, want ErrNotMapped", err)
	}
}

func TestMapFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := MapFile(path, false); err != ErrEmptyFile {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestMapFileMissing(t *testing.T) {
	_, err := MapFile(filepath.Join(t.TempDir(), "missing"), false)
	var e *Error
	if !errors.As(err, &e) || e.Op != "open" {
		t.Fatalf("expected open error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestWritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dat")
	if err := os.WriteFile(path, make([]byte, 4096), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := MapFile(path, true)
	if err != nil {
		t.Fatal(err)
	}
	copy(m.Data(), []byte("modified"))
	if err := m.Sync(); err != nil {
		m.Close()
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Sync(); err != ErrNotMapped {
		t.Errorf("Sync after Close = %v, want ErrNotMapped", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("modified")) {
		t.Errorf("expected modified data, got %q", data[:20])
	}
}
