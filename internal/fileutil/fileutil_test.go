package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteStream(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bin")

	written, err := WriteStream(dst, strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("WriteStream: %v", err)
	}
	if written != int64(len("hello world")) {
		t.Fatalf("written = %d", written)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: %q", got)
	}
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n > 0 {
		r.n--
		p[0] = 'x'
		return 1, nil
	}
	return 0, errors.New("source went away")
}

func TestWriteStreamRemovesPartialFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bin")

	if _, err := WriteStream(dst, &failingReader{n: 3}); err == nil {
		t.Fatal("expected error from failing reader")
	}
	if _, err := os.Stat(dst); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file should be removed, stat err = %v", err)
	}
}

func TestWriteStreamBadDestination(t *testing.T) {
	if _, err := WriteStream(filepath.Join(t.TempDir(), "missing", "out.bin"), strings.NewReader("x")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists on missing file: %v", err)
	}
}
