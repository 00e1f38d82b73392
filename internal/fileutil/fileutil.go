// Package fileutil provides safe file materialization helpers shared by
// upload ingest and artifact cleanup.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// WriteStream streams src into a new file at dst and returns the number of
// bytes written. A partial file is removed when the copy or close fails, so
// callers never observe a truncated file at dst.
func WriteStream(dst string, src io.Reader) (int64, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	written, err := io.Copy(out, src)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	return written, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
