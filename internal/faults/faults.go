package faults

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrFileMissing       = errors.New("file missing")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrToolMissing       = errors.New("tool missing")
	ErrToolFailed        = errors.New("tool failed")
	ErrMalformedOutput   = errors.New("malformed tool output")
	ErrDecode            = errors.New("decode error")
	ErrNoTranscript      = errors.New("no transcript")
	ErrPersistence       = errors.New("persistence error")
	ErrNotFound          = errors.New("not found")

	// ErrConflict is reserved for future write-contention surfaces.
	ErrConflict = errors.New("conflict")
)

// Wrap tags err with the given kind while adding operation context.
// The kind should be one of the exported sentinel errors above.
func Wrap(kind error, operation string, err error) error {
	if kind == nil {
		kind = ErrPersistence
	}
	operation = strings.TrimSpace(operation)
	if err != nil {
		if operation != "" {
			return fmt.Errorf("%w: %s: %w", kind, operation, err)
		}
		return fmt.Errorf("%w: %w", kind, err)
	}
	if operation != "" {
		return fmt.Errorf("%w: %s", kind, operation)
	}
	return kind
}

// New tags a fresh error message with the given kind.
func New(kind error, message string) error {
	return Wrap(kind, message, nil)
}

// ToolFailure carries the exit status and captured stderr of a failed
// external tool invocation. It matches ErrToolFailed under errors.Is.
type ToolFailure struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (f *ToolFailure) Error() string {
	stderr := strings.TrimSpace(f.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with status %d", f.Tool, f.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", f.Tool, f.ExitCode, stderr)
}

func (f *ToolFailure) Is(target error) bool {
	return target == ErrToolFailed
}

// HTTPStatus maps an error kind to the status code the API returns.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoTranscript), errors.Is(err, ErrFileMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
