package facemesh

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidFrame is returned when the input frame is missing, empty or cannot be decoded.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrLandmarkIndex is returned when a landmark index is outside of the face landmark list.
	ErrLandmarkIndex = errors.New("landmark index out of range")
)

// DetectionBackendError wraps a failure reported by the landmark detection backend.
// The error is surfaced to the caller as it is, no retry is attempted.
type DetectionBackendError struct {
	Err error
}

func (e *DetectionBackendError) Error() string {
	return fmt.Sprintf("detection backend: %v", e.Err)
}

// Unwrap returns the underlying backend error.
func (e *DetectionBackendError) Unwrap() error { return e.Err }

// IsBackendError reports whether err originates from the detection backend.
func IsBackendError(err error) bool {
	var be *DetectionBackendError
	return errors.As(err, &be)
}

func invalidFrame(reason string) error {
	return errors.Wrap(ErrInvalidFrame, reason)
}
