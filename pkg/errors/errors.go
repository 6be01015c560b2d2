package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common cases.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrMissingMetadata = errors.New("required metadata missing")
)

// Processing stage identifiers used by ProcessingError.
const (
	StageDownload = "download"
	StageGenerate = "generate"
	StageUpload   = "upload"
	StageDelete   = "delete"
	StageRecord   = "record"
)

// ValidationError indicates an upload whose metadata or product reference
// could not be validated. It is never retried; the object is quarantined.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validation creates a ValidationError with the given reason.
func Validation(reason string, err error) *ValidationError {
	return &ValidationError{Reason: reason, Err: err}
}

// ProcessingError indicates a failure in one of the post-validation stages
// (download, resize, upload, delete, database update). It is never retried;
// the object is quarantined.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Processing creates a ProcessingError for the given stage.
func Processing(stage string, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: err}
}

// QuarantineError indicates a failure while relocating an object to the
// dead-letter namespace. It is logged and swallowed, never propagated, so
// that it cannot mask the original failure.
type QuarantineError struct {
	Step string
	Err  error
}

func (e *QuarantineError) Error() string {
	return fmt.Sprintf("quarantine step %s failed: %v", e.Step, e.Err)
}

func (e *QuarantineError) Unwrap() error {
	return e.Err
}

// Quarantine creates a QuarantineError for the given step.
func Quarantine(step string, err error) *QuarantineError {
	return &QuarantineError{Step: step, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Classify returns a short label for the given error, used as a metric
// dimension and log field.
func Classify(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	var pErr *ProcessingError
	if errors.As(err, &pErr) {
		return "processing"
	}

	var qErr *QuarantineError
	if errors.As(err, &qErr) {
		return "quarantine"
	}

	return "internal"
}

// Stage returns the processing stage an error occurred at, or an empty
// string if the error is not a ProcessingError.
func Stage(err error) string {
	var pErr *ProcessingError
	if errors.As(err, &pErr) {
		return pErr.Stage
	}
	return ""
}
