package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrColumnDetection marks pages where no valid 2-6 column partition exists.
	ErrColumnDetection = errors.New("column detection failed")
	// ErrConversionInvariant marks script conversions that changed the
	// character count of the recognized text.
	ErrConversionInvariant = errors.New("conversion invariant violated")
	// ErrRecognitionUnavailable marks transient OCR backend/device failures.
	ErrRecognitionUnavailable = errors.New("recognition unavailable")
	// ErrCheckpointIO marks durable-store failures; these abort the run.
	ErrCheckpointIO = errors.New("checkpoint io error")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorKind maps a stage error to the kind string persisted in checkpoint
// records and surfaced in the run summary. Distinct kinds keep data-quality
// failures (conversion invariant) visible separately from generic failures.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrColumnDetection):
		return "column_detection"
	case errors.Is(err, ErrConversionInvariant):
		return "conversion_invariant"
	case errors.Is(err, ErrRecognitionUnavailable):
		return "recognition_unavailable"
	case errors.Is(err, ErrCheckpointIO):
		return "checkpoint_io"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "failure"
	}
}

// IsRunFatal reports whether an error must abort the whole run rather than
// fail a single page. Only checkpoint durability failures qualify; a run that
// cannot trust its checkpoint cannot resume safely.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrCheckpointIO)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
