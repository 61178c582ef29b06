// Package ocr defines the recognition contract the pipeline depends on.
// Engines receive one column crop at a time and return linearized text.
package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrUnavailable reports that the recognition backend is not ready to serve
// requests. Callers retry with backoff before failing the page.
var ErrUnavailable = errors.New("recognition backend unavailable")

// Request is a single column image submitted for recognition.
type Request struct {
	// Image is the cropped, preprocessed column.
	Image image.Image
	// Language selects trained data; empty uses the engine default.
	Language string
	// DPI is the effective scan resolution, zero if unknown.
	DPI int
}

// Result is the recognized text for one column.
type Result struct {
	Text string
	// Confidence is the mean word confidence in [0, 1], zero if the engine
	// does not report one.
	Confidence float64
}

// Engine is the recognition provider contract.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, req Request) (Result, error)
}
