package services_test

import (
	"errors"
	"strings"
	"testing"

	"folio/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrRecognitionUnavailable, "recognize", "tesseract", "device not ready", errors.New("boom"))
	if !errors.Is(err, services.ErrRecognitionUnavailable) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !strings.Contains(err.Error(), "recognize: tesseract: device not ready") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "stage", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"column detection", services.Wrap(services.ErrColumnDetection, "detect", "", "", nil), "column_detection"},
		{"conversion invariant", services.Wrap(services.ErrConversionInvariant, "convert", "", "", nil), "conversion_invariant"},
		{"recognition", services.Wrap(services.ErrRecognitionUnavailable, "recognize", "", "", nil), "recognition_unavailable"},
		{"checkpoint", services.Wrap(services.ErrCheckpointIO, "claim", "", "", nil), "checkpoint_io"},
		{"generic", errors.New("plain"), "failure"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsRunFatal(t *testing.T) {
	if services.IsRunFatal(services.Wrap(services.ErrColumnDetection, "detect", "", "", nil)) {
		t.Fatal("page-scoped error must not be run fatal")
	}
	if !services.IsRunFatal(services.Wrap(services.ErrCheckpointIO, "complete", "", "", nil)) {
		t.Fatal("checkpoint errors must abort the run")
	}
}
