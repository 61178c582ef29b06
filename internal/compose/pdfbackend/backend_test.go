package pdfbackend

import (
	"bytes"
	"context"
	"image"
	"path/filepath"
	"testing"

	"folio/internal/compose"
)

func grayPage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestNewMissingFont(t *testing.T) {
	_, err := New(Options{FontPath: filepath.Join(t.TempDir(), "absent.ttf")})
	if err == nil {
		t.Fatal("expected error for missing font file")
	}
}

func TestNewWithoutFont(t *testing.T) {
	b, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.HasTextLayer() {
		t.Error("HasTextLayer should be false with no font")
	}
}

func TestRenderImageOnlyFragment(t *testing.T) {
	b, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page := compose.Page{
		Index: 1,
		Image: grayPage(400, 600),
		DPI:   300,
		Columns: []compose.Column{
			{Bounds: image.Rect(250, 0, 350, 600), Traditional: "學而", Simplified: "学而"},
		},
	}
	data, err := b.Render(context.Background(), page)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output does not start with a PDF header: %q", data[:min(len(data), 8)])
	}
}

func TestRenderNilImage(t *testing.T) {
	b, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Render(context.Background(), compose.Page{Index: 2}); err == nil {
		t.Fatal("expected error for page without image")
	}
}

func TestRenderCanceledContext(t *testing.T) {
	b, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Render(ctx, compose.Page{Index: 3, Image: grayPage(10, 10)}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
