package book_test

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"folio/internal/book"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverPagesNumbered(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page_2.png"), 20, 30)
	writePNG(t, filepath.Join(dir, "page_1.png"), 10, 15)
	writePNG(t, filepath.Join(dir, "page_10.png"), 40, 50)

	pages, err := book.DiscoverPages(dir, 400)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("page count = %d", len(pages))
	}
	if pages[0].Index != 1 || pages[1].Index != 2 || pages[2].Index != 10 {
		t.Fatalf("ordinals = %d,%d,%d", pages[0].Index, pages[1].Index, pages[2].Index)
	}
	if pages[0].Width != 10 || pages[0].Height != 15 {
		t.Fatalf("page 1 dims = %dx%d", pages[0].Width, pages[0].Height)
	}
	if pages[0].DPI != 400 {
		t.Fatalf("dpi = %d", pages[0].DPI)
	}
}

func TestDiscoverPagesSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page_1.png"), 8, 8)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := book.DiscoverPages(dir, 300)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("page count = %d", len(pages))
	}
}

func TestDiscoverPagesRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page_1.png"), 8, 8)
	writePNG(t, filepath.Join(dir, "page_01.jpg"), 8, 8)

	// page_01 parses to ordinal 1 as well.
	if _, err := book.DiscoverPages(dir, 300); err == nil {
		t.Fatal("expected duplicate ordinal error")
	}
}

func TestDiscoverPagesEmptyDir(t *testing.T) {
	if _, err := book.DiscoverPages(t.TempDir(), 300); err == nil {
		t.Fatal("expected error for empty input dir")
	}
}
