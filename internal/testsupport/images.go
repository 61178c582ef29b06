package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// SyntheticPage builds a white page with solid vertical text bands at the
// given pixel spans, mimicking a binarized vertical-layout scan.
func SyntheticPage(width, height int, bands [][2]int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, band := range bands {
		for y := 0; y < height; y++ {
			for x := band[0]; x < band[1] && x < width; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

// WritePageImage encodes a synthetic page to dir/page_N.png and returns the
// path.
func WritePageImage(t testing.TB, dir string, ordinal int, img image.Image) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode page image: %v", err)
	}
	path := filepath.Join(dir, pageFileName(ordinal))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteBook writes count synthetic three-column pages into dir.
func WriteBook(t testing.TB, dir string, count int) {
	t.Helper()

	img := SyntheticPage(800, 1000, [][2]int{{100, 160}, {300, 360}, {500, 560}})
	for i := 1; i <= count; i++ {
		WritePageImage(t, dir, i, img)
	}
}

func pageFileName(ordinal int) string {
	return "page_" + strconv.Itoa(ordinal) + ".png"
}
