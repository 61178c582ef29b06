package imageproc

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
)

// ErrEmptyImage reports a source image with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Options controls the preprocessing pipeline. The zero value applies
// grayscale conversion and Otsu binarization with no skew correction.
type Options struct {
	// DeskewAngle is a manual correction angle in degrees, counterclockwise
	// positive. Ignored unless nonzero.
	DeskewAngle float64
	// AutoDeskew estimates the skew angle from the binarized page when no
	// manual angle is given.
	AutoDeskew bool
}

// Result is the preprocessed page and the correction that was applied.
type Result struct {
	Image *image.Gray
	// Angle is the deskew angle actually applied, in degrees.
	Angle float64
}

// Preprocess runs grayscale conversion, Otsu binarization, and optional skew
// correction on a raw page scan.
func Preprocess(src image.Image, opts Options) (Result, error) {
	if src == nil || src.Bounds().Empty() {
		return Result{}, ErrEmptyImage
	}

	gray := ToGray(src)
	binary := OtsuBinarize(gray)

	angle := opts.DeskewAngle
	if angle == 0 && opts.AutoDeskew {
		angle = EstimateSkew(binary)
	}
	if angle != 0 {
		binary = Rotate(binary, angle)
	}
	return Result{Image: binary, Angle: angle}, nil
}

// ToGray converts any image to 8-bit grayscale. A *image.Gray source is
// returned unchanged.
func ToGray(src image.Image) *image.Gray {
	if gray, ok := src.(*image.Gray); ok {
		return gray
	}
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	return gray
}

// OtsuThreshold picks the binarization threshold that maximizes between-class
// variance of the grayscale histogram.
func OtsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	bounds := img.Bounds()
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			hist[row[x]]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	sum := 0.0
	for v, count := range hist {
		sum += float64(v) * float64(count)
	}

	var (
		best      uint8
		bestScore float64
		wB        float64
		sumB      float64
	)
	for v := 0; v < 256; v++ {
		wB += float64(hist[v])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(v) * float64(hist[v])
		meanB := sumB / wB
		meanF := (sum - sumB) / wF
		score := wB * wF * (meanB - meanF) * (meanB - meanF)
		if score > bestScore {
			bestScore = score
			best = uint8(v)
		}
	}
	return best
}

// OtsuBinarize maps pixels at or below the Otsu threshold to 0 and the rest
// to 255, producing a new image.
func OtsuBinarize(img *image.Gray) *image.Gray {
	threshold := OtsuThreshold(img)
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		src := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		dst := out.Pix[(y-bounds.Min.Y)*out.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			if src[x] <= threshold {
				dst[x] = 0
			} else {
				dst[x] = 255
			}
		}
	}
	return out
}
