package imageproc

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	skewSweepDegrees = 5.0
	skewSweepStep    = 0.25
)

// Rotate turns the image by angle degrees (counterclockwise positive) about
// its center, keeping the original dimensions and filling exposed borders
// with white.
func Rotate(img *image.Gray, angle float64) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for i := range out.Pix {
		out.Pix[i] = 255
	}

	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx := float64(bounds.Dx()) / 2
	cy := float64(bounds.Dy()) / 2

	// Maps source points to destination points rotating about the center.
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(out, m, img, bounds, draw.Over, nil)
	return out
}

// EstimateSkew finds the small rotation that sharpens the vertical projection
// profile the most. Vertical text columns produce deep valleys between
// columns only when the page is upright, so profile variance peaks at the
// corrective angle. Returns degrees in [-skewSweepDegrees, skewSweepDegrees].
func EstimateSkew(img *image.Gray) float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	var (
		bestAngle float64
		bestScore = -1.0
	)
	for angle := -skewSweepDegrees; angle <= skewSweepDegrees+1e-9; angle += skewSweepStep {
		score := shearedProfileScore(img, angle)
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}
	if math.Abs(bestAngle) < skewSweepStep/2 {
		return 0
	}
	// The page is skewed by bestAngle of shear, so the correction is its
	// negation applied as a rotation.
	return -bestAngle
}

// shearedProfileScore accumulates a vertical ink profile with columns sheared
// by the candidate angle and returns its variance. Shearing approximates a
// small rotation without resampling.
func shearedProfileScore(img *image.Gray, angle float64) float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	tan := math.Tan(angle * math.Pi / 180)

	profile := make([]float64, width)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		shift := int(math.Round(tan * float64(y-height/2)))
		for x := 0; x < width; x++ {
			if row[x] >= 128 {
				continue
			}
			col := x + shift
			if col >= 0 && col < width {
				profile[col]++
			}
		}
	}

	mean := 0.0
	for _, v := range profile {
		mean += v
	}
	mean /= float64(width)

	variance := 0.0
	for _, v := range profile {
		d := v - mean
		variance += d * d
	}
	return variance / float64(width)
}
