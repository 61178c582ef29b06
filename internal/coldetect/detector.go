package coldetect

import (
	"errors"
	"image"
	"sort"
)

// ErrNoColumns reports that no valid column partition could be found even
// after exhausting threshold sweeps and the even-split fallback. The caller
// treats the page as failed rather than guessing a column count.
var ErrNoColumns = errors.New("no valid column partition found")

const (
	// MinColumns and MaxColumns bound a plausible vertical-book layout.
	MinColumns = 2
	MaxColumns = 6

	foregroundCutoff = 128 // gray values below this count as ink
)

// Region is one detected text column in page pixel coordinates.
type Region struct {
	// Index is the reading order position. Vertical Chinese text reads
	// right to left, so index 0 is the rightmost column.
	Index int
	// Bounds is the column bounding box within the parent page.
	Bounds image.Rectangle
	// CharWidth is the estimated character-cell width used for the
	// boundary error tolerance and crop safety margins.
	CharWidth int
}

// Options tunes detection; the zero value uses defaults.
type Options struct {
	// ExpectedColumns seeds the even-split fallback. Zero disables it.
	ExpectedColumns int
}

// Inflate widens a region by margin pixels on both vertical boundaries,
// clamped to the page bounds. Downstream crops use this so recognition stays
// correct even when a boundary is off by up to the design tolerance.
func (r Region) Inflate(margin int, page image.Rectangle) image.Rectangle {
	out := r.Bounds
	out.Min.X -= margin
	out.Max.X += margin
	return out.Intersect(page)
}

// Detect partitions a binarized page into 2-6 vertical text columns.
func Detect(img *image.Gray, opts Options) ([]Region, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, ErrNoColumns
	}

	profile := verticalProfile(img)
	charWidth := estimateCharWidth(profile, width)

	// Sweep density thresholds and gap scales in a fixed order so the first
	// in-range partition is deterministic.
	thresholds := []float64{0, 0.005, 0.01, 0.02, 0.03, 0.05, 0.08, 0.12}
	gapScales := []float64{0.5, 0.75, 1.0, 1.5}
	for _, frac := range thresholds {
		threshold := int(frac * float64(height))
		for _, scale := range gapScales {
			minGap := int(scale * float64(charWidth))
			if minGap < 1 {
				minGap = 1
			}
			spans := columnSpans(profile, threshold, minGap, charWidth)
			if len(spans) >= MinColumns && len(spans) <= MaxColumns {
				return regionsFromSpans(spans, bounds, charWidth), nil
			}
		}
	}

	if hint := opts.ExpectedColumns; hint >= MinColumns && hint <= MaxColumns {
		return evenSplit(profile, bounds, hint, charWidth), nil
	}

	return nil, ErrNoColumns
}

// verticalProfile counts foreground pixels per image column.
func verticalProfile(img *image.Gray) []int {
	bounds := img.Bounds()
	profile := make([]int, bounds.Dx())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			if row[x] < foregroundCutoff {
				profile[x]++
			}
		}
	}
	return profile
}

// estimateCharWidth takes the median width of ink runs as the character-cell
// width; a vertical text column is roughly one character wide.
func estimateCharWidth(profile []int, width int) int {
	var runs []int
	run := 0
	for _, count := range profile {
		if count > 0 {
			run++
			continue
		}
		if run > 0 {
			runs = append(runs, run)
			run = 0
		}
	}
	if run > 0 {
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return max(width/12, 1)
	}
	sort.Ints(runs)
	median := runs[len(runs)/2]
	if median < 1 {
		median = 1
	}
	return median
}

type span struct {
	start, end int // [start, end) in profile coordinates
}

// columnSpans finds ink runs above threshold, merging runs separated by
// valleys narrower than minGap and dropping slivers of noise.
func columnSpans(profile []int, threshold, minGap, charWidth int) []span {
	var raw []span
	start := -1
	for x, count := range profile {
		if count > threshold {
			if start < 0 {
				start = x
			}
			continue
		}
		if start >= 0 {
			raw = append(raw, span{start: start, end: x})
			start = -1
		}
	}
	if start >= 0 {
		raw = append(raw, span{start: start, end: len(profile)})
	}

	merged := make([]span, 0, len(raw))
	for _, s := range raw {
		if n := len(merged); n > 0 && s.start-merged[n-1].end < minGap {
			merged[n-1].end = s.end
			continue
		}
		merged = append(merged, s)
	}

	minWidth := max(charWidth/4, 2)
	columns := merged[:0]
	for _, s := range merged {
		if s.end-s.start >= minWidth {
			columns = append(columns, s)
		}
	}
	return columns
}

func regionsFromSpans(spans []span, page image.Rectangle, charWidth int) []Region {
	regions := make([]Region, 0, len(spans))
	// Spans arrive left to right; reading order is right to left.
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		regions = append(regions, Region{
			Index:     len(spans) - 1 - i,
			Bounds:    image.Rect(page.Min.X+s.start, page.Min.Y, page.Min.X+s.end, page.Max.Y),
			CharWidth: charWidth,
		})
	}
	return regions
}

// evenSplit divides the ink extent into hint equal columns. Used only when
// projection analysis cannot settle on a count and the caller supplied one.
func evenSplit(profile []int, page image.Rectangle, hint, charWidth int) []Region {
	left, right := 0, len(profile)
	for left < right && profile[left] == 0 {
		left++
	}
	for right > left && profile[right-1] == 0 {
		right--
	}
	if right-left < hint {
		left, right = 0, len(profile)
	}

	spans := make([]span, 0, hint)
	total := right - left
	for i := 0; i < hint; i++ {
		s := left + i*total/hint
		e := left + (i+1)*total/hint
		spans = append(spans, span{start: s, end: e})
	}
	return regionsFromSpans(spans, page, charWidth)
}
