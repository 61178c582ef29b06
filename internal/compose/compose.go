// Package compose turns a processed page into a searchable PDF fragment: the
// original scan as the visible layer with invisible recognized text placed
// over each column.
package compose

import (
	"context"
	"image"
)

// Column is one recognized column with its page-pixel geometry.
type Column struct {
	// Bounds locates the column on the page bitmap.
	Bounds image.Rectangle
	// Traditional is the recognized text, one character per cell top to
	// bottom.
	Traditional string
	// Simplified is the converted text used for the searchable layer. Same
	// character count as Traditional.
	Simplified string
}

// Page carries everything needed to render one page fragment.
type Page struct {
	Index   int
	Image   image.Image
	DPI     int
	Columns []Column
}

// Service renders a page into PDF bytes. Implementations must be safe for
// concurrent use by multiple page workers.
type Service interface {
	Render(ctx context.Context, page Page) ([]byte, error)
}
