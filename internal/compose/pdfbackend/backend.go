// Package pdfbackend renders page fragments with the pdfkit builder: the scan
// drawn as an image XObject and an invisible text layer per column so the
// output is searchable without altering its appearance.
package pdfbackend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"unicode/utf8"

	"github.com/wudi/pdfkit/builder"
	"github.com/wudi/pdfkit/contentstream"
	"github.com/wudi/pdfkit/writer"

	"folio/internal/compose"
)

const (
	fontResourceName = "CJK"
	// defaultDPI is assumed when a page carries no resolution.
	defaultDPI = 72
)

// Options configures the backend.
type Options struct {
	// FontPath is a TrueType font covering the simplified character set.
	// Empty renders image-only fragments with no text layer.
	FontPath string
	// FontSize caps the glyph size in points; zero sizes each glyph to its
	// column cell.
	FontSize float64
}

// Backend implements compose.Service on pdfkit.
type Backend struct {
	fontData []byte
	fontSize float64
}

var _ compose.Service = (*Backend)(nil)

// New loads the font once; per-page rendering shares it.
func New(opts Options) (*Backend, error) {
	b := &Backend{fontSize: opts.FontSize}
	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		b.fontData = data
	}
	return b, nil
}

// HasTextLayer reports whether fragments will carry searchable text.
func (b *Backend) HasTextLayer() bool { return len(b.fontData) > 0 }

// Render produces the PDF fragment for one page.
func (b *Backend) Render(ctx context.Context, page compose.Page) ([]byte, error) {
	if page.Image == nil {
		return nil, fmt.Errorf("page %d has no image", page.Index)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := page.Image.Bounds()
	dpi := page.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	scale := 72.0 / float64(dpi)
	pageW := float64(bounds.Dx()) * scale
	pageH := float64(bounds.Dy()) * scale

	doc := builder.NewBuilder()
	if b.fontData != nil {
		doc.RegisterTrueTypeFont(fontResourceName, b.fontData)
	}

	pb := doc.NewPage(pageW, pageH)
	pb.DrawImage(builder.FromImage(page.Image), 0, 0, pageW, pageH, builder.ImageOptions{})

	if b.fontData != nil {
		for _, col := range page.Columns {
			b.drawColumnText(pb, col, bounds.Min, scale, pageH)
		}
	}
	pb.Finish()

	built, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}

	var buf bytes.Buffer
	w := (&writer.WriterBuilder{}).Build()
	cfg := writer.Config{
		ContentFilter: writer.FilterFlate,
		SubsetFonts:   true,
	}
	if err := w.Write(ctx, built, &buf, cfg); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// drawColumnText places one invisible glyph per character cell, top to
// bottom along the column center line.
func (b *Backend) drawColumnText(pb builder.PageBuilder, col compose.Column, origin image.Point, scale, pageH float64) {
	text := col.Simplified
	if text == "" {
		text = col.Traditional
	}
	count := utf8.RuneCountInString(text)
	if count == 0 {
		return
	}

	colLeft := float64(col.Bounds.Min.X-origin.X) * scale
	colWidth := float64(col.Bounds.Dx()) * scale
	colTop := float64(col.Bounds.Min.Y-origin.Y) * scale
	cellH := float64(col.Bounds.Dy()) * scale / float64(count)

	size := b.fontSize
	if size <= 0 || size > cellH {
		size = cellH
	}
	if size > colWidth && colWidth > 0 {
		size = colWidth
	}

	i := 0
	for _, r := range text {
		// PDF origin is bottom-left; the glyph baseline sits near the
		// bottom of its cell.
		cellBottom := pageH - colTop - float64(i+1)*cellH
		x := colLeft + (colWidth-size)/2
		pb.DrawText(string(r), x, cellBottom+cellH*0.1, builder.TextOptions{
			Font:       fontResourceName,
			FontSize:   size,
			RenderMode: contentstream.TextInvisible,
		})
		i++
	}
}
