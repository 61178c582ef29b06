// Package tesseract provides the shipped recognition engine, backed by the
// gosseract client in single-vertical-block mode for traditional Chinese.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"folio/internal/ocr"
)

// DefaultLanguage is the trained data for vertically written traditional
// Chinese.
const DefaultLanguage = "chi_tra_vert"

// Options configures the engine. Zero values use defaults.
type Options struct {
	// Language overrides DefaultLanguage.
	Language string
	// DPI is applied when a request carries none.
	DPI int
}

// Engine recognizes column images with a local Tesseract installation. Each
// call opens and closes its own client; the accelerator gate upstream bounds
// concurrency.
type Engine struct {
	clientFactory func() *gosseract.Client
	language      string
	dpi           int
}

// New constructs a Tesseract-backed engine.
func New(opts Options) *Engine {
	language := opts.Language
	if language == "" {
		language = DefaultLanguage
	}
	return &Engine{
		clientFactory: gosseract.NewClient,
		language:      language,
		dpi:           opts.DPI,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize runs OCR on a single column crop.
func (e *Engine) Recognize(ctx context.Context, req ocr.Request) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, req.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("encode column image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	language := req.Language
	if language == "" {
		language = e.language
	}
	if err := c.SetLanguage(language); err != nil {
		return ocr.Result{}, fmt.Errorf("set language %s: %w", language, ocr.ErrUnavailable)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK_VERT_TEXT); err != nil {
		return ocr.Result{}, fmt.Errorf("set page segmentation mode: %w", ocr.ErrUnavailable)
	}
	dpi := req.DPI
	if dpi == 0 {
		dpi = e.dpi
	}
	if dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(dpi)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", ocr.ErrUnavailable)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", ocr.ErrUnavailable)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize: %w", ocr.ErrUnavailable)
	}

	return ocr.Result{
		Text:       normalizeColumnText(text),
		Confidence: meanConfidence(c),
	}, nil
}

// normalizeColumnText strips layout whitespace Tesseract inserts between
// characters of a vertical run, leaving one continuous column string.
func normalizeColumnText(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, "")
}

func meanConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
