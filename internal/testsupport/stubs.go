package testsupport

import (
	"context"
	"sync"
	"sync/atomic"

	"folio/internal/compose"
	"folio/internal/ocr"
)

// StubEngine is a recognition engine with scripted responses and concurrency
// instrumentation.
type StubEngine struct {
	// Text is returned for every request.
	Text string
	// Err fails every call when set.
	Err error
	// FailuresBeforeSuccess makes the first N calls fail with
	// ocr.ErrUnavailable before succeeding.
	FailuresBeforeSuccess int

	mu     sync.Mutex
	calls  int
	active atomic.Int32
	peak   atomic.Int32
}

func (e *StubEngine) Name() string { return "stub" }

// Recognize returns the scripted text while recording peak concurrency.
func (e *StubEngine) Recognize(ctx context.Context, req ocr.Request) (ocr.Result, error) {
	cur := e.active.Add(1)
	for {
		p := e.peak.Load()
		if cur <= p || e.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	defer e.active.Add(-1)

	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()

	if e.Err != nil {
		return ocr.Result{}, e.Err
	}
	if call <= e.FailuresBeforeSuccess {
		return ocr.Result{}, ocr.ErrUnavailable
	}

	text := e.Text
	if text == "" {
		text = "天地玄黃"
	}
	return ocr.Result{Text: text, Confidence: 0.9}, nil
}

// Calls reports how many recognition calls were made.
func (e *StubEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// PeakConcurrency reports the maximum number of simultaneous Recognize calls.
func (e *StubEngine) PeakConcurrency() int {
	return int(e.peak.Load())
}

// StubConverter applies a fixed rune-for-rune rewrite, or misbehaves on
// demand to exercise the conversion invariant.
type StubConverter struct {
	// Output overrides the conversion result when non-empty, regardless of
	// input length.
	Output string
	Err    error
}

func (c *StubConverter) Convert(text string) (string, error) {
	if c.Err != nil {
		return "", c.Err
	}
	if c.Output != "" {
		return c.Output, nil
	}
	return text, nil
}

// StubComposer records rendered pages and returns a fixed payload.
type StubComposer struct {
	Err error

	mu    sync.Mutex
	pages []compose.Page
}

func (s *StubComposer) Render(ctx context.Context, page compose.Page) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()
	return []byte("%PDF-stub\n"), nil
}

// Rendered returns the pages rendered so far.
func (s *StubComposer) Rendered() []compose.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]compose.Page, len(s.pages))
	copy(out, s.pages)
	return out
}
