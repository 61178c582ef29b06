package stage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"
	"unicode/utf8"

	"folio/internal/book"
	"folio/internal/coldetect"
	"folio/internal/compose"
	"folio/internal/config"
	"folio/internal/convert"
	"folio/internal/fileutil"
	"folio/internal/gate"
	"folio/internal/imageproc"
	"folio/internal/logging"
	"folio/internal/ocr"
	"folio/internal/services"
)

// Runner executes the full processing sequence for one page.
type Runner struct {
	cfg       *config.Config
	engine    ocr.Engine
	converter convert.Converter
	composer  compose.Service
	gate      *gate.Gate
	artifacts Artifacts
	logger    *slog.Logger
}

// Outcome reports a successfully processed page.
type Outcome struct {
	Page           int
	Columns        int
	FragmentPath   string
	MeanConfidence float64
	DeskewAngle    float64
}

// NewRunner wires the page runner with its collaborators.
func NewRunner(cfg *config.Config, engine ocr.Engine, converter convert.Converter, composer compose.Service, g *gate.Gate, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || engine == nil || converter == nil || composer == nil || g == nil {
		return nil, errors.New("stage runner requires config, engine, converter, composer, and gate")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		engine:    engine,
		converter: converter,
		composer:  composer,
		gate:      g,
		artifacts: NewArtifacts(cfg.Paths.WorkDir),
		logger:    logging.NewComponentLogger(logger, "stage"),
	}, nil
}

// Artifacts exposes the path resolver so callers can locate page outputs.
func (r *Runner) Artifacts() Artifacts { return r.artifacts }

// HealthCheck reports collaborator readiness for status output.
func (r *Runner) HealthCheck() []Health {
	checks := []Health{
		Healthy("recognition (" + r.engine.Name() + ")"),
		Healthy("conversion"),
		Healthy(fmt.Sprintf("accelerator gate (%d slots)", r.gate.Slots())),
	}
	if hc, ok := r.composer.(interface{ HasTextLayer() bool }); ok && !hc.HasTextLayer() {
		checks = append(checks, Unhealthy("composition", "no font configured; fragments will not be searchable"))
	} else {
		checks = append(checks, Healthy("composition"))
	}
	return checks
}

// Run processes one page end to end and writes its artifacts. The returned
// error carries a sentinel marker identifying the failed stage.
func (r *Runner) Run(ctx context.Context, page book.Page) (Outcome, error) {
	ctx = services.WithPage(ctx, page.Index)
	log := r.logger.With(logging.Int(logging.FieldPage, page.Index))

	raw, err := page.Load()
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "preprocess", "load page image", page.SourcePath, err)
	}

	pre, err := imageproc.Preprocess(raw, imageproc.Options{
		DeskewAngle: r.cfg.Pipeline.DeskewAngle,
		AutoDeskew:  r.cfg.Pipeline.AutoDeskew,
	})
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "preprocess", "binarize and deskew", "", err)
	}
	if pre.Angle != 0 {
		log.Debug("deskewed page", logging.Float64("angle", pre.Angle))
	}

	regions, err := coldetect.Detect(pre.Image, coldetect.Options{ExpectedColumns: r.cfg.Pipeline.ExpectedColumns})
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrColumnDetection, "detect", "partition page",
			fmt.Sprintf("no valid %d-%d column layout", coldetect.MinColumns, coldetect.MaxColumns), err)
	}
	log.Debug("detected columns", logging.Int("columns", len(regions)))

	if err := r.artifacts.writeColumns(page.Index, pre.Angle, regions); err != nil {
		return Outcome{}, services.Wrap(nil, "detect", "write columns sidecar", "", err)
	}

	crops, err := r.exportCrops(page.Index, pre.Image, regions)
	if err != nil {
		return Outcome{}, err
	}

	recognized, err := r.recognizeColumns(ctx, page, crops, log)
	if err != nil {
		return Outcome{}, err
	}

	columns := make([]RecognizedColumn, 0, len(regions))
	for i, res := range recognized {
		simplified, err := r.converter.Convert(res.Text)
		if err != nil {
			return Outcome{}, services.Wrap(nil, "convert", fmt.Sprintf("column %d", i), "", err)
		}
		inCount := utf8.RuneCountInString(res.Text)
		outCount := utf8.RuneCountInString(simplified)
		if inCount != outCount {
			return Outcome{}, services.Wrap(services.ErrConversionInvariant, "convert", fmt.Sprintf("column %d", i),
				fmt.Sprintf("character count changed from %d to %d", inCount, outCount), nil)
		}
		columns = append(columns, RecognizedColumn{
			Index:       i,
			Traditional: res.Text,
			Simplified:  simplified,
			Confidence:  res.Confidence,
		})
	}

	if err := r.artifacts.writeRecognition(page.Index, r.cfg.OCR.Language, columns); err != nil {
		return Outcome{}, services.Wrap(nil, "recognize", "write recognition sidecar", "", err)
	}

	fragment, err := r.composePage(ctx, page, pre.Image, regions, columns)
	if err != nil {
		return Outcome{}, err
	}

	var confidence float64
	for _, col := range columns {
		confidence += col.Confidence
	}
	if len(columns) > 0 {
		confidence /= float64(len(columns))
	}

	log.Info("page processed",
		logging.Int("columns", len(columns)),
		logging.Float64("confidence", confidence),
		logging.String("fragment", fragment))
	return Outcome{
		Page:           page.Index,
		Columns:        len(columns),
		FragmentPath:   fragment,
		MeanConfidence: confidence,
		DeskewAngle:    pre.Angle,
	}, nil
}

// exportCrops cuts each detected column out of the preprocessed page, widened
// by the boundary tolerance so recognition is unaffected by small boundary
// placement errors.
func (r *Runner) exportCrops(page int, img *image.Gray, regions []coldetect.Region) ([]*image.Gray, error) {
	bounds := img.Bounds()
	crops := make([]*image.Gray, 0, len(regions))
	for _, region := range regions {
		margin := r.cfg.Pipeline.BoundaryToleranceChars * region.CharWidth
		rect := region.Inflate(margin, bounds)
		crop, ok := img.SubImage(rect).(*image.Gray)
		if !ok || rect.Empty() {
			return nil, services.Wrap(services.ErrColumnDetection, "detect", "crop column",
				fmt.Sprintf("column %d has empty bounds", region.Index), nil)
		}
		if err := r.artifacts.writeCrop(page, region.Index, crop); err != nil {
			return nil, services.Wrap(nil, "detect", "write column crop", "", err)
		}
		crops = append(crops, crop)
	}
	return crops, nil
}

// recognizeColumns holds an accelerator slot for the whole recognition window
// and runs the columns sequentially inside it, retrying transient backend
// failures with a fixed delay.
func (r *Runner) recognizeColumns(ctx context.Context, page book.Page, crops []*image.Gray, log *slog.Logger) ([]ocr.Result, error) {
	release, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrRecognitionUnavailable, "recognize", "acquire accelerator", "", err)
	}
	defer release()

	dpi := page.DPI
	if dpi == 0 {
		dpi = r.cfg.Pipeline.DPI
	}

	results := make([]ocr.Result, 0, len(crops))
	for i, crop := range crops {
		res, err := r.recognizeOne(ctx, ocr.Request{Image: crop, Language: r.cfg.OCR.Language, DPI: dpi}, i, log)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) recognizeOne(ctx context.Context, req ocr.Request, column int, log *slog.Logger) (ocr.Result, error) {
	delay := time.Duration(r.cfg.OCR.RetryDelay) * time.Second
	attempts := r.cfg.OCR.RetryLimit + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, delay); err != nil {
				return ocr.Result{}, services.Wrap(services.ErrRecognitionUnavailable, "recognize", "wait for backend", "", err)
			}
		}
		res, err := r.engine.Recognize(ctx, req)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ocr.ErrUnavailable) {
			return ocr.Result{}, services.Wrap(nil, "recognize", fmt.Sprintf("column %d", column), "", err)
		}
		lastErr = err
		log.Warn("recognition backend unavailable",
			logging.Int(logging.FieldColumn, column),
			logging.Int("attempt", attempt),
			logging.Error(err))
	}
	return ocr.Result{}, services.Wrap(services.ErrRecognitionUnavailable, "recognize",
		fmt.Sprintf("column %d", column), fmt.Sprintf("backend unavailable after %d attempts", attempts), lastErr)
}

func (r *Runner) composePage(ctx context.Context, page book.Page, img *image.Gray, regions []coldetect.Region, columns []RecognizedColumn) (string, error) {
	composeColumns := make([]compose.Column, 0, len(columns))
	for i, col := range columns {
		composeColumns = append(composeColumns, compose.Column{
			Bounds:      regions[i].Bounds,
			Traditional: col.Traditional,
			Simplified:  col.Simplified,
		})
	}

	dpi := page.DPI
	if dpi == 0 {
		dpi = r.cfg.Pipeline.DPI
	}
	data, err := r.composer.Render(ctx, compose.Page{
		Index:   page.Index,
		Image:   img,
		DPI:     dpi,
		Columns: composeColumns,
	})
	if err != nil {
		return "", services.Wrap(nil, "compose", "render fragment", "", err)
	}

	path := r.artifacts.FragmentPath(page.Index)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(nil, "compose", "write fragment", "", err)
	}
	return path, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
