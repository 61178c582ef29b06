package main

import (
	"fmt"
	"io"

	"folio/internal/compose/pdfbackend"
	"folio/internal/config"
	"folio/internal/gate"
	"folio/internal/services/tesseract"
	"folio/internal/stage"
)

// renderHealth wires the pipeline collaborators without opening the store and
// prints their readiness, so status can flag configuration problems before a
// run is attempted.
func renderHealth(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Health:")

	checks, err := collaboratorHealth(cfg)
	if err != nil {
		fmt.Fprintf(out, "  ERROR %v\n", err)
		return
	}
	for _, check := range checks {
		if check.Ready {
			fmt.Fprintf(out, "  OK    %s\n", check.Name)
			continue
		}
		fmt.Fprintf(out, "  WARN  %s: %s\n", check.Name, check.Detail)
	}
}

func collaboratorHealth(cfg *config.Config) ([]stage.Health, error) {
	engine := tesseract.New(tesseract.Options{Language: cfg.OCR.Language, DPI: cfg.Pipeline.DPI})

	converter, err := newConverter(cfg)
	if err != nil {
		return nil, err
	}
	composer, err := pdfbackend.New(pdfbackend.Options{
		FontPath: cfg.Compose.FontPath,
		FontSize: cfg.Compose.FontSize,
	})
	if err != nil {
		return nil, err
	}
	g, err := gate.New(gate.Options{
		Slots:           cfg.OCR.AcceleratorSlots,
		SingletonDevice: cfg.OCR.SingletonDevice,
		LockPath:        cfg.OCR.LockPath,
	})
	if err != nil {
		return nil, err
	}
	runner, err := stage.NewRunner(cfg, engine, converter, composer, g, nil)
	if err != nil {
		return nil, err
	}
	return runner.HealthCheck(), nil
}
