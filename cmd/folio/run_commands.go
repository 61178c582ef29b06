package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"folio/internal/book"
	"folio/internal/checkpoint"
	"folio/internal/compose/pdfbackend"
	"folio/internal/config"
	"folio/internal/convert"
	"folio/internal/fileutil"
	"folio/internal/gate"
	"folio/internal/services/tesseract"
	"folio/internal/stage"
	"folio/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <book-dir>",
		Short: "Process every page of a book from scratch",
		Long: "Processes every page image under the given directory, including pages a\n" +
			"previous run already completed. Use resume to continue an interrupted run.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(ctx, cmd, args[0], false)
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <book-dir>",
		Short: "Continue an interrupted run",
		Long: "Skips pages already marked done, reclaims pages a crashed run left\n" +
			"mid-flight, and processes everything else.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(ctx, cmd, args[0], true)
		},
	}
}

func executeRun(ctx *commandContext, cmd *cobra.Command, bookDir string, resume bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	pages, err := book.DiscoverPages(bookDir, cfg.Pipeline.DPI)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	manager, runner, err := buildManager(cfg, store, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, check := range runner.HealthCheck() {
		if !check.Ready {
			fmt.Fprintf(out, "warning: %s: %s\n", check.Name, check.Detail)
		}
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var summary workflow.Summary
	if resume {
		summary, err = manager.Resume(runCtx, pages)
	} else {
		summary, err = manager.Run(runCtx, pages)
	}
	if err != nil {
		return err
	}

	if werr := writeSummaryFile(runner.Artifacts().SummaryPath(), summary); werr != nil {
		fmt.Fprintf(out, "warning: write summary: %v\n", werr)
	}

	renderSummary(out, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d pages failed", summary.Failed, len(summary.Pages))
	}
	return nil
}

// buildManager wires the full pipeline: recognition engine, script converter,
// PDF composer, accelerator gate, stage runner, and workflow manager.
func buildManager(cfg *config.Config, store *checkpoint.Store, logger *slog.Logger) (*workflow.Manager, *stage.Runner, error) {
	engine := tesseract.New(tesseract.Options{
		Language: cfg.OCR.Language,
		DPI:      cfg.Pipeline.DPI,
	})

	converter, err := newConverter(cfg)
	if err != nil {
		return nil, nil, err
	}

	composer, err := pdfbackend.New(pdfbackend.Options{
		FontPath: cfg.Compose.FontPath,
		FontSize: cfg.Compose.FontSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure PDF backend: %w", err)
	}

	g, err := gate.New(gate.Options{
		Slots:           cfg.OCR.AcceleratorSlots,
		SingletonDevice: cfg.OCR.SingletonDevice,
		LockPath:        cfg.OCR.LockPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure accelerator gate: %w", err)
	}

	runner, err := stage.NewRunner(cfg, engine, converter, composer, g, logger)
	if err != nil {
		return nil, nil, err
	}
	manager, err := workflow.NewManager(cfg, store, runner, logger)
	if err != nil {
		return nil, nil, err
	}
	return manager, runner, nil
}

func newConverter(cfg *config.Config) (convert.Converter, error) {
	if cfg.Convert.TablePath != "" {
		table, err := convert.LoadTable(cfg.Convert.TablePath)
		if err != nil {
			return nil, fmt.Errorf("load conversion table: %w", err)
		}
		return table, nil
	}
	table, err := convert.NewTable()
	if err != nil {
		return nil, fmt.Errorf("load embedded conversion table: %w", err)
	}
	return table, nil
}

func writeSummaryFile(path string, summary workflow.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
