package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/book"
	"folio/internal/checkpoint"
	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/services"
	"folio/internal/stage"
)

// PageRunner executes the processing sequence for one claimed page.
type PageRunner interface {
	Run(ctx context.Context, page book.Page) (stage.Outcome, error)
}

// Manager coordinates checkpoint claims and the page worker pool.
type Manager struct {
	cfg    *config.Config
	store  *checkpoint.Store
	runner PageRunner
	logger *slog.Logger
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *checkpoint.Store, runner PageRunner, logger *slog.Logger) (*Manager, error) {
	if cfg == nil || store == nil || runner == nil {
		return nil, errors.New("workflow manager requires config, store, and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}, nil
}

// Run processes every page from scratch, including pages a previous run
// already completed.
func (m *Manager) Run(ctx context.Context, pages []book.Page) (Summary, error) {
	return m.process(ctx, pages, false)
}

// Resume continues an interrupted run: pages already done are skipped and
// pages a crashed run left claimed are reprocessed.
func (m *Manager) Resume(ctx context.Context, pages []book.Page) (Summary, error) {
	return m.process(ctx, pages, true)
}

func (m *Manager) process(ctx context.Context, pages []book.Page, resume bool) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	log := m.logger.With(logging.String(logging.FieldCorrelationID, runID))

	summary := Summary{RunID: runID, StartedAt: time.Now().UTC()}
	if len(pages) == 0 {
		summary.FinishedAt = summary.StartedAt
		return summary, errors.New("no pages to process")
	}

	ordered := make([]book.Page, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	indices := make([]int, len(ordered))
	for i, p := range ordered {
		indices[i] = p.Index
	}
	if err := m.store.EnsurePages(ctx, indices); err != nil {
		return summary, services.Wrap(services.ErrCheckpointIO, "workflow", "register pages", "", err)
	}

	if resume {
		reclaimed, err := m.store.ResetStuckProcessing(ctx)
		if err != nil {
			return summary, services.Wrap(services.ErrCheckpointIO, "workflow", "reclaim stuck pages", "", err)
		}
		if reclaimed > 0 {
			log.Info("reclaimed pages from interrupted run", logging.Int64("pages", reclaimed))
		}
	} else {
		if _, err := m.store.ResetAll(ctx); err != nil {
			return summary, services.Wrap(services.ErrCheckpointIO, "workflow", "reset checkpoint", "", err)
		}
	}

	log.Info("run started",
		logging.Int("pages", len(ordered)),
		logging.Int("workers", m.workers()),
		logging.Bool("resume", resume))

	results, runErr := m.runPool(ctx, log, ordered)

	summary.FinishedAt = time.Now().UTC()
	if err := m.collect(ctx, ordered, results, &summary); err != nil && runErr == nil {
		runErr = err
	}

	log.Info("run finished",
		logging.Int("done", summary.Done),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, runErr
}

// runPool claims pages in ascending order and fans them out to workers.
// Cancellation stops claiming; pages already claimed finish and are recorded.
func (m *Manager) runPool(ctx context.Context, log *slog.Logger, pages []book.Page) (map[int]stage.Outcome, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make(map[int]stage.Outcome, len(pages))
		fatalErr error
	)
	setFatal := func(err error) {
		mu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		mu.Unlock()
	}
	hasFatal := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fatalErr != nil
	}

	slots := make(chan struct{}, m.workers())
	// In-flight pages must complete and be recorded even when the run
	// context is canceled.
	workCtx := context.WithoutCancel(ctx)

claimLoop:
	for _, page := range pages {
		if hasFatal() {
			break
		}
		select {
		case <-ctx.Done():
			log.Info("cancellation requested; no further pages will be claimed")
			break claimLoop
		case slots <- struct{}{}:
			// A freed slot can race with cancellation; re-check so no new
			// page is claimed after cancel.
			if ctx.Err() != nil {
				<-slots
				log.Info("cancellation requested; no further pages will be claimed")
				break claimLoop
			}
		}

		claimed, err := m.store.Claim(workCtx, page.Index)
		if err != nil {
			<-slots
			setFatal(services.Wrap(services.ErrCheckpointIO, "workflow", "claim page", "", err))
			break
		}
		if !claimed {
			<-slots
			continue
		}

		wg.Add(1)
		go func(page book.Page) {
			defer wg.Done()
			defer func() { <-slots }()

			outcome, err := m.runner.Run(workCtx, page)
			if err != nil {
				log.Warn("page failed",
					logging.Int(logging.FieldPage, page.Index),
					logging.String("error_kind", services.ErrorKind(err)),
					logging.Error(err))
				if cErr := m.store.Complete(workCtx, page.Index, checkpoint.StatusFailed, services.ErrorKind(err), err.Error()); cErr != nil {
					setFatal(services.Wrap(services.ErrCheckpointIO, "workflow", "record failure", "", cErr))
				}
				return
			}

			if cErr := m.store.Complete(workCtx, page.Index, checkpoint.StatusDone, "", ""); cErr != nil {
				setFatal(services.Wrap(services.ErrCheckpointIO, "workflow", "record completion", "", cErr))
				return
			}
			mu.Lock()
			results[page.Index] = outcome
			mu.Unlock()
		}(page)
	}

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	return results, fatalErr
}

// collect merges checkpoint records and worker outcomes into the summary.
func (m *Manager) collect(ctx context.Context, pages []book.Page, results map[int]stage.Outcome, summary *Summary) error {
	snapshot, err := m.store.Snapshot(context.WithoutCancel(ctx))
	if err != nil {
		return services.Wrap(services.ErrCheckpointIO, "workflow", "snapshot checkpoint", "", err)
	}

	for _, page := range pages {
		report := PageReport{Page: page.Index, Status: checkpoint.StatusPending}
		if record, ok := snapshot[page.Index]; ok {
			report.Status = record.Status
			report.ErrorKind = record.ErrorKind
			report.ErrorMessage = record.ErrorMessage
			report.Attempts = record.Attempts
		}
		if outcome, ok := results[page.Index]; ok {
			report.Columns = outcome.Columns
			report.FragmentPath = outcome.FragmentPath
			report.Confidence = outcome.MeanConfidence
		} else if report.Status == checkpoint.StatusDone {
			// Done without a fresh outcome means the page was skipped by
			// Resume.
			summary.Skipped++
		}
		switch report.Status {
		case checkpoint.StatusDone:
			summary.Done++
		case checkpoint.StatusFailed:
			summary.Failed++
		}
		summary.Pages = append(summary.Pages, report)
	}
	return nil
}

func (m *Manager) workers() int {
	if n := m.cfg.Workflow.MaxParallelism; n > 0 {
		return n
	}
	return 1
}
