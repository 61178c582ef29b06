package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/config"
)

// ErrNotClaimed reports a Complete call without a matching outstanding claim.
// This is a programming error on the caller's side, never silently ignored.
var ErrNotClaimed = errors.New("page is not claimed")

// Store manages checkpoint persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the checkpoint database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.WorkDir, "checkpoint.db"))
}

// OpenPath opens a checkpoint database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// synchronous=FULL makes every claim/complete durable before the call
	// returns, which the resume contract depends on.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// EnsurePages inserts pending records for any page index not yet tracked.
// Existing records keep their status; discovery is idempotent.
func (s *Store) EnsurePages(ctx context.Context, pages []int) error {
	if len(pages) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin ensure tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, page := range pages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO checkpoint_records (page, status, updated_at) VALUES (?, ?, ?)
                 ON CONFLICT(page) DO NOTHING`,
				page, StatusPending, timestamp,
			); err != nil {
				return fmt.Errorf("ensure page %d: %w", page, err)
			}
		}
		return tx.Commit()
	})
}

// Claim atomically transitions a page from pending or failed to processing.
// It returns false when the page is done or already claimed by another
// worker; the single UPDATE plus rows-affected check is the admission-control
// point that prevents duplicate work.
func (s *Store) Claim(ctx context.Context, page int) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE checkpoint_records
         SET status = ?, attempts = attempts + 1, claimed_at = ?, updated_at = ?,
             error_kind = NULL, error_message = NULL
         WHERE page = ? AND status IN (?, ?)`,
		StatusProcessing, now, now, page, StatusPending, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("claim page %d: %w", page, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return affected == 1, nil
}

// Complete records the terminal outcome for an outstanding claim. Calling it
// for a page that is not processing returns ErrNotClaimed.
func (s *Store) Complete(ctx context.Context, page int, outcome Status, errKind, errMessage string) error {
	if outcome != StatusDone && outcome != StatusFailed {
		return fmt.Errorf("complete page %d: invalid outcome %q", page, outcome)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE checkpoint_records
         SET status = ?, error_kind = ?, error_message = ?, claimed_at = NULL, updated_at = ?
         WHERE page = ? AND status = ?`,
		outcome, nullableString(errKind), nullableString(errMessage), now, page, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete page %d: %w", page, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete page %d as %s: %w", page, outcome, ErrNotClaimed)
	}
	return nil
}

// Get fetches one record by page index.
func (s *Store) Get(ctx context.Context, page int) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM checkpoint_records WHERE page = ?`, page)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// Snapshot returns a read-only view of every record keyed by page index.
func (s *Store) Snapshot(ctx context.Context) (map[int]Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM checkpoint_records ORDER BY page`)
	if err != nil {
		return nil, fmt.Errorf("snapshot query: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[int]Record)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		snapshot[record.Page] = *record
	}
	return snapshot, rows.Err()
}

// RetryFailed moves failed pages back to pending for reprocessing. With no
// explicit pages, every failed record is reset.
func (s *Store) RetryFailed(ctx context.Context, pages ...int) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(pages) == 0 {
		res, err := s.execWithRetry(ctx,
			`UPDATE checkpoint_records
             SET status = ?, error_kind = NULL, error_message = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending, now, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed pages: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(pages))
	args := make([]any, 0, len(pages)+3)
	args = append(args, StatusPending, now, StatusFailed)
	for _, page := range pages {
		args = append(args, page)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE checkpoint_records
         SET status = ?, error_kind = NULL, error_message = NULL, updated_at = ?
         WHERE status = ? AND page IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected pages: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns records abandoned mid-claim by a crashed run
// back to pending. Resume treats them exactly like never-started pages.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE checkpoint_records
         SET status = ?, claimed_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck records: %w", err)
	}
	return res.RowsAffected()
}

// ResetAll forces every record back to pending regardless of status. Used by
// the full re-run command.
func (s *Store) ResetAll(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE checkpoint_records
         SET status = ?, error_kind = NULL, error_message = NULL, claimed_at = NULL, updated_at = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reset all records: %w", err)
	}
	return res.RowsAffected()
}

// Summarize returns aggregated counts per lifecycle state.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM checkpoint_records GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize query: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var statusStr string
		var count int
		if err := rows.Scan(&statusStr, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch Status(statusStr) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusDone:
			summary.Done = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

// Health verifies the database answers and returns the aggregated counts.
func (s *Store) Health(ctx context.Context) (Summary, error) {
	if err := s.db.PingContext(ensureContext(ctx)); err != nil {
		return Summary{}, fmt.Errorf("ping checkpoint db: %w", err)
	}
	return s.Summarize(ctx)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
