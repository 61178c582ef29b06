package checkpoint_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"folio/internal/checkpoint"
)

func openStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.OpenPath(filepath.Join(t.TempDir(), "checkpoint.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnsurePagesIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.EnsurePages(ctx, []int{1, 2, 3}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.Complete(ctx, mustClaim(t, store, 1), checkpoint.StatusDone, "", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Re-discovery must not disturb existing statuses.
	if err := store.EnsurePages(ctx, []int{1, 2, 3, 4}); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot) != 4 {
		t.Fatalf("expected 4 records, got %d", len(snapshot))
	}
	if snapshot[1].Status != checkpoint.StatusDone {
		t.Fatalf("page 1 status = %s", snapshot[1].Status)
	}
	if snapshot[4].Status != checkpoint.StatusPending {
		t.Fatalf("page 4 status = %s", snapshot[4].Status)
	}
}

func mustClaim(t *testing.T, store *checkpoint.Store, page int) int {
	t.Helper()
	ok, err := store.Claim(context.Background(), page)
	if err != nil {
		t.Fatalf("claim page %d: %v", page, err)
	}
	if !ok {
		t.Fatalf("claim page %d refused", page)
	}
	return page
}

func TestClaimIsExclusive(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}

	ok, err := store.Claim(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("first claim = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = store.Claim(ctx, 1)
	if err != nil {
		t.Fatalf("second claim error: %v", err)
	}
	if ok {
		t.Fatal("second claim must be refused while the first is outstanding")
	}
}

func TestClaimRefusesDonePages(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 1)
	if err := store.Complete(ctx, 1, checkpoint.StatusDone, "", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	ok, err := store.Claim(ctx, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ok {
		t.Fatal("done pages must never be claimable")
	}
}

func TestClaimAllowsFailedRetry(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 1)
	if err := store.Complete(ctx, 1, checkpoint.StatusFailed, "column_detection", "no valid partition"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	ok, err := store.Claim(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("reclaim failed page = (%v, %v), want (true, nil)", ok, err)
	}

	record, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if record.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", record.Attempts)
	}
	if record.ErrorKind != "" {
		t.Fatalf("claim must clear prior error kind, got %q", record.ErrorKind)
	}
}

func TestCompleteWithoutClaim(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}

	err := store.Complete(ctx, 1, checkpoint.StatusDone, "", "")
	if !errors.Is(err, checkpoint.ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed, got %v", err)
	}
}

func TestDoubleCompleteReported(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 1)
	if err := store.Complete(ctx, 1, checkpoint.StatusDone, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Complete(ctx, 1, checkpoint.StatusFailed, "failure", "late"); !errors.Is(err, checkpoint.ErrNotClaimed) {
		t.Fatalf("second complete must report ErrNotClaimed, got %v", err)
	}

	record, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != checkpoint.StatusDone {
		t.Fatalf("late complete must not clobber outcome, status = %s", record.Status)
	}
}

func TestCompleteRejectsNonTerminalOutcome(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 1)
	if err := store.Complete(ctx, 1, checkpoint.StatusPending, "", ""); err == nil {
		t.Fatal("expected error for non-terminal outcome")
	}
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1}); err != nil {
		t.Fatal(err)
	}

	const workers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := store.Claim(ctx, 1)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins.Load())
	}
}

func TestResetStuckProcessing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1, 2}); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 1)

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	record, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != checkpoint.StatusPending {
		t.Fatalf("status after reset = %s", record.Status)
	}
}

func TestRetryFailedSelective(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	for _, page := range []int{1, 2} {
		mustClaim(t, store, page)
		if err := store.Complete(ctx, page, checkpoint.StatusFailed, "failure", "boom"); err != nil {
			t.Fatal(err)
		}
	}

	retried, err := store.RetryFailed(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}

	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snapshot[1].Status != checkpoint.StatusFailed {
		t.Fatalf("page 1 = %s, want failed", snapshot[1].Status)
	}
	if snapshot[2].Status != checkpoint.StatusPending {
		t.Fatalf("page 2 = %s, want pending", snapshot[2].Status)
	}
}

func TestSummarize(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 1)
	if err := store.Complete(ctx, 1, checkpoint.StatusDone, "", ""); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 2)
	if err := store.Complete(ctx, 2, checkpoint.StatusFailed, "failure", "boom"); err != nil {
		t.Fatal(err)
	}
	mustClaim(t, store, 3)

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := checkpoint.Summary{Total: 4, Pending: 1, Processing: 1, Done: 1, Failed: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

func TestHealthReportsCountsAndClosedStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.EnsurePages(ctx, []int{1, 2}); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 2 || summary.Pending != 2 {
		t.Fatalf("summary = %+v, want 2 pending", summary)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Health(ctx); err == nil {
		t.Fatal("expected error from closed store")
	}
}
