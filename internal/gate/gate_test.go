package gate

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	g, err := New(Options{Slots: 1})
	if err != nil {
		t.Fatal(err)
	}
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	// A second acquire succeeds after release.
	release, err = g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	release()
	// Double release is a no-op.
	release()
}

func TestZeroSlotsMeansOne(t *testing.T) {
	g, err := New(Options{Slots: 0})
	if err != nil {
		t.Fatal(err)
	}
	if g.Slots() != 1 {
		t.Fatalf("Slots = %d, want 1", g.Slots())
	}
}

func TestAcquireBlocksAtCapacity(t *testing.T) {
	g, err := New(Options{Slots: 2})
	if err != nil {
		t.Fatal(err)
	}

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			release()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}
}

func TestAcquireCanceledWhileWaiting(t *testing.T) {
	g, err := New(Options{Slots: 1})
	if err != nil {
		t.Fatal(err)
	}
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); err == nil {
		t.Fatal("expected context error while gate is full")
	}
}

func TestSingletonDeviceRequiresLockPath(t *testing.T) {
	if _, err := New(Options{SingletonDevice: true}); err == nil {
		t.Fatal("expected error for missing lock path")
	}
}

func TestSingletonDeviceLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "device", "accel.lock")
	g, err := New(Options{Slots: 1, SingletonDevice: true, LockPath: lockPath})
	if err != nil {
		t.Fatal(err)
	}
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire with device lock: %v", err)
	}
	release()
}
