// Package gate bounds concurrent access to the recognition accelerator.
// Preprocessing runs freely on the CPU; recognition calls must hold a gate
// slot, and a singleton device additionally takes a cross-process file lock.
package gate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// Options configures the gate.
type Options struct {
	// Slots is the number of simultaneous recognition calls. Zero or
	// negative means one.
	Slots int
	// SingletonDevice adds a cross-process advisory lock around every
	// acquisition, for accelerators that cannot be shared between
	// processes at all.
	SingletonDevice bool
	// LockPath backs the advisory lock. Required when SingletonDevice is
	// set.
	LockPath string
}

// Gate is a counting semaphore with an optional process-exclusion lock.
type Gate struct {
	slots chan struct{}
	lock  *flock.Flock
}

// New builds a gate. The lock file's directory is created when needed.
func New(opts Options) (*Gate, error) {
	slots := opts.Slots
	if slots < 1 {
		slots = 1
	}
	g := &Gate{slots: make(chan struct{}, slots)}
	if opts.SingletonDevice {
		if opts.LockPath == "" {
			return nil, errors.New("singleton device requires a lock path")
		}
		if err := os.MkdirAll(filepath.Dir(opts.LockPath), 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
		g.lock = flock.New(opts.LockPath)
	}
	return g, nil
}

// Slots reports the configured concurrency limit.
func (g *Gate) Slots() int { return cap(g.slots) }

// Acquire blocks until a slot (and the device lock, if any) is held or the
// context is canceled. The returned release function must be called exactly
// once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if g.lock != nil {
		ok, err := g.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			<-g.slots
			return nil, fmt.Errorf("acquire device lock: %w", err)
		}
		if !ok {
			<-g.slots
			return nil, errors.New("device lock not acquired")
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if g.lock != nil {
			_ = g.lock.Unlock()
		}
		<-g.slots
	}, nil
}
