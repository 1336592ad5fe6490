// Package goroutine runs named background tasks with a concurrency cap,
// panic recovery and error collection.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/pkitotp/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// ErrPanic wraps a recovered panic in the collected errors.
var ErrPanic = errors.New("goroutine: panic")

// Manager runs functions in goroutines with a configurable concurrency limit.
type Manager struct {
	mu   sync.Mutex
	errs []error

	wg   sync.WaitGroup
	sema chan struct{}

	stateMu sync.RWMutex
	closed  bool
}

// NewManager creates a new Manager with the provided maximum concurrency.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go starts f under name and reports whether it was scheduled. It refuses
// when the manager is closed or at its limit.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(ctx, "goroutine manager is closed, task not started", "task", name)
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "maximum goroutine limit reached, task not started", "task", name)
		return false
	}

	g.wg.Go(func() {
		defer func() { <-g.sema }()
		defer g.recover(ctx, name)

		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "task canceled before start", "task", name, "because", err)
			return
		}

		if err := f(ctx); err != nil && !errors.Is(err, context.Canceled) {
			g.collect(fmt.Errorf("%s: %w", name, err))
		}
	})

	return true
}

func (g *Manager) recover(ctx context.Context, name string) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic occurred in task", "task", name, "panic", rvr, "stack", paths)
	} else {
		slog.ErrorContext(ctx, "panic occurred in task", "task", name, "panic", rvr, "stack", string(stack))
	}
	g.collect(fmt.Errorf("%s: %w: %v", name, ErrPanic, rvr))
}

func (g *Manager) collect(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Wait closes the manager, blocks until every task returns and joins the
// collected errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
