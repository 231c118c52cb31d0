// internal/app/system/workers/pool.go
package workers

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Task is a context-aware unit of work submitted to a Pool.
type Task func(ctx context.Context)

// Pool wraps an ants goroutine pool with context-aware submission.
// Fan-out writes and other background work run through here rather
// than as naked goroutines.
type Pool struct {
	pool *ants.Pool
	log  *zap.Logger
	name string
}

// DefaultFanoutSize is the default worker count for notification fan-out.
const DefaultFanoutSize = 32

// NewPool creates a named worker pool of the given size.
func NewPool(name string, size int, logger *zap.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultFanoutSize
	}
	panicHandler := func(p any) {
		logger.Error("worker panic recovered",
			zap.String("pool", name),
			zap.Any("panic", p),
			zap.Stack("stack"))
	}
	inner, err := ants.NewPool(size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: inner, log: logger, name: name}, nil
}

// Submit schedules task on the pool. The task receives the caller's
// context and should check ctx.Done() at blocking points. A context that
// is already cancelled at submission fails fast; once accepted, the task
// always runs so that callers tracking completion are never left waiting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return p.pool.Submit(func() {
		task(ctx)
	})
}

// Running reports the number of currently running workers.
func (p *Pool) Running() int { return p.pool.Running() }

// Shutdown releases the pool, waiting up to the given timeout for
// running tasks to finish.
func (p *Pool) Shutdown(timeout time.Duration) {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.log.Warn("worker pool shutdown timeout",
			zap.String("pool", p.name),
			zap.Error(err))
	}
}
