package publisher

import (
	"context"
	"log"
	"time"
)

// Runner serializes publish cycles. Triggers land in a depth-1 queue
// consumed by a single worker, so cycles never overlap and a trigger
// arriving while one is queued is dropped.
type Runner struct {
	publisher *Publisher
	tasks     chan struct{}
	timeout   time.Duration
}

// NewRunner creates a runner for p. Each cycle is bounded by timeout.
func NewRunner(p *Publisher, timeout time.Duration) *Runner {
	return &Runner{
		publisher: p,
		tasks:     make(chan struct{}, 1),
		timeout:   timeout,
	}
}

// Trigger enqueues a cycle, reporting false if one is already pending.
func (r *Runner) Trigger() bool {
	select {
	case r.tasks <- struct{}{}:
		return true
	default:
		log.Println("[runner] Cycle already pending, trigger skipped")
		return false
	}
}

// Run consumes triggers until ctx is cancelled. Call from a single
// goroutine; it is the only place cycles execute.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.tasks:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	log.Println("[runner] Starting publish cycle")

	if err := r.publisher.RunCycle(cycleCtx); err != nil {
		log.Printf("[runner] Cycle failed: %v", err)
		return
	}
	log.Printf("[runner] Cycle completed in %v", time.Since(start))
}
