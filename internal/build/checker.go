package build

import (
	"context"
	"sync"
	"time"

	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/graph"
	"github.com/refnlabs/refbuild/internal/logging"
)

// CheckResult is the outcome of one background validation pass.
type CheckResult struct {
	// Generation identifies the check request that produced this result.
	Generation uint64
	// Errors holds per-file parse and classification failures.
	Errors []*errors.FileError
	// Cycles lists detected dependency cycles as node paths.
	Cycles [][]string
	// MissingTargets maps each schema to references that resolve to no node.
	MissingTargets map[string][]string
	// Duration is the wall time of the pass.
	Duration time.Duration
	// CompletedAt records when the pass finished.
	CompletedAt time.Time
}

// CheckFunc performs one validation pass and reports its findings.
type CheckFunc func(ctx context.Context) ([]*errors.FileError, map[string][]string)

// Checker runs validation passes on a single detached worker. The foreground
// polls Busy and Latest; there is no cancellation once a pass starts.
//
// Re-entrant requests are resolved with a generation counter: starting a new
// check bumps the generation, and a finishing worker discards its result if a
// newer check superseded it. Later requests therefore win; nothing queues.
type Checker struct {
	mu         sync.Mutex
	busy       bool
	generation uint64
	latest     *CheckResult
	logger     logging.Logger
}

// NewChecker creates an idle checker.
func NewChecker(logger logging.Logger) *Checker {
	return &Checker{logger: logger.WithComponent("checker")}
}

// Busy reports whether a validation pass is in flight.
func (c *Checker) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Latest returns the most recent completed result, or nil before the first
// pass finishes.
func (c *Checker) Latest() *CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Check launches a validation pass over the given adjacency snapshot and
// per-file check function. It returns the generation assigned to this
// request and a channel that closes when the pass completes (whether or not
// its result survived).
func (c *Checker) Check(ctx context.Context, adjacency map[string][]string, run CheckFunc) (uint64, <-chan struct{}) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.busy = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()

		var fileErrors []*errors.FileError
		var missing map[string][]string
		if run != nil {
			fileErrors, missing = run(ctx)
		}
		if missing == nil {
			missing = graph.MissingTargets(adjacency)
		}

		result := &CheckResult{
			Generation:     gen,
			Errors:         fileErrors,
			Cycles:         graph.DetectCycles(adjacency),
			MissingTargets: missing,
			Duration:       time.Since(start),
			CompletedAt:    time.Now(),
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen == c.generation {
			c.latest = result
			c.busy = false
			c.logger.Debug(ctx, "check completed", "generation", gen, "errors", len(result.Errors), "cycles", len(result.Cycles))
			return
		}
		// Superseded by a newer request; drop the stale result.
		c.logger.Debug(ctx, "check superseded", "generation", gen, "current", c.generation)
	}()

	return gen, done
}
