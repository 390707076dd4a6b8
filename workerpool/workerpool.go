// Package workerpool provides the fixed-size CPU pool shared by the
// commitment-tree chunk build and trial-decryption stages (spec.md §2). Both
// stages hand off fully-owned chunks to this pool rather than sharing
// mutable state, so the only synchronization primitive needed is the
// errgroup limit itself.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool bounds how many chunk-processing goroutines may run at once. A Pool
// is stateless beyond its width and safe to share across concurrent Run
// calls.
type Pool struct {
	width int
}

// New returns a Pool that runs at most width goroutines concurrently. A
// width of 0 or less sets no cap: Run starts every job at once, as an
// errgroup does when SetLimit is never called.
func New(width int) Pool {
	return Pool{width: width}
}

// Width reports the pool's configured concurrency cap.
func (p Pool) Width() int { return p.width }

// Run dispatches n independent jobs across the pool and waits for all of
// them to finish, returning the first error encountered (if any). fn must
// not retain i beyond its own invocation.
func (p Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if p.width > 0 {
		g.SetLimit(p.width)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
