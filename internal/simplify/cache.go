package simplify

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/metricalg/internal/expr"
)

// Cached memoizes another Simplifier by formula ID.
//
// Only successful results are stored. Concurrent calls for the same formula
// share one underlying call, which runs without the callers' cancellation;
// a caller whose context ends gets its own context error while the others
// keep waiting.
type Cached struct {
	next  Simplifier
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]expr.Expr
	hits    int
	misses  int
}

// NewCached wraps next.
func NewCached(next Simplifier) *Cached {
	return &Cached{
		next:    next,
		entries: make(map[string]expr.Expr),
	}
}

// Simplify implements Simplifier.
func (c *Cached) Simplify(ctx context.Context, e expr.Expr) (expr.Expr, error) {
	id, err := expr.FormulaID(e)
	if err != nil {
		// Not hashable, so not cacheable
		return c.next.Simplify(ctx, e)
	}

	c.mu.Lock()
	if out, ok := c.entries[id]; ok {
		c.hits++
		c.mu.Unlock()
		return out, nil
	}
	c.misses++
	c.mu.Unlock()

	// The shared call outlives any single caller; each caller waits on
	// its own context.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		out, err := c.next.Simplify(shared, e)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = out
		c.mu.Unlock()
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, newError("cache", e, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(expr.Expr), nil
	}
}

// Stats returns cache hit and miss counts.
func (c *Cached) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached results.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
