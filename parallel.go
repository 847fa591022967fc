package modtl

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// parallelLookupThreshold is the number of units from which cache lookups
// run concurrently. Below it the goroutine overhead outweighs a slow cache.
const parallelLookupThreshold = 5

type cacheHit struct {
	unit   *unit
	cached string
}

// lookup splits units into cache hits and misses, preserving unit order in
// both slices.
func (t *Translator) lookup(units []*unit) ([]cacheHit, []*unit) {
	if t.cache == nil || len(units) == 0 {
		return nil, units
	}

	values := make([]string, len(units))
	found := make([]bool, len(units))
	get := func(i int) {
		values[i], found[i] = t.cache.Get(units[i].key)
	}

	if len(units) < parallelLookupThreshold {
		for i := range units {
			get(i)
		}
	} else {
		var wg sync.WaitGroup
		for i := range units {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				get(i)
			}(i)
		}
		wg.Wait()
	}

	var hits []cacheHit
	var misses []*unit
	for i, u := range units {
		if found[i] {
			hits = append(hits, cacheHit{unit: u, cached: values[i]})
		} else {
			misses = append(misses, u)
		}
	}
	return hits, misses
}

// forEachBatch runs fn for batches 0..n-1 on at most workers goroutines. The
// first error cancels the context handed to the remaining batches.
func forEachBatch(ctx context.Context, workers, n int, fn func(ctx context.Context, batch int) error) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < n; b++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, b)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
