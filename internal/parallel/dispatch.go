// Package parallel runs independent keyed tasks on a bounded worker pool and
// merges their results by key.
package parallel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Map calls fn once for every key using at most workers goroutines and
// returns the results keyed by input key. Completion order does not affect
// the result. The first error cancels the context passed to outstanding
// tasks, stops scheduling and is returned; no partial map is returned.
// Duplicate keys are rejected.
func Map[K comparable, V any](ctx context.Context, keys []K, workers int, fn func(context.Context, K) (V, error)) (map[K]V, error) {
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return nil, fmt.Errorf("duplicate task key %v", k)
		}
		seen[k] = struct{}{}
	}

	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			v, err := fn(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			out[k] = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil && len(out) != len(keys) {
		return nil, err
	}
	return out, nil
}
