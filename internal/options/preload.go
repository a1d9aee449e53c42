package options

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LoadRoots fetches several root levels in parallel with shared cancellation.
// The first failure cancels the rest and is returned.
func LoadRoots(ctx context.Context, repo Repository, levels ...Level) (map[Level][]Option, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make(map[Level][]Option, len(levels))
	for _, level := range levels {
		g.Go(func() error {
			opts, err := repo.LoadRoot(ctx, level)
			if err != nil {
				return err
			}
			mu.Lock()
			out[level] = opts
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
