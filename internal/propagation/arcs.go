package propagation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/varsens/internal/dynamo"
)

// Arc is one independent propagation. Build must return a propagator that
// shares no environment, engine or integrator with other arcs.
type Arc struct {
	Name   string
	Build  func() (*Propagator, error)
	Config dynamo.Config
}

// RunArcs propagates arcs concurrently, at most limit at a time when limit
// is positive. Results follow the order of arcs. The first failure cancels
// the remaining arcs.
func RunArcs(ctx context.Context, arcs []Arc, limit int) ([]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]*Result, len(arcs))
	for i, arc := range arcs {
		g.Go(func() error {
			p, err := arc.Build()
			if err != nil {
				return fmt.Errorf("arc %s: %w", arc.Name, err)
			}
			res, err := p.Run(ctx, arc.Config)
			if err != nil {
				return fmt.Errorf("arc %s: %w", arc.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
