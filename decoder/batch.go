package decoder

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DecodeBatch decodes every item independently and returns the n-best
// lists in input order. Items run concurrently, bounded by WithWorkers.
// Cancelling ctx stops items that have not started; an item already in
// the beam search runs to completion.
func (d *Decoder) DecodeBatch(ctx context.Context, items []*Emissions) ([][]Hypothesis, error) {
	results := make([][]Hypothesis, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if d.workers > 0 {
		g.SetLimit(d.workers)
	}
	for i, em := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.decode(gctx, em)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
