package rimg

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DecodeFunc turns one input path into a frame sequence. Decoding is the
// caller's concern; the core only schedules it.
type DecodeFunc func(ctx context.Context, path string) (*FrameSequence, error)

// DecodeAll runs decode over the inputs on a bounded worker pool and
// returns the sequences in input order regardless of completion order.
// workers <= 0 means one decode per input, unbounded. The first failure
// cancels outstanding work and is returned.
func DecodeAll(ctx context.Context, inputs []string, workers int, decode DecodeFunc) ([]*FrameSequence, error) {
	if len(inputs) == 0 {
		return nil, ErrMissingInput
	}

	results := make([]*FrameSequence, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, path := range inputs {
		g.Go(func() error {
			seq, err := decode(ctx, path)
			if err != nil {
				return err
			}
			results[i] = seq
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
