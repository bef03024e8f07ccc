// Package batch orchestrates one mapping run: records in, progress events
// to a display, results to a sink.
package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ndisidore/crosswalk/internal/progress"
	"github.com/ndisidore/crosswalk/internal/sink"
	"github.com/ndisidore/crosswalk/pkg/harvest"
	"github.com/ndisidore/crosswalk/pkg/mapper"
)

// Input holds parameters for executing one batch.
type Input struct {
	// Mapper executes the registered mapping.
	Mapper *mapper.Mapper
	// Mapping is the registered mapping name to run.
	Mapping string
	// Records is the batch to map.
	Records []harvest.Record
	// Parallelism bounds concurrent record mapping (0 or 1 = sequential).
	Parallelism int
	// Display renders progress (TUI, plain, or quiet).
	Display progress.Display
	// Sink receives results in input order. Optional.
	Sink sink.Sink
}

// Summary aggregates the outcome of a batch.
type Summary struct {
	Total  int
	Mapped int
	Failed int
}

// Run maps every record, feeding the display as records complete and the
// sink in input order once the batch finishes. Per-record failures are
// counted, not fatal; Run fails only on structural errors (unknown mapping,
// display or sink breakage).
func Run(ctx context.Context, in Input) (Summary, error) {
	if in.Mapper == nil {
		return Summary{}, errors.New("batch.Input.Mapper must not be nil")
	}
	if in.Display == nil {
		return Summary{}, errors.New("batch.Input.Display must not be nil")
	}

	ch := make(chan progress.Event)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := in.Display.Run(gctx, in.Mapping, ch); err != nil {
			return fmt.Errorf("displaying progress: %w", err)
		}
		return nil
	})

	var results []mapper.Result
	g.Go(func() error {
		defer close(ch)

		var err error
		results, err = in.Mapper.Map(gctx, in.Mapping, in.Records,
			mapper.WithParallelism(in.Parallelism),
			mapper.WithObserver(func(index int, res mapper.Result) {
				ev := progress.Event{
					Index:   index,
					Ref:     res.Record.Ref(),
					Digest:  res.Record.Digest(),
					Err:     res.Err,
					Elapsed: res.Elapsed,
				}
				select {
				case ch <- ev:
				case <-gctx.Done():
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("mapping batch: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{Total: len(results)}
	for i := range results {
		if results[i].Ok() {
			sum.Mapped++
		} else {
			sum.Failed++
		}
		if in.Sink != nil {
			if err := in.Sink.Write(ctx, results[i]); err != nil {
				return sum, fmt.Errorf("sinking result %d: %w", i, err)
			}
		}
	}
	return sum, nil
}
