package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ndisidore/crosswalk/pkg/logctx"
)

// Quiet only reports record failures; all other progress is suppressed.
// Failures are logged, not returned, since per-record errors are isolated
// and must not abort the batch.
type Quiet struct{}

// Run consumes events until ch is closed or ctx is cancelled.
func (*Quiet) Run(ctx context.Context, mappingName string, ch <-chan Event) error {
	log := logctx.From(ctx)

	for {
		select {
		case <-ctx.Done():
			//revive:disable-next-line:empty-block // intentionally draining
			for range ch {
			}
			return fmt.Errorf("progress display cancelled: %w", ctx.Err())
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				log.LogAttrs(ctx, slog.LevelError, "record mapping failed",
					slog.String("mapping", mappingName),
					slog.String("record", ev.Ref),
					slog.String("error", ev.Err.Error()),
				)
			}
		}
	}
}
