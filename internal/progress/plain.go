package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ndisidore/crosswalk/pkg/logctx"
)

// Plain emits one slog line per mapped record. The slog handler
// (pretty/json/text) decides how to render.
type Plain struct{}

// Run consumes events and logs them until ch is closed or ctx is cancelled.
func (*Plain) Run(ctx context.Context, mappingName string, ch <-chan Event) error {
	log := logctx.From(ctx)

	for {
		select {
		case <-ctx.Done():
			// Drain so the sender can finish and close ch. Without this,
			// a sender blocked on ch<- can never return to close the
			// channel, leaking its goroutine.
			//revive:disable-next-line:empty-block // intentionally draining
			for range ch {
			}
			return fmt.Errorf("progress display cancelled: %w", ctx.Err())
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			logEvent(ctx, log, mappingName, ev)
		}
	}
}

func logEvent(ctx context.Context, log *slog.Logger, mappingName string, ev Event) {
	base := []slog.Attr{
		slog.String("mapping", mappingName),
		slog.String("record", ev.Ref),
		slog.String("digest", ev.Digest.String()),
		slog.Duration("duration", ev.Elapsed),
	}

	if ev.Err != nil {
		attrs := append(base, slog.String("event", "record.error"), slog.String("error", ev.Err.Error()))
		//nolint:sloglint // dynamic msg encodes user-facing formatted output
		log.LogAttrs(ctx, slog.LevelError, fmt.Sprintf("[%s] FAIL %s: %v", mappingName, ev.Ref, ev.Err), attrs...)
		return
	}
	attrs := append(base, slog.String("event", "record.mapped"))
	//nolint:sloglint // dynamic msg encodes user-facing formatted output
	log.LogAttrs(ctx, slog.LevelInfo, fmt.Sprintf("[%s] mapped %s", mappingName, ev.Ref), attrs...)
}
