// Package progress provides display adapters for batch mapping progress.
package progress

import (
	"context"
	"time"

	"github.com/opencontainers/go-digest"
)

// Event reports the outcome of mapping one record.
type Event struct {
	// Index is the record's position in the batch.
	Index int
	// Ref is a short human-readable record reference (ID or digest prefix).
	Ref string
	// Digest is the record's content-addressed identity.
	Digest digest.Digest
	// Err is the record's isolated failure, nil on success.
	Err error
	// Elapsed is how long the record took to map.
	Elapsed time.Duration
}

// Display renders mapping progress to the user.
type Display interface {
	// Run consumes events for one batch and renders them. It returns when
	// ch is closed or ctx is cancelled. On cancellation implementations
	// must drain ch so the sender can finish and close it.
	Run(ctx context.Context, mappingName string, ch <-chan Event) error
}
