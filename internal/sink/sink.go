// Package sink defines where mapped objects go after a batch run.
// Persistence proper is an external collaborator; this package only fixes
// the boundary and ships a provenance-stamping NDJSON implementation for
// the CLI.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ndisidore/crosswalk/pkg/mapper"
)

// Sink receives mapping results in batch order.
type Sink interface {
	// Write persists one result. Failed records are delivered too, so
	// sinks can record the failure in place of an object.
	Write(ctx context.Context, res mapper.Result) error
	// Close flushes and releases the sink.
	Close() error
}

// envelope is the NDJSON wire form of one result: the mapped object plus
// the provenance of the record it came from.
type envelope struct {
	Mapping  string `json:"mapping"`
	Record   string `json:"record,omitempty"`
	Digest   string `json:"digest"`
	MappedAt string `json:"mapped_at"`
	Object   any    `json:"object,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NDJSON writes one JSON envelope per result line.
type NDJSON struct {
	mu          sync.Mutex
	w           io.Writer
	mappingName string
	now         func() time.Time
}

// NewNDJSON returns an NDJSON sink for the given mapping writing to w.
func NewNDJSON(w io.Writer, mappingName string) *NDJSON {
	return &NDJSON{w: w, mappingName: mappingName, now: time.Now}
}

// Write encodes one result as an envelope line.
func (s *NDJSON) Write(_ context.Context, res mapper.Result) error {
	env := envelope{
		Mapping:  s.mappingName,
		Record:   res.Record.ID,
		Digest:   res.Record.Digest().String(),
		MappedAt: s.now().UTC().Format(time.RFC3339),
	}
	if res.Ok() {
		env.Object = res.Object
	} else {
		env.Error = res.Err.Error()
	}

	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", res.Record.Ref(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing result for %s: %w", res.Record.Ref(), err)
	}
	return nil
}

// Close flushes the underlying writer when it is closable.
func (s *NDJSON) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing sink: %w", err)
		}
	}
	return nil
}

// Discard drops every result. Useful for validation-only runs.
type Discard struct{}

// Write implements Sink.
func (Discard) Write(context.Context, mapper.Result) error { return nil }

// Close implements Sink.
func (Discard) Close() error { return nil }
