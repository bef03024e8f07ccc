// Package mapper is the public entry point of the engine: Define compiles
// and registers a mapping, Map applies one to a batch of records with
// per-record failure isolation.
package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ndisidore/crosswalk/pkg/harvest"
	"github.com/ndisidore/crosswalk/pkg/logctx"
	"github.com/ndisidore/crosswalk/pkg/mapping"
	"github.com/ndisidore/crosswalk/pkg/registry"
)

// Result is the outcome of mapping one record: either a populated object or
// the error that failed it. Map returns one Result per input record, in
// input order, so a batch always completes even when individual records
// fail.
type Result struct {
	// Record is the input record this result belongs to.
	Record harvest.Record
	// Object is the populated target; nil when Err is set.
	Object mapping.Target
	// Err is the isolated per-record failure, if any.
	Err error
	// Elapsed is how long the record took to map.
	Elapsed time.Duration
}

// Ok reports whether the record mapped successfully.
func (r Result) Ok() bool { return r.Err == nil }

// Mapper binds the definition and execution APIs to one registry.
type Mapper struct {
	reg *registry.Registry
}

// New returns a Mapper over the given registry.
func New(reg *registry.Registry) *Mapper {
	return &Mapper{reg: reg}
}

// Registry returns the mapper's registry.
func (mp *Mapper) Registry() *registry.Registry { return mp.reg }

// Define compiles a definition block into a Mapping and registers it under
// name. The block runs once, immediately; the compiled mapping is immutable
// afterwards.
func (mp *Mapper) Define(name string, opts mapping.Options, define func(*mapping.Builder)) (*mapping.Mapping, error) {
	m, err := mapping.New(name, opts, define)
	if err != nil {
		return nil, err
	}
	if err := mp.reg.Register(name, m); err != nil {
		return nil, err
	}
	return m, nil
}

// mapOpts holds per-call execution options.
type mapOpts struct {
	parallelism int
	observe     func(index int, res Result)
}

// Option adjusts one Map call.
type Option func(*mapOpts)

// WithParallelism bounds how many records map concurrently. Values below 2
// select sequential execution.
func WithParallelism(n int) Option {
	return func(o *mapOpts) { o.parallelism = n }
}

// WithObserver registers a callback invoked once per record as its result
// becomes available. Observers may run from multiple goroutines when
// parallelism is enabled.
func WithObserver(fn func(index int, res Result)) Option {
	return func(o *mapOpts) { o.observe = fn }
}

// Map applies the named mapping to every record, returning one Result per
// record in input order. An unknown mapping name fails the whole call;
// anything that goes wrong while mapping a single record is captured in
// that record's Result instead of aborting the batch.
func (mp *Mapper) Map(ctx context.Context, name string, records []harvest.Record, opts ...Option) ([]Result, error) {
	m, err := mp.reg.Get(name)
	if err != nil {
		return nil, err
	}

	var o mapOpts
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]Result, len(records))
	process := func(i int) {
		results[i] = mp.processOne(ctx, m, records[i])
		if o.observe != nil {
			o.observe(i, results[i])
		}
	}

	if o.parallelism < 2 {
		for i := range records {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("mapping batch cancelled: %w", err)
			}
			process(i)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("mapping batch cancelled: %w", err)
			}
			process(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processOne maps a single record, converting panics from user transforms
// into an error so one bad callback cannot take down the batch.
func (mp *Mapper) processOne(ctx context.Context, m *mapping.Mapping, rec harvest.Record) (res Result) {
	res.Record = rec
	started := time.Now()
	defer func() {
		res.Elapsed = time.Since(started)
		if r := recover(); r != nil {
			res.Object = nil
			res.Err = fmt.Errorf("record %s: panic during mapping: %v", rec.Ref(), r)
		}
		if res.Err != nil {
			logctx.From(ctx).LogAttrs(ctx, slog.LevelWarn, "record mapping failed",
				slog.String("mapping", m.Name()),
				slog.String("record", rec.Ref()),
				slog.String("error", res.Err.Error()),
			)
		}
	}()

	res.Object, res.Err = m.ProcessRecord(ctx, rec)
	return res
}
