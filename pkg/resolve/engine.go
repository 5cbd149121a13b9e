package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Engine dispatches catalog entries to the strategy their mode selects and
// collects the outcomes.
type Engine struct {
	strategies map[catalog.Mode]Strategy
	workers    int
	progress   func(Outcome)
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds how many entries resolve at once. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithProgress registers a callback invoked after each entry completes.
// Calls may come from several goroutines.
func WithProgress(fn func(Outcome)) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithStrategy overrides the strategy for one mode.
func WithStrategy(mode catalog.Mode, s Strategy) Option {
	return func(e *Engine) { e.strategies[mode] = s }
}

// NewEngine wires the scrape and direct strategies to m and the metadata
// strategy to p. Either may be nil when the catalog does not need it.
func NewEngine(m Mirror, p ProductCatalog, opts ...Option) *Engine {
	e := &Engine{
		strategies: make(map[catalog.Mode]Strategy, 3),
		workers:    1,
		now:        time.Now,
	}
	if m != nil {
		e.strategies[catalog.ModeScrape] = NewScrapeStrategy(m)
		e.strategies[catalog.ModeDirect] = NewDirectStrategy(m)
	}
	if p != nil {
		e.strategies[catalog.ModeMetadata] = NewMetadataStrategy(p)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resolves entries and returns every outcome keyed by name. A failing
// entry never stops the others. The returned error is non-nil only when ctx
// ended the run early; the partial results are still returned.
func (e *Engine) Run(ctx context.Context, entries []catalog.Entry) (*Results, error) {
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	results := NewResults(names)

	var g errgroup.Group
	g.SetLimit(e.workers)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			results.Set(cancelled(entry, err))
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results.Set(cancelled(entry, err))
				return nil
			}
			outcome := e.ResolveEntry(ctx, entry)
			results.Set(outcome)
			if e.progress != nil {
				e.progress(outcome)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func cancelled(entry catalog.Entry, err error) Outcome {
	o := Unresolved(entry.Name, err)
	o.Mode = entry.Mode()
	return o
}

// ResolveEntry resolves a single entry. Invalid entries fail without any
// network traffic.
func (e *Engine) ResolveEntry(ctx context.Context, entry catalog.Entry) Outcome {
	start := e.now()
	outcome := e.resolve(ctx, entry)
	outcome.Elapsed = e.now().Sub(start)

	if outcome.OK() {
		logger.Info("Resolved",
			logger.String("name", entry.Name),
			logger.String("mode", outcome.Mode.String()),
			logger.String("url", outcome.Record.URL),
			logger.String("version", outcome.Record.Version))
	} else {
		logger.Error("Unresolved",
			logger.String("name", entry.Name),
			logger.String("mode", outcome.Mode.String()),
			logger.Err(outcome.Err))
	}
	return outcome
}

func (e *Engine) resolve(ctx context.Context, entry catalog.Entry) Outcome {
	mode := entry.Mode()
	if !entry.Valid() {
		err := entry.Err
		if err == nil {
			err = fmt.Errorf("catalog entry %q has no descriptor", entry.Name)
		}
		o := Unresolved(entry.Name, err)
		o.Mode = mode
		return o
	}

	strategy, ok := e.strategies[mode]
	if !ok {
		o := Unresolved(entry.Name, fmt.Errorf("no %s strategy configured", mode))
		o.Mode = mode
		return o
	}

	logger.Debug("Resolving", logger.String("name", entry.Name), logger.String("mode", mode.String()))
	rec, err := strategy.Resolve(ctx, entry.Descriptor)
	if err == nil && (rec == nil || rec.URL == "") {
		err = fmt.Errorf("%w: %s strategy returned no URL", ErrNotFound, mode)
	}
	var o Outcome
	if err != nil {
		o = Unresolved(entry.Name, err)
	} else {
		o = Resolved(entry.Name, rec)
	}
	o.Mode = mode
	return o
}
