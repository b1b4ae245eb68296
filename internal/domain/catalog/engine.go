package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/macieszak/confectionery-storefront/internal/domain/product"
	"github.com/macieszak/confectionery-storefront/internal/event"
)

// Source is the remote catalog the engine resolves queries against. One
// method per backend endpoint; the engine's plan picks which one to call.
type Source interface {
	Products(ctx context.Context) ([]product.Product, error)
	FilterProducts(ctx context.Context, category string, minPrice, maxPrice *decimal.Decimal) ([]product.Product, error)
	SortedProducts(ctx context.Context, sort SortOrder) ([]product.Product, error)
	SearchProducts(ctx context.Context, query string) ([]product.Product, error)
}

// Snapshot is a resolved product list together with the query and sequence
// number that produced it.
type Snapshot struct {
	Seq      uint64
	Query    Query
	Products []product.Product
}

// ResolveError reports a failed resolution. The previously resolved list
// stays visible; subscribers show a dismissible notice.
type ResolveError struct {
	Seq   uint64
	Query Query
	Err   error
}

// EngineOptions tune an Engine. The zero value gives combined search
// composition, a 10 second per-request timeout, and no-op metrics.
type EngineOptions struct {
	Mode    SearchMode
	Timeout time.Duration
	Meter   metric.Meter
}

// Engine owns the four-axis catalog query and the current product list. All
// axis changes funnel through one sequence-numbered resolution pipeline, so
// the visible list always reflects the newest completed query and a slow
// stale response can never overwrite a newer one.
type Engine struct {
	source  Source
	mode    SearchMode
	timeout time.Duration

	mu      sync.Mutex
	query   Query
	issued  uint64 // sequence number of the most recently issued request
	decided uint64 // highest sequence number whose outcome has been observed
	list    []product.Product

	updates  *event.Stream[Snapshot]
	failures *event.Stream[ResolveError]

	requests metric.Int64Counter
	stale    metric.Int64Counter
}

// NewEngine creates an Engine over the given source. The list starts empty;
// call Refresh to load the baseline view.
func NewEngine(source Source, opts EngineOptions) *Engine {
	if opts.Mode == "" {
		opts.Mode = SearchCombined
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	meter := opts.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}
	requests, _ := meter.Int64Counter("storefront.catalog.requests")
	stale, _ := meter.Int64Counter("storefront.catalog.stale_responses")

	return &Engine{
		source:   source,
		mode:     opts.Mode,
		timeout:  opts.Timeout,
		query:    DefaultQuery(),
		updates:  event.NewStream[Snapshot](8),
		failures: event.NewStream[ResolveError](8),
		requests: requests,
		stale:    stale,
	}
}

// Updates subscribes to resolved list snapshots.
func (e *Engine) Updates() (<-chan Snapshot, func()) {
	return e.updates.Subscribe()
}

// Failures subscribes to recoverable resolution failures.
func (e *Engine) Failures() (<-chan ResolveError, func()) {
	return e.failures.Subscribe()
}

// Query returns the current four-axis query state.
func (e *Engine) Query() Query {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// CurrentList returns a copy of the latest resolved product list.
func (e *Engine) CurrentList() []product.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.list)
}

// Refresh re-issues the current query, e.g. for the initial page load.
func (e *Engine) Refresh(ctx context.Context) {
	e.change(ctx, func(*Query) {})
}

// SetSearchText updates the search axis. Clearing the text falls back to the
// filtered view; the other axes persist across a search session.
func (e *Engine) SetSearchText(ctx context.Context, text string) {
	e.change(ctx, func(q *Query) { q.Search = text })
}

// SetCategory updates the category axis.
func (e *Engine) SetCategory(ctx context.Context, c CategoryFilter) {
	e.change(ctx, func(q *Query) { q.Category = c })
}

// SetPriceBand updates the price axis.
func (e *Engine) SetPriceBand(ctx context.Context, b PriceBand) {
	e.change(ctx, func(q *Query) { q.Band = b })
}

// SetSortOrder updates the sort axis.
func (e *Engine) SetSortOrder(ctx context.Context, s SortOrder) {
	e.change(ctx, func(q *Query) { q.Sort = s })
}

// change applies a single-axis mutation, captures the full resulting query
// under the lock, and issues exactly one resolution for it.
func (e *Engine) change(ctx context.Context, apply func(*Query)) {
	e.mu.Lock()
	apply(&e.query)
	q := e.query
	e.issued++
	seq := e.issued
	e.mu.Unlock()

	go e.resolve(ctx, seq, q)
}

// resolve executes the plan for one issued query and applies the outcome
// under the last-response-wins rule: whichever sequence number is decided
// highest owns the visible list, regardless of arrival order.
func (e *Engine) resolve(ctx context.Context, seq uint64, q Query) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	p := q.Plan(e.mode)
	e.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", p.Endpoint.String())))
	list, err := e.execute(ctx, p)

	e.mu.Lock()
	if seq <= e.decided {
		e.mu.Unlock()
		e.stale.Add(context.WithoutCancel(ctx), 1)
		return
	}
	e.decided = seq
	if err != nil {
		e.mu.Unlock()
		zctx.From(ctx).Warn("catalog resolution failed",
			zap.Uint64("seq", seq),
			zap.Error(err),
		)
		e.failures.Publish(ResolveError{Seq: seq, Query: q, Err: err})
		return
	}
	e.list = list
	snap := Snapshot{Seq: seq, Query: q, Products: slices.Clone(list)}
	e.mu.Unlock()

	e.updates.Publish(snap)
}

// execute performs the planned API call and runs the plan's local steps.
func (e *Engine) execute(ctx context.Context, p Plan) ([]product.Product, error) {
	var (
		list []product.Product
		err  error
	)
	switch p.Endpoint {
	case EndpointSearch:
		list, err = e.source.SearchProducts(ctx, p.Search)
	case EndpointFilter:
		list, err = e.source.FilterProducts(ctx, p.Category, p.MinPrice, p.MaxPrice)
	case EndpointSorted:
		list, err = e.source.SortedProducts(ctx, p.Sort)
	default:
		list, err = e.source.Products(ctx)
	}
	if err != nil {
		return nil, err
	}
	return p.Local.Apply(list), nil
}
