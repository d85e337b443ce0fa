package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"PriceRadar/internal/aggregate"
	"PriceRadar/internal/domain"
)

// Discoverer gathers raw listings for a query. *Orchestrator satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, query string) (DiscoveryResult, error)
}

// ResultCache stores non-empty search results. *cache.ListingCache satisfies it.
type ResultCache interface {
	Get(query string) (SearchResult, bool)
	Set(query string, value SearchResult)
}

// SearchResult is the ranked, deduplicated answer to one query. NoResults is
// set when nothing usable came back; Reports then explain why.
type SearchResult struct {
	Query     string
	Clusters  []domain.ProductCluster
	Dropped   []domain.DroppedListing
	Reports   []SourceReport
	Cached    bool
	NoResults bool
}

// Best returns the cheapest cluster's best listing.
func (r SearchResult) Best() (domain.CanonicalListing, bool) {
	if len(r.Clusters) == 0 {
		return domain.CanonicalListing{}, false
	}
	return r.Clusters[0].Best, true
}

// PipelineDeps wires the discovery pipeline.
type PipelineDeps struct {
	Discoverer Discoverer
	Aggregator *aggregate.Aggregator
	Cache      ResultCache
	Logger     *slog.Logger
}

// Pipeline runs discovery then aggregation.
type Pipeline struct {
	discoverer Discoverer
	aggregator *aggregate.Aggregator
	cache      ResultCache
	logger     *slog.Logger
}

// NewPipeline constructs the search component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	agg := deps.Aggregator
	if agg == nil {
		agg = aggregate.New(nil, aggregate.Options{}, deps.Logger)
	}
	return &Pipeline{
		discoverer: deps.Discoverer,
		aggregator: agg,
		cache:      deps.Cache,
		logger:     deps.Logger,
	}
}

// Search answers interactive queries, serving repeats from the cache.
func (p *Pipeline) Search(ctx context.Context, query string) (SearchResult, error) {
	if p.cache != nil {
		if hit, ok := p.cache.Get(query); ok {
			hit.Cached = true
			p.debug("search served from cache", "query", query, "clusters", len(hit.Clusters))
			return hit, nil
		}
	}

	res, err := p.Fresh(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	if p.cache != nil && !res.NoResults {
		p.cache.Set(query, res)
	}
	return res, nil
}

// Fresh always queries the retailers. A query where every source failed or
// nothing survived aggregation returns NoResults rather than an error.
func (p *Pipeline) Fresh(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, domain.ErrEmptyQuery
	}
	if p.discoverer == nil {
		return SearchResult{}, fmt.Errorf("discoverer is not configured")
	}

	ctx, span := tracer.Start(ctx, "Pipeline.Fresh", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	discovered, err := p.discoverer.Discover(ctx, query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("discover %q: %w", query, err)
	}

	agg := p.aggregator.Aggregate(query, discovered.Listings)
	if n := len(agg.Dropped); n > 0 {
		droppedListings.Add(ctx, int64(n))
	}

	res := SearchResult{
		Query:     query,
		Clusters:  agg.Clusters,
		Dropped:   agg.Dropped,
		Reports:   discovered.Reports,
		NoResults: len(agg.Clusters) == 0,
	}
	span.SetAttributes(attribute.Int("clusters", len(res.Clusters)), attribute.Bool("no_results", res.NoResults))
	p.debug("search completed", "query", query, "clusters", len(res.Clusters), "dropped", len(res.Dropped))
	return res, nil
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
