package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/retailer"
)

// SourceReport describes how one retailer behaved during a discovery.
type SourceReport struct {
	SourceID string
	Count    int
	Elapsed  time.Duration
	Err      error
	TimedOut bool
	Fallback bool
}

// DiscoveryResult holds every listing gathered for a query plus per-source diagnostics.
type DiscoveryResult struct {
	Query    string
	Listings []domain.RawListing
	Reports  []SourceReport
}

// AllFailed reports whether no source answered successfully.
func (r DiscoveryResult) AllFailed() bool {
	if len(r.Reports) == 0 {
		return true
	}
	for _, rep := range r.Reports {
		if rep.Err == nil {
			return false
		}
	}
	return true
}

// Orchestrator fans a query out to every registered retailer concurrently.
// A slow or failing retailer only costs its own listings.
type Orchestrator struct {
	registry          *retailer.Registry
	defaultTimeout    time.Duration
	fallbackThreshold int
	logger            *slog.Logger
}

// OrchestratorDeps wires the orchestrator.
type OrchestratorDeps struct {
	Registry          *retailer.Registry
	DefaultTimeout    time.Duration
	FallbackThreshold int
	Logger            *slog.Logger
}

// NewOrchestrator constructs the fan-out component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	timeout := deps.DefaultTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Orchestrator{
		registry:          deps.Registry,
		defaultTimeout:    timeout,
		fallbackThreshold: deps.FallbackThreshold,
		logger:            deps.Logger,
	}
}

// Discover queries all primary sources, then the fallback tier when the
// primary tier returned fewer listings than the configured threshold. It
// returns once every queried source finished or hit its timeout.
func (o *Orchestrator) Discover(ctx context.Context, query string) (DiscoveryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return DiscoveryResult{}, domain.ErrEmptyQuery
	}
	if o.registry == nil {
		return DiscoveryResult{}, fmt.Errorf("retailer registry is not configured")
	}

	ctx, span := tracer.Start(ctx, "Orchestrator.Discover", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	result := DiscoveryResult{Query: query}
	listings, reports := o.fanOut(ctx, query, o.registry.Primary())
	result.Listings = append(result.Listings, listings...)
	result.Reports = append(result.Reports, reports...)

	if fallback := o.registry.Fallback(); len(fallback) > 0 && len(result.Listings) < o.fallbackThreshold {
		o.debug("primary tier thin, querying fallback sources", "listings", len(result.Listings), "fallback", len(fallback))
		listings, reports = o.fanOut(ctx, query, fallback)
		result.Listings = append(result.Listings, listings...)
		result.Reports = append(result.Reports, reports...)
	}

	span.SetAttributes(attribute.Int("listings", len(result.Listings)), attribute.Int("sources", len(result.Reports)))
	o.debug("discovery done", "query", query, "listings", len(result.Listings), "sources", len(result.Reports))
	return result, nil
}

type sourceOutcome struct {
	index    int
	listings []domain.RawListing
	report   SourceReport
}

func (o *Orchestrator) fanOut(ctx context.Context, query string, sources []retailer.Source) ([]domain.RawListing, []SourceReport) {
	if len(sources) == 0 {
		return nil, nil
	}

	outcomes := make(chan sourceOutcome, len(sources))
	for i, src := range sources {
		go func(i int, src retailer.Source) {
			outcome := o.runSource(ctx, query, src)
			outcome.index = i
			outcomes <- outcome
		}(i, src)
	}

	ordered := make([]sourceOutcome, len(sources))
	for range sources {
		outcome := <-outcomes
		ordered[outcome.index] = outcome
	}

	var (
		listings []domain.RawListing
		reports  = make([]SourceReport, 0, len(sources))
	)
	for _, outcome := range ordered {
		listings = append(listings, outcome.listings...)
		reports = append(reports, outcome.report)
	}
	return listings, reports
}

type fetchResult struct {
	listings []domain.RawListing
	err      error
}

// runSource bounds one adapter call by its timeout. The adapter runs in its
// own goroutine so an implementation that ignores cancellation is abandoned
// rather than waited on.
func (o *Orchestrator) runSource(ctx context.Context, query string, src retailer.Source) sourceOutcome {
	name := src.Name()
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = o.defaultTimeout
	}

	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("%w: %s panicked: %v", domain.ErrSourceUnavailable, name, r)}
			}
		}()
		listings, err := src.Adapter.Fetch(srcCtx, retailer.Request{Query: query, Timeout: timeout, Options: src.Options})
		done <- fetchResult{listings: listings, err: err}
	}()

	report := SourceReport{SourceID: name, Fallback: src.Fallback}
	var res fetchResult
	select {
	case res = <-done:
	case <-srcCtx.Done():
		res.err = fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, name, srcCtx.Err())
		report.TimedOut = errors.Is(srcCtx.Err(), context.DeadlineExceeded)
	}
	report.Elapsed = time.Since(started)

	if res.err != nil {
		report.Err = res.err
		sourceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", name), attribute.Bool("timeout", report.TimedOut)))
		o.warn("source failed", "source", name, "elapsed", report.Elapsed, "timeout", report.TimedOut, "error", res.err)
		return sourceOutcome{report: report}
	}

	for i := range res.listings {
		res.listings[i].SourceID = name
	}
	report.Count = len(res.listings)
	o.debug("source produced listings", "source", name, "count", report.Count, "elapsed", report.Elapsed)
	return sourceOutcome{listings: res.listings, report: report}
}

func (o *Orchestrator) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
