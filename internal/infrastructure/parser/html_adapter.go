package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/retailer"
)

var tracer = otel.Tracer("priceradar/parser")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HTMLAdapter reads a retailer's server-rendered search page with a
// configurable selector table.
type HTMLAdapter struct {
	name      string
	searchURL string
	base      *url.URL
	selectors config.SelectorConfig
	client    *resty.Client
	logger    *slog.Logger
	now       func() time.Time
}

var _ retailer.Adapter = (*HTMLAdapter)(nil)

// NewHTMLAdapter wires an HTTP client shaped like a desktop browser for site.
func NewHTMLAdapter(site config.SiteConfig, logger *slog.Logger) (*HTMLAdapter, error) {
	base, err := siteBase(site)
	if err != nil {
		return nil, err
	}

	return &HTMLAdapter{
		name:      site.Name,
		searchURL: site.SearchURL,
		base:      base,
		selectors: site.Selectors,
		client:    newSiteClient(site, base, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Name identifies the source inside the registry and on every listing.
func (a *HTMLAdapter) Name() string {
	return a.name
}

// Fetch downloads the search page for req.Query and extracts listings.
func (a *HTMLAdapter) Fetch(ctx context.Context, req retailer.Request) ([]domain.RawListing, error) {
	ctx, span := tracer.Start(ctx, "HTMLAdapter.Fetch", trace.WithAttributes(attribute.String("source", a.name)))
	defer span.End()

	target := BuildSearchURL(a.searchURL, req.Query)
	resp, err := a.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, a.name, err))
	}
	if resp.IsError() {
		return nil, failSpan(span, fmt.Errorf("%w: %s returned %s", domain.ErrSourceUnavailable, a.name, resp.Status()))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s page: %w", domain.ErrParseFailure, a.name, err))
	}

	listings, skipped := extractListings(doc, a.selectors, a.base, a.name, a.now())
	span.SetAttributes(attribute.Int("listings", len(listings)), attribute.Int("skipped", skipped))
	a.debug("page parsed", "url", target, "listings", len(listings), "skipped", skipped)
	return listings, nil
}

func (a *HTMLAdapter) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func siteBase(site config.SiteConfig) (*url.URL, error) {
	raw := site.BaseURL
	if raw == "" {
		raw = site.SearchURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid base url %s: %w", site.Name, raw, err)
	}
	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
