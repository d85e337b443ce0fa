package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/retailer"
)

// JSONAdapter reads a retailer's search API. Field paths map the response
// onto listings.
type JSONAdapter struct {
	name      string
	searchURL string
	base      *url.URL
	fields    config.FieldConfig
	client    *resty.Client
	logger    *slog.Logger
	now       func() time.Time
}

var _ retailer.Adapter = (*JSONAdapter)(nil)

func NewJSONAdapter(site config.SiteConfig, logger *slog.Logger) (*JSONAdapter, error) {
	if site.Fields.Title == "" || site.Fields.Link == "" {
		return nil, fmt.Errorf("site %s: json kind needs title and link fields", site.Name)
	}
	base, err := siteBase(site)
	if err != nil {
		return nil, err
	}
	return &JSONAdapter{
		name:      site.Name,
		searchURL: site.SearchURL,
		base:      base,
		fields:    site.Fields,
		client:    newSiteClient(site, base, "application/json"),
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (a *JSONAdapter) Name() string {
	return a.name
}

// Fetch calls the search API for req.Query and maps every product that has a
// title and a link.
func (a *JSONAdapter) Fetch(ctx context.Context, req retailer.Request) ([]domain.RawListing, error) {
	ctx, span := tracer.Start(ctx, "JSONAdapter.Fetch", trace.WithAttributes(attribute.String("source", a.name)))
	defer span.End()

	target := BuildSearchURL(a.searchURL, req.Query)
	resp, err := a.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, a.name, err))
	}
	if resp.IsError() {
		return nil, failSpan(span, fmt.Errorf("%w: %s returned %s", domain.ErrSourceUnavailable, a.name, resp.Status()))
	}

	var payload any
	if err := a.client.JSONUnmarshal(resp.Body(), &payload); err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s response: %w", domain.ErrParseFailure, a.name, err))
	}
	items, err := itemsAt(payload, a.fields.Items)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s: %w", domain.ErrParseFailure, a.name, err))
	}

	fetchedAt := a.now()
	listings := make([]domain.RawListing, 0, len(items))
	skipped := 0
	for _, item := range items {
		l, ok := a.mapItem(item)
		if !ok {
			skipped++
			continue
		}
		l.SourceID = a.name
		l.FetchedAt = fetchedAt
		listings = append(listings, l)
	}

	span.SetAttributes(attribute.Int("listings", len(listings)), attribute.Int("skipped", skipped))
	if a.logger != nil {
		a.logger.Debug("api response parsed", "url", target, "listings", len(listings), "skipped", skipped)
	}
	return listings, nil
}

func (a *JSONAdapter) mapItem(item any) (domain.RawListing, bool) {
	title := textAt(item, a.fields.Title)
	link := textAt(item, a.fields.Link)
	if title == "" || link == "" {
		return domain.RawListing{}, false
	}
	return domain.RawListing{
		Title:      title,
		PriceText:  textAt(item, a.fields.Price),
		URL:        resolveLink(a.base, link),
		ImageURL:   resolveLink(a.base, textAt(item, a.fields.Image)),
		Seller:     textAt(item, a.fields.Seller),
		RatingText: textAt(item, a.fields.Rating),
	}, true
}

// itemsAt finds the product array. A missing or null array means no results.
func itemsAt(payload any, path string) ([]any, error) {
	v, ok := walk(payload, path)
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("items path %q is not an array", path)
	}
	return items, nil
}

// textAt returns the first non-empty scalar among the "|" separated paths.
func textAt(v any, paths string) string {
	if paths == "" {
		return ""
	}
	for _, path := range strings.Split(paths, "|") {
		got, ok := walk(v, strings.TrimSpace(path))
		if !ok {
			continue
		}
		if s := scalar(got); s != "" {
			return s
		}
	}
	return ""
}

// walk follows a dotted path through objects; numeric segments index arrays.
func walk(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	for _, key := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.Join(strings.Fields(x), " ")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
