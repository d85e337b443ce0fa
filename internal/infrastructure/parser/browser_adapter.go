package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/retailer"
)

// Renderer returns the DOM of target after client-side scripts ran.
type Renderer interface {
	Render(ctx context.Context, target, waitFor string) (string, error)
}

// Browser is a shared headless Chrome allocator. Each Render opens its own tab.
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logf     func(string, ...any)
	settle   time.Duration
}

var _ Renderer = (*Browser)(nil)

// NewBrowser prepares a Chrome allocator; Chrome starts on first Render.
func NewBrowser(cfg config.BrowserConfig, logf func(string, ...any)) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{allocCtx: allocCtx, cancel: cancel, logf: logf, settle: cfg.Settle}
}

// Render navigates a fresh tab to target and returns the page HTML. The tab
// is closed when ctx is done, so callers bound it with their own timeout.
func (b *Browser) Render(ctx context.Context, target, waitFor string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx, chromedp.WithLogf(b.logf))
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	actions := []chromedp.Action{chromedp.Navigate(target)}
	if waitFor != "" {
		actions = append(actions, chromedp.WaitReady(waitFor, chromedp.ByQuery))
	}
	if b.settle > 0 {
		actions = append(actions, chromedp.Sleep(b.settle))
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", fmt.Errorf("render %s: %w", target, err)
	}
	return html, nil
}

// Close shuts Chrome down.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// BrowserAdapter reads retailers whose results only exist after JavaScript runs.
type BrowserAdapter struct {
	name      string
	searchURL string
	base      *url.URL
	selectors config.SelectorConfig
	renderer  Renderer
	logger    *slog.Logger
	now       func() time.Time
}

var _ retailer.Adapter = (*BrowserAdapter)(nil)

// NewBrowserAdapter binds site to a renderer.
func NewBrowserAdapter(site config.SiteConfig, renderer Renderer, logger *slog.Logger) (*BrowserAdapter, error) {
	if renderer == nil {
		return nil, fmt.Errorf("site %s: browser renderer is not configured", site.Name)
	}
	base, err := siteBase(site)
	if err != nil {
		return nil, err
	}
	return &BrowserAdapter{
		name:      site.Name,
		searchURL: site.SearchURL,
		base:      base,
		selectors: site.Selectors,
		renderer:  renderer,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Name identifies the source inside the registry and on every listing.
func (a *BrowserAdapter) Name() string {
	return a.name
}

// Fetch renders the search page and extracts listings with the selector table.
func (a *BrowserAdapter) Fetch(ctx context.Context, req retailer.Request) ([]domain.RawListing, error) {
	ctx, span := tracer.Start(ctx, "BrowserAdapter.Fetch", trace.WithAttributes(attribute.String("source", a.name)))
	defer span.End()

	target := BuildSearchURL(a.searchURL, req.Query)
	html, err := a.renderer.Render(ctx, target, a.selectors.WaitFor)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, a.name, err))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %s page: %w", domain.ErrParseFailure, a.name, err))
	}

	listings, skipped := extractListings(doc, a.selectors, a.base, a.name, a.now())
	span.SetAttributes(attribute.Int("listings", len(listings)), attribute.Int("skipped", skipped))
	if a.logger != nil {
		a.logger.Debug("rendered page parsed", "url", target, "listings", len(listings), "skipped", skipped)
	}
	return listings, nil
}
