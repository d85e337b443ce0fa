package parser

import (
	"fmt"
	"log/slog"
	"time"

	"PriceRadar/internal/config"
	"PriceRadar/internal/retailer"
)

// NewRegistry builds one adapter per configured site. renderer may be nil
// when no site is of browser kind.
func NewRegistry(sites []config.SiteConfig, defaultTimeout time.Duration, renderer Renderer, log *slog.Logger) (*retailer.Registry, error) {
	reg := retailer.NewRegistry()

	for _, site := range sites {
		adapter, err := newAdapter(site, renderer, log)
		if err != nil {
			return nil, err
		}

		timeout := site.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		if err := reg.Register(retailer.Source{
			Adapter:  adapter,
			Timeout:  timeout,
			Fallback: site.Fallback,
			Options:  site.Options,
		}); err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		if log != nil {
			log.Debug("source registered", "site", site.Name, "kind", site.Kind, "fallback", site.Fallback, "timeout", timeout)
		}
	}

	return reg, nil
}

// NeedsBrowser reports whether any site must be rendered in Chrome.
func NeedsBrowser(sites []config.SiteConfig) bool {
	for _, site := range sites {
		if site.Kind == config.KindBrowser {
			return true
		}
	}
	return false
}

func newAdapter(site config.SiteConfig, renderer Renderer, log *slog.Logger) (retailer.Adapter, error) {
	var scoped *slog.Logger
	if log != nil {
		scoped = log.With("site", site.Name)
	}

	switch site.Kind {
	case config.KindHTML, "":
		return NewHTMLAdapter(site, scoped)
	case config.KindBrowser:
		return NewBrowserAdapter(site, renderer, scoped)
	case config.KindJSON:
		return NewJSONAdapter(site, scoped)
	default:
		return nil, fmt.Errorf("site %s: unknown kind %q", site.Name, site.Kind)
	}
}
