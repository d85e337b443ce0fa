package llm

import (
	"context"
	"log/slog"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// Fallback serves from primary and switches to secondary when primary fails.
type Fallback struct {
	primary   ports.SpecsClient
	secondary ports.SpecsClient
	logger    *slog.Logger
}

var _ ports.SpecsClient = (*Fallback)(nil)

func NewFallback(primary, secondary ports.SpecsClient, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) ExtractSpecs(ctx context.Context, title string) (domain.AttributeMap, error) {
	if f.primary != nil {
		specs, err := f.primary.ExtractSpecs(ctx, title)
		if err == nil {
			return specs, nil
		}
		f.warn("specs extraction fell back", err)
	}
	return f.secondary.ExtractSpecs(ctx, title)
}

func (f *Fallback) Compare(ctx context.Context, left, right domain.CanonicalListing) (domain.ComparisonResult, error) {
	if f.primary != nil {
		res, err := f.primary.Compare(ctx, left, right)
		if err == nil {
			return res, nil
		}
		f.warn("comparison fell back", err)
	}
	return f.secondary.Compare(ctx, left, right)
}

func (f *Fallback) warn(msg string, err error) {
	if f.logger != nil {
		f.logger.Warn(msg, "error", err)
	}
}
