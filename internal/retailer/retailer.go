package retailer

import (
	"context"
	"fmt"
	"time"

	"PriceRadar/internal/domain"
)

// Request carries all parameters required to query one retailer.
type Request struct {
	Query   string
	Timeout time.Duration
	Options map[string]string
}

// Adapter captures a single retailer integration. Fetch returns whatever
// listings it could extract; an error means the whole source failed.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]domain.RawListing, error)
}

// Source is an adapter plus the scheduling attributes the orchestrator needs.
type Source struct {
	Adapter  Adapter
	Timeout  time.Duration
	Fallback bool
	Options  map[string]string
}

// Name is the adapter name, used as the listing source id.
func (s Source) Name() string {
	if s.Adapter == nil {
		return ""
	}
	return s.Adapter.Name()
}

// Registry keeps configured sources in registration order.
type Registry struct {
	sources []Source
	index   map[string]int
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register adds or replaces a source by adapter name.
func (r *Registry) Register(src Source) error {
	if src.Adapter == nil {
		return fmt.Errorf("register source: adapter is nil")
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	name := src.Name()
	if name == "" {
		return fmt.Errorf("register source: adapter name is empty")
	}
	if i, ok := r.index[name]; ok {
		r.sources[i] = src
		return nil
	}
	r.index[name] = len(r.sources)
	r.sources = append(r.sources, src)
	return nil
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Source, error) {
	if i, ok := r.index[name]; ok {
		return r.sources[i], nil
	}
	return Source{}, fmt.Errorf("source %s is not registered", name)
}

// Primary returns sources queried on every discovery.
func (r *Registry) Primary() []Source {
	return r.filter(false)
}

// Fallback returns sources queried only when the primary tier comes back thin.
func (r *Registry) Fallback() []Source {
	return r.filter(true)
}

// Len reports the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

func (r *Registry) filter(fallback bool) []Source {
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Fallback == fallback {
			out = append(out, s)
		}
	}
	return out
}
