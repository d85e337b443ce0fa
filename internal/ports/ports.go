package ports

import (
	"context"
	"time"

	"PriceRadar/internal/domain"
)

// MonitorStore persists price monitors. Transition is a compare-and-swap:
// it reports false, without error, when the monitor is not in state from.
type MonitorStore interface {
	Create(ctx context.Context, m domain.PriceMonitor) error
	Get(ctx context.Context, id string) (domain.PriceMonitor, error)
	List(ctx context.Context, ownerID string) ([]domain.PriceMonitor, error)
	ListActive(ctx context.Context) ([]domain.PriceMonitor, error)
	ListByStatus(ctx context.Context, status domain.MonitorStatus) ([]domain.PriceMonitor, error)
	Transition(ctx context.Context, id string, from, to domain.MonitorStatus) (bool, error)
	RecordCheck(ctx context.Context, id string, priceMinor int64, at time.Time) error
	Remove(ctx context.Context, id string) error
}

// DeliveryLedger remembers which dedup tags were already delivered.
type DeliveryLedger interface {
	Delivered(ctx context.Context, tag string) (bool, error)
	MarkDelivered(ctx context.Context, tag string) error
}

// Channel delivers a message to one outbound medium (Telegram, email, etc.).
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg domain.Message) error
}

// EventPublisher fans in-process events out to subscribers.
type EventPublisher interface {
	Publish(event domain.Event)
}

// SpecsClient extracts and compares structured product attributes.
type SpecsClient interface {
	ExtractSpecs(ctx context.Context, title string) (domain.AttributeMap, error)
	Compare(ctx context.Context, left, right domain.CanonicalListing) (domain.ComparisonResult, error)
}

// SignalProvider reports observed per-source reliability signals.
type SignalProvider interface {
	Signals(ctx context.Context) (map[string]domain.TrustSignals, error)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
