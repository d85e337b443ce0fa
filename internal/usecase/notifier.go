package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"PriceRadar/internal/canonical"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

const dedupTagPrefix = "price-drop:"

// DedupTag is stable for a monitor so every retry of its drop message
// carries the same tag.
func DedupTag(monitorID string) string {
	sum := sha256.Sum256([]byte(monitorID))
	return dedupTagPrefix + hex.EncodeToString(sum[:])[:16]
}

// FormatDropMessage renders the user-facing alert for a drop.
func FormatDropMessage(event domain.DropEvent) domain.Message {
	l := event.Listing
	prev := event.PrevPriceMinor
	if prev <= 0 {
		prev = event.TargetPriceMinor
	}

	body := fmt.Sprintf("Great news! %s is now ₹%s (was ₹%s)", l.DisplayTitle(), canonical.FormatMinor(l.PriceMinor), canonical.FormatMinor(prev))
	if l.SourceID != "" {
		body += fmt.Sprintf(" on %s", l.SourceID)
	}
	body += fmt.Sprintf(". Your target was ₹%s.", canonical.FormatMinor(event.TargetPriceMinor))
	if l.URL != "" {
		body += "\n" + l.URL
	}

	return domain.Message{
		Tag:       DedupTag(event.MonitorID),
		MonitorID: event.MonitorID,
		OwnerID:   event.OwnerID,
		Subject:   fmt.Sprintf("Price drop: %s", event.Query),
		Body:      body,
		URL:       l.URL,
	}
}

// Notifier turns drop events into channel deliveries and retires monitors
// whose trigger has been recorded.
type Notifier struct {
	channel ports.Channel
	store   ports.MonitorStore
	events  ports.EventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

// NotifierDeps wires the notifier.
type NotifierDeps struct {
	Channel ports.Channel
	Store   ports.MonitorStore
	Events  ports.EventPublisher
	Logger  *slog.Logger
}

// NewNotifier constructs the notifier.
func NewNotifier(deps NotifierDeps) *Notifier {
	return &Notifier{channel: deps.Channel, store: deps.Store, events: deps.Events, logger: deps.Logger, now: time.Now}
}

// Notify delivers the drop message. It reports whether the channel accepted
// it; on false nothing was recorded and the caller may retry later. In-app
// messages reach subscribers only through the events channel.
func (n *Notifier) Notify(ctx context.Context, event domain.DropEvent) bool {
	if n.channel == nil {
		n.warn("no delivery channel configured", "monitor", event.MonitorID)
		return false
	}

	msg := FormatDropMessage(event)
	if err := n.channel.Deliver(ctx, msg); err != nil {
		n.warn("drop notification not delivered", "monitor", event.MonitorID, "channel", n.channel.Name(), "error", err)
		return false
	}
	n.debug("drop notification delivered", "monitor", event.MonitorID, "tag", msg.Tag)
	return true
}

// Retire moves a triggered monitor to removed. A monitor already removed is
// not an error.
func (n *Notifier) Retire(ctx context.Context, monitorID string) error {
	if n.store == nil {
		return fmt.Errorf("monitor store is not configured")
	}
	ok, err := n.store.Transition(ctx, monitorID, domain.MonitorTriggered, domain.MonitorRemoved)
	if err != nil {
		return fmt.Errorf("retire monitor %s: %w", monitorID, err)
	}
	if !ok {
		n.debug("monitor already retired", "monitor", monitorID)
		return nil
	}
	if n.events != nil {
		n.events.Publish(domain.Event{
			Kind:      domain.EventTransition,
			MonitorID: monitorID,
			From:      domain.MonitorTriggered,
			To:        domain.MonitorRemoved,
			At:        n.now(),
		})
	}
	return nil
}

func (n *Notifier) debug(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}

func (n *Notifier) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
