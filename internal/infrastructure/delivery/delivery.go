package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// Dedup wraps a channel so a message tag is delivered at most once per
// channel. The tag is recorded only after the inner channel succeeded.
type Dedup struct {
	inner  ports.Channel
	ledger ports.DeliveryLedger
	logger *slog.Logger
}

var _ ports.Channel = (*Dedup)(nil)

func NewDedup(inner ports.Channel, ledger ports.DeliveryLedger, logger *slog.Logger) *Dedup {
	return &Dedup{inner: inner, ledger: ledger, logger: logger}
}

func (d *Dedup) Name() string {
	return d.inner.Name()
}

// Deliver skips messages whose tag this channel already delivered.
func (d *Dedup) Deliver(ctx context.Context, msg domain.Message) error {
	if msg.Tag == "" || d.ledger == nil {
		return d.inner.Deliver(ctx, msg)
	}

	key := msg.Tag + ":" + d.inner.Name()
	done, err := d.ledger.Delivered(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: check ledger: %w", domain.ErrDeliveryFailure, err)
	}
	if done {
		if d.logger != nil {
			d.logger.Debug("message already delivered", "channel", d.inner.Name(), "tag", msg.Tag)
		}
		return nil
	}

	if err := d.inner.Deliver(ctx, msg); err != nil {
		return err
	}
	if err := d.ledger.MarkDelivered(ctx, key); err != nil {
		// Delivered but unrecorded; a retry may repeat this message.
		if d.logger != nil {
			d.logger.Warn("delivery not recorded", "channel", d.inner.Name(), "tag", msg.Tag, "error", err)
		}
	}
	return nil
}

// Multi delivers to every channel and succeeds only when all of them did.
type Multi struct {
	channels []ports.Channel
}

var _ ports.Channel = (*Multi)(nil)

func NewMulti(channels ...ports.Channel) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) Name() string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *Multi) Deliver(ctx context.Context, msg domain.Message) error {
	if len(m.channels) == 0 {
		return fmt.Errorf("%w: no channels configured", domain.ErrDeliveryFailure)
	}

	var errs []error
	for _, ch := range m.channels {
		if err := ch.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, errors.Join(errs...))
	}
	return nil
}
