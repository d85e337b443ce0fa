package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jordan-wright/email"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// sender is the part of *email.Pool the channel uses.
type sender interface {
	Send(e *email.Email, timeout time.Duration) error
}

// Channel mails alerts through a pooled SMTP connection.
type Channel struct {
	from    string
	to      []string
	pool    sender
	timeout time.Duration
}

var _ ports.Channel = (*Channel)(nil)

// NewChannel builds the SMTP pool. Connections are dialed on first send.
func NewChannel(cfg config.EmailConfig) (*Channel, error) {
	if cfg.Server == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("email channel requires server, from and at least one recipient")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = 2
	}

	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(port))
	pool, err := email.NewPool(addr, size, smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Server))
	if err != nil {
		return nil, fmt.Errorf("smtp pool %s: %w", addr, err)
	}
	return newChannel(cfg, pool), nil
}

func newChannel(cfg config.EmailConfig, pool sender) *Channel {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Channel{from: cfg.From, to: cfg.To, pool: pool, timeout: timeout}
}

func (c *Channel) Name() string {
	return "email"
}

// Deliver sends msg to every configured recipient. The send is bounded by
// the channel timeout or the context deadline, whichever is sooner.
func (c *Channel) Deliver(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	if err := c.pool.Send(c.build(msg), timeout); err != nil {
		return fmt.Errorf("%w: smtp send: %w", domain.ErrDeliveryFailure, err)
	}
	return nil
}

func (c *Channel) build(msg domain.Message) *email.Email {
	mail := email.NewEmail()
	mail.From = c.from
	mail.To = c.to
	mail.Subject = msg.Subject
	if mail.Subject == "" {
		mail.Subject = "PriceRadar alert"
	}
	mail.Text = []byte(msg.Body)
	if msg.Tag != "" {
		mail.Headers.Set("X-Entity-Ref-ID", msg.Tag)
	}
	return mail
}
