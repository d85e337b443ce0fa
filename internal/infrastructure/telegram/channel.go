package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Channel sends alerts to a Telegram chat via bot API.
type Channel struct {
	botToken string
	chatID   string
	client   *resty.Client
}

var _ ports.Channel = (*Channel)(nil)

// NewChannel registers bot token and chat identifier.
func NewChannel(cfg config.TelegramConfig) *Channel {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(5 * time.Second)

	return &Channel{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   client,
	}
}

func (c *Channel) Name() string {
	return "telegram"
}

// Deliver posts the message text to the configured chat.
func (c *Channel) Deliver(ctx context.Context, msg domain.Message) error {
	if c.botToken == "" || c.chatID == "" {
		return fmt.Errorf("%w: telegram channel misconfigured", domain.ErrDeliveryFailure)
	}

	text := msg.Body
	if msg.Subject != "" {
		text = "*" + escapeMarkdown(msg.Subject) + "*\n" + escapeMarkdown(msg.Body)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    c.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post("/bot" + c.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("%w: telegram request: %w", domain.ErrDeliveryFailure, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: telegram error: %s", domain.ErrDeliveryFailure, resp.Status())
	}

	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
