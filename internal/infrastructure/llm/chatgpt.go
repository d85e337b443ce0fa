package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"PriceRadar/internal/canonical"
	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

var tracer = otel.Tracer("priceradar/llm")

// ChatGPTClient implements ports.SpecsClient backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	client       *resty.Client
}

var _ ports.SpecsClient = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		client:       resty.New().SetTimeout(timeout),
	}
}

// Configured reports whether the client has everything needed to make calls.
func (c *ChatGPTClient) Configured() bool {
	return c != nil && c.apiKey != "" && c.endpoint != "" && c.model != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ExtractSpecs asks the model for a flat JSON object of product attributes.
func (c *ChatGPTClient) ExtractSpecs(ctx context.Context, title string) (domain.AttributeMap, error) {
	ctx, span := tracer.Start(ctx, "ChatGPTClient.ExtractSpecs")
	defer span.End()

	prompt := "Extract the technical specifications of this product as a flat JSON object with lowercase keys " +
		"such as ram, storage, display, processor, battery, camera. Values are short strings. " +
		"Reply with JSON only.\n\nProduct: " + title

	content, err := c.complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFence(content)), &raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model reply is not json")
		return nil, fmt.Errorf("%w: specs reply: %w", domain.ErrParseFailure, err)
	}

	specs := domain.AttributeMap{}
	for k, v := range raw {
		if v == nil {
			continue
		}
		value := strings.TrimSpace(fmt.Sprint(v))
		if value != "" {
			specs[strings.ToLower(strings.TrimSpace(k))] = value
		}
	}
	return specs, nil
}

// Compare extracts both products' attributes and asks the model for a short
// verdict for a buyer.
func (c *ChatGPTClient) Compare(ctx context.Context, left, right domain.CanonicalListing) (domain.ComparisonResult, error) {
	ctx, span := tracer.Start(ctx, "ChatGPTClient.Compare")
	defer span.End()

	l, err := c.ExtractSpecs(ctx, left.DisplayTitle())
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	r, err := c.ExtractSpecs(ctx, right.DisplayTitle())
	if err != nil {
		return domain.ComparisonResult{}, err
	}

	prompt := fmt.Sprintf("Compare these two products for an Indian buyer in at most three sentences. "+
		"Cover performance, value for money and features.\n\nA: %s (₹%s)\nB: %s (₹%s)",
		left.DisplayTitle(), canonical.FormatMinor(left.PriceMinor), right.DisplayTitle(), canonical.FormatMinor(right.PriceMinor))
	summary, err := c.complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return domain.ComparisonResult{}, err
	}

	return domain.ComparisonResult{
		Left:        l,
		Right:       r,
		Differences: Diff(l, r),
		Summary:     strings.TrimSpace(summary),
	}, nil
}

func (c *ChatGPTClient) complete(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if !c.Configured() {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: safePrompt(c.systemPrompt)},
				{Role: "user", Content: prompt},
			},
		}).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("chatgpt request: %w", err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 1024 {
			body = body[:1024]
		}
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status(), strings.TrimSpace(body))
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: chatgpt returned no choices", domain.ErrParseFailure)
	}
	return out.Choices[0].Message.Content, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a shopping assistant that reads product listings from Indian retailers."
	}
	return prompt
}
