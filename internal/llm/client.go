package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/notewise-app/notewise/internal/config"
	"github.com/notewise-app/notewise/internal/metrics"
)

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("empty response from provider")

// Request is a single system+user completion request.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Client produces raw completion text. Implementations never interpret it.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type openaiClient struct {
	client         *openai.Client
	model          string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
}

type Option func(*openaiClient)

// WithInitialBackoff sets the delay before the first retry.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *openaiClient) { c.initialBackoff = d }
}

// NewOpenAIClient returns a Client for any OpenAI-compatible chat completion API.
func NewOpenAIClient(cfg config.LLMConfig, opts ...Option) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	c := &openaiClient{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate calls the provider, retrying transient failures up to maxRetries
// times. Each attempt gets its own timeout.
func (c *openaiClient) Generate(ctx context.Context, req Request) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	attempt := 0
	content, err := backoff.RetryNotifyWithData(func() (string, error) {
		attempt++
		out, err := c.complete(ctx, req)
		if err != nil && !IsTransient(ctx, err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	}, policy, func(err error, wait time.Duration) {
		metrics.ProviderRetriesTotal.Inc()
		slog.Warn("provider call failed, retrying", "error", err, "attempt", attempt, "wait", wait)
	})
	if err != nil {
		return "", fmt.Errorf("generating completion after %d attempt(s): %w", attempt, err)
	}
	return content, nil
}

func (c *openaiClient) complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	slog.Debug("provider request", "model", c.model, "max_tokens", req.MaxTokens)
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		metrics.ProviderRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("chat completion: %w", err)
	}
	metrics.ProviderRequestDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	slog.Debug("provider response",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Message.Content, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
