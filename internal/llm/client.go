package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	md2diagram "github.com/alnah/go-md2diagram"
)

// Client turns a Provider into a md2diagram.Generator.
type Client struct {
	provider Provider
	limiter  *rate.Limiter // nil = unlimited
	backoff  Backoff
	timeout  time.Duration
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// Compile-time interface check.
var _ md2diagram.Generator = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRequestsPerMinute limits calls to n per minute. 0 disables the limit.
// Panics if n < 0 (programmer error, similar to time.NewTicker).
func WithRequestsPerMinute(n int) ClientOption {
	if n < 0 {
		panic("llm: WithRequestsPerMinute must not be negative")
	}
	return func(c *Client) {
		if n == 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithMaxRetries sets how many times a rate-limited call is retried.
// Panics if n < 0 (programmer error, similar to time.NewTicker).
func WithMaxRetries(n int) ClientOption {
	if n < 0 {
		panic("llm: WithMaxRetries must not be negative")
	}
	return func(c *Client) {
		c.backoff.MaxRetries = n
	}
}

// WithCallTimeout bounds each provider attempt. 0 disables the timeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient wraps p. Defaults: no rate limit, DefaultBackoff, no timeout.
func NewClient(p Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider: p,
		backoff:  DefaultBackoff,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromSettings builds the provider named in s and wraps it with the
// limits from s.
func NewClientFromSettings(ctx context.Context, s Settings, getenv func(string) string, logger *slog.Logger) (*Client, error) {
	p, err := NewProvider(ctx, s, getenv)
	if err != nil {
		return nil, err
	}
	return NewClient(p,
		WithRequestsPerMinute(s.RequestsPerMinute),
		WithMaxRetries(s.MaxRetries),
		WithCallTimeout(s.Timeout),
		WithLogger(logger),
	), nil
}

// Complete sends prompt through the limiter and retry loop.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, c.backoff, c.logger, c.sleep, IsRateLimit, func(ctx context.Context) (string, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return c.provider.Complete(ctx, prompt)
	})
}

// Generate builds the prompt for req, calls the model and parses the
// returned mermaid block.
func (c *Client) Generate(ctx context.Context, req md2diagram.GenerationRequest) (md2diagram.GenerationResult, error) {
	c.logger.Debug("requesting diagram", "provider", c.provider.Name(), "title", req.Title)

	text, err := c.Complete(ctx, md2diagram.BuildPrompt(req))
	if err != nil {
		return md2diagram.GenerationResult{}, fmt.Errorf("%w: %w", md2diagram.ErrGeneration, err)
	}

	res, err := md2diagram.ParseResponse(text)
	if err != nil {
		return md2diagram.GenerationResult{}, err
	}
	return res, nil
}

// Close releases provider resources when the provider holds any.
func (c *Client) Close() error {
	if closer, ok := c.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
