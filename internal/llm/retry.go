package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"
)

// Backoff controls retries of rate-limited calls.
type Backoff struct {
	MaxRetries  int           // Retries after the first attempt
	InitialWait time.Duration // Wait before the first retry
	MaxWait     time.Duration // Upper bound for a single wait
	Factor      float64       // Growth of the wait between retries
}

// DefaultBackoff matches the provider guidance for 429 responses.
var DefaultBackoff = Backoff{
	MaxRetries:  3,
	InitialWait: time.Second,
	MaxWait:     60 * time.Second,
	Factor:      2.0,
}

var retryHint = regexp.MustCompile(`(?i)(?:retry|try again)\s+(?:in|after)\s+(\d+)\s*(?:s\b|sec|seconds)`)

// withRetry runs op until it succeeds, fails with an error shouldRetry
// rejects, the retries are spent or ctx is done. The sleep sequence is
// injected so tests do not wait.
func withRetry(ctx context.Context, b Backoff, logger *slog.Logger, sleep func(context.Context, time.Duration) error,
	shouldRetry func(error) bool, op func(context.Context) (string, error),
) (string, error) {
	wait := b.InitialWait
	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil || !shouldRetry(err) {
			return out, err
		}
		if attempt >= b.MaxRetries {
			return "", fmt.Errorf("giving up after %d retries: %w", b.MaxRetries, err)
		}

		d := min(wait, b.MaxWait)
		if hinted := retryAfter(err.Error()); hinted > 0 {
			d = hinted
		}
		logger.Warn("rate limited, retrying", "wait", d, "attempt", attempt+1, "max", b.MaxRetries)

		if err := sleep(ctx, d); err != nil {
			return "", err
		}
		wait = time.Duration(float64(wait) * b.Factor)
	}
}

// retryAfter reads "retry in 18s" style hints from error text.
func retryAfter(msg string) time.Duration {
	m := retryHint.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Second
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
