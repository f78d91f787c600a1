package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for provider operations.
var (
	ErrMissingAPIKey    = errors.New("missing API key")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrRateLimited      = errors.New("rate limited")
	ErrEmptyResponse    = errors.New("empty response from model")
	ErrProviderRequest  = errors.New("provider request failed")
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")
)

// Provider names accepted by NewProvider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultGeminiModel    = "gemini-1.5-flash"
)

// Provider sends a single prompt and returns the model's text answer.
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Settings configures provider construction and the Client around it.
type Settings struct {
	Provider          string
	Model             string // Empty = provider default
	MaxTokens         int
	BaseURL           string // OpenAI-compatible gateway, ignored by other providers
	APIKeyEnv         string // Overrides the provider's default key variables
	RequestsPerMinute int    // 0 = unlimited
	MaxRetries        int
	Timeout           time.Duration // Per call, 0 = no timeout
}

// KeyEnvVars returns the environment variables consulted for provider's
// API key, in lookup order. A non-empty override replaces the defaults.
func KeyEnvVars(provider, override string) []string {
	if override != "" {
		return []string{override}
	}
	switch provider {
	case ProviderAnthropic:
		return []string{"CLAUDE_API_KEY", "ANTHROPIC_API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return nil
	}
}

// LookupAPIKey returns the first non-empty key among KeyEnvVars.
func LookupAPIKey(provider, override string, getenv func(string) string) (string, error) {
	vars := KeyEnvVars(provider, override)
	if len(vars) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	for _, name := range vars {
		if key := strings.TrimSpace(getenv(name)); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, strings.Join(vars, " or "))
}

// NewProvider builds the provider named in s. The API key is read through
// getenv so the credential check happens once, before any document work.
func NewProvider(ctx context.Context, s Settings, getenv func(string) string) (Provider, error) {
	if s.MaxTokens <= 0 {
		return nil, ErrInvalidMaxTokens
	}
	key, err := LookupAPIKey(s.Provider, s.APIKeyEnv, getenv)
	if err != nil {
		return nil, err
	}

	switch s.Provider {
	case ProviderAnthropic:
		return newAnthropicProvider(key, modelOr(s.Model, DefaultAnthropicModel), s.MaxTokens), nil
	case ProviderOpenAI:
		return newOpenAIProvider(key, modelOr(s.Model, DefaultOpenAIModel), s.BaseURL, s.MaxTokens), nil
	case ProviderGemini:
		return newGeminiProvider(ctx, key, modelOr(s.Model, DefaultGeminiModel), s.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
}

func modelOr(model, fallback string) string {
	if strings.TrimSpace(model) == "" {
		return fallback
	}
	return model
}

// IsRateLimit reports whether err signals an exhausted request quota.
// Providers wrap typed 429 responses with ErrRateLimited; the message
// checks catch SDKs that only surface text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "too many requests")
}
