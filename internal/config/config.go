// Package config loads and validates YAML configuration for md2diagram.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-md2diagram/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxModelLength   = 100
	MaxNameLength    = 64
	MaxEnvNameLength = 100
	MaxURLLength     = 2048
	MaxPathLength    = 4096
	MaxCommandLength = 512
)

// Upper bounds for numeric settings.
const (
	MaxWorkers           = 32
	MaxTokensLimit       = 32000
	MaxRequestsPerMinute = 10000
	MaxRetries           = 10
)

// Supported provider and backend names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"

	BackendChrome = "chrome"
	BackendMMDC   = "mmdc"
)

// Defaults.
const (
	DefaultMermaidURL        = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"
	DefaultMMDCCommand       = "npx mmdc"
	DefaultStyle             = "default"
	DefaultMaxTokens         = 1000
	DefaultRequestsPerMinute = 50
	DefaultMaxRetries        = 3
	DefaultGeneratorTimeout  = "60s"
	DefaultRenderTimeout     = "30s"
)

// Config holds all configuration for a run.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Generator GeneratorConfig `yaml:"generator"`
	Render    RenderConfig    `yaml:"render"`
	Log       LogConfig       `yaml:"log"`
}

// OutputConfig defines where results are written.
type OutputConfig struct {
	ImageDir  string `yaml:"imageDir"`  // Empty = <base>-images next to the document
	HTML      bool   `yaml:"html"`      // Also write an HTML preview of the final document
	Style     string `yaml:"style"`     // Preview stylesheet name
	AssetsDir string `yaml:"assetsDir"` // Custom styles/ and templates/, empty = built-in only
}

// GeneratorConfig selects and tunes the diagram source provider.
type GeneratorConfig struct {
	Provider          string `yaml:"provider"`          // anthropic, openai, gemini
	Model             string `yaml:"model"`             // Empty = provider default
	MaxTokens         int    `yaml:"maxTokens"`         // Response budget per call
	BaseURL           string `yaml:"baseURL"`           // OpenAI-compatible gateway
	APIKeyEnv         string `yaml:"apiKeyEnv"`         // Overrides the provider's key variable
	RequestsPerMinute int    `yaml:"requestsPerMinute"` // 0 = unlimited
	MaxRetries        int    `yaml:"maxRetries"`        // Retries on rate-limit responses
	Timeout           string `yaml:"timeout"`           // Per-call timeout, Go duration
}

// RenderConfig selects and tunes the diagram render backend.
type RenderConfig struct {
	Backend     string `yaml:"backend"`     // chrome, mmdc
	MermaidURL  string `yaml:"mermaidURL"`  // mermaid.js location for chrome
	MMDCCommand string `yaml:"mmdcCommand"` // mermaid-cli invocation
	Timeout     string `yaml:"timeout"`     // Per-render timeout, Go duration
	Workers     int    `yaml:"workers"`     // 0 = auto, 1 = sequential
	Placeholder string `yaml:"placeholder"` // Static image copied as last fallback
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`   // Rotating log file, empty = console only
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Style: DefaultStyle,
		},
		Generator: GeneratorConfig{
			Provider:          ProviderAnthropic,
			MaxTokens:         DefaultMaxTokens,
			RequestsPerMinute: DefaultRequestsPerMinute,
			MaxRetries:        DefaultMaxRetries,
			Timeout:           DefaultGeneratorTimeout,
		},
		Render: RenderConfig{
			Backend:     BackendChrome,
			MermaidURL:  DefaultMermaidURL,
			MMDCCommand: DefaultMMDCCommand,
			Timeout:     DefaultRenderTimeout,
			Workers:     1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks enumerations, ranges and field lengths.
// Called automatically by LoadConfig, but available for callers that
// build a Config by hand or merge overrides into one.
func (c *Config) Validate() error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"output.imageDir", c.Output.ImageDir, MaxPathLength},
		{"output.style", c.Output.Style, MaxNameLength},
		{"output.assetsDir", c.Output.AssetsDir, MaxPathLength},
		{"generator.model", c.Generator.Model, MaxModelLength},
		{"generator.baseURL", c.Generator.BaseURL, MaxURLLength},
		{"generator.apiKeyEnv", c.Generator.APIKeyEnv, MaxEnvNameLength},
		{"render.mermaidURL", c.Render.MermaidURL, MaxURLLength},
		{"render.mmdcCommand", c.Render.MMDCCommand, MaxCommandLength},
		{"render.placeholder", c.Render.Placeholder, MaxPathLength},
		{"log.file", c.Log.File, MaxPathLength},
	}
	for _, chk := range checks {
		if err := validateFieldLength(chk.field, chk.value, chk.max); err != nil {
			return err
		}
	}

	switch c.Generator.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: generator.provider %q (must be anthropic, openai, or gemini)", ErrInvalidValue, c.Generator.Provider)
	}

	switch c.Render.Backend {
	case BackendChrome, BackendMMDC:
	default:
		return fmt.Errorf("%w: render.backend %q (must be chrome or mmdc)", ErrInvalidValue, c.Render.Backend)
	}

	if err := validateRange("generator.maxTokens", c.Generator.MaxTokens, 1, MaxTokensLimit); err != nil {
		return err
	}
	if err := validateRange("generator.requestsPerMinute", c.Generator.RequestsPerMinute, 0, MaxRequestsPerMinute); err != nil {
		return err
	}
	if err := validateRange("generator.maxRetries", c.Generator.MaxRetries, 0, MaxRetries); err != nil {
		return err
	}
	if err := validateRange("render.workers", c.Render.Workers, 0, MaxWorkers); err != nil {
		return err
	}

	if _, err := c.Generator.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Render.TimeoutDuration(); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// TimeoutDuration parses the generator timeout. Empty means the default.
func (g GeneratorConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("generator.timeout", g.Timeout, DefaultGeneratorTimeout)
}

// TimeoutDuration parses the render timeout. Empty means the default.
func (r RenderConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("render.timeout", r.Timeout, DefaultRenderTimeout)
}

func parseDuration(field, value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, field, value)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateRange(fieldName string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidValue, fieldName, lo, hi, value)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys missing from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !strings.ContainsAny(nameOrPath, "/\\") {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths returns the locations tried for a config name, in order:
// the current directory, then the user config directory.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-md2diagram", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing search path for name.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
