package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-md2diagram/internal/config"
)

// envPrefix marks the variables read by md2diagram.
const envPrefix = "MD2DIAGRAM_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // MD2DIAGRAM_CONFIG: config file name or path
	Provider   string        // MD2DIAGRAM_PROVIDER: anthropic, openai, gemini
	Model      string        // MD2DIAGRAM_MODEL: provider model name
	Renderer   string        // MD2DIAGRAM_RENDERER: chrome, mmdc
	MermaidURL string        // MD2DIAGRAM_MERMAID_URL: mermaid.js location
	ImageDir   string        // MD2DIAGRAM_IMAGE_DIR: image output directory
	Timeout    time.Duration // MD2DIAGRAM_TIMEOUT: per-render timeout
	Workers    int           // MD2DIAGRAM_WORKERS: parallel workers
	LogLevel   string        // MD2DIAGRAM_LOG_LEVEL: debug, info, warn, error
	LogFile    string        // MD2DIAGRAM_LOG_FILE: rotating log file
}

// knownEnvVars lists valid MD2DIAGRAM_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MD2DIAGRAM_CONFIG":      true,
	"MD2DIAGRAM_PROVIDER":    true,
	"MD2DIAGRAM_MODEL":       true,
	"MD2DIAGRAM_RENDERER":    true,
	"MD2DIAGRAM_MERMAID_URL": true,
	"MD2DIAGRAM_IMAGE_DIR":   true,
	"MD2DIAGRAM_TIMEOUT":     true,
	"MD2DIAGRAM_WORKERS":     true,
	"MD2DIAGRAM_LOG_LEVEL":   true,
	"MD2DIAGRAM_LOG_FILE":    true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable durations and counts are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("MD2DIAGRAM_CONFIG"),
		Provider:   getenv("MD2DIAGRAM_PROVIDER"),
		Model:      getenv("MD2DIAGRAM_MODEL"),
		Renderer:   getenv("MD2DIAGRAM_RENDERER"),
		MermaidURL: getenv("MD2DIAGRAM_MERMAID_URL"),
		ImageDir:   getenv("MD2DIAGRAM_IMAGE_DIR"),
		LogLevel:   getenv("MD2DIAGRAM_LOG_LEVEL"),
		LogFile:    getenv("MD2DIAGRAM_LOG_FILE"),
	}

	if timeout := getenv("MD2DIAGRAM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := getenv("MD2DIAGRAM_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars writes a warning for every unrecognized MD2DIAGRAM_*
// variable in environ.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment values over cfg. Values loaded from a
// config file are overridden; flags are applied afterwards by mergeFlags.
// Precedence: CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Provider != "" {
		cfg.Generator.Provider = env.Provider
	}
	if env.Model != "" {
		cfg.Generator.Model = env.Model
	}
	if env.Renderer != "" {
		cfg.Render.Backend = env.Renderer
	}
	if env.MermaidURL != "" {
		cfg.Render.MermaidURL = env.MermaidURL
	}
	if env.ImageDir != "" {
		cfg.Output.ImageDir = env.ImageDir
	}
	if env.Timeout > 0 {
		cfg.Render.Timeout = env.Timeout.String()
	}
	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFile != "" {
		cfg.Log.File = env.LogFile
	}
}
