package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	md2diagram "github.com/alnah/go-md2diagram"
	"github.com/alnah/go-md2diagram/internal/config"
	"github.com/alnah/go-md2diagram/internal/llm"
)

// GeneratorFactory builds the generation backend. It fails when the
// provider's credential is missing.
type GeneratorFactory func(ctx context.Context, s llm.Settings, getenv func(string) string, logger *slog.Logger) (md2diagram.Generator, error)

// RendererFactory builds one render backend.
type RendererFactory func(cfg config.RenderConfig, timeout time.Duration, logger *slog.Logger) md2diagram.RenderCloser

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and backend construction.
type Environment struct {
	Now          func() time.Time
	Stdout       io.Writer
	Stderr       io.Writer
	Getenv       func(string) string
	Environ      func() []string
	NewGenerator GeneratorFactory
	NewRenderer  RendererFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:          time.Now,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Getenv:       os.Getenv,
		Environ:      os.Environ,
		NewGenerator: newLLMGenerator,
		NewRenderer:  newBackend,
	}
}

func newLLMGenerator(ctx context.Context, s llm.Settings, getenv func(string) string, logger *slog.Logger) (md2diagram.Generator, error) {
	c, err := llm.NewClientFromSettings(ctx, s, getenv, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// newBackend returns the renderer named by cfg.Backend. Config validation
// guarantees the name is known.
func newBackend(cfg config.RenderConfig, timeout time.Duration, logger *slog.Logger) md2diagram.RenderCloser {
	if cfg.Backend == config.BackendMMDC {
		return md2diagram.NewMermaidCLIRenderer(cfg.MMDCCommand, timeout, logger)
	}
	return md2diagram.NewChromeRenderer(cfg.MermaidURL, timeout, logger)
}
