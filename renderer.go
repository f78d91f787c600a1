package md2diagram

import (
	"context"
	"log/slog"
)

// Renderer turns mermaid source into a PNG file at outputPath.
// A returned error means no usable image was written.
type Renderer interface {
	Render(ctx context.Context, source, outputPath string) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, source, outputPath string) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, source, outputPath string) error {
	return f(ctx, source, outputPath)
}

// Compile-time interface check.
var _ Renderer = RendererFunc(nil)

// removeTemp runs a temp file cleanup and logs failures instead of
// returning them.
func removeTemp(logger *slog.Logger, cleanup func() error) {
	if err := cleanup(); err != nil {
		logger.Warn("temp file cleanup failed", "error", err)
	}
}
