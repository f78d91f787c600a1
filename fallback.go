package md2diagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alnah/go-md2diagram/internal/fileutil"
)

// ErrorDiagramSource is rendered through the regular backend as the first
// fallback.
const ErrorDiagramSource = "graph TD\n" +
	"    A[\"Error: Could not render diagram\"]\n" +
	"    B[\"Please check the Mermaid syntax\"]\n" +
	"    A --> B"

// Fallback step names, reported in BlockResult.FallbackStep.
const (
	StepErrorDiagram = "error-diagram"
	StepTextImage    = "text-image"
	StepErrorCard    = "error-card"
	StepPlaceholder  = "placeholder"
)

// CardCapture screenshots an HTML error card to a PNG.
type CardCapture interface {
	RenderCard(ctx context.Context, title, message, outputPath string) error
}

// fallbackStep is one strategy of the chain. r is the backend that failed
// the block, reused for the error diagram.
type fallbackStep struct {
	name string
	run  func(ctx context.Context, r Renderer, block DiagramBlock, outputPath string) error
}

// FallbackChain produces an error image after both render attempts fail.
// Steps run in order until one writes an image.
type FallbackChain struct {
	steps  []fallbackStep
	logger *slog.Logger
}

// FallbackOption configures a FallbackChain.
type FallbackOption func(*fallbackSettings)

type fallbackSettings struct {
	card        CardCapture
	placeholder string
	logger      *slog.Logger
}

// WithErrorCard enables the HTML error card step.
func WithErrorCard(c CardCapture) FallbackOption {
	return func(s *fallbackSettings) {
		s.card = c
	}
}

// WithPlaceholder enables copying a static image as the last step.
func WithPlaceholder(path string) FallbackOption {
	return func(s *fallbackSettings) {
		s.placeholder = path
	}
}

// WithFallbackLogger sets the structured logger.
func WithFallbackLogger(l *slog.Logger) FallbackOption {
	return func(s *fallbackSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFallbackChain builds the chain: error diagram, text image, then the
// optional error card and placeholder.
func NewFallbackChain(opts ...FallbackOption) *FallbackChain {
	s := fallbackSettings{logger: discardLogger()}
	for _, opt := range opts {
		opt(&s)
	}

	steps := []fallbackStep{
		{name: StepErrorDiagram, run: renderErrorDiagram},
		{name: StepTextImage, run: func(_ context.Context, _ Renderer, b DiagramBlock, out string) error {
			return writeTextImage(out, ErrorImageLines(b.Label()))
		}},
	}
	if s.card != nil {
		card := s.card
		steps = append(steps, fallbackStep{name: StepErrorCard, run: func(ctx context.Context, _ Renderer, b DiagramBlock, out string) error {
			return card.RenderCard(ctx, b.Label(), "Please check the Mermaid syntax", out)
		}})
	}
	if s.placeholder != "" {
		placeholder := s.placeholder
		steps = append(steps, fallbackStep{name: StepPlaceholder, run: func(_ context.Context, _ Renderer, _ DiagramBlock, out string) error {
			return fileutil.CopyFile(placeholder, out)
		}})
	}
	return &FallbackChain{steps: steps, logger: s.logger}
}

// Steps returns the step names in execution order.
func (c *FallbackChain) Steps() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.name
	}
	return names
}

// Produce runs the steps until one succeeds and returns its name.
// When every step fails, the error wraps ErrFallbackExhausted and each
// step's failure.
func (c *FallbackChain) Produce(ctx context.Context, r Renderer, block DiagramBlock, outputPath string) (string, error) {
	errs := []error{ErrFallbackExhausted}
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := step.run(ctx, r, block, outputPath)
		if err == nil {
			return step.name, nil
		}
		c.logger.Debug("fallback step failed", "block", block.Label(), "step", step.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
	}
	return "", errors.Join(errs...)
}

func renderErrorDiagram(ctx context.Context, r Renderer, _ DiagramBlock, outputPath string) error {
	if r == nil {
		return ErrNoRenderer
	}
	return r.Render(ctx, ErrorDiagramSource, outputPath)
}
