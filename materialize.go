package md2diagram

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// BlockResult records what happened to one diagram block.
type BlockResult struct {
	Block        DiagramBlock
	Outcome      Outcome
	Path         string   // Image written, empty when Outcome is OutcomeFailed
	AppliedRules []string // Repair rules that changed the source
	FallbackStep string   // Set when Outcome is OutcomeFallback
	Err          error    // Render failures behind a non-rendered outcome
}

// Materializer turns one diagram block into an image file.
// It never returns an error: every failure ends up in BlockResult.
type Materializer struct {
	renderer Renderer
	fallback *FallbackChain
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMaterializer creates a Materializer rendering with r. A nil fallback
// skips the error image step; a nil logger discards output.
func NewMaterializer(r Renderer, fallback *FallbackChain, timeout time.Duration, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = discardLogger()
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &Materializer{renderer: r, fallback: fallback, timeout: timeout, logger: logger}
}

// Materialize repairs the block source and renders it to outputPath. If the
// render fails, a skeleton of the same family is rendered instead; if that
// also fails, the fallback chain writes an error image.
func (m *Materializer) Materialize(ctx context.Context, block DiagramBlock, outputPath string) BlockResult {
	log := m.logger.With("block", block.Label())
	res := BlockResult{Block: block}

	if m.renderer == nil {
		res.Outcome = OutcomeFailed
		res.Err = ErrNoRenderer
		return res
	}

	repaired, applied := RepairTrace(block.Source)
	res.AppliedRules = applied
	if len(applied) > 0 {
		log.Debug("repaired diagram source", "rules", applied)
	}

	firstErr := m.render(ctx, repaired, outputPath)
	if firstErr == nil {
		res.Outcome = OutcomeRendered
		res.Path = outputPath
		return res
	}

	family := DetectFamily(repaired)
	log.Warn("render failed, trying simplified diagram", "family", family.String(), "error", firstErr)

	secondErr := m.render(ctx, Degrade(repaired, family), outputPath)
	if secondErr == nil {
		res.Outcome = OutcomeDegraded
		res.Path = outputPath
		res.Err = firstErr
		return res
	}

	renderErr := errors.Join(firstErr, secondErr)
	if m.fallback == nil {
		log.Error("diagram could not be rendered", "error", secondErr)
		res.Outcome = OutcomeFailed
		res.Err = renderErr
		return res
	}

	log.Warn("simplified render failed, using fallback image", "error", secondErr)
	step, err := m.fallback.Produce(ctx, m.renderer, block, outputPath)
	if err != nil {
		log.Error("no image produced for diagram", "error", err)
		res.Outcome = OutcomeFailed
		res.Err = errors.Join(renderErr, err)
		return res
	}

	res.Outcome = OutcomeFallback
	res.Path = outputPath
	res.FallbackStep = step
	res.Err = renderErr
	return res
}

// render runs one bounded render attempt.
func (m *Materializer) render(ctx context.Context, source, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.renderer.Render(ctx, source, outputPath)
}
