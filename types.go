package md2diagram

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DescriptionRecord is a diagram description found in a document.
// Offset is only meaningful against the document it was extracted from.
type DescriptionRecord struct {
	Title       string // Diagram name without emphasis markers
	Description string // Rest of the line after the colon
	Context     string // Up to 500 bytes of text on each side of the match
	MatchedText string // Exact matched substring, usable as a splice anchor
	Offset      int    // Byte offset of the match in the original document

	// Filled by the generation stage.
	Source      string // Formatted mermaid source, empty if generation failed
	Explanation string // Optional prose returned next to the code block
}

// DiagramBlock is a fenced mermaid block found in a document.
type DiagramBlock struct {
	Source    string // Code between the fences
	FullMatch string // Block including both fences
	Position  int    // Byte offset of the opening fence
	Title     string // Nearest preceding diagram title
	HasTitle  bool   // False when no title precedes the block
	Index     int    // 1-based position among the document's blocks
	Filename  string // Image file name without extension
}

// AltText returns the image alt text for the block.
func (b DiagramBlock) AltText() string {
	if b.HasTitle {
		return b.Title
	}
	return fmt.Sprintf("Diagram %d", b.Index)
}

// Label names the block in log lines and error images.
func (b DiagramBlock) Label() string {
	if b.HasTitle {
		return b.Title
	}
	return fmt.Sprintf("diagram-%d", b.Index)
}

// Family classifies diagram source by its header keyword.
type Family int

// Diagram families understood by the repair and degradation rules.
const (
	FamilyOther Family = iota
	FamilyFlowchart
	FamilyState
	FamilySequence
)

// String returns the family name used in logs.
func (f Family) String() string {
	switch f {
	case FamilyFlowchart:
		return "flowchart"
	case FamilyState:
		return "state"
	case FamilySequence:
		return "sequence"
	default:
		return "other"
	}
}

// Outcome records how a diagram block ended up as an image.
type Outcome int

// Block outcomes, from best to worst.
const (
	OutcomeRendered Outcome = iota // Repaired source rendered on first attempt
	OutcomeDegraded                // Skeleton rendered after the first attempt failed
	OutcomeFallback                // Error image produced by the fallback chain
	OutcomeFailed                  // No image produced
)

// String returns the outcome name used in logs and summaries.
func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// pipelineConfig holds internal configuration for Pipeline.
type pipelineConfig struct {
	workers       int
	renderTimeout time.Duration
	now           func() time.Time
}

// defaultRenderTimeout bounds a single render attempt.
const defaultRenderTimeout = 30 * time.Second

// WithGenerator sets the diagram source generator used by the generation stage.
func WithGenerator(g Generator) Option {
	return func(p *Pipeline) {
		p.generator = g
	}
}

// WithRenderer sets the render backend used by the image stage.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithRendererPool renders blocks in parallel using renderers from the pool.
// Takes precedence over WithRenderer.
func WithRendererPool(pool *RendererPool) Option {
	return func(p *Pipeline) {
		p.pool = pool
	}
}

// WithFallback sets the error image chain used after both render attempts fail.
func WithFallback(f *FallbackChain) Option {
	return func(p *Pipeline) {
		p.fallback = f
	}
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWorkers sets how many generation calls and renders may run at once.
// Panics if n < 1 (programmer error, similar to time.NewTicker).
func WithWorkers(n int) Option {
	if n < 1 {
		panic("md2diagram: WithWorkers count must be positive")
	}
	return func(p *Pipeline) {
		p.cfg.workers = n
	}
}

// WithRenderTimeout bounds each render attempt.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithRenderTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2diagram: WithRenderTimeout duration must be positive")
	}
	return func(p *Pipeline) {
		p.cfg.renderTimeout = d
	}
}

// WithClock overrides the clock used for the run timestamp in image names.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.cfg.now = now
		}
	}
}

// discardLogger drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
