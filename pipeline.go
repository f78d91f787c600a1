package md2diagram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-md2diagram/internal/fileutil"
)

// imageExt is the extension of every rendered image.
const imageExt = ".png"

// imageDirMode is used when creating the image directory.
const imageDirMode = 0o750

// Pipeline runs the generation stage and the image stage over a document.
// Both stages isolate failures per record or block: the returned document
// is always usable, and the Report says what went wrong.
type Pipeline struct {
	generator Generator
	renderer  Renderer
	pool      *RendererPool
	fallback  *FallbackChain
	logger    *slog.Logger
	cfg       pipelineConfig
}

// NewPipeline creates a Pipeline. Without options it runs sequentially,
// with no generator and no renderer.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: discardLogger(),
		cfg: pipelineConfig{
			workers:       1,
			renderTimeout: defaultRenderTimeout,
			now:           time.Now,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RecordResult records the generation outcome of one description.
type RecordResult struct {
	Record    DescriptionRecord
	Generated bool
	Err       error
}

// Report summarizes a stage run.
type Report struct {
	Records []RecordResult // Generation stage, in document order
	Splices []SpliceResult // Insertions or substitutions, in input order
	Blocks  []BlockResult  // Image stage, in document order
}

// Generated returns how many descriptions received diagram source.
func (r Report) Generated() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Generated {
			n++
		}
	}
	return n
}

// Count returns how many blocks ended with outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, b := range r.Blocks {
		if b.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns every per-item error of the run.
func (r Report) Failures() []error {
	var errs []error
	for _, rec := range r.Records {
		if rec.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Record.Title, rec.Err))
		}
	}
	for _, s := range r.Splices {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Label, s.Err))
		}
	}
	for _, b := range r.Blocks {
		if b.Outcome == OutcomeFailed && b.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Block.Label(), b.Err))
		}
	}
	return errs
}

// GenerateDiagrams asks the generator for a diagram for every description in
// doc and inserts each one after the paragraph holding its description.
// A document without descriptions comes back unchanged. The error is
// non-nil only when no generator is configured or ctx ended; the returned
// document then holds whatever was generated before.
func (p *Pipeline) GenerateDiagrams(ctx context.Context, doc string) (string, Report, error) {
	var report Report
	if p.generator == nil {
		return doc, report, ErrNoGenerator
	}

	records := ExtractDescriptions(doc)
	if len(records) == 0 {
		d := DiagnoseMissing(doc)
		p.logger.Info("no diagram descriptions found")
		p.logger.Debug("description diagnostics", "diagramWords", d.WordCount, "nearMisses", d.NearMisses)
		return doc, report, nil
	}
	p.logger.Info("found diagram descriptions", "count", len(records))

	report.Records = make([]RecordResult, len(records))
	var g errgroup.Group
	g.SetLimit(p.cfg.workers)

	for i := range records {
		g.Go(func() error {
			report.Records[i] = p.generateOne(ctx, records[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, rr := range report.Records {
		records[i] = rr.Record
	}
	out, splices := InsertAfterParagraphs(doc, records)
	report.Splices = splices
	return out, report, ctx.Err()
}

// generateOne runs one generation call. Failures stay in the result so a
// sibling task is never cancelled.
func (p *Pipeline) generateOne(ctx context.Context, rec DescriptionRecord) RecordResult {
	res := RecordResult{Record: rec}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	p.logger.Debug("generating diagram", "title", rec.Title)
	out, err := p.generator.Generate(ctx, GenerationRequest{
		Title:       rec.Title,
		Description: rec.Description,
		Context:     rec.Context,
	})
	if err != nil {
		p.logger.Warn("diagram generation failed", "title", rec.Title, "error", err)
		res.Err = err
		return res
	}

	source := FormatSource(out.Source)
	if source == "" {
		res.Err = fmt.Errorf("%w: empty diagram source", ErrNoDiagramSource)
		p.logger.Warn("diagram generation failed", "title", rec.Title, "error", res.Err)
		return res
	}

	res.Record.Source = source
	res.Record.Explanation = out.Explanation
	res.Generated = true
	p.logger.Info("generated diagram", "title", rec.Title)
	return res
}

// ConvertToImages renders every mermaid block of doc into imageDir and
// replaces each block with an image reference. References are relative to
// markdownPath's directory when markdownPath is set. Blocks that produce no
// image keep their source. The error is non-nil only when the image
// directory cannot be created, no renderer is configured, or ctx ended.
func (p *Pipeline) ConvertToImages(ctx context.Context, doc, imageDir, markdownPath string) (string, Report, error) {
	var report Report
	if p.renderer == nil && p.pool == nil {
		return doc, report, ErrNoRenderer
	}

	blocks := ScanDiagramBlocks(doc, RunStamp(p.cfg.now()))
	if len(blocks) == 0 {
		p.logger.Info("no mermaid blocks found")
		return doc, report, nil
	}
	p.logger.Info("found mermaid blocks", "count", len(blocks))

	if err := os.MkdirAll(imageDir, imageDirMode); err != nil {
		return doc, report, fmt.Errorf("creating image directory: %w", err)
	}

	report.Blocks = make([]BlockResult, len(blocks))
	var g errgroup.Group
	g.SetLimit(p.cfg.workers)

	for i := range blocks {
		g.Go(func() error {
			report.Blocks[i] = p.materializeOne(ctx, blocks[i], filepath.Join(imageDir, blocks[i].Filename+imageExt))
			return nil
		})
	}
	_ = g.Wait()

	subs := make([]Substitution, 0, len(blocks))
	for _, res := range report.Blocks {
		if res.Outcome == OutcomeFailed {
			continue
		}
		ref := filepath.ToSlash(res.Path)
		if markdownPath != "" {
			ref = fileutil.ImageRef(markdownPath, res.Path)
		}
		subs = append(subs, Substitution{
			Label:       res.Block.Label(),
			Anchor:      res.Block.FullMatch,
			Replacement: ImageReference(res.Block.AltText(), ref),
		})
	}
	out, splices := SubstituteAnchors(doc, subs)
	report.Splices = splices
	for _, s := range splices {
		if s.Err != nil {
			p.logger.Warn("image reference not inserted", "block", s.Label, "error", s.Err)
		}
	}
	return out, report, ctx.Err()
}

// materializeOne renders a block with a pooled renderer when a pool is set.
func (p *Pipeline) materializeOne(ctx context.Context, block DiagramBlock, outputPath string) BlockResult {
	r := p.renderer
	if p.pool != nil {
		pooled, err := p.pool.Acquire(ctx)
		if err != nil {
			p.logger.Warn("no renderer available", "block", block.Label(), "error", err)
			return BlockResult{Block: block, Outcome: OutcomeFailed, Err: err}
		}
		defer p.pool.Release(pooled)
		r = pooled
	}

	res := NewMaterializer(r, p.fallback, p.cfg.renderTimeout, p.logger).Materialize(ctx, block, outputPath)
	switch res.Outcome {
	case OutcomeRendered:
		p.logger.Info("rendered diagram", "block", block.Label(), "path", outputPath)
	case OutcomeDegraded, OutcomeFallback:
		p.logger.Info("rendered substitute image", "block", block.Label(), "outcome", res.Outcome.String(), "path", outputPath)
	}
	return res
}
