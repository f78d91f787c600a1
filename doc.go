// Package md2diagram turns diagram descriptions in Markdown into rendered
// images.
//
// # Quick Start
//
// A run has two stages. The generation stage finds lines such as
//
//	**Login Flow Diagram:** the user signs in with a password
//
// asks a Generator for mermaid source and inserts it after the paragraph:
//
//	p := md2diagram.NewPipeline(md2diagram.WithGenerator(gen))
//	withDiagrams, report, err := p.GenerateDiagrams(ctx, doc)
//
// The image stage renders every ```mermaid block to a PNG and replaces the
// block with an image reference:
//
//	r := md2diagram.NewChromeRenderer(mermaidURL, 30*time.Second, logger)
//	defer r.Close()
//	p := md2diagram.NewPipeline(
//	    md2diagram.WithRenderer(r),
//	    md2diagram.WithFallback(md2diagram.NewFallbackChain(md2diagram.WithErrorCard(r))),
//	)
//	withImages, report, err := p.ConvertToImages(ctx, withDiagrams, "guide-images", "guide.md")
//
// # Rendering Policy
//
// Each block is handled by a Materializer:
//
//  1. The source is repaired by the ordered rules of RepairRules.
//  2. The repaired source is rendered.
//  3. On failure, a skeleton of the same diagram family is rendered.
//  4. On failure, a FallbackChain writes an error image.
//
// A block that ends without an image keeps its source in the document.
// Failures never stop the other records or blocks; they are collected in
// the Report.
//
// # Parallel Processing
//
// WithWorkers bounds concurrent generation calls and renders. Use a
// RendererPool to give each worker its own browser:
//
//	pool := md2diagram.NewRendererPool(4, func() md2diagram.RenderCloser {
//	    return md2diagram.NewChromeRenderer(mermaidURL, timeout, logger)
//	})
//	defer pool.Close()
//
// # Browser Requirements
//
// The chrome backend requires Chrome/Chromium. The go-rod library
// automatically downloads a managed Chromium instance on first run
// (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package md2diagram
