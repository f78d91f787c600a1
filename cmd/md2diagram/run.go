package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	flag "github.com/spf13/pflag"

	md2diagram "github.com/alnah/go-md2diagram"
	"github.com/alnah/go-md2diagram/internal/assets"
	"github.com/alnah/go-md2diagram/internal/config"
	"github.com/alnah/go-md2diagram/internal/fileutil"
	"github.com/alnah/go-md2diagram/internal/hints"
	"github.com/alnah/go-md2diagram/internal/llm"
	"github.com/alnah/go-md2diagram/internal/logging"
	"github.com/alnah/go-md2diagram/internal/pipeline"
	"github.com/alnah/go-md2diagram/internal/yamlutil"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage             = errors.New("invalid usage")
	ErrNoInput           = errors.New("no input file specified")
	ErrConflictingStages = errors.New("--generate-only and --images-only cannot be combined")
	ErrReadMarkdown      = errors.New("failed to read markdown file")
	ErrWriteOutput       = errors.New("failed to write output file")
)

// filePermissions is used for every document the CLI writes.
const filePermissions = 0o644 // rw-r--r--: owner read+write, others read

// runMain runs the CLI and maps the outcome to an exit code.
func runMain(args []string, env *Environment) int {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	err := run(ctx, args, env)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	fmt.Fprintf(env.Stderr, "error: %v\n", err)
	return exitCodeFor(err)
}

// runner carries the resolved settings of one invocation.
type runner struct {
	env     *Environment
	cfg     *config.Config
	flags   *cliFlags
	logger  *slog.Logger
	workers int

	previewCSS string // set when cfg.Output.HTML
}

// run parses args, resolves configuration and runs the requested stages.
func run(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if flags.version {
		fmt.Fprintf(env.Stdout, "md2diagram %s\n", Version)
		return nil
	}
	if flags.generateOnly && flags.imagesOnly {
		return ErrConflictingStages
	}

	warnUnknownEnvVars(env.Stderr, env.Environ())

	cfg, err := resolveConfig(flags, loadEnvConfig(env.Getenv))
	if err != nil {
		return err
	}

	if flags.printConfig {
		data, err := yamlutil.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_, err = env.Stdout.Write(data)
		return err
	}

	inputPath, imageDir, err := resolvePaths(flags, positional, cfg)
	if err != nil {
		return err
	}

	var previewCSS string
	if cfg.Output.HTML {
		if previewCSS, err = loadPreviewStyle(cfg.Output); err != nil {
			return err
		}
	}

	logger, logCloser := logging.New(logging.Options{
		Level:  logLevel(flags, cfg),
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Writer: env.Stderr,
	})
	defer closeLogged(logger, "log file", logCloser)

	r := &runner{
		env:     env,
		cfg:     cfg,
		flags:   flags,
		logger:  logger,
		workers: md2diagram.ResolveWorkers(cfg.Render.Workers),

		previewCSS: previewCSS,
	}
	logger.Debug("resolved workers", "workers", r.workers, "gomaxprocs", runtime.GOMAXPROCS(0))

	return r.convert(ctx, inputPath, imageDir)
}

// convert runs the generation stage, the image stage and the optional
// preview. The credential is checked before any input is read.
func (r *runner) convert(ctx context.Context, inputPath, imageDir string) error {
	var gen md2diagram.Generator
	if !r.flags.imagesOnly {
		var err error
		gen, err = r.env.NewGenerator(ctx, generatorSettings(r.cfg.Generator), r.env.Getenv, r.logger)
		if err != nil {
			if errors.Is(err, llm.ErrMissingAPIKey) {
				vars := llm.KeyEnvVars(r.cfg.Generator.Provider, r.cfg.Generator.APIKeyEnv)
				return fmt.Errorf("%w%s", err, hints.ForMissingAPIKey(vars))
			}
			return fmt.Errorf("creating generator: %w", err)
		}
		if c, ok := gen.(io.Closer); ok {
			defer closeLogged(r.logger, "generator", c)
		}
	}

	content, err := os.ReadFile(inputPath) // #nosec G304 -- input path is user-provided
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	doc := string(content)
	finalPath := inputPath

	if !r.flags.imagesOnly {
		finalPath = fileutil.WithSuffix(inputPath, fileutil.SuffixWithDiagrams)
		if doc, err = r.generateStage(ctx, gen, doc, finalPath); err != nil {
			return err
		}
	}

	if !r.flags.generateOnly {
		finalPath = fileutil.WithSuffix(inputPath, fileutil.SuffixWithImages)
		if doc, err = r.imageStage(ctx, doc, imageDir, finalPath); err != nil {
			return err
		}
	}

	if r.cfg.Output.HTML {
		return r.writePreview(ctx, doc, finalPath)
	}
	return nil
}

// generateStage inserts generated diagrams and writes the result to outPath.
func (r *runner) generateStage(ctx context.Context, gen md2diagram.Generator, doc, outPath string) (string, error) {
	p := md2diagram.NewPipeline(
		md2diagram.WithGenerator(gen),
		md2diagram.WithWorkers(r.workers),
		md2diagram.WithLogger(r.logger),
	)
	out, report, err := p.GenerateDiagrams(ctx, doc)
	if werr := writeOutput(outPath, out); werr != nil {
		return out, werr
	}
	if err != nil {
		return out, fmt.Errorf("generating diagrams: %w", err)
	}

	for _, f := range report.Failures() {
		fmt.Fprintf(r.env.Stderr, "FAILED %v\n", f)
	}
	if !r.flags.quiet {
		fmt.Fprintf(r.env.Stdout, "Generated %d of %d diagrams\n", report.Generated(), len(report.Records))
		fmt.Fprintf(r.env.Stdout, "Created %s\n", outPath)
	}
	return out, nil
}

// imageStage renders every mermaid block of doc into imageDir and writes
// the document with image references to outPath.
func (r *runner) imageStage(ctx context.Context, doc, imageDir, outPath string) (string, error) {
	timeout, err := r.cfg.Render.TimeoutDuration()
	if err != nil {
		return doc, err
	}
	newRenderer := func() md2diagram.RenderCloser {
		return r.env.NewRenderer(r.cfg.Render, timeout, r.logger)
	}

	opts := []md2diagram.Option{
		md2diagram.WithWorkers(r.workers),
		md2diagram.WithRenderTimeout(timeout),
		md2diagram.WithLogger(r.logger),
		md2diagram.WithClock(r.env.Now),
	}
	if r.workers > 1 {
		pool := md2diagram.NewRendererPool(r.workers, newRenderer)
		defer closeLogged(r.logger, "renderer pool", pool)
		opts = append(opts, md2diagram.WithRendererPool(pool))
	} else {
		renderer := newRenderer()
		defer closeLogged(r.logger, "renderer", renderer)
		opts = append(opts, md2diagram.WithRenderer(renderer))
	}

	// A chrome backend only starts this browser if an error card is needed.
	cardRenderer := newRenderer()
	defer closeLogged(r.logger, "error card renderer", cardRenderer)
	opts = append(opts, md2diagram.WithFallback(r.fallbackChain(cardRenderer)))

	out, report, err := md2diagram.NewPipeline(opts...).ConvertToImages(ctx, doc, imageDir, outPath)
	if werr := writeOutput(outPath, out); werr != nil {
		return out, werr
	}
	if err != nil {
		if ctx.Err() != nil {
			return out, err
		}
		return out, fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
	}

	r.printImageReport(report, imageDir, outPath)
	if warning := backendWarning(report); warning != "" {
		fmt.Fprintf(r.env.Stderr, "warning: %s\n", warning)
	}
	return out, nil
}

// fallbackChain builds the error image chain. The error card step is added
// when cardRenderer can screenshot HTML.
func (r *runner) fallbackChain(cardRenderer md2diagram.Renderer) *md2diagram.FallbackChain {
	opts := []md2diagram.FallbackOption{md2diagram.WithFallbackLogger(r.logger)}
	if card, ok := cardRenderer.(md2diagram.CardCapture); ok {
		opts = append(opts, md2diagram.WithErrorCard(card))
	}
	if r.cfg.Render.Placeholder != "" {
		opts = append(opts, md2diagram.WithPlaceholder(r.cfg.Render.Placeholder))
	}
	return md2diagram.NewFallbackChain(opts...)
}

// printImageReport prints per-block failures and the stage summary.
func (r *runner) printImageReport(report md2diagram.Report, imageDir, outPath string) {
	for _, f := range report.Failures() {
		hint := ""
		if errors.Is(f, context.DeadlineExceeded) {
			hint = hints.ForTimeout()
		}
		fmt.Fprintf(r.env.Stderr, "FAILED %v%s\n", f, hint)
	}
	if r.flags.quiet {
		return
	}
	fmt.Fprintf(r.env.Stdout, "Rendered %d, degraded %d, fallback %d, failed %d\n",
		report.Count(md2diagram.OutcomeRendered),
		report.Count(md2diagram.OutcomeDegraded),
		report.Count(md2diagram.OutcomeFallback),
		report.Count(md2diagram.OutcomeFailed))
	if len(report.Blocks) > 0 {
		fmt.Fprintf(r.env.Stdout, "Images in %s\n", imageDir)
	}
	fmt.Fprintf(r.env.Stdout, "Created %s\n", outPath)
}

// backendWarning describes a backend that never worked: no block rendered
// or degraded and the failures point at the browser or mermaid-cli itself.
// The run still succeeds since every block kept a fallback image or its
// source.
func backendWarning(report md2diagram.Report) string {
	if len(report.Blocks) == 0 ||
		report.Count(md2diagram.OutcomeRendered)+report.Count(md2diagram.OutcomeDegraded) > 0 {
		return ""
	}
	for _, b := range report.Blocks {
		switch {
		case errors.Is(b.Err, md2diagram.ErrBrowserConnect):
			return "no diagram could be rendered: " + b.Err.Error() + hints.ForBrowserConnect()
		case errors.Is(b.Err, md2diagram.ErrMermaidCLI):
			return "no diagram could be rendered: " + b.Err.Error() + hints.ForMermaidCLI()
		}
	}
	return ""
}

// writePreview writes an HTML rendering of doc next to mdPath.
func (r *runner) writePreview(ctx context.Context, doc, mdPath string) error {
	title := strings.TrimSuffix(filepath.Base(mdPath), filepath.Ext(mdPath))
	htmlDoc, err := pipeline.NewGoldmarkConverter().ToHTML(ctx, doc, title)
	if err != nil {
		return fmt.Errorf("building preview: %w", err)
	}
	htmlDoc = pipeline.PreviewDocument(ctx, htmlDoc, r.previewCSS, r.cfg.Render.MermaidURL)
	if htmlDoc, err = pipeline.RewriteImagePaths(htmlDoc, filepath.Dir(mdPath)); err != nil {
		return fmt.Errorf("building preview: %w", err)
	}

	htmlPath := strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".html"
	if err := writeOutput(htmlPath, htmlDoc); err != nil {
		return err
	}
	if !r.flags.quiet {
		fmt.Fprintf(r.env.Stdout, "Created %s\n", htmlPath)
	}
	return nil
}

// loadPreviewStyle resolves the preview stylesheet, preferring the custom
// assets directory when one is configured.
func loadPreviewStyle(out config.OutputConfig) (string, error) {
	resolver, err := assets.NewAssetResolver(out.AssetsDir)
	if err != nil {
		return "", fmt.Errorf("%w: output.assetsDir: %w", ErrUsage, err)
	}
	name := out.Style
	if name == "" {
		name = assets.DefaultStyleName
	}
	css, err := resolver.LoadStyle(name)
	if err != nil {
		return "", fmt.Errorf("%w: output.style: %w", ErrUsage, err)
	}
	return css, nil
}

// resolveConfig loads the config file, then applies env vars and flags.
// Precedence: CLI flags > env vars > config file > defaults.
func resolveConfig(flags *cliFlags, env *envConfig) (*config.Config, error) {
	name := flags.config
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	mergeFlags(flags, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *cliFlags, cfg *config.Config) {
	if flags.provider != "" {
		cfg.Generator.Provider = flags.provider
	}
	if flags.model != "" {
		cfg.Generator.Model = flags.model
	}
	if flags.renderer != "" {
		cfg.Render.Backend = flags.renderer
	}
	if flags.workersSet {
		cfg.Render.Workers = flags.workers
	}
	if flags.timeout != "" {
		cfg.Render.Timeout = flags.timeout
	}
	if flags.imageDir != "" {
		cfg.Output.ImageDir = flags.imageDir
	}
	if flags.html {
		cfg.Output.HTML = true
	}
	if flags.style != "" {
		cfg.Output.Style = flags.style
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
}

// resolvePaths returns the input file and the image directory.
// The input comes from --file or the first positional argument; the image
// directory from --image-dir, the next positional argument, the config, or
// <dir>/<base>-images, in that order.
func resolvePaths(flags *cliFlags, positional []string, cfg *config.Config) (string, string, error) {
	rest := positional
	input := flags.file
	if input == "" {
		if len(rest) == 0 {
			return "", "", ErrNoInput
		}
		input, rest = rest[0], rest[1:]
	}

	imageDir := flags.imageDir
	if imageDir == "" && len(rest) > 0 {
		imageDir, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return "", "", fmt.Errorf("%w: unexpected arguments %q", ErrUsage, rest)
	}

	if imageDir == "" {
		imageDir = cfg.Output.ImageDir
	}
	if imageDir == "" {
		imageDir = fileutil.DefaultImageDir(input)
	}
	return input, imageDir, nil
}

// logLevel picks the console level: --verbose and --quiet win over config.
func logLevel(flags *cliFlags, cfg *config.Config) string {
	switch {
	case flags.verbose:
		return "debug"
	case flags.quiet:
		return "error"
	default:
		return cfg.Log.Level
	}
}

// generatorSettings converts the generator config section.
// The timeout was checked by Validate.
func generatorSettings(g config.GeneratorConfig) llm.Settings {
	timeout, _ := g.TimeoutDuration()
	return llm.Settings{
		Provider:          g.Provider,
		Model:             g.Model,
		MaxTokens:         g.MaxTokens,
		BaseURL:           g.BaseURL,
		APIKeyEnv:         g.APIKeyEnv,
		RequestsPerMinute: g.RequestsPerMinute,
		MaxRetries:        g.MaxRetries,
		Timeout:           timeout,
	}
}

func writeOutput(path, content string) error {
	// #nosec G306 -- output documents are meant to be readable
	if err := os.WriteFile(path, []byte(content), filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}

// closeLogged closes c and logs a failure instead of returning it.
func closeLogged(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "resource", what, "error", err)
	}
}
