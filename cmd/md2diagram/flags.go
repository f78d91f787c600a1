package main

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// cliFlags holds every command-line flag.
type cliFlags struct {
	file         string
	imageDir     string
	config       string
	provider     string
	model        string
	renderer     string
	workers      int
	workersSet   bool
	timeout      string
	generateOnly bool
	imagesOnly   bool
	html         bool
	style        string
	quiet        bool
	verbose      bool
	logFile      string
	version      bool
	printConfig  bool
}

// flagAliases maps accepted spellings to canonical flag names.
var flagAliases = map[string]string{
	"f":         "file",
	"imageDir":  "image-dir",
	"image_dir": "image-dir",
	"imagedir":  "image-dir",
	"logFile":   "log-file",
}

// normalizeFlagName resolves aliases such as --imageDir to --image-dir.
func normalizeFlagName(_ *flag.FlagSet, name string) flag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		return flag.NormalizedName(canonical)
	}
	return flag.NormalizedName(name)
}

// expandSingleDashLong rewrites single-dash long aliases such as -imageDir
// to their double-dash form. pflag would otherwise read them as a cluster
// of shorthands.
func expandSingleDashLong(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a
		if !strings.HasPrefix(a, "-") || strings.HasPrefix(a, "--") {
			continue
		}
		name, _, _ := strings.Cut(a[1:], "=")
		if _, ok := flagAliases[name]; ok && len(name) > 1 {
			out[i] = "-" + a
		}
	}
	return out
}

// parseFlags parses args (without the program name) and returns the
// positional arguments. Usage goes to w on error or --help.
func parseFlags(args []string, w io.Writer) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("md2diagram", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.SetNormalizeFunc(normalizeFlagName)
	f := &cliFlags{}

	// Input/Output
	fs.StringVarP(&f.file, "file", "f", "", "input markdown file")
	fs.StringVarP(&f.imageDir, "image-dir", "i", "", "image output directory (default <base>-images)")
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.html, "html", false, "also write an HTML preview of the final document")
	fs.StringVar(&f.style, "style", "", "preview stylesheet name (see --print-config for the assets directory)")

	// Stages
	fs.BoolVar(&f.generateOnly, "generate-only", false, "only insert generated diagram source")
	fs.BoolVar(&f.imagesOnly, "images-only", false, "only convert existing mermaid blocks to images")

	// Backends
	fs.StringVar(&f.provider, "provider", "", "LLM provider: anthropic, openai, gemini")
	fs.StringVar(&f.model, "model", "", "provider model name")
	fs.StringVar(&f.renderer, "renderer", "", "render backend: chrome, mmdc")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-diagram render timeout (e.g., 30s, 2m)")

	// Output control
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
	fs.StringVar(&f.logFile, "log-file", "", "also write JSON logs to a rotating file")
	fs.BoolVar(&f.version, "version", false, "show version information")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")

	fs.Usage = func() { printUsage(w, fs) }

	if err := fs.Parse(expandSingleDashLong(args)); err != nil {
		return nil, nil, err
	}
	f.workersSet = fs.Changed("workers")

	return f, fs.Args(), nil
}

// printUsage prints the usage message followed by the flag defaults.
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: md2diagram <input.md> [imageDir]")
	fmt.Fprintln(w, "       md2diagram --file <input.md> [--image-dir <dir>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate mermaid diagrams from **Name Diagram:** descriptions and")
	fmt.Fprintln(w, "render every mermaid block to PNG.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
