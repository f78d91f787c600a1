package md2diagram

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Generator produces mermaid source for a diagram description.
// Implementations must be safe for concurrent use when the pipeline runs
// with more than one worker.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationRequest is the input of one generation call.
type GenerationRequest struct {
	Title       string
	Description string
	Context     string
}

// GenerationResult is the parsed output of one generation call.
type GenerationResult struct {
	Source      string // Mermaid source without fences
	Explanation string // Prose following the code block, may be empty
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (GenerationResult, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return f(ctx, req)
}

// Compile-time interface check.
var _ Generator = GeneratorFunc(nil)

// maxPromptContext caps the context passed to the model.
const maxPromptContext = 2000

var responseBlock = regexp.MustCompile("(?s)```mermaid[ \t]*\r?\n(.*?)```")

// BuildPrompt returns the prompt sent to the model for req.
func BuildPrompt(req GenerationRequest) string {
	ctxText := req.Context
	if len(ctxText) > maxPromptContext {
		cut := maxPromptContext
		for cut > 0 && !utf8.RuneStart(ctxText[cut]) {
			cut--
		}
		ctxText = ctxText[:cut]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Can you create the requested diagram at the end of the paragraph that starts with \"**%s**:\" with Mermaid?\n\n", req.Title)
	fmt.Fprintf(&b, "Here's the description: %q\n\n", req.Description)
	b.WriteString("Context from the section:\n")
	b.WriteString(ctxText)
	b.WriteString("...\n\n")
	b.WriteString("Please return ONLY a valid Mermaid diagram code block that visualizes this concept. ")
	b.WriteString("The response should be structured as follows:\n")
	b.WriteString("```mermaid\n// Your diagram code here\n```\n")
	return b.String()
}

// ParseResponse extracts the first mermaid block from a model response.
// The source is trimmed and formatted; prose after the block becomes the
// explanation.
func ParseResponse(text string) (GenerationResult, error) {
	m := responseBlock.FindStringSubmatchIndex(text)
	if m == nil {
		return GenerationResult{}, ErrNoDiagramSource
	}

	source := FormatSource(strings.TrimSpace(text[m[2]:m[3]]))
	if source == "" {
		return GenerationResult{}, fmt.Errorf("%w: empty code block", ErrNoDiagramSource)
	}

	return GenerationResult{
		Source:      source,
		Explanation: strings.TrimSpace(text[m[1]:]),
	}, nil
}
