package md2diagram

import "errors"

// Sentinel errors for library operations.
var (
	// Generation errors.
	ErrNoGenerator     = errors.New("no diagram generator configured")
	ErrGeneration      = errors.New("diagram generation failed")
	ErrNoDiagramSource = errors.New("response contains no mermaid code block")

	// Splicing errors.
	ErrAnchorNotFound = errors.New("anchor text not found in document")

	// Rendering errors.
	ErrNoRenderer        = errors.New("no diagram renderer configured")
	ErrRenderFailed      = errors.New("diagram rendering failed")
	ErrFallbackExhausted = errors.New("all fallback image strategies failed")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrPageCreate        = errors.New("failed to create browser page")
	ErrPageLoad          = errors.New("failed to load page")
	ErrScreenshot        = errors.New("failed to capture screenshot")
	ErrMermaidCLI        = errors.New("mermaid-cli failed")
	ErrPoolClosed        = errors.New("renderer pool is closed")
)
