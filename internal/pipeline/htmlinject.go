package pipeline

import (
	"context"
	"html"
	"strings"
)

// mermaidBootstrap renders every .mermaid element once the library loads.
const mermaidBootstrap = `<script>mermaid.initialize({startOnLoad:true,securityLevel:"strict"});</script>`

// InjectCSS inserts a <style> block before </head>, after <body>, or at
// the start of the document, whichever is found first.
func InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}
	return injectHead(htmlContent, "<style>"+sanitizeCSS(cssContent)+"</style>")
}

// InjectMermaidScript loads mermaid.js from scriptURL when the document
// contains mermaid elements. Documents without any are returned unchanged.
func InjectMermaidScript(ctx context.Context, htmlContent, scriptURL string) string {
	if scriptURL == "" || ctx.Err() != nil || !strings.Contains(htmlContent, `class="mermaid"`) {
		return htmlContent
	}
	tag := `<script src="` + html.EscapeString(scriptURL) + `"></script>` + mermaidBootstrap
	return injectHead(htmlContent, tag)
}

// PreviewDocument dresses a converted document with a preview stylesheet
// and, when needed, the mermaid loader.
func PreviewDocument(ctx context.Context, htmlContent, css, scriptURL string) string {
	htmlContent = InjectCSS(ctx, htmlContent, css)
	return InjectMermaidScript(ctx, htmlContent, scriptURL)
}

func injectHead(htmlContent, block string) string {
	lower := strings.ToLower(htmlContent)

	if idx := strings.Index(lower, "</head>"); idx != -1 {
		return htmlContent[:idx] + block + htmlContent[idx:]
	}

	if idx := strings.Index(lower, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			pos := idx + closeIdx + 1
			return htmlContent[:pos] + block + htmlContent[pos:]
		}
	}

	return block + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
