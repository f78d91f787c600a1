package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"github.com/alnah/go-md2diagram/internal/assets"
)

// Sentinel errors for page rendering.
var (
	ErrRenderPage = errors.New("render page template failed")
	ErrErrorCard  = errors.New("error card template failed")
)

// Attributes set on <body> by the render page once mermaid has finished.
const (
	RenderedAttr  = "data-rendered"
	RenderedOK    = "ok"
	RenderedError = "error"
	RenderErrAttr = "data-error"
)

// Selectors used by the headless browser to capture the result.
const (
	RenderedSelector = "body[" + RenderedAttr + "]"
	DiagramSelector  = ".mermaid svg"
	CardSelector     = ".card"
)

var (
	renderPageTmpl = template.Must(template.New(assets.RenderTemplateName).Parse(assets.MustLoadTemplate(assets.RenderTemplateName)))
	errorCardTmpl  = template.Must(template.New(assets.CardTemplateName).Parse(assets.MustLoadTemplate(assets.CardTemplateName)))
)

// RenderPage builds the page a headless browser loads to render a single
// mermaid diagram. scriptURL is trusted configuration and may be a file://
// URL.
func RenderPage(source, scriptURL string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		ScriptURL template.URL
		Source    string
	}{
		ScriptURL: template.URL(scriptURL), // #nosec G203 -- configured by the operator
		Source:    source,
	}
	if err := renderPageTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderPage, err)
	}
	return buf.String(), nil
}

// ErrorCard builds a standalone page showing a render failure for title.
func ErrorCard(title, message string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Title, Message string }{Title: title, Message: message}
	if err := errorCardTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrErrorCard, err)
	}
	return buf.String(), nil
}
