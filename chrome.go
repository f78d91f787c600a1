package md2diagram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-md2diagram/internal/fileutil"
	"github.com/alnah/go-md2diagram/internal/pipeline"
	"github.com/alnah/go-md2diagram/internal/process"
)

// imageFileMode is used for every image written by the renderers.
const imageFileMode = 0o644

// ChromeRenderer renders diagrams with mermaid.js in headless Chrome.
// Rod downloads Chromium on first run if no browser is found.
// The browser starts lazily on the first render.
type ChromeRenderer struct {
	scriptURL string
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// Compile-time interface checks.
var (
	_ RenderCloser = (*ChromeRenderer)(nil)
	_ CardCapture  = (*ChromeRenderer)(nil)
)

// NewChromeRenderer creates a renderer loading mermaid.js from scriptURL.
// A nil logger discards output.
func NewChromeRenderer(scriptURL string, timeout time.Duration, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = discardLogger()
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{scriptURL: scriptURL, timeout: timeout, logger: logger}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *ChromeRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher = l
	r.browser = browser
	r.logger.Debug("browser started", "pid", l.PID())
	return browser, nil
}

// Render draws source with mermaid.js and writes a PNG screenshot of the
// resulting SVG to outputPath.
func (r *ChromeRenderer) Render(ctx context.Context, source, outputPath string) error {
	html, err := pipeline.RenderPage(source, r.scriptURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return r.capture(ctx, html, outputPath, true)
}

// RenderCard screenshots an HTML error card for title to outputPath.
func (r *ChromeRenderer) RenderCard(ctx context.Context, title, message, outputPath string) error {
	html, err := pipeline.ErrorCard(title, message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return r.capture(ctx, html, outputPath, false)
}

// capture loads html from a temp file and screenshots the diagram or card.
// When waitMermaid is set, the page must report a successful render first.
func (r *ChromeRenderer) capture(ctx context.Context, html, outputPath string, waitMermaid bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(html, "html")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer removeTemp(r.logger, cleanup)

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	// Wait with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}
	p := page.Context(ctx).Timeout(timeout)

	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	selector := pipeline.CardSelector
	if waitMermaid {
		if err := checkRendered(p); err != nil {
			return err
		}
		selector = pipeline.DiagramSelector
	}

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrScreenshot, selector, err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScreenshot, err)
	}

	if err := os.WriteFile(outputPath, png, imageFileMode); err != nil { // #nosec G306 -- images are meant to be shared
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return nil
}

// checkRendered waits for the render page to flag its body and turns a
// mermaid parse error into ErrRenderFailed.
func checkRendered(p *rod.Page) error {
	body, err := p.Element(pipeline.RenderedSelector)
	if err != nil {
		return fmt.Errorf("%w: waiting for mermaid: %v", ErrRenderFailed, err)
	}
	state, err := body.Attribute(pipeline.RenderedAttr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if state != nil && *state == pipeline.RenderedOK {
		return nil
	}

	reason := "unknown mermaid error"
	if msg, err := body.Attribute(pipeline.RenderErrAttr); err == nil && msg != nil && *msg != "" {
		reason = *msg
	}
	return fmt.Errorf("%w: %s", ErrRenderFailed, reason)
}

// Close stops the browser and its child processes.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	pid := r.launcher.PID()
	r.launcher.Kill()
	if pid > 0 {
		process.KillProcessGroup(pid)
	}
	r.browser = nil
	r.launcher = nil
	return err
}
