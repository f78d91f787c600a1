package md2diagram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/go-md2diagram/internal/fileutil"
	"github.com/alnah/go-md2diagram/internal/process"
)

// mmdcWaitDelay bounds how long output pipes may stay open after a kill.
const mmdcWaitDelay = 2 * time.Second

// MermaidCLIRenderer renders diagrams by running mermaid-cli.
type MermaidCLIRenderer struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// Compile-time interface check.
var _ RenderCloser = (*MermaidCLIRenderer)(nil)

// NewMermaidCLIRenderer creates a renderer running command (for example
// "npx mmdc") with -i/-o arguments appended. A nil logger discards output.
func NewMermaidCLIRenderer(command string, timeout time.Duration, logger *slog.Logger) *MermaidCLIRenderer {
	if logger == nil {
		logger = discardLogger()
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &MermaidCLIRenderer{command: strings.Fields(command), timeout: timeout, logger: logger}
}

// Render writes source to a temp .mmd file and converts it to outputPath.
// The command runs in its own process group, killed when ctx ends or the
// timeout expires.
func (r *MermaidCLIRenderer) Render(ctx context.Context, source, outputPath string) error {
	if len(r.command) == 0 {
		return fmt.Errorf("%w: empty command", ErrMermaidCLI)
	}

	inPath, cleanup, err := fileutil.WriteTempFile(source, "mmd")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMermaidCLI, err)
	}
	defer removeTemp(r.logger, cleanup)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), "-i", inPath, "-o", outputPath, "-b", "white")
	cmd := exec.CommandContext(ctx, r.command[0], args...) // #nosec G204 -- command comes from configuration
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = mmdcWaitDelay

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Debug("running mermaid-cli", "command", strings.Join(r.command, " "), "output", outputPath)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrMermaidCLI, ctxErr)
		}
		return fmt.Errorf("%w: %v: %s", ErrMermaidCLI, err, lastLine(out.String()))
	}
	return nil
}

// Close is a no-op: every render runs and reaps its own process.
func (r *MermaidCLIRenderer) Close() error { return nil }

// lastLine returns the last non-empty line of s, where mmdc puts its error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no output"
}
