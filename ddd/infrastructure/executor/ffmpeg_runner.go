package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"signage-service/pkg/logger"
)

const stderrTailLines = 30

// FFmpegRunner runs ffmpeg/ffprobe as external processes. On failure the
// last lines of stderr are logged for the operator; the caller receives a
// generic classification so tool diagnostics never leak to clients.
type FFmpegRunner struct {
	timeout time.Duration
}

// NewFFmpegRunner creates a runner; timeout bounds a single invocation and
// zero means no limit.
func NewFFmpegRunner(timeout time.Duration) *FFmpegRunner {
	return &FFmpegRunner{timeout: timeout}
}

// Run executes the binary and returns its stdout.
func (r *FFmpegRunner) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if tail := tailLines(stderr.String(), stderrTailLines); tail != "" {
			logger.Errorf("external tool failed binary=%s elapsed=%s tail_stderr=%s",
				binary, time.Since(start).Round(time.Millisecond), tail)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", binary, ctxErr)
		}
		return nil, fmt.Errorf("%s exited abnormally: %w", binary, err)
	}
	return stdout.Bytes(), nil
}

func tailLines(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
