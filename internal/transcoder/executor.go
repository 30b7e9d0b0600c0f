package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner runs an external tool to completion and returns its stdout.
// A non-zero exit is reported as *ExitError carrying the captured stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError is returned when the external tool ran and exited non-zero.
type ExitError struct {
	Code   int
	Stderr []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Diagnostics returns stderr decoded as UTF-8, replacing invalid bytes.
func (e *ExitError) Diagnostics() string {
	return decodeDiagnostics(e.Stderr)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run takes the command and blocks until it exits.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.Bytes(), &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.Bytes()}
		}
		return stdout.Bytes(), fmt.Errorf("%s execution failed: %w", name, err)
	}

	return stdout.Bytes(), nil
}

func decodeDiagnostics(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// excerpt keeps the last n non-empty lines of the diagnostic text.
func excerpt(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			kept = append(kept, l)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, " | ")
}
