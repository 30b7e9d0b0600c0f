package transcoder

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner records every invocation and delegates to handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	handler func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.handler == nil {
		return nil, nil
	}
	return f.handler(name, args)
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if name == "" || c.name == name {
			n++
		}
	}
	return n
}

func (f *fakeRunner) ffmpegCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []call
	for _, c := range f.calls {
		if c.name == "ffmpeg" {
			out = append(out, c)
		}
	}
	return out
}

// engineFailure is what a non-zero ffmpeg exit looks like to the core.
func engineFailure(stderr string) error {
	return &ExitError{Code: 1, Stderr: []byte(stderr)}
}

// writeOutput mimics a successful ffmpeg run: the last arg is the output.
func writeOutput(args []string) error {
	return os.WriteFile(args[len(args)-1], []byte("encoded"), 0o644)
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

// argAfter returns the value following flag, or "".
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func isReverse(args []string) bool {
	return strings.Contains(argAfter(args, "-vf"), "reverse")
}

func isConcat(args []string) bool {
	return argAfter(args, "-f") == "concat"
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
