package transcoder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// TempProvider hands out fresh, uniquely named paths. The caller owns the
// returned path and must remove it unless it is returned as final output.
type TempProvider interface {
	NewPath(suffix string) (string, error)
}

// TempDir creates paths with os.CreateTemp in Dir (os.TempDir when empty).
// Returned paths are absolute even when Dir is relative.
type TempDir struct {
	Dir string
}

func (t TempDir) NewPath(suffix string) (string, error) {
	f, err := os.CreateTemp(t.Dir, "vuhw-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to resolve temp file: %w", err)
	}
	return abs, nil
}

// artifacts tracks the paths a pipeline owns so each is removed exactly once.
type artifacts struct {
	paths  []string
	logger hclog.Logger
}

func (a *artifacts) add(path string) {
	a.paths = append(a.paths, path)
}

// keep drops path from the set; it survives removeAll.
func (a *artifacts) keep(path string) {
	for i, p := range a.paths {
		if p == path {
			a.paths = append(a.paths[:i], a.paths[i+1:]...)
			return
		}
	}
}

func (a *artifacts) removeAll() {
	for _, p := range a.paths {
		removeFile(p, a.logger)
	}
	a.paths = nil
}

func removeFile(path string, logger hclog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove temp file", "path", path, "error", err)
	}
}
