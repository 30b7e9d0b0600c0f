// Package logging builds the hclog loggers used across the worker.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// New returns a named logger writing to stderr. Unknown levels fall back
// to info.
func New(name, level string, json bool) hclog.Logger {
	return NewWithOutput(name, level, json, os.Stderr)
}

func NewWithOutput(name, level string, json bool, out io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      lvl,
		Output:     out,
		JSONFormat: json,
	})
}
