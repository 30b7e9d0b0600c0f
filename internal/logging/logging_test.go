package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("worker", "debug", true, &buf)

	logger.Named("encoder").Debug("running ffmpeg", "stage", "trim")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "worker.encoder", line["@module"])
	assert.Equal(t, "running ffmpeg", line["@message"])
	assert.Equal(t, "trim", line["stage"])
}

func TestNewWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("worker", "warn", false, &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithOutput_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("worker", "chatty", false, &buf)

	assert.True(t, logger.IsInfo())
	assert.False(t, logger.IsDebug())
}
