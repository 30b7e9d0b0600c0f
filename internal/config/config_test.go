package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "nvidia-smi", cfg.GPUProbeTool)
	assert.True(t, cfg.EnableHWAccel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 360, cfg.PreviewHeight)
	assert.Equal(t, 3, cfg.DownloadRetryMax)
	assert.Equal(t, 300, cfg.DownloadTimeout)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := "ffmpeg_path: /opt/ffmpeg/bin/ffmpeg\nenable_hw_accel: false\npreview_height: 480\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("VUHW_LOG_LEVEL", "warn")
	t.Setenv("VUHW_LISTEN_ADDR", "127.0.0.1:9000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.False(t, cfg.EnableHWAccel)
	assert.Equal(t, 480, cfg.PreviewHeight)
	assert.Equal(t, "warn", cfg.LogLevel, "env wins over file")
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Setenv("VUHW_PREVIEW_HEIGHT", "720")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preview_height")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [unterminated\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
