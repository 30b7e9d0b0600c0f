package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the settings for the worker.
type Config struct {
	FFmpegPath       string `mapstructure:"ffmpeg_path"`
	FFprobePath      string `mapstructure:"ffprobe_path"`
	GPUProbeTool     string `mapstructure:"gpu_probe_tool"`
	TempDir          string `mapstructure:"temp_dir"`
	EnableHWAccel    bool   `mapstructure:"enable_hw_accel"`
	LogLevel         string `mapstructure:"log_level"`
	LogJSON          bool   `mapstructure:"log_json"`
	ListenAddr       string `mapstructure:"listen_addr"`
	PreviewHeight    int    `mapstructure:"preview_height"`
	DownloadRetryMax int    `mapstructure:"download_retry_max"`
	DownloadTimeout  int    `mapstructure:"download_timeout_seconds"`
}

// EnvPrefix is prepended to every environment override, e.g. VUHW_LOG_LEVEL.
const EnvPrefix = "VUHW"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("gpu_probe_tool", "nvidia-smi")
	v.SetDefault("temp_dir", "")
	v.SetDefault("enable_hw_accel", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("preview_height", 360)
	v.SetDefault("download_retry_max", 3)
	v.SetDefault("download_timeout_seconds", 300)
}

// LoadConfig merges defaults, an optional YAML file and VUHW_* env vars.
// An empty path or a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			if !isMissingFile(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the worker cannot start with.
func (c *Config) Validate() error {
	if c.PreviewHeight != 360 && c.PreviewHeight != 480 {
		return fmt.Errorf("preview_height must be 360 or 480, got %d", c.PreviewHeight)
	}
	if c.DownloadRetryMax < 0 {
		return fmt.Errorf("download_retry_max must not be negative")
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout_seconds must be positive")
	}
	return nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
