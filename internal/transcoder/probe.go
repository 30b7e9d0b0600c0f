package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// MediaProbe asks ffprobe about an input. Each property is queried on its
// own so one failing query only defaults that field.
type MediaProbe struct {
	probePath string
	runner    Runner
	logger    hclog.Logger
}

func NewMediaProbe(probePath string, runner Runner, logger hclog.Logger) *MediaProbe {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MediaProbe{
		probePath: probePath,
		runner:    runner,
		logger:    logger.Named("probe"),
	}
}

// Probe never fails: any query that errors is replaced by its default.
func (p *MediaProbe) Probe(ctx context.Context, path string) MediaProperties {
	props := MediaProperties{
		Codec:     p.Codec(ctx, path),
		FrameRate: p.frameRate(ctx, path),
		Bitrate:   p.bitrate(ctx, path),
	}
	props.Width, props.Height = p.resolution(ctx, path)

	p.logger.Debug("probed input", "path", path, "codec", props.Codec,
		"width", props.Width, "height", props.Height,
		"fps", props.FrameRate, "bitrate", props.Bitrate)
	return props
}

// Codec returns the first video stream's codec name, or DefaultCodec.
func (p *MediaProbe) Codec(ctx context.Context, path string) string {
	out, err := p.query(ctx, path, "stream=codec_name", "default=noprint_wrappers=1:nokey=1")
	codec := strings.TrimSpace(string(out))
	if err != nil || codec == "" {
		p.degraded("codec", path, err)
		return DefaultCodec
	}
	return codec
}

func (p *MediaProbe) frameRate(ctx context.Context, path string) float64 {
	out, err := p.query(ctx, path, "stream=r_frame_rate", "default=noprint_wrappers=1:nokey=1")
	if err == nil {
		var fps float64
		if fps, err = parseFrameRate(string(out)); err == nil {
			return fps
		}
	}
	p.degraded("frame_rate", path, err)
	return DefaultFrameRate
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	BitRate string `json:"bit_rate"`
}

type ffprobeFormat struct {
	BitRate  string `json:"bit_rate"`
	Duration string `json:"duration"`
}

func (p *MediaProbe) resolution(ctx context.Context, path string) (int, int) {
	res, err := p.queryJSON(ctx, path, "stream=width,height")
	if err == nil && len(res.Streams) > 0 && res.Streams[0].Width > 0 && res.Streams[0].Height > 0 {
		return res.Streams[0].Width, res.Streams[0].Height
	}
	if err == nil {
		err = fmt.Errorf("no dimensions reported")
	}
	p.degraded("resolution", path, err)
	return DefaultWidth, DefaultHeight
}

// bitrate prefers the video stream's rate, falling back to the container's.
func (p *MediaProbe) bitrate(ctx context.Context, path string) Bitrate {
	res, err := p.queryJSON(ctx, path, "stream=bit_rate:format=bit_rate")
	if err == nil {
		if len(res.Streams) > 0 {
			if b := parseBitrateField(res.Streams[0].BitRate); b > 0 {
				return b
			}
		}
		if b := parseBitrateField(res.Format.BitRate); b > 0 {
			return b
		}
		err = fmt.Errorf("no bitrate reported")
	}
	p.degraded("bitrate", path, err)
	return 0
}

// Duration returns the container duration in seconds.
func (p *MediaProbe) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.runner.Run(ctx, p.probePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}

	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}

	return strconv.ParseFloat(strings.TrimSpace(res.Format.Duration), 64)
}

func (p *MediaProbe) query(ctx context.Context, path, entries, format string) ([]byte, error) {
	return p.runner.Run(ctx, p.probePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", entries,
		"-of", format,
		path,
	)
}

func (p *MediaProbe) queryJSON(ctx context.Context, path, entries string) (*ffprobeOutput, error) {
	out, err := p.query(ctx, path, entries, "json")
	if err != nil {
		return nil, err
	}
	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("parse ffprobe json: %w", err)
	}
	return &res, nil
}

func (p *MediaProbe) degraded(field, path string, err error) {
	p.logger.Warn("probe query failed, using default", "field", field, "path", path, "error", err)
}

// parseFrameRate accepts "29.97" as well as "30000/1001".
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty frame rate")
	}

	var fps float64
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate %q: %w", s, err)
		}
		if d == 0 {
			return 0, fmt.Errorf("frame rate %q: zero denominator", s)
		}
		fps = n / d
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate %q: %w", s, err)
		}
		fps = v
	}

	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0, fmt.Errorf("frame rate %q is not positive", s)
	}
	return fps, nil
}

func parseBitrateField(s string) Bitrate {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return Bitrate(n)
}
