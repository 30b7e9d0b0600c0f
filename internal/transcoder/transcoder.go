package transcoder

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nicolascoutureau/video-utils-hw/internal/metrics"
)

// Task is a caller-facing task identifier.
type Task string

const (
	TaskPreview        Task = "create_preview_video"
	TaskBoomerang      Task = "boomerang"
	TaskReencodeForWeb Task = "reencode_for_web"
)

// Tasks lists every task Process accepts.
var Tasks = []Task{TaskPreview, TaskBoomerang, TaskReencodeForWeb}

// ParseTask maps a task name to a Task or returns ErrUnknownTask.
func ParseTask(name string) (Task, error) {
	for _, t := range Tasks {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, name)
}

// Options configures a Transcoder. Zero values pick ffmpeg/ffprobe from
// PATH, exec-based running, the system temp dir and 360p previews.
type Options struct {
	FFmpegPath     string
	FFprobePath    string
	Runner         Runner
	Temps          TempProvider
	Capabilities   Capabilities
	PreviewVariant PreviewVariant
	Logger         hclog.Logger
}

// Transcoder is the entry point for task and re-encode requests. It holds
// no per-request state and is safe for concurrent use.
type Transcoder struct {
	probe     *MediaProbe
	encoder   *Encoder
	boomerang *Boomerang
	temps     TempProvider
	caps      Capabilities
	preview   PreviewVariant
	logger    hclog.Logger
}

func New(opts Options) *Transcoder {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Temps == nil {
		opts.Temps = TempDir{}
	}
	if opts.PreviewVariant == 0 {
		opts.PreviewVariant = Preview360
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	encoder := NewEncoder(opts.FFmpegPath, opts.Runner, opts.Logger)
	return &Transcoder{
		probe:     NewMediaProbe(opts.FFprobePath, opts.Runner, opts.Logger),
		encoder:   encoder,
		boomerang: NewBoomerang(encoder, opts.Temps, opts.Logger),
		temps:     opts.Temps,
		caps:      opts.Capabilities,
		preview:   opts.PreviewVariant,
		logger:    opts.Logger,
	}
}

// Probe exposes the media probe, mostly for result payloads.
func (t *Transcoder) Probe() *MediaProbe {
	return t.probe
}

// Process runs the named task on input and returns the output artifact.
// An unknown task fails before any probe or encode.
func (t *Transcoder) Process(ctx context.Context, input string, task string) (Artifact, error) {
	tk, err := ParseTask(task)
	if err != nil {
		return Artifact{}, err
	}
	if input == "" {
		return Artifact{}, invalidInput("empty input path")
	}

	start := time.Now()
	art, err := t.dispatch(ctx, input, tk)
	metrics.TaskDuration.WithLabelValues(string(tk)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TasksTotal.WithLabelValues(string(tk), "failed").Inc()
		t.logger.Error("task failed", "task", tk, "input", input, "error", err)
		return Artifact{}, err
	}

	metrics.TasksTotal.WithLabelValues(string(tk), "completed").Inc()
	t.logger.Info("task completed", "task", tk, "input", input, "output", art.Path,
		"elapsed", time.Since(start))
	return art, nil
}

func (t *Transcoder) dispatch(ctx context.Context, input string, task Task) (Artifact, error) {
	switch task {
	case TaskPreview:
		codec := t.probe.Codec(ctx, input)
		return t.encodeSingle(ctx, EncodeRequest{
			Input:      input,
			Trim:       FullLength,
			Params:     DerivePreview(t.preview),
			InputCodec: codec,
		})

	case TaskBoomerang:
		return t.boomerang.Run(ctx, BoomerangRequest{
			Input:      input,
			InputCodec: t.probe.Codec(ctx, input),
			Trim:       FullLength,
			Preset:     DefaultPreset,
			Bitrate:    DefaultBitrate,
			Hardware:   t.caps.HardwareAvailable,
		})

	case TaskReencodeForWeb:
		props := t.probe.Probe(ctx, input)
		return t.encodeSingle(ctx, EncodeRequest{
			Input:      input,
			Trim:       FullLength,
			Params:     DeriveWeb(props, DefaultPreset),
			InputCodec: props.Codec,
		})
	}

	return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownTask, task)
}

// ReencodeOptions are the caller-configurable settings of Reencode.
type ReencodeOptions struct {
	Start   float64
	End     float64
	Preset  string
	Bitrate string
}

// DefaultReencodeOptions re-encodes the whole input at 20M, preset medium.
func DefaultReencodeOptions() ReencodeOptions {
	return ReencodeOptions{
		Start:   0,
		End:     ToEnd,
		Preset:  DefaultPreset,
		Bitrate: DefaultBitrate.String(),
	}
}

// Reencode trims and re-encodes input with caller-chosen settings.
func (t *Transcoder) Reencode(ctx context.Context, input string, opts ReencodeOptions) (Artifact, error) {
	if input == "" {
		return Artifact{}, invalidInput("empty input path")
	}
	if opts.Preset == "" {
		opts.Preset = DefaultPreset
	}
	if opts.Bitrate == "" {
		opts.Bitrate = DefaultBitrate.String()
	}

	trim := TrimWindow{Start: opts.Start, End: opts.End}
	if err := trim.Validate(); err != nil {
		return Artifact{}, err
	}
	if !ValidPreset(opts.Preset) {
		return Artifact{}, invalidInput("preset %q", opts.Preset)
	}
	bitrate, err := ParseBitrate(opts.Bitrate)
	if err != nil {
		return Artifact{}, err
	}

	codec := t.probe.Codec(ctx, input)
	art, err := t.encodeSingle(ctx, EncodeRequest{
		Input:      input,
		Trim:       trim,
		Params:     DeriveStandard(opts.Preset, bitrate),
		InputCodec: codec,
	})
	if err != nil {
		t.logger.Error("re-encoding failed", "input", input, "error", err)
		return Artifact{}, err
	}

	t.logger.Info("re-encoded video", "input", input, "output", art.Path)
	return art, nil
}

// encodeSingle owns one output path and removes it if the encode fails.
func (t *Transcoder) encodeSingle(ctx context.Context, req EncodeRequest) (Artifact, error) {
	output, err := t.temps.NewPath(".mp4")
	if err != nil {
		return Artifact{}, err
	}
	req.Output = output

	art, err := t.encoder.ExecuteWithFallback(ctx, req, t.caps.HardwareAvailable)
	if err != nil {
		removeFile(output, t.logger)
		return Artifact{}, err
	}
	return art, nil
}
