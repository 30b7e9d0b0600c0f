package transcoder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/nicolascoutureau/video-utils-hw/internal/metrics"
)

// BoomerangRequest describes one forward-then-reverse render.
type BoomerangRequest struct {
	Input      string
	InputCodec string
	Trim       TrimWindow
	Preset     string
	Bitrate    Bitrate
	Hardware   bool
}

// Boomerang runs trim, reverse and concat in order. Every intermediate
// file is removed before Run returns; only the final output survives.
type Boomerang struct {
	encoder *Encoder
	temps   TempProvider
	logger  hclog.Logger
}

func NewBoomerang(encoder *Encoder, temps TempProvider, logger hclog.Logger) *Boomerang {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Boomerang{
		encoder: encoder,
		temps:   temps,
		logger:  logger.Named("boomerang"),
	}
}

func (b *Boomerang) Run(ctx context.Context, req BoomerangRequest) (Artifact, error) {
	if err := validateBoomerang(req); err != nil {
		return Artifact{}, err
	}

	owned := &artifacts{logger: b.logger}
	defer owned.removeAll()

	params := DeriveStandard(req.Preset, req.Bitrate)

	// 1. Trim the original input.
	trimmed, err := b.newPath(owned, ".mp4")
	if err != nil {
		return Artifact{}, b.fail(StageTrim, err)
	}
	trimReq := EncodeRequest{
		Stage:      StageTrim,
		Input:      req.Input,
		Output:     trimmed,
		Trim:       req.Trim,
		Params:     params,
		InputCodec: req.InputCodec,
	}
	trimArt, err := b.encoder.ExecuteWithFallback(ctx, trimReq, req.Hardware)
	if err != nil {
		return Artifact{}, b.fail(StageTrim, err)
	}

	// 2. Reverse the trimmed clip on the path the trim actually used.
	reversed, err := b.newPath(owned, ".mp4")
	if err != nil {
		return Artifact{}, b.fail(StageReverse, err)
	}
	revArt, err := b.encoder.ExecuteWithFallback(ctx, EncodeRequest{
		Stage:      StageReverse,
		Input:      trimmed,
		Output:     reversed,
		Trim:       FullLength,
		Params:     DeriveReverse(params),
		InputCodec: "h264",
	}, trimArt.Hardware)
	if err != nil {
		return Artifact{}, b.fail(StageReverse, err)
	}

	// Stream copy needs both segments from the same encoder.
	if revArt.Hardware != trimArt.Hardware {
		b.logger.Warn("reverse fell back to software, re-trimming in software", "input", req.Input)
		if _, err := b.encoder.ExecuteWithFallback(ctx, trimReq, false); err != nil {
			return Artifact{}, b.fail(StageTrim, err)
		}
	}

	// 3. Forward segment first, reversed second, joined without re-encoding.
	list, err := b.newPath(owned, ".txt")
	if err != nil {
		return Artifact{}, b.fail(StageConcat, err)
	}
	if err := os.WriteFile(list, []byte(concatList(trimmed, reversed)), 0o644); err != nil {
		return Artifact{}, b.fail(StageConcat, fmt.Errorf("failed to write concat list: %w", err))
	}
	output, err := b.newPath(owned, ".mp4")
	if err != nil {
		return Artifact{}, b.fail(StageConcat, err)
	}
	if _, err := b.encoder.Execute(ctx, BuildConcatPlan(list, output)); err != nil {
		return Artifact{}, b.fail(StageConcat, err)
	}

	owned.keep(output)
	b.logger.Info("boomerang created", "input", req.Input, "output", output)
	return Artifact{Path: output, Hardware: revArt.Hardware}, nil
}

func (b *Boomerang) newPath(owned *artifacts, suffix string) (string, error) {
	p, err := b.temps.NewPath(suffix)
	if err != nil {
		return "", err
	}
	owned.add(p)
	return p, nil
}

func (b *Boomerang) fail(stage Stage, err error) error {
	metrics.PipelineStageFailuresTotal.WithLabelValues(string(stage)).Inc()
	b.logger.Error("boomerang stage failed", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}

func validateBoomerang(req BoomerangRequest) error {
	if req.Input == "" {
		return invalidInput("empty input path")
	}
	if err := req.Trim.Validate(); err != nil {
		return err
	}
	if !ValidPreset(req.Preset) {
		return invalidInput("preset %q is not one of %s", req.Preset, strings.Join(Presets, ", "))
	}
	if req.Bitrate <= 0 {
		return invalidInput("bitrate must be positive")
	}
	return nil
}

// concatList renders an ffmpeg concat demuxer script.
func concatList(paths ...string) string {
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		sb.WriteString("'\n")
	}
	return sb.String()
}
