package transcoder

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildPlan assembles the engine arguments for one attempt of req on the
// hardware or the software path.
func BuildPlan(req EncodeRequest, useHardware bool) (EncodePlan, error) {
	if err := validateRequest(req); err != nil {
		return EncodePlan{}, err
	}

	p := req.Params
	c := SelectCapability(useHardware, req.InputCodec)
	if c.Name == capCUDA.Name && len(p.VideoFilters) > 0 {
		// Software filters need decoded frames in system memory.
		c = capNVENC
	}

	args := preamble()

	// 1. Decoder and trim, before the input so seeking happens on input.
	args = append(args, c.DecodeArgs...)
	if req.Trim.Start != 0 {
		args = append(args, "-ss", formatSeconds(req.Trim.Start))
	}
	if req.Trim.End != ToEnd {
		args = append(args, "-to", formatSeconds(req.Trim.End))
	}
	args = append(args, "-i", req.Input)

	// 2. Filter chains.
	var vf []string
	if p.Scale != nil {
		vf = append(vf, fmt.Sprintf("%s=%d:%d", c.ScaleFilter, p.Scale.Width, p.Scale.Height))
	}
	vf = append(vf, p.VideoFilters...)
	if len(vf) > 0 {
		args = append(args, "-vf", strings.Join(vf, ","))
	}
	if len(p.AudioFilters) > 0 {
		args = append(args, "-af", strings.Join(p.AudioFilters, ","))
	}

	// 3. Video encoder.
	args = append(args, videoArgs(c, p)...)

	// 4. Audio and container.
	args = append(args, audioArgs(p.Audio)...)
	if p.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, req.Output)

	return EncodePlan{
		Stage:        stageOf(req),
		Args:         args,
		UsesHardware: c.Hardware,
		InputPath:    req.Input,
		OutputPath:   req.Output,
	}, nil
}

// BuildConcatPlan joins the files listed in listPath by stream copy.
func BuildConcatPlan(listPath, output string) EncodePlan {
	args := preamble()
	args = append(args,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	)
	return EncodePlan{
		Stage:      StageConcat,
		Args:       args,
		InputPath:  listPath,
		OutputPath: output,
	}
}

func preamble() []string {
	return []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
}

func videoArgs(c Capability, p EncodeParameters) []string {
	args := []string{"-c:v", c.Encoder, "-preset", c.Preset(p.Preset)}

	if c.Encoder == CodecNVENC {
		if p.PreviewTuning {
			args = append(args,
				"-tune", "hq",
				"-rc", "vbr",
				"-rc-lookahead", "20",
				"-spatial_aq", "1",
				"-temporal_aq", "1",
			)
		}
	} else if p.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(p.CRF))
	}

	if p.Profile != "" {
		args = append(args, "-profile:v", p.Profile)
	}

	args = append(args, "-b:v", p.Bitrate.String())
	if p.MaxBitrate > 0 {
		args = append(args,
			"-maxrate", p.MaxBitrate.String(),
			"-bufsize", p.BufferSize().String(),
		)
	}

	if p.KeyframeInterval > 0 {
		args = append(args, "-g", strconv.Itoa(p.KeyframeInterval))
	}
	if c.Encoder == CodecSoftware {
		if p.MinKeyframe > 0 {
			args = append(args, "-keyint_min", strconv.Itoa(p.MinKeyframe))
		}
		if p.SceneCutOff {
			args = append(args, "-sc_threshold", "0")
		}
	}
	if p.NoBFrames {
		args = append(args, "-bf", "0")
	}

	if p.ForceKeyframes != "" {
		args = append(args, "-force_key_frames", p.ForceKeyframes)
		if c.Encoder == CodecNVENC {
			args = append(args, "-forced-idr", "1")
		}
	}

	return args
}

func audioArgs(a AudioParams) []string {
	codec := a.Codec
	if codec == "" {
		codec = "aac"
	}
	args := []string{"-c:a", codec}
	if a.Bitrate > 0 {
		args = append(args, "-b:a", a.Bitrate.String())
	}
	if a.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(a.Channels))
	}
	if a.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(a.SampleRate))
	}
	return args
}

func validateRequest(req EncodeRequest) error {
	if req.Input == "" {
		return invalidInput("empty input path")
	}
	if req.Output == "" {
		return invalidInput("empty output path")
	}
	if err := req.Trim.Validate(); err != nil {
		return err
	}
	if !ValidPreset(req.Params.Preset) {
		return invalidInput("preset %q is not one of %s", req.Params.Preset, strings.Join(Presets, ", "))
	}
	if req.Params.Bitrate <= 0 {
		return invalidInput("bitrate must be positive")
	}
	return nil
}

func stageOf(req EncodeRequest) Stage {
	if req.Stage == "" {
		return StageEncode
	}
	return req.Stage
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
