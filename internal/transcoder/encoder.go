package transcoder

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nicolascoutureau/video-utils-hw/internal/metrics"
)

// Encoder runs encode plans through ffmpeg. Hardware availability is
// passed per call; the Encoder itself holds no state between requests.
type Encoder struct {
	ffmpegPath string
	runner     Runner
	logger     hclog.Logger
}

func NewEncoder(ffmpegPath string, runner Runner, logger hclog.Logger) *Encoder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Encoder{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		logger:     logger.Named("encoder"),
	}
}

// Execute runs a single plan. Failures are returned as *EncodeError.
func (e *Encoder) Execute(ctx context.Context, plan EncodePlan) (Artifact, error) {
	path := pathLabel(plan.UsesHardware)
	start := time.Now()

	e.logger.Debug("running ffmpeg", "stage", plan.Stage, "path", path, "args", plan.Args)
	_, err := e.runner.Run(ctx, e.ffmpegPath, plan.Args...)
	metrics.EncodeDuration.WithLabelValues(string(plan.Stage), path).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EncodeAttemptsTotal.WithLabelValues(string(plan.Stage), path, "failure").Inc()
		encErr := &EncodeError{Stage: plan.Stage, Hardware: plan.UsesHardware, Err: err}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			encErr.Diagnostics = exitErr.Diagnostics()
		}
		return Artifact{}, encErr
	}

	metrics.EncodeAttemptsTotal.WithLabelValues(string(plan.Stage), path, "success").Inc()
	return Artifact{Path: plan.OutputPath, Hardware: plan.UsesHardware}, nil
}

// ExecuteWithFallback tries the hardware plan when hardware is available
// and, if ffmpeg exits non-zero, runs the software plan once. Invalid
// requests are rejected before any engine call and are never retried.
func (e *Encoder) ExecuteWithFallback(ctx context.Context, req EncodeRequest, hardwareAvailable bool) (Artifact, error) {
	if hardwareAvailable {
		plan, err := BuildPlan(req, true)
		if err != nil {
			return Artifact{}, err
		}

		art, err := e.Execute(ctx, plan)
		if err == nil {
			return art, nil
		}
		if !isEngineExit(err) {
			return Artifact{}, err
		}

		metrics.HardwareFallbacksTotal.WithLabelValues(string(plan.Stage)).Inc()
		e.logger.Warn("hardware encoding failed, falling back to software",
			"stage", plan.Stage, "input", req.Input, "error", err)
	}

	plan, err := BuildPlan(req, false)
	if err != nil {
		return Artifact{}, err
	}
	return e.Execute(ctx, plan)
}

func isEngineExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

func pathLabel(hardware bool) string {
	if hardware {
		return "hardware"
	}
	return "software"
}
