package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nicolascoutureau/video-utils-hw/internal/transcoder"
	"github.com/nicolascoutureau/video-utils-hw/pkg/models"
)

// detectTimeout bounds the one-off detection commands.
const detectTimeout = 30 * time.Second

// Options configures a SystemMonitor.
type Options struct {
	FFmpegPath   string
	GPUProbeTool string
	// Disabled skips detection; the worker then runs software only.
	Disabled bool
	Runner   transcoder.Runner
	Logger   hclog.Logger
}

type SystemMonitor struct {
	ffmpegPath string
	gpuTool    string
	disabled   bool
	runner     transcoder.Runner
	logger     hclog.Logger

	once  sync.Once
	caps  transcoder.Capabilities
	accel []string
}

func NewSystemMonitor(opts Options) *SystemMonitor {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.GPUProbeTool == "" {
		opts.GPUProbeTool = "nvidia-smi"
	}
	if opts.Runner == nil {
		opts.Runner = transcoder.ExecRunner{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &SystemMonitor{
		ffmpegPath: opts.FFmpegPath,
		gpuTool:    opts.GPUProbeTool,
		disabled:   opts.Disabled,
		runner:     opts.Runner,
		logger:     opts.Logger.Named("monitor"),
	}
}

// Capabilities runs detection once; hardware does not change at runtime.
func (m *SystemMonitor) Capabilities(ctx context.Context) transcoder.Capabilities {
	m.once.Do(func() { m.runDetect(ctx) })
	return m.caps
}

// Accelerators lists the hardware encoder families ffmpeg reported.
func (m *SystemMonitor) Accelerators(ctx context.Context) []string {
	m.once.Do(func() { m.runDetect(ctx) })
	return append([]string(nil), m.accel...)
}

// runDetect detaches from the caller's cancellation. The result is cached
// for the process lifetime, so one cancelled request must not decide it.
func (m *SystemMonitor) runDetect(ctx context.Context) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detectTimeout)
	defer cancel()
	m.detect(dctx)
}

// detect requires both a working GPU probe tool and an NVENC encoder in
// ffmpeg. Either one alone is not enough to run the hardware path.
func (m *SystemMonitor) detect(ctx context.Context) {
	if m.disabled {
		m.logger.Info("hardware acceleration disabled by configuration")
		return
	}

	out, err := m.runner.Run(ctx, m.gpuTool, "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		m.logger.Info("no NVIDIA GPU detected, using software encoding", "tool", m.gpuTool, "error", err)
		return
	}
	gpu := firstLine(string(out))

	out, err = m.runner.Run(ctx, m.ffmpegPath, "-hide_banner", "-encoders")
	if err != nil {
		m.logger.Warn("ffmpeg encoder check failed, using software encoding", "error", err)
		return
	}
	m.accel = parseEncoders(string(out))

	for _, a := range m.accel {
		if a == "nvenc" {
			m.caps = transcoder.Capabilities{HardwareAvailable: true, GPUName: gpu}
			m.logger.Info("NVIDIA GPU detected, using hardware acceleration", "gpu", gpu)
			return
		}
	}
	m.logger.Warn("GPU present but ffmpeg has no NVENC encoder, using software encoding", "gpu", gpu)
}

// parseEncoders maps `ffmpeg -encoders` output to accelerator families.
func parseEncoders(output string) []string {
	var accel []string
	if strings.Contains(output, "h264_nvenc") || strings.Contains(output, "hevc_nvenc") {
		accel = append(accel, "nvenc")
	}
	if strings.Contains(output, "h264_qsv") {
		accel = append(accel, "qsv")
	}
	if strings.Contains(output, "h264_vaapi") {
		accel = append(accel, "vaapi")
	}
	if strings.Contains(output, "h264_v4l2m2m") {
		accel = append(accel, "v4l2m2m")
	}
	return accel
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// GetStats gathers real-time CPU and RAM usage.
func (m *SystemMonitor) GetStats(ctx context.Context) (models.SystemHealth, error) {
	stats := models.SystemHealth{Status: "ok"}

	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get mem stats: %w", err)
	}
	stats.RAMPercent = v.UsedPercent
	stats.RAMFreeBytes = v.Available

	// A short sample is more accurate than the instantaneous value.
	cpuPct, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false)
	if err != nil {
		return stats, fmt.Errorf("failed to get cpu stats: %w", err)
	}
	if len(cpuPct) > 0 {
		stats.CPUUsage = cpuPct[0]
	}

	stats.IsBusy = isBusy(stats.CPUUsage, stats.RAMPercent)
	if stats.IsBusy {
		stats.Status = "busy"
	}
	return stats, nil
}

func isBusy(cpuPct, ramPct float64) bool {
	return cpuPct > 80.0 || ramPct > 90.0
}

// StaticSpecs reports the immutable host description.
func (m *SystemMonitor) StaticSpecs(ctx context.Context) (models.StaticHardware, error) {
	caps := m.Capabilities(ctx)
	specs := models.StaticHardware{
		GPUName:              caps.GPUName,
		HardwareAcceleration: m.Accelerators(ctx),
	}
	if caps.HardwareAvailable {
		specs.HardwareAcceleration = append(specs.HardwareAcceleration, "cuda")
	}
	for _, t := range transcoder.Tasks {
		specs.Tasks = append(specs.Tasks, string(t))
	}

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return specs, fmt.Errorf("failed to get cpu info: %w", err)
	}
	if len(infos) > 0 {
		specs.CPUModel = infos[0].ModelName
	}

	threads, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return specs, fmt.Errorf("failed to count cpu threads: %w", err)
	}
	specs.TotalThreads = threads
	return specs, nil
}
