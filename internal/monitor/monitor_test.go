package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicolascoutureau/video-utils-hw/internal/transcoder"
)

const encodersOutput = `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 V....D hevc_nvenc           NVIDIA NVENC hevc encoder (codec hevc)
 V....D h264_vaapi           H.264/AVC (VAAPI) (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
`

type stubRunner struct {
	answers map[string]string
	fail    map[string]bool
	calls   []string
}

func (s *stubRunner) Run(ctx context.Context, name string, _ ...string) ([]byte, error) {
	s.calls = append(s.calls, name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fail[name] {
		return nil, &transcoder.ExitError{Code: 9}
	}
	if out, ok := s.answers[name]; ok {
		return []byte(out), nil
	}
	return nil, errors.New("executable file not found in $PATH")
}

func TestCapabilities_HardwareDetected(t *testing.T) {
	r := &stubRunner{answers: map[string]string{
		"nvidia-smi": "NVIDIA L40S\nNVIDIA L40S\n",
		"ffmpeg":     encodersOutput,
	}}
	m := NewSystemMonitor(Options{Runner: r})

	caps := m.Capabilities(context.Background())
	assert.True(t, caps.HardwareAvailable)
	assert.Equal(t, "NVIDIA L40S", caps.GPUName)
	assert.Equal(t, []string{"nvenc", "vaapi"}, m.Accelerators(context.Background()))

	m.Capabilities(context.Background())
	assert.Equal(t, []string{"nvidia-smi", "ffmpeg"}, r.calls, "detection runs once")
}

func TestCapabilities_CancelledCallerContext(t *testing.T) {
	r := &stubRunner{answers: map[string]string{
		"nvidia-smi": "NVIDIA L40S\n",
		"ffmpeg":     encodersOutput,
	}}
	m := NewSystemMonitor(Options{Runner: r})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	caps := m.Capabilities(ctx)
	assert.True(t, caps.HardwareAvailable, "detection outlives the first caller")
	assert.True(t, m.Capabilities(context.Background()).HardwareAvailable)
}

func TestCapabilities_NoGPU(t *testing.T) {
	r := &stubRunner{answers: map[string]string{"ffmpeg": encodersOutput}}
	m := NewSystemMonitor(Options{Runner: r})

	caps := m.Capabilities(context.Background())
	assert.False(t, caps.HardwareAvailable)
	assert.Equal(t, []string{"nvidia-smi"}, r.calls, "ffmpeg is not consulted without a GPU")
}

func TestCapabilities_FFmpegWithoutNVENC(t *testing.T) {
	r := &stubRunner{answers: map[string]string{
		"nvidia-smi": "Tesla T4\n",
		"ffmpeg":     " V....D libx264   libx264 H.264\n",
	}}
	m := NewSystemMonitor(Options{Runner: r})

	assert.False(t, m.Capabilities(context.Background()).HardwareAvailable)
}

func TestCapabilities_GPUToolFails(t *testing.T) {
	r := &stubRunner{
		answers: map[string]string{"nvidia-smi": "", "ffmpeg": encodersOutput},
		fail:    map[string]bool{"nvidia-smi": true},
	}
	m := NewSystemMonitor(Options{Runner: r})

	assert.False(t, m.Capabilities(context.Background()).HardwareAvailable)
}

func TestCapabilities_Disabled(t *testing.T) {
	r := &stubRunner{answers: map[string]string{"nvidia-smi": "A100\n", "ffmpeg": encodersOutput}}
	m := NewSystemMonitor(Options{Runner: r, Disabled: true})

	assert.False(t, m.Capabilities(context.Background()).HardwareAvailable)
	assert.Empty(t, r.calls)
}

func TestCapabilities_CustomTools(t *testing.T) {
	r := &stubRunner{answers: map[string]string{
		"/usr/local/bin/nvidia-smi": "A10G\n",
		"/opt/ffmpeg":               encodersOutput,
	}}
	m := NewSystemMonitor(Options{Runner: r, FFmpegPath: "/opt/ffmpeg", GPUProbeTool: "/usr/local/bin/nvidia-smi"})

	assert.True(t, m.Capabilities(context.Background()).HardwareAvailable)
}

func TestParseEncoders(t *testing.T) {
	assert.Equal(t, []string{"nvenc", "vaapi"}, parseEncoders(encodersOutput))
	assert.Equal(t, []string{"qsv", "v4l2m2m"}, parseEncoders("h264_qsv\nh264_v4l2m2m\n"))
	assert.Empty(t, parseEncoders("libx264"))
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(50, 50))
	assert.True(t, isBusy(80.5, 10))
	assert.True(t, isBusy(10, 90.1))
	assert.False(t, isBusy(80, 90))
}
