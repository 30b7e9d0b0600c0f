package transcoder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ffprobeStub answers each query by its -show_entries value.
func ffprobeStub(answers map[string]string, failing ...string) *fakeRunner {
	fail := map[string]bool{}
	for _, f := range failing {
		fail[f] = true
	}
	return &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		entries := argAfter(args, "-show_entries")
		if fail[entries] {
			return nil, engineFailure("Invalid data found when processing input")
		}
		return []byte(answers[entries]), nil
	}}
}

var healthyProbe = map[string]string{
	"stream=codec_name":               "h264\n",
	"stream=r_frame_rate":             "30000/1001\n",
	"stream=width,height":             `{"streams":[{"width":3840,"height":2160}]}`,
	"stream=bit_rate:format=bit_rate": `{"streams":[{"bit_rate":"12000000"}],"format":{"bit_rate":"12500000"}}`,
	"format=duration":                 `{"format":{"duration":"4.000000"}}`,
}

func TestProbe_AllQueriesSucceed(t *testing.T) {
	r := ffprobeStub(healthyProbe)
	p := NewMediaProbe("ffprobe", r, nil)

	props := p.Probe(context.Background(), "in.mp4")

	assert.Equal(t, "h264", props.Codec)
	assert.Equal(t, 3840, props.Width)
	assert.Equal(t, 2160, props.Height)
	assert.InDelta(t, 29.97, props.FrameRate, 0.001)
	assert.Equal(t, Bitrate(12_000_000), props.Bitrate)
	assert.Equal(t, 4, r.count("ffprobe"))
}

func TestProbe_AllQueriesFail(t *testing.T) {
	r := &fakeRunner{handler: func(string, []string) ([]byte, error) {
		return nil, errors.New("ffprobe not found")
	}}
	p := NewMediaProbe("ffprobe", r, nil)

	props := p.Probe(context.Background(), "missing.mp4")

	assert.Equal(t, MediaProperties{
		Codec:     DefaultCodec,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		FrameRate: DefaultFrameRate,
	}, props)
	assert.False(t, props.HasBitrate())
}

func TestProbe_FailuresAreIndependent(t *testing.T) {
	tests := []struct {
		name    string
		failing string
		check   func(t *testing.T, props MediaProperties)
	}{
		{"codec", "stream=codec_name", func(t *testing.T, props MediaProperties) {
			assert.Equal(t, DefaultCodec, props.Codec)
			assert.Equal(t, 3840, props.Width)
		}},
		{"frame rate", "stream=r_frame_rate", func(t *testing.T, props MediaProperties) {
			assert.Equal(t, DefaultFrameRate, props.FrameRate)
			assert.Equal(t, "h264", props.Codec)
		}},
		{"resolution", "stream=width,height", func(t *testing.T, props MediaProperties) {
			assert.Equal(t, DefaultWidth, props.Width)
			assert.Equal(t, DefaultHeight, props.Height)
			assert.Equal(t, Bitrate(12_000_000), props.Bitrate)
		}},
		{"bitrate", "stream=bit_rate:format=bit_rate", func(t *testing.T, props MediaProperties) {
			assert.False(t, props.HasBitrate())
			assert.InDelta(t, 29.97, props.FrameRate, 0.001)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewMediaProbe("ffprobe", ffprobeStub(healthyProbe, tt.failing), nil)
			tt.check(t, p.Probe(context.Background(), "in.mp4"))
		})
	}
}

func TestProbe_MalformedAnswersFallBack(t *testing.T) {
	answers := map[string]string{
		"stream=codec_name":               "\n",
		"stream=r_frame_rate":             "0/0\n",
		"stream=width,height":             `{"streams":[]}`,
		"stream=bit_rate:format=bit_rate": `{"streams":[{"bit_rate":"N/A"}],"format":{"bit_rate":"3500000"}}`,
	}
	p := NewMediaProbe("ffprobe", ffprobeStub(answers), nil)

	props := p.Probe(context.Background(), "in.mkv")

	assert.Equal(t, DefaultCodec, props.Codec)
	assert.Equal(t, DefaultFrameRate, props.FrameRate)
	assert.Equal(t, DefaultWidth, props.Width)
	assert.Equal(t, DefaultHeight, props.Height)
	assert.Equal(t, Bitrate(3_500_000), props.Bitrate, "container bitrate is the fallback")
}

func TestProbe_QueryArguments(t *testing.T) {
	r := ffprobeStub(healthyProbe)
	p := NewMediaProbe("/usr/bin/ffprobe", r, nil)

	p.Codec(context.Background(), "clip.mp4")

	require.Len(t, r.calls, 1)
	assert.Equal(t, "/usr/bin/ffprobe", r.calls[0].name)
	assert.Equal(t, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"clip.mp4",
	}, r.calls[0].args)
}

func TestProbeDuration(t *testing.T) {
	p := NewMediaProbe("ffprobe", ffprobeStub(healthyProbe), nil)

	d, err := p.Duration(context.Background(), "in.mp4")
	require.NoError(t, err)
	assert.Equal(t, 4.0, d)

	p = NewMediaProbe("ffprobe", ffprobeStub(healthyProbe, "format=duration"), nil)
	_, err = p.Duration(context.Background(), "in.mp4")
	require.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "30", want: 30},
		{in: "29.97", want: 29.97},
		{in: "30000/1001", want: 30000.0 / 1001.0},
		{in: "25/1", want: 25},
		{in: " 24/1\n", want: 24},
		{in: "30/0", wantErr: true},
		{in: "0/0", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "N/A", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFrameRate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
