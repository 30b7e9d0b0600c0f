package transcoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitrateString(t *testing.T) {
	tests := []struct {
		in   Bitrate
		want string
	}{
		{20 * Mbps, "20M"},
		{300 * Kbps, "300k"},
		{1500 * Kbps, "1500k"},
		{128 * Kbps, "128k"},
		{1234, "1234"},
		{0, "0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}

func TestBitrateWholeMbps(t *testing.T) {
	assert.Equal(t, 4*Mbps, Bitrate(4_960_000).WholeMbps())
	assert.Equal(t, 2*Mbps, (2 * Mbps).WholeMbps())
	assert.Equal(t, Bitrate(0), Bitrate(999_999).WholeMbps())
}

func TestParseBitrate(t *testing.T) {
	tests := []struct {
		in      string
		want    Bitrate
		wantErr bool
	}{
		{in: "20M", want: 20 * Mbps},
		{in: "1.5M", want: 1500 * Kbps},
		{in: "500k", want: 500 * Kbps},
		{in: "500K", want: 500 * Kbps},
		{in: " 8m ", want: 8 * Mbps},
		{in: "800000", want: 800 * Kbps},
		{in: "", wantErr: true},
		{in: "M", wantErr: true},
		{in: "fast", wantErr: true},
		{in: "-3M", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "-Inf", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "1e30M", wantErr: true},
		{in: "9223372036854775807", wantErr: true},
		{in: "0.0001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBitrate(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
