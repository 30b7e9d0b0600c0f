package transcoder

import (
	"math"
	"strconv"
	"strings"
)

// Bitrate is a rate in bits per second.
type Bitrate int64

const (
	Kbps Bitrate = 1000
	Mbps Bitrate = 1000 * Kbps
)

// String formats the rate as an engine token: "5M", "300k" or "1234".
func (b Bitrate) String() string {
	switch {
	case b != 0 && b%Mbps == 0:
		return strconv.FormatInt(int64(b/Mbps), 10) + "M"
	case b != 0 && b%Kbps == 0:
		return strconv.FormatInt(int64(b/Kbps), 10) + "k"
	default:
		return strconv.FormatInt(int64(b), 10)
	}
}

// WholeMbps truncates the rate to whole megabits.
func (b Bitrate) WholeMbps() Bitrate {
	return b / Mbps * Mbps
}

// ParseBitrate accepts tokens such as "20M", "1.5M", "500k" or "800000".
func ParseBitrate(s string) (Bitrate, error) {
	token := strings.TrimSpace(s)
	if token == "" {
		return 0, invalidInput("empty bitrate")
	}
	s = token

	unit := Bitrate(1)
	switch s[len(s)-1] {
	case 'M', 'm':
		unit = Mbps
		s = s[:len(s)-1]
	case 'K', 'k':
		unit = Kbps
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, invalidInput("bitrate %q", token)
	}
	// float64(MaxInt64) rounds up to 2^63, so >= keeps the conversion in range.
	bps := math.Round(v * float64(unit))
	if bps < 1 || bps >= math.MaxInt64 {
		return 0, invalidInput("bitrate %q out of range", token)
	}
	return Bitrate(bps), nil
}
