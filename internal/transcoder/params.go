package transcoder

import "math"

// PreviewVariant is the target height of a preview encode.
type PreviewVariant int

const (
	Preview360 PreviewVariant = 360
	Preview480 PreviewVariant = 480
)

// WebHeightCap is the tallest output the web-delivery mode produces.
const WebHeightCap = 1440

// Fixed settings for the boomerang and single-purpose re-encode paths.
const (
	DefaultPreset  = "medium"
	DefaultBitrate = 20 * Mbps
)

type previewLadder struct {
	bitrate, maxBitrate, audio Bitrate
}

var previewLadders = map[PreviewVariant]previewLadder{
	Preview360: {bitrate: 300 * Kbps, maxBitrate: 400 * Kbps, audio: 64 * Kbps},
	Preview480: {bitrate: 500 * Kbps, maxBitrate: 600 * Kbps, audio: 96 * Kbps},
}

// DerivePreview returns the small, fast-seeking preview settings.
// Unknown variants fall back to 360p.
func DerivePreview(variant PreviewVariant) EncodeParameters {
	ladder, ok := previewLadders[variant]
	if !ok {
		variant = Preview360
		ladder = previewLadders[Preview360]
	}

	return EncodeParameters{
		Scale:            &Dimensions{Width: -2, Height: int(variant)},
		Bitrate:          ladder.bitrate,
		MaxBitrate:       ladder.maxBitrate,
		KeyframeInterval: 30,
		MinKeyframe:      30,
		Preset:           DefaultPreset,
		CRF:              30,
		Profile:          "baseline",
		NoBFrames:        true,
		SceneCutOff:      true,
		FastStart:        true,
		PreviewTuning:    true,
		Audio: AudioParams{
			Codec:      "aac",
			Bitrate:    ladder.audio,
			Channels:   2,
			SampleRate: 44100,
		},
	}
}

type webRung struct {
	minHeight           int
	bitrate, maxBitrate Bitrate
}

// webLadder is ordered tallest first; the last rung catches everything.
var webLadder = []webRung{
	{minHeight: 1440, bitrate: 8 * Mbps, maxBitrate: 12 * Mbps},
	{minHeight: 1080, bitrate: 5 * Mbps, maxBitrate: 8 * Mbps},
	{minHeight: 720, bitrate: 3 * Mbps, maxBitrate: 5 * Mbps},
	{minHeight: 0, bitrate: 2 * Mbps, maxBitrate: 3 * Mbps},
}

// webFloor is the lowest target the web mode will pick from a source bitrate.
const webFloor = 2 * Mbps

// DeriveWeb returns web-delivery settings: height capped at 1440, a bitrate
// ladder keyed on the output height, and a keyframe every two seconds.
func DeriveWeb(props MediaProperties, preset string) EncodeParameters {
	outHeight := props.Height
	var scale *Dimensions
	if props.Height > WebHeightCap {
		outHeight = WebHeightCap
		scale = &Dimensions{
			Width:  evenWidth(props.Width, props.Height, WebHeightCap),
			Height: WebHeightCap,
		}
	}

	bitrate, maxBitrate := ladderFor(outHeight)
	if props.HasBitrate() {
		// Never re-encode above the ladder, but follow a low-bitrate source down.
		if 0.8*float64(props.Bitrate) < float64(bitrate) {
			bitrate = Bitrate(0.8 * float64(props.Bitrate)).WholeMbps()
			if bitrate < webFloor {
				bitrate = webFloor
			}
			maxBitrate = Bitrate(1.5 * float64(bitrate)).WholeMbps()
		}
	}

	fps := props.FrameRate
	if fps <= 0 {
		fps = DefaultFrameRate
	}

	return EncodeParameters{
		Scale:            scale,
		Bitrate:          bitrate,
		MaxBitrate:       maxBitrate,
		KeyframeInterval: int(math.Round(fps * 2)),
		ForceKeyframes:   "expr:gte(t,n_forced*2)",
		Preset:           preset,
		Profile:          "high",
		SceneCutOff:      true,
		FastStart:        true,
		Audio: AudioParams{
			Codec:      "aac",
			Bitrate:    128 * Kbps,
			Channels:   2,
			SampleRate: 48000,
		},
	}
}

// DeriveStandard returns the plain trim/re-encode settings.
func DeriveStandard(preset string, bitrate Bitrate) EncodeParameters {
	return EncodeParameters{
		Bitrate: bitrate,
		Preset:  preset,
		Audio: AudioParams{
			Codec:   "aac",
			Bitrate: 128 * Kbps,
		},
	}
}

// DeriveReverse plays base backwards, video and audio.
func DeriveReverse(base EncodeParameters) EncodeParameters {
	p := base
	p.Scale = nil
	p.VideoFilters = append(append([]string(nil), base.VideoFilters...), "reverse")
	p.AudioFilters = append(append([]string(nil), base.AudioFilters...), "areverse")
	return p
}

func ladderFor(height int) (Bitrate, Bitrate) {
	for _, r := range webLadder {
		if height >= r.minHeight {
			return r.bitrate, r.maxBitrate
		}
	}
	last := webLadder[len(webLadder)-1]
	return last.bitrate, last.maxBitrate
}

// evenWidth scales width to the new height and rounds to the nearest even
// number; hardware encoders reject odd dimensions.
func evenWidth(width, height, newHeight int) int {
	exact := float64(width) * float64(newHeight) / float64(height)
	w := 2 * int(math.Round(exact/2))
	if w < 2 {
		w = 2
	}
	return w
}
