package transcoder

// Encoder and decoder names passed to ffmpeg.
const (
	CodecNVENC    = "h264_nvenc"
	CodecSoftware = "libx264"
	DecoderCUVID  = "h264_cuvid"
)

// Capability is the set of engine choices for one plan: how the input is
// decoded, which encoder runs and which scale filter variant is used.
// It is selected once per plan by SelectCapability.
type Capability struct {
	Name        string
	Hardware    bool
	DecodeArgs  []string
	Encoder     string
	ScaleFilter string
}

var (
	capCUDA = Capability{
		Name:        "cuda",
		Hardware:    true,
		DecodeArgs:  []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda", "-c:v", DecoderCUVID},
		Encoder:     CodecNVENC,
		ScaleFilter: "scale_cuda",
	}
	capNVENC = Capability{
		Name:        "nvenc",
		Hardware:    true,
		Encoder:     CodecNVENC,
		ScaleFilter: "scale",
	}
	capSoftware = Capability{
		Name:        "software",
		Encoder:     CodecSoftware,
		ScaleFilter: "scale",
	}
)

// SelectCapability picks the decoder, encoder and scale filter for a plan.
// The CUDA decoder only handles h264, so any other input is decoded (and
// scaled) in software even when the NVENC encoder is used.
func SelectCapability(useHardware bool, inputCodec string) Capability {
	switch {
	case !useHardware:
		return capSoftware
	case inputCodec == "h264":
		return capCUDA
	default:
		return capNVENC
	}
}

// Presets is the ordered set of accepted encoder presets, fastest first.
var Presets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// nvencPresets maps the x264 preset names onto the NVENC p1..p7 scale.
var nvencPresets = map[string]string{
	"ultrafast": "p1",
	"superfast": "p1",
	"veryfast":  "p2",
	"faster":    "p3",
	"fast":      "p3",
	"medium":    "p4",
	"slow":      "p5",
	"slower":    "p6",
	"veryslow":  "p7",
}

// ValidPreset reports whether p is one of Presets.
func ValidPreset(p string) bool {
	_, ok := nvencPresets[p]
	return ok
}

// Preset returns the preset argument for this capability's encoder.
func (c Capability) Preset(p string) string {
	if c.Encoder == CodecNVENC {
		if mapped, ok := nvencPresets[p]; ok {
			return mapped
		}
	}
	return p
}

// Capabilities describes what the local encoder stack can do. It is
// computed once by the caller (see internal/monitor) and passed in.
type Capabilities struct {
	HardwareAvailable bool
	GPUName           string
}
