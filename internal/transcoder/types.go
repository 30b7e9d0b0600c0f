package transcoder

// Stage names one step of an encode. Single-stage tasks use StageEncode.
type Stage string

const (
	StageEncode  Stage = "encode"
	StageTrim    Stage = "trim"
	StageReverse Stage = "reverse"
	StageConcat  Stage = "concat"
)

// MediaProperties is what MediaProbe learned about an input.
// Bitrate is zero when the probe could not determine it.
type MediaProperties struct {
	Codec     string
	Width     int
	Height    int
	FrameRate float64
	Bitrate   Bitrate
}

// HasBitrate reports whether the bitrate was probed.
func (m MediaProperties) HasBitrate() bool {
	return m.Bitrate > 0
}

// Defaults substituted field by field when a probe query fails.
const (
	DefaultCodec     = "unknown"
	DefaultFrameRate = 30.0
	DefaultWidth     = 1920
	DefaultHeight    = 1080
)

// ToEnd is the TrimWindow.End value meaning "until the end of the input".
const ToEnd = -1

// TrimWindow selects a time range of the input in seconds.
type TrimWindow struct {
	Start float64
	End   float64
}

// FullLength is the default window: the whole input.
var FullLength = TrimWindow{Start: 0, End: ToEnd}

// Validate checks Start >= 0 and Start < End unless End is ToEnd.
func (w TrimWindow) Validate() error {
	if w.Start < 0 {
		return invalidInput("trim start %v is negative", w.Start)
	}
	if w.End != ToEnd && w.End <= w.Start {
		return invalidInput("trim end %v must be after start %v", w.End, w.Start)
	}
	return nil
}

// Dimensions of a scale target. A Width of -2 lets the filter keep the
// aspect ratio with an even width.
type Dimensions struct {
	Width  int
	Height int
}

// AudioParams controls the output audio stream. Zero Channels or
// SampleRate keeps the source value.
type AudioParams struct {
	Codec      string
	Bitrate    Bitrate
	Channels   int
	SampleRate int
}

// EncodeParameters are the derived settings for one encode.
type EncodeParameters struct {
	Scale            *Dimensions
	Bitrate          Bitrate
	MaxBitrate       Bitrate
	KeyframeInterval int
	MinKeyframe      int
	ForceKeyframes   string
	Preset           string
	CRF              int
	Profile          string
	NoBFrames        bool
	SceneCutOff      bool
	FastStart        bool
	// PreviewTuning enables the NVENC quality block used for previews.
	PreviewTuning bool
	VideoFilters  []string
	AudioFilters  []string
	Audio         AudioParams
}

// BufferSize is the VBV buffer: twice the max bitrate.
func (p EncodeParameters) BufferSize() Bitrate {
	return 2 * p.MaxBitrate
}

// EncodeRequest is one logical encode, before a path is chosen.
type EncodeRequest struct {
	Stage      Stage
	Input      string
	Output     string
	Trim       TrimWindow
	Params     EncodeParameters
	InputCodec string
}

// EncodePlan is the argument list for one engine invocation.
type EncodePlan struct {
	Stage        Stage
	Args         []string
	UsesHardware bool
	InputPath    string
	OutputPath   string
}

// Artifact is a file produced by an encode.
type Artifact struct {
	Path string
	// Hardware reports whether the hardware path produced it.
	Hardware bool
}
