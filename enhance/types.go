// Package enhance implements the photo enhancement core: photometric
// analysis, adjustment parameter generation, and the ordered transform
// pipeline that applies those adjustments to a pixel buffer.
package enhance

// PixelBuffer is a dense H×W×3 buffer of 8-bit samples, row-major, channel
// order R,G,B. It is the only pixel representation crossing the core
// boundary; transforms always produce a new buffer.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8 // len == Width*Height*3
}

// NewPixelBuffer allocates a zeroed buffer. Width and height must be > 0.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	out := &PixelBuffer{Width: b.Width, Height: b.Height, Pix: make([]uint8, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// RGBAt returns the sample triple at (x, y). No bounds checking.
func (b *PixelBuffer) RGBAt(x, y int) (r, g, bl uint8) {
	i := (y*b.Width + x) * 3
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// CaptureMetadata is the typed capture record extracted at the system
// boundary. Absent fields are nil, never zero.
type CaptureMetadata struct {
	ISO                  *int     `json:"iso,omitempty"`
	ExposureTime         *float64 `json:"exposure_time,omitempty"` // seconds
	FNumber              *float64 `json:"f_number,omitempty"`
	ExposureCompensation *float64 `json:"exposure_compensation,omitempty"` // EV
	FlashFired           *bool    `json:"flash_fired,omitempty"`
	SceneType            *string  `json:"scene_type,omitempty"`
	BrightnessValue      *float64 `json:"brightness_value,omitempty"`
	MeteringMode         *string  `json:"metering_mode,omitempty"`
}

// HueRange is a (min, max) hue interval in degrees on a 0–360 scale.
type HueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Metrics is the photometric analysis result for one image. Produced once by
// the Analyzer and immutable afterward.
type Metrics struct {
	ExposureLevel            float64          `json:"exposure_level"`             // EV, [-2, 2]
	ContrastLevel            float64          `json:"contrast_level"`             // [0, 1]
	ShadowClippingPercent    float64          `json:"shadow_clipping_percent"`    // [0, 100]
	HighlightClippingPercent float64          `json:"highlight_clipping_percent"` // [0, 100]
	SaturationLevel          float64          `json:"saturation_level"`           // [0, 2]
	SharpnessScore           float64          `json:"sharpness_score"`            // [0, 1]
	NoiseLevel               float64          `json:"noise_level"`                // [0, 1]
	SkinToneDetected         bool             `json:"skin_tone_detected"`
	SkinToneHueRange         *HueRange        `json:"skin_tone_hue_range,omitempty"`
	IsBacklit                bool             `json:"is_backlit"`
	IsLowLight               bool             `json:"is_low_light"`
	Capture                  *CaptureMetadata `json:"capture_metadata,omitempty"` // carried through, not recomputed
}

// StylePreferences are caller-owned optimization preferences, read-only to
// the core.
type StylePreferences struct {
	NaturalAppearance  bool `json:"natural_appearance"`
	PreserveHighlights bool `json:"preserve_highlights"`
	StableSkinTones    bool `json:"stable_skin_tones"`
	AvoidFilterLook    bool `json:"avoid_filter_look"`
}

// DefaultStylePreferences enables every conservative preference.
func DefaultStylePreferences() StylePreferences {
	return StylePreferences{
		NaturalAppearance:  true,
		PreserveHighlights: true,
		StableSkinTones:    true,
		AvoidFilterLook:    true,
	}
}

// AdjustmentParameters is the bounded adjustment vector consumed by the
// Applier. All fields stay within their declared ranges.
type AdjustmentParameters struct {
	ExposureAdjustment   float64 `json:"exposure_adjustment"`   // EV, [-2, 2]
	ContrastAdjustment   float64 `json:"contrast_adjustment"`   // [0.5, 1.5]
	ShadowLift           float64 `json:"shadow_lift"`           // [0, 1]
	HighlightRecovery    float64 `json:"highlight_recovery"`    // [0, 1]
	SaturationAdjustment float64 `json:"saturation_adjustment"` // [0.5, 1.5]
	SharpnessAmount      float64 `json:"sharpness_amount"`      // [0, 2]
	NoiseReduction       float64 `json:"noise_reduction"`       // [0, 1]
	SkinToneProtection   bool    `json:"skin_tone_protection"`
	FaceRelightStrength  float64 `json:"face_relight_strength"` // [0, 0.6]
}

// NeutralParameters returns the identity adjustment vector.
func NeutralParameters() AdjustmentParameters {
	return AdjustmentParameters{
		ContrastAdjustment:   1.0,
		SaturationAdjustment: 1.0,
	}
}

// FaceRegion is a pixel rectangle within buffer bounds, w and h > 0.
type FaceRegion struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// ApplyResult pairs the enhanced buffer with the parameters as actually
// applied. The applier never mutates the caller's parameter value; callers
// needing the effective face relight strength read it here.
type ApplyResult struct {
	Buffer          *PixelBuffer
	EffectiveParams AdjustmentParameters
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clampF(v, 0.0, 1.0) }

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
