package enhance

// Tunables collects every detection threshold and trigger constant used by
// the core. A value is passed to each component at construction and never
// mutated afterward, so tests can override thresholds without touching
// shared state.
type Tunables struct {
	// Analyzer thresholds.
	ShadowClipThreshold    uint8   // luminance at or below counts as shadow clipping
	HighlightClipThreshold uint8   // luminance at or above counts as highlight clipping
	SkinHueMinDeg          float64 // skin tone hue window, degrees
	SkinHueMaxDeg          float64
	SkinSatMin             uint8 // HSV saturation window for skin mask
	SkinSatMax             uint8
	SkinValMin             uint8   // HSV value floor for skin mask
	SkinMinPercent         float64 // skin detected when mask coverage exceeds this
	LowLightLuminance      float64 // mean luminance below this is low-light (with EXIF support)
	VeryDarkLuminance      float64 // mean luminance below this is low-light unconditionally
	HighISOThreshold       int     // ISO above this supports low-light classification
	SlowShutterSeconds     float64 // exposure time above this supports low-light
	BacklitRatio           float64 // edge/center brightness ratio for backlit scenes

	// Applier triggers.
	AutoHighlightTriggerPercent float64 // predicted clip % that arms auto recovery
	AutoHighlightBase           float64
	AutoHighlightSlope          float64
	AutoHighlightMax            float64
	FaceRelightMinTrigger       float64 // strengths below this re-estimate from luminance gaps
	FaceRelightMax              float64

	// Locator fallback detection.
	DetectMaxDimension  int     // longer side is downscaled to at most this before detection
	DetectMinFaceRatio  float64 // min face size as a fraction of the shorter detection side
	DetectMinFacePixels int     // absolute floor for the cascade min size
}

// DefaultTunables returns the production constants.
func DefaultTunables() Tunables {
	return Tunables{
		ShadowClipThreshold:    5,
		HighlightClipThreshold: 250,
		SkinHueMinDeg:          0,
		SkinHueMaxDeg:          50,
		SkinSatMin:             20,
		SkinSatMax:             170,
		SkinValMin:             50,
		SkinMinPercent:         5.0,
		LowLightLuminance:      0.3,
		VeryDarkLuminance:      0.2,
		HighISOThreshold:       800,
		SlowShutterSeconds:     1.0 / 30.0,
		BacklitRatio:           1.5,

		AutoHighlightTriggerPercent: 0.7,
		AutoHighlightBase:           0.10,
		AutoHighlightSlope:          0.04,
		AutoHighlightMax:            0.45,
		FaceRelightMinTrigger:       0.08,
		FaceRelightMax:              0.6,

		DetectMaxDimension:  1280,
		DetectMinFaceRatio:  0.04,
		DetectMinFacePixels: 24,
	}
}
