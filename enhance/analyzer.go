package enhance

import (
	"math"
)

// Analyzer computes the photometric metric vector for a pixel buffer.
// Analyze is pure and deterministic: every intermediate value is clamped, so
// there is no failure path for any buffer satisfying the PixelBuffer
// invariant.
type Analyzer struct {
	tun Tunables
}

// NewAnalyzer builds an analyzer with the given thresholds.
func NewAnalyzer(tun Tunables) *Analyzer {
	return &Analyzer{tun: tun}
}

// Analyze measures the buffer and returns the full metric vector. The capture
// metadata, when present, informs the exposure, noise, and low-light metrics
// and is carried through on the result unmodified.
func (a *Analyzer) Analyze(buf *PixelBuffer, capture *CaptureMetadata) Metrics {
	lum := luminancePlane(buf)

	shadowPct, highlightPct := a.clippingPercent(lum)
	skinDetected, skinRange := a.detectSkinTones(buf)

	return Metrics{
		ExposureLevel:            a.exposureLevel(lum, capture),
		ContrastLevel:            a.contrastLevel(lum),
		ShadowClippingPercent:    shadowPct,
		HighlightClippingPercent: highlightPct,
		SaturationLevel:          a.saturationLevel(buf),
		SharpnessScore:           a.sharpnessScore(buf, lum),
		NoiseLevel:               a.noiseLevel(lum, buf.Width, buf.Height, capture),
		SkinToneDetected:         skinDetected,
		SkinToneHueRange:         skinRange,
		IsBacklit:                a.detectBacklit(lum, buf.Width, buf.Height),
		IsLowLight:               a.detectLowLight(lum, capture),
		Capture:                  capture,
	}
}

// luminancePlane converts the buffer to an 8-bit luminance plane using the
// Rec.601 weights 0.299R + 0.587G + 0.114B, rounded to nearest.
func luminancePlane(buf *PixelBuffer) []uint8 {
	out := make([]uint8, buf.Width*buf.Height)
	for i := range out {
		p := i * 3
		v := 0.299*float64(buf.Pix[p]) + 0.587*float64(buf.Pix[p+1]) + 0.114*float64(buf.Pix[p+2])
		out[i] = uint8(v + 0.5)
	}
	return out
}

// exposureLevel estimates exposure in EV from the weighted mean of the
// middle (25th–75th cumulative percentile) of the luminance histogram,
// ignoring extreme shadows and highlights.
func (a *Analyzer) exposureLevel(lum []uint8, capture *CaptureMetadata) float64 {
	var hist [256]float64
	for _, v := range lum {
		hist[v]++
	}
	total := float64(len(lum))
	for i := range hist {
		hist[i] /= total
	}

	// First bins where the cumulative distribution reaches 25% and 75%.
	lowerIdx, upperIdx := 255, 255
	cum := 0.0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		if lowerIdx == 255 && cum >= 0.25 {
			lowerIdx = i
		}
		if cum >= 0.75 {
			upperIdx = i
			break
		}
	}
	if lowerIdx > upperIdx {
		lowerIdx = upperIdx
	}

	var weightSum, weighted float64
	for i := lowerIdx; i <= upperIdx; i++ {
		weightSum += hist[i]
		weighted += float64(i) * hist[i]
	}

	var meanLum float64
	if weightSum > 0 {
		meanLum = weighted / weightSum / 255.0
	} else {
		var sum float64
		for _, v := range lum {
			sum += float64(v)
		}
		meanLum = sum / total / 255.0
	}

	// Target is middle gray; each EV stop doubles or halves brightness.
	ev := -2.0
	if meanLum > 0 {
		ev = math.Log2(meanLum / 0.5)
	}
	if capture != nil && capture.ExposureCompensation != nil {
		ev += *capture.ExposureCompensation
	}
	return clampF(ev, -2.0, 2.0)
}

// contrastLevel is the standard deviation of luminance normalized by 128.
func (a *Analyzer) contrastLevel(lum []uint8) float64 {
	return clamp01(stdDev8(lum) / 128.0)
}

// clippingPercent reports shadow and highlight clipping percentages.
func (a *Analyzer) clippingPercent(lum []uint8) (shadowPct, highlightPct float64) {
	var shadow, highlight int
	for _, v := range lum {
		if v <= a.tun.ShadowClipThreshold {
			shadow++
		}
		if v >= a.tun.HighlightClipThreshold {
			highlight++
		}
	}
	total := float64(len(lum))
	return float64(shadow) / total * 100.0, float64(highlight) / total * 100.0
}

// saturationLevel is the mean HSV saturation scaled so 1.0 is normal.
func (a *Analyzer) saturationLevel(buf *PixelBuffer) float64 {
	hsv := rgbToHSV(buf.Pix, buf.Width, buf.Height)
	if hsv == nil {
		return 1.0
	}
	var sum float64
	for i := 1; i < len(hsv); i += 3 {
		sum += float64(hsv[i])
	}
	mean := sum / float64(buf.Width*buf.Height) / 255.0
	return clampF(mean*2.0, 0.0, 2.0)
}

// sharpnessScore is the Laplacian variance of luminance normalized by 1000.
func (a *Analyzer) sharpnessScore(buf *PixelBuffer, lum []uint8) float64 {
	return clamp01(laplacianVariance(lum, buf.Width, buf.Height) / 1000.0)
}

// noiseLevel estimates noise from the high-pass residual of a 5×5 Gaussian
// blur, blended with an ISO-derived factor when capture metadata carries one.
func (a *Analyzer) noiseLevel(lum []uint8, width, height int, capture *CaptureMetadata) float64 {
	plane := make([]float32, len(lum))
	for i, v := range lum {
		plane[i] = float32(v)
	}
	blurred := gaussianBlurF32(plane, width, height, 5)

	var sum float64
	for i := range plane {
		sum += float64(plane[i] - blurred[i])
	}
	mean := sum / float64(len(plane))
	var variance float64
	for i := range plane {
		d := float64(plane[i]-blurred[i]) - mean
		variance += d * d
	}
	measured := math.Sqrt(variance/float64(len(plane))) / 20.0

	level := measured
	if capture != nil && capture.ISO != nil {
		isoFactor := math.Min(float64(*capture.ISO)/3200.0, 1.0)
		level = 0.6*measured + 0.4*isoFactor
	}
	return clamp01(level)
}

// detectSkinTones masks pixels in the skin hue/saturation/value window and
// reports whether coverage exceeds the detection threshold, along with the
// observed hue range in degrees.
func (a *Analyzer) detectSkinTones(buf *PixelBuffer) (bool, *HueRange) {
	hsv := rgbToHSV(buf.Pix, buf.Width, buf.Height)
	if hsv == nil {
		return false, nil
	}

	hueMinCV := uint8(a.tun.SkinHueMinDeg * 179.0 / 360.0)
	hueMaxCV := uint8(a.tun.SkinHueMaxDeg * 179.0 / 360.0)

	matches := 0
	minHue, maxHue := uint8(255), uint8(0)
	for i := 0; i < len(hsv); i += 3 {
		h, s, v := hsv[i], hsv[i+1], hsv[i+2]
		if h < hueMinCV || h > hueMaxCV {
			continue
		}
		if s < a.tun.SkinSatMin || s > a.tun.SkinSatMax || v < a.tun.SkinValMin {
			continue
		}
		matches++
		if h < minHue {
			minHue = h
		}
		if h > maxHue {
			maxHue = h
		}
	}

	total := float64(buf.Width * buf.Height)
	if float64(matches)/total*100.0 <= a.tun.SkinMinPercent || matches == 0 {
		return false, nil
	}
	return true, &HueRange{
		Min: float64(minHue) * 360.0 / 179.0,
		Max: float64(maxHue) * 360.0 / 179.0,
	}
}

// detectBacklit compares the mean luminance of the central 40%×40% region
// against the mean of four 20%-thick edge strips.
func (a *Analyzer) detectBacklit(lum []uint8, width, height int) bool {
	centerTop, centerBottom := int(float64(height)*0.3), int(float64(height)*0.7)
	centerLeft, centerRight := int(float64(width)*0.3), int(float64(width)*0.7)
	edgeThickness := int(float64(minInt(width, height)) * 0.2)
	if edgeThickness < 1 || centerBottom <= centerTop || centerRight <= centerLeft {
		return false
	}

	center := regionMean(lum, width, centerLeft, centerTop, centerRight, centerBottom)
	top := regionMean(lum, width, 0, 0, width, edgeThickness)
	bottom := regionMean(lum, width, 0, height-edgeThickness, width, height)
	left := regionMean(lum, width, 0, 0, edgeThickness, height)
	right := regionMean(lum, width, width-edgeThickness, 0, width, height)
	edge := (top + bottom + left + right) / 4.0

	if edge <= 0 {
		return false
	}
	return edge/(center+1e-6) > a.tun.BacklitRatio
}

// detectLowLight combines mean luminance with ISO and shutter speed hints.
func (a *Analyzer) detectLowLight(lum []uint8, capture *CaptureMetadata) bool {
	var sum float64
	for _, v := range lum {
		sum += float64(v)
	}
	meanLum := sum / float64(len(lum)) / 255.0

	if meanLum < a.tun.VeryDarkLuminance {
		return true
	}
	if meanLum >= a.tun.LowLightLuminance {
		return false
	}

	highISO := capture != nil && capture.ISO != nil && *capture.ISO > a.tun.HighISOThreshold
	slowShutter := capture != nil && capture.ExposureTime != nil && *capture.ExposureTime > a.tun.SlowShutterSeconds
	return highISO || slowShutter
}

func regionMean(lum []uint8, stride, left, top, right, bottom int) float64 {
	var sum float64
	count := 0
	for y := top; y < bottom; y++ {
		row := y * stride
		for x := left; x < right; x++ {
			sum += float64(lum[row+x])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func stdDev8(vals []uint8) float64 {
	var sum float64
	for _, v := range vals {
		sum += float64(v)
	}
	mean := sum / float64(len(vals))
	var variance float64
	for _, v := range vals {
		d := float64(v) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(vals)))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
