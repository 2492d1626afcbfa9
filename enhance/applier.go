package enhance

import (
	"math"
	"sort"
)

// Applier applies an adjustment vector to a pixel buffer as a fixed, ordered
// sequence of transform stages. The stage order is part of the contract and
// must not change: exposure, contrast, shadow lift, highlight recovery, face
// relighting, saturation, noise reduction, sharpening.
//
// Apply never mutates its inputs; the returned ApplyResult carries the
// parameters as actually applied (the face relight strength may differ from
// the request when the auto trigger fires or no face regions exist).
type Applier struct {
	tun Tunables
}

// NewApplier builds an applier with the given trigger thresholds.
func NewApplier(tun Tunables) *Applier {
	return &Applier{tun: tun}
}

// Apply runs the transform pipeline and returns the enhanced buffer together
// with the effective parameters. Deterministic: identical inputs always
// produce identical output buffers.
func (ap *Applier) Apply(buf *PixelBuffer, params AdjustmentParameters, regions []FaceRegion) ApplyResult {
	effective := params
	effective.FaceRelightStrength = clampF(params.FaceRelightStrength, 0.0, ap.tun.FaceRelightMax)

	img := toFloat(buf)

	// 1. Exposure: multiply by 2^EV.
	if math.Abs(effective.ExposureAdjustment) > 0.01 {
		multiplier := float32(math.Pow(2.0, effective.ExposureAdjustment))
		for i, v := range img {
			img[i] = clampF32(v*multiplier, 0, 1)
		}
	}

	// 2. Contrast: pivot around middle gray.
	if math.Abs(effective.ContrastAdjustment-1.0) > 0.01 {
		m := float32(effective.ContrastAdjustment)
		for i, v := range img {
			img[i] = clampF32((v-0.5)*m+0.5, 0, 1)
		}
	}

	// 3. Shadow lift: soft mask focused on darker tones; the high exponent
	// limits midtone lift and preserves overall contrast.
	if effective.ShadowLift > 0.01 {
		ap.liftShadows(img, buf.Width, buf.Height, effective.ShadowLift)
	}

	// 4. Highlight recovery, with adaptive recovery added only when prior
	// brightening steps may have pushed bright tones into clipping.
	recovery := effective.HighlightRecovery
	if auto := ap.autoHighlightRecovery(img, effective); auto > recovery {
		recovery = auto
	}
	if recovery > 0.01 {
		ap.recoverHighlights(img, buf.Width, buf.Height, recovery)
	}

	// 5. Local face relighting for backlit portraits.
	if len(regions) > 0 {
		strength := effective.FaceRelightStrength
		if strength < ap.tun.FaceRelightMinTrigger {
			if auto := ap.autoFaceRelightStrength(img, buf.Width, buf.Height, regions); auto > strength {
				strength = auto
			}
		}
		if strength >= ap.tun.FaceRelightMinTrigger {
			effective.FaceRelightStrength = strength
			ap.relightFaces(img, buf.Width, buf.Height, regions, strength)
		} else {
			effective.FaceRelightStrength = 0.0
		}
	} else {
		effective.FaceRelightStrength = 0.0
	}

	// 6. Saturation in HSV space, with optional skin tone protection.
	if math.Abs(effective.SaturationAdjustment-1.0) > 0.01 {
		img = ap.adjustSaturation(img, buf.Width, buf.Height, effective.SaturationAdjustment, effective.SkinToneProtection)
	}

	// 7. Adaptive bilateral noise reduction.
	if effective.NoiseReduction > 0.01 {
		img = ap.reduceNoise(img, buf.Width, buf.Height, effective.NoiseReduction)
	}

	// 8. Unsharp mask sharpening.
	if effective.SharpnessAmount > 0.01 {
		img = ap.sharpen(img, buf.Width, buf.Height, effective.SharpnessAmount)
	}

	return ApplyResult{Buffer: toBuffer(img, buf.Width, buf.Height), EffectiveParams: effective}
}

// liftShadows multiplies dark pixels by a soft, luminance-weighted gain.
func (ap *Applier) liftShadows(img []float32, width, height int, amount float64) {
	lum := luminanceF(img)
	for p := 0; p < len(lum); p++ {
		mask := clamp01((0.55 - float64(lum[p])) / 0.55)
		gain := float32(1.0 + amount*math.Pow(mask, 1.8))
		i := p * 3
		img[i] = clampF32(img[i]*gain, 0, 1)
		img[i+1] = clampF32(img[i+1]*gain, 0, 1)
		img[i+2] = clampF32(img[i+2]*gain, 0, 1)
	}
}

// autoHighlightRecovery estimates additional recovery needed after
// brightening steps. It only arms when exposure, contrast, or shadow lifting
// can push bright tones into clipping.
func (ap *Applier) autoHighlightRecovery(img []float32, params AdjustmentParameters) float64 {
	brightening := params.ExposureAdjustment > 0.0 ||
		params.ContrastAdjustment > 1.0 ||
		params.ShadowLift > 0.0
	if !brightening {
		return 0.0
	}

	clipPct := highlightClippingPercentF(img)
	if clipPct <= ap.tun.AutoHighlightTriggerPercent {
		return 0.0
	}
	auto := ap.tun.AutoHighlightBase + (clipPct-ap.tun.AutoHighlightTriggerPercent)*ap.tun.AutoHighlightSlope
	return clampF(auto, 0.0, ap.tun.AutoHighlightMax)
}

// highlightClippingPercentF estimates highlight clipping on a float image.
func highlightClippingPercentF(img []float32) float64 {
	lum := luminanceF(img)
	threshold := float32(250.0 / 255.0)
	clipped := 0
	for _, v := range lum {
		if v >= threshold {
			clipped++
		}
	}
	return float64(clipped) / float64(len(lum)) * 100.0
}

// recoverHighlights pulls pixels above the knee threshold back toward it.
func (ap *Applier) recoverHighlights(img []float32, width, height int, amount float64) {
	const threshold = 0.7
	lum := luminanceF(img)
	for p := 0; p < len(lum); p++ {
		l := float64(lum[p])
		if l <= threshold {
			continue
		}
		compression := float32(amount * 0.3 * (l - threshold))
		i := p * 3
		img[i] = clampF32(img[i]-compression, 0, 1)
		img[i+1] = clampF32(img[i+1]-compression, 0, 1)
		img[i+2] = clampF32(img[i+2]-compression, 0, 1)
	}
}

// autoFaceRelightStrength estimates a conservative relight strength from the
// luminance gap between face regions and bright scene areas. It handles the
// case where scene-level backlit detection stayed conservative but a face is
// still notably darker than its surroundings.
func (ap *Applier) autoFaceRelightStrength(img []float32, width, height int, regions []FaceRegion) float64 {
	if len(regions) == 0 {
		return 0.0
	}
	lum := luminanceF(img)

	var sceneSum float64
	for _, v := range lum {
		sceneSum += float64(v)
	}
	sceneMean := sceneSum / float64(len(lum))
	brightReference := quantileF(lum, 0.90)

	var faceSum float64
	faceCount := 0
	for _, r := range regions {
		if r.W <= 0 || r.H <= 0 {
			continue
		}
		var sum float64
		for y := r.Y; y < r.Y+r.H && y < height; y++ {
			row := y * width
			for x := r.X; x < r.X+r.W && x < width; x++ {
				sum += float64(lum[row+x])
			}
		}
		faceSum += sum / float64(r.W*r.H)
		faceCount++
	}
	if faceCount == 0 {
		return 0.0
	}
	faceMean := faceSum / float64(faceCount)

	if faceMean >= 0.62 || brightReference < 0.72 {
		return 0.0
	}

	darknessGap := math.Max(0.0, sceneMean-faceMean)
	brightGap := math.Max(0.0, brightReference-faceMean)
	if darknessGap < 0.05 && brightGap < 0.18 {
		return 0.0
	}

	return clampF(0.14+darknessGap*0.9+brightGap*0.35, 0.0, 0.45)
}

// relightFaces boosts an elliptical falloff region around each face,
// weighted toward dark pixels and guarded against already-bright ones.
func (ap *Applier) relightFaces(img []float32, width, height int, regions []FaceRegion, amount float64) {
	mask := make([]float64, width*height)
	covered := false

	for _, r := range regions {
		if r.W < 8 || r.H < 8 {
			continue
		}

		centerX := float64(r.X) + float64(r.W)*0.5
		// Faces sit slightly above the chin line; bias the ellipse center
		// below the rectangle midpoint.
		centerY := float64(r.Y) + float64(r.H)*0.52
		radiusX := math.Max(4.0, float64(r.W)*0.95)
		radiusY := math.Max(4.0, float64(r.H)*1.20)

		left := maxInt(0, int(centerX-radiusX*1.6))
		right := minInt(width, int(centerX+radiusX*1.6))
		top := maxInt(0, int(centerY-radiusY*1.4))
		bottom := minInt(height, int(centerY+radiusY*1.4))
		if left >= right || top >= bottom {
			continue
		}

		for y := top; y < bottom; y++ {
			dy := (float64(y) - centerY) / radiusY
			row := y * width
			for x := left; x < right; x++ {
				dx := (float64(x) - centerX) / radiusX
				falloff := math.Pow(clamp01(1.0-(dx*dx+dy*dy)), 1.5)
				if falloff > mask[row+x] {
					mask[row+x] = falloff
					covered = true
				}
			}
		}
	}
	if !covered {
		return
	}

	lum := luminanceF(img)
	for p := 0; p < len(lum); p++ {
		if mask[p] <= 0 {
			continue
		}
		l := float64(lum[p])
		darkWeight := math.Pow(clamp01((0.75-l)/0.75), 0.8)
		highlightGuard := clamp01((0.95 - l) / 0.2)
		gain := float32(1.0 + amount*mask[p]*darkWeight*highlightGuard*0.9)
		i := p * 3
		img[i] = clampF32(img[i]*gain, 0, 1)
		img[i+1] = clampF32(img[i+1]*gain, 0, 1)
		img[i+2] = clampF32(img[i+2]*gain, 0, 1)
	}
}

// adjustSaturation scales the HSV saturation channel, blending skin-range
// hues halfway back toward the original saturation when protection is on.
func (ap *Applier) adjustSaturation(img []float32, width, height int, multiplier float64, protectSkin bool) []float32 {
	pix := quantize(img)
	hsv := rgbToHSV(pix, width, height)
	if hsv == nil {
		return img
	}

	for i := 0; i < len(hsv); i += 3 {
		original := float64(hsv[i+1])
		scaled := original * multiplier
		if protectSkin && hsv[i] <= 25 {
			// Skin tone hues (0–50° ≈ 0–25 on the OpenCV scale) get half the
			// saturation adjustment.
			scaled = original * (1.0 + (multiplier-1.0)*0.5)
		}
		hsv[i+1] = uint8(clampF(scaled, 0, 255))
	}

	rgb := hsvToRGB(hsv, width, height)
	if rgb == nil {
		return img
	}
	return dequantize(rgb)
}

// reduceNoise applies a bilateral filter whose diameter and sigmas scale
// with the requested amount.
func (ap *Applier) reduceNoise(img []float32, width, height int, amount float64) []float32 {
	pix := quantize(img)
	diameter := int(5 + amount*10)
	sigmaColor := 25 + amount*50
	denoised := bilateralRGB(pix, width, height, diameter, sigmaColor, float64(diameter))
	return dequantize(denoised)
}

// sharpen applies an unsharp mask with a fixed small Gaussian kernel.
func (ap *Applier) sharpen(img []float32, width, height int, amount float64) []float32 {
	pix := quantize(img)
	sharpened := unsharpRGB(pix, width, height, amount)
	return dequantize(sharpened)
}

// toFloat converts a buffer to a float working copy in [0, 1].
func toFloat(buf *PixelBuffer) []float32 {
	img := make([]float32, len(buf.Pix))
	for i, v := range buf.Pix {
		img[i] = float32(v) / 255.0
	}
	return img
}

// toBuffer clamps and requantizes a float image to 8-bit samples.
func toBuffer(img []float32, width, height int) *PixelBuffer {
	out := NewPixelBuffer(width, height)
	copy(out.Pix, quantize(img))
	return out
}

func quantize(img []float32) []uint8 {
	pix := make([]uint8, len(img))
	for i, v := range img {
		pix[i] = uint8(clampF32(v, 0, 1) * 255.0)
	}
	return pix
}

func dequantize(pix []uint8) []float32 {
	img := make([]float32, len(pix))
	for i, v := range pix {
		img[i] = float32(v) / 255.0
	}
	return img
}

// luminanceF computes a float luminance plane from an interleaved RGB image.
func luminanceF(img []float32) []float32 {
	out := make([]float32, len(img)/3)
	for p := range out {
		i := p * 3
		out[p] = 0.299*img[i] + 0.587*img[i+1] + 0.114*img[i+2]
	}
	return out
}

// quantileF returns the linearly interpolated q-quantile of the values.
func quantileF(vals []float32, q float64) float64 {
	sorted := make([]float64, len(vals))
	for i, v := range vals {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
