package enhance

// ParamGenerator maps analysis metrics and style preferences to a bounded
// adjustment vector. Generate is a pure function of its inputs.
type ParamGenerator struct {
	tun   Tunables
	style StylePreferences
}

// NewParamGenerator builds a generator for the given style preferences.
func NewParamGenerator(tun Tunables, style StylePreferences) *ParamGenerator {
	return &ParamGenerator{tun: tun, style: style}
}

// Generate derives adjustment parameters from the metric vector.
func (g *ParamGenerator) Generate(m Metrics) AdjustmentParameters {
	return AdjustmentParameters{
		ExposureAdjustment:   g.exposureAdjustment(m),
		ContrastAdjustment:   g.contrastAdjustment(m),
		ShadowLift:           g.shadowLift(m),
		HighlightRecovery:    g.highlightRecovery(m),
		SaturationAdjustment: g.saturationAdjustment(m),
		SharpnessAmount:      g.sharpnessAmount(m),
		NoiseReduction:       g.noiseReduction(m),
		SkinToneProtection:   m.SkinToneDetected && g.style.StableSkinTones,
		FaceRelightStrength:  g.faceRelightStrength(m),
	}
}

// exposureAdjustment corrects toward 0 EV: 50% of the way for natural
// appearance, 80% otherwise.
func (g *ParamGenerator) exposureAdjustment(m Metrics) float64 {
	scale := 0.8
	if g.style.NaturalAppearance {
		scale = 0.5
	}
	return clampF(-m.ExposureLevel*scale, -2.0, 2.0)
}

// contrastAdjustment nudges contrast toward a 0.65 target.
func (g *ParamGenerator) contrastAdjustment(m Metrics) float64 {
	const target = 0.65

	var adjustment float64
	if g.style.NaturalAppearance {
		if m.ContrastLevel < target {
			adjustment = 1.0 + (target-m.ContrastLevel)*0.3
		} else {
			adjustment = 1.0 - (m.ContrastLevel-target)*0.2
		}
	} else {
		if m.ContrastLevel < target {
			adjustment = 1.0 + (target-m.ContrastLevel)*0.5
		} else {
			adjustment = 1.0 - (m.ContrastLevel-target)*0.4
		}
	}
	return clampF(adjustment, 0.5, 1.5)
}

// highlightRecovery is tiered by measured highlight clipping; backlit scenes
// near neutral exposure get a proactive floor since shadow lifting may push
// highlights further.
func (g *ParamGenerator) highlightRecovery(m Metrics) float64 {
	pct := m.HighlightClippingPercent

	if !g.style.PreserveHighlights {
		if pct > 10.0 {
			return 0.3
		}
		return 0.0
	}

	var recovery float64
	switch {
	case pct > 10.0:
		recovery = 0.8 + (pct-10.0)/100.0
	case pct > 5.0:
		recovery = 0.5 + (pct-5.0)/20.0
	case pct > 1.0:
		recovery = 0.2 + (pct-1.0)/20.0
	}

	if m.IsBacklit && m.ExposureLevel > -0.2 && recovery < 0.12 {
		recovery = 0.12
	}
	return clamp01(recovery)
}

// shadowLift combines a clipping-based tier with an independent backlit lift,
// halved when flash fired (flash already lifts the subject).
func (g *ParamGenerator) shadowLift(m Metrics) float64 {
	var base float64
	switch {
	case m.ShadowClippingPercent > 12.0:
		base = 0.4
	case m.ShadowClippingPercent > 6.0:
		base = 0.2
	case m.ShadowClippingPercent > 2.0:
		base = 0.1
	}

	// Backlit scenes still need lift, but avoid globally flattening bright
	// images.
	if m.IsBacklit {
		backlit := 0.18
		if m.ExposureLevel < -0.35 {
			backlit += 0.08
		}
		if m.ShadowClippingPercent > 10.0 {
			backlit += 0.08
		}
		if m.ExposureLevel > 0.2 {
			backlit -= 0.06
		}
		if m.HighlightClippingPercent > 1.0 {
			backlit -= 0.05
		}
		backlit = clampF(backlit, 0.08, 0.32)
		if backlit > base {
			base = backlit
		}
	}

	if m.Capture != nil && m.Capture.FlashFired != nil && *m.Capture.FlashFired {
		base *= 0.5
	}
	if g.style.NaturalAppearance {
		base *= 0.85
	}
	return clamp01(base)
}

// faceRelightStrength activates only for backlit scenes; exposure darkness
// and shadow clipping raise it, highlight clipping pulls it back.
func (g *ParamGenerator) faceRelightStrength(m Metrics) float64 {
	if !m.IsBacklit {
		return 0.0
	}

	strength := 0.18

	switch {
	case m.ExposureLevel < -0.6:
		strength += 0.12
	case m.ExposureLevel < -0.2:
		strength += 0.06
	}

	switch {
	case m.ShadowClippingPercent > 10.0:
		strength += 0.12
	case m.ShadowClippingPercent > 4.0:
		strength += 0.06
	}

	if m.SkinToneDetected {
		strength += 0.04
	}

	switch {
	case m.HighlightClippingPercent > 6.0:
		strength -= 0.08
	case m.HighlightClippingPercent > 2.0:
		strength -= 0.04
	}

	if g.style.NaturalAppearance {
		strength *= 0.85
	}
	return clampF(strength, 0.0, g.tun.FaceRelightMax)
}

// saturationAdjustment nudges toward 1.0 with a scale picked by preference:
// most conservative when protecting detected skin tones.
func (g *ParamGenerator) saturationAdjustment(m Metrics) float64 {
	const target = 1.0

	scale := 0.3
	if m.SkinToneDetected && g.style.StableSkinTones {
		scale = 0.1
	} else if g.style.AvoidFilterLook {
		scale = 0.2
	}

	var adjustment float64
	if m.SaturationLevel < target {
		adjustment = 1.0 + (target-m.SaturationLevel)*scale
	} else {
		adjustment = 1.0 - (m.SaturationLevel-target)*scale
	}
	return clampF(adjustment, 0.5, 1.5)
}

// sharpnessAmount sharpens toward a 0.65 target, halved under heavy noise so
// sharpening does not amplify it.
func (g *ParamGenerator) sharpnessAmount(m Metrics) float64 {
	const target = 0.65

	var amount float64
	if m.SharpnessScore < target {
		amount = (target - m.SharpnessScore) * 2.0
	}
	if m.NoiseLevel > 0.5 {
		amount *= 0.5
	}
	if g.style.NaturalAppearance {
		amount *= 0.7
	}
	return clampF(amount, 0.0, 2.0)
}

// noiseReduction blends measured noise with an ISO tier factor and boosts the
// result for low-light captures.
func (g *ParamGenerator) noiseReduction(m Metrics) float64 {
	reduction := m.NoiseLevel

	if m.Capture != nil && m.Capture.ISO != nil {
		iso := float64(*m.Capture.ISO)
		var isoFactor float64
		switch {
		case iso < 400:
			isoFactor = 0.0
		case iso < 800:
			isoFactor = (iso - 400) / 400 * 0.3
		case iso < 1600:
			isoFactor = 0.3 + (iso-800)/800*0.2
		default:
			isoFactor = 0.5 + minF((iso-1600)/1600*0.4, 0.4)
		}
		reduction = 0.6*m.NoiseLevel + 0.4*isoFactor
	}

	if m.IsLowLight {
		reduction = minF(reduction*1.2, 1.0)
	}
	return clamp01(reduction)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
