package enhance

// Pipeline wires the analyzer, parameter generator, region locator, and
// applier into the full analyze → generate → apply sequence for one image.
// A Pipeline is safe for concurrent use across images as long as its
// detector is; workers that rely on a stateful detector should own one
// Pipeline each.
type Pipeline struct {
	analyzer  *Analyzer
	generator *ParamGenerator
	locator   *RegionLocator
	applier   *Applier
}

// Result bundles everything downstream collaborators persist: the enhanced
// buffer, the measured metrics, and the parameters as actually applied.
type Result struct {
	Buffer  *PixelBuffer
	Metrics Metrics
	Params  AdjustmentParameters
}

// NewPipeline builds a pipeline from shared tunables, caller style
// preferences, and a detection capability (NopDetector when unavailable).
func NewPipeline(tun Tunables, style StylePreferences, detector Detector) *Pipeline {
	return &Pipeline{
		analyzer:  NewAnalyzer(tun),
		generator: NewParamGenerator(tun, style),
		locator:   NewRegionLocator(tun, detector),
		applier:   NewApplier(tun),
	}
}

// Enhance runs the full pipeline on a decoded buffer. capture and xmp are
// optional; nil degrades gracefully (no metadata-informed metrics, no
// embedded face regions).
func (p *Pipeline) Enhance(buf *PixelBuffer, capture *CaptureMetadata, xmp []byte) Result {
	metrics := p.analyzer.Analyze(buf, capture)
	params := p.generator.Generate(metrics)
	regions := p.locator.Locate(buf, xmp)
	applied := p.applier.Apply(buf, params, regions)

	return Result{
		Buffer:  applied.Buffer,
		Metrics: metrics,
		Params:  applied.EffectiveParams,
	}
}
