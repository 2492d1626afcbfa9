package enhance

import (
	"image"
	"log"

	"gocv.io/x/gocv"
)

// Detector locates candidate face rectangles on an 8-bit grayscale plane.
// Implementations must be safe for sequential reuse; a detector instance is
// expected to be owned by a single worker.
type Detector interface {
	// Detect returns face rectangles in plane coordinates. minSize is the
	// smallest face side, in pixels, worth reporting.
	Detect(gray []uint8, width, height, minSize int) []FaceRegion
	Close()
}

// CascadeDetector runs an OpenCV Haar cascade. A detector that fails to load
// stays disabled and reports no faces rather than erroring.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	Enabled    bool
}

// NewCascadeDetector loads the cascade model at the given path. An empty path
// or a failed load yields a disabled detector.
func NewCascadeDetector(cascadePath string) *CascadeDetector {
	if cascadePath == "" {
		log.Println("detector(cascade): cascade path is empty, disabling face detection")
		return &CascadeDetector{Enabled: false}
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		log.Printf("detector(cascade): ERROR loading cascade model: %s", cascadePath)
		classifier.Close()
		return &CascadeDetector{Enabled: false}
	}

	log.Printf("detector(cascade): loaded cascade model from %s", cascadePath)
	return &CascadeDetector{classifier: classifier, Enabled: true}
}

// Detect runs the cascade over the grayscale plane.
func (d *CascadeDetector) Detect(gray []uint8, width, height, minSize int) []FaceRegion {
	if d == nil || !d.Enabled {
		return nil
	}
	mat, ok := matFromGray(gray, width, height)
	if !ok {
		return nil
	}
	defer mat.Close()

	rects := d.classifier.DetectMultiScaleWithParams(
		mat, 1.1, 5, 0,
		image.Pt(minSize, minSize), image.Pt(0, 0),
	)

	regions := make([]FaceRegion, 0, len(rects))
	for _, r := range rects {
		w, h := r.Dx(), r.Dy()
		if w <= 0 || h <= 0 {
			continue
		}
		regions = append(regions, FaceRegion{X: r.Min.X, Y: r.Min.Y, W: w, H: h})
	}
	return regions
}

// Close releases the underlying classifier.
func (d *CascadeDetector) Close() {
	if d != nil && d.Enabled {
		d.classifier.Close()
		d.Enabled = false
	}
}

// NopDetector is the null detection capability: it reports no faces, which
// degrades the pipeline to metadata-only face relighting.
type NopDetector struct{}

// Detect always returns nil.
func (NopDetector) Detect(gray []uint8, width, height, minSize int) []FaceRegion { return nil }

// Close is a no-op.
func (NopDetector) Close() {}
