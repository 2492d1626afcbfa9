package enhance

import (
	"encoding/xml"
	"strconv"
)

// stAreaNS is the namespace carrying normalized face area attributes in
// embedded region metadata (MWG regions).
const stAreaNS = "http://ns.adobe.com/xmp/sType/Area#"

// RegionLocator produces face rectangles for a buffer, preferring regions
// embedded in XMP metadata and falling back to the injected detector only
// when the metadata yields none.
type RegionLocator struct {
	tun      Tunables
	detector Detector
}

// NewRegionLocator builds a locator around the given detector. Pass a
// NopDetector when no detection capability is available; the locator then
// degrades to metadata-only operation.
func NewRegionLocator(tun Tunables, detector Detector) *RegionLocator {
	if detector == nil {
		detector = NopDetector{}
	}
	return &RegionLocator{tun: tun, detector: detector}
}

// Locate returns the face regions for the buffer. Embedded metadata always
// wins: the detector is never invoked when the XMP payload yields at least
// one region. Malformed metadata is treated as absent, never as an error.
func (l *RegionLocator) Locate(buf *PixelBuffer, xmp []byte) []FaceRegion {
	if regions := l.embeddedRegions(xmp, buf.Width, buf.Height); len(regions) > 0 {
		return regions
	}
	return l.detectRegions(buf)
}

// xmpNode is a schema-free XML element used to walk arbitrary region
// payloads without committing to one tool's exact nesting.
type xmpNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmpNode  `xml:",any"`
}

// embeddedRegions parses every rdf:li area record in the payload into pixel
// rectangles, deduplicated by exact equality with first-seen order kept.
// Unparseable or incomplete records are skipped silently.
func (l *RegionLocator) embeddedRegions(xmp []byte, width, height int) []FaceRegion {
	if len(xmp) == 0 {
		return nil
	}
	var root xmpNode
	if err := xml.Unmarshal(xmp, &root); err != nil {
		return nil
	}

	var regions []FaceRegion
	collectLiRegions(&root, width, height, &regions)

	seen := make(map[FaceRegion]bool, len(regions))
	deduped := regions[:0]
	for _, r := range regions {
		if seen[r] {
			continue
		}
		seen[r] = true
		deduped = append(deduped, r)
	}
	return deduped
}

func collectLiRegions(node *xmpNode, width, height int, out *[]FaceRegion) {
	if node.XMLName.Local == "li" {
		// A record's attributes may sit on the li element itself or on a
		// nested Area element.
		candidates := [][]xml.Attr{node.Attrs}
		collectAreaAttrs(node, &candidates)
		for _, attrs := range candidates {
			if region, ok := parseAreaAttrs(attrs, width, height); ok {
				*out = append(*out, region)
			}
		}
	}
	for i := range node.Children {
		collectLiRegions(&node.Children[i], width, height, out)
	}
}

func collectAreaAttrs(node *xmpNode, out *[][]xml.Attr) {
	for i := range node.Children {
		child := &node.Children[i]
		if child.XMLName.Local == "Area" {
			*out = append(*out, child.Attrs)
		}
		collectAreaAttrs(child, out)
	}
}

// parseAreaAttrs reads the four normalized center/extent attributes from an
// area record and converts them to a pixel rectangle.
func parseAreaAttrs(attrs []xml.Attr, width, height int) (FaceRegion, bool) {
	vals := map[string]float64{}
	for _, attr := range attrs {
		if attr.Name.Space != stAreaNS && attr.Name.Space != "stArea" {
			continue
		}
		switch attr.Name.Local {
		case "x", "y", "w", "h":
			v, err := strconv.ParseFloat(attr.Value, 64)
			if err != nil {
				return FaceRegion{}, false
			}
			vals[attr.Name.Local] = v
		}
	}
	if len(vals) != 4 {
		return FaceRegion{}, false
	}

	x, y, w, h := vals["x"], vals["y"], vals["w"], vals["h"]

	// Some tools store percentages [0, 100] instead of normalized [0, 1].
	if maxAbs(x, y, w, h) > 2.0 {
		x /= 100.0
		y /= 100.0
		w /= 100.0
		h /= 100.0
	}
	return normalizedToPixels(x, y, w, h, width, height), true
}

// normalizedToPixels converts a normalized center+extent area to a clamped
// pixel rectangle with width and height of at least one pixel.
func normalizedToPixels(cx, cy, w, h float64, width, height int) FaceRegion {
	cx = clamp01(cx)
	cy = clamp01(cy)
	w = clamp01(w)
	h = clamp01(h)

	left := int((cx - w/2.0) * float64(width))
	top := int((cy - h/2.0) * float64(height))
	right := int((cx + w/2.0) * float64(width))
	bottom := int((cy + h/2.0) * float64(height))

	left = clampInt(left, 0, maxInt(width-1, 0))
	top = clampInt(top, 0, maxInt(height-1, 0))
	right = clampInt(right, left+1, width)
	bottom = clampInt(bottom, top+1, height)

	return FaceRegion{X: left, Y: top, W: right - left, H: bottom - top}
}

// detectRegions runs the fallback detector on a downscaled luminance plane
// and maps results back to original-image coordinates.
func (l *RegionLocator) detectRegions(buf *PixelBuffer) []FaceRegion {
	gray := luminancePlane(buf)

	width, height := buf.Width, buf.Height
	maxDim := maxInt(width, height)
	scale := 1.0
	detectGray, detectW, detectH := gray, width, height
	if maxDim > l.tun.DetectMaxDimension {
		scale = float64(maxDim) / float64(l.tun.DetectMaxDimension)
		detectW = maxInt(1, int(float64(width)/scale))
		detectH = maxInt(1, int(float64(height)/scale))
		detectGray = resizeGray(gray, width, height, detectW, detectH)
		if detectGray == nil {
			return nil
		}
	}

	minSize := maxInt(l.tun.DetectMinFacePixels, int(float64(minInt(detectW, detectH))*l.tun.DetectMinFaceRatio))
	detections := l.detector.Detect(detectGray, detectW, detectH, minSize)

	var regions []FaceRegion
	for _, d := range detections {
		if scale > 1.0 {
			d = FaceRegion{
				X: int(float64(d.X) * scale),
				Y: int(float64(d.Y) * scale),
				W: int(float64(d.W) * scale),
				H: int(float64(d.H) * scale),
			}
		}
		if d.W <= 0 || d.H <= 0 {
			continue
		}
		regions = append(regions, d)
	}
	return regions
}

func maxAbs(vals ...float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
