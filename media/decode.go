package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/openphotolab/enhancebackend/enhance"
)

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsRasterImage checks if the filename has a common raster image extension
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// Decode parses raw image bytes into the pipeline's pixel representation and
// lifts the metadata the pipeline consumes: the EXIF capture record, the XMP
// payload, and the ICC profile blob. XMP and ICC come from JPEG marker
// segments only; other formats decode with empty metadata blobs.
func Decode(data []byte) (*enhance.PixelBuffer, *ImageMetadata, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buf := toPixelBuffer(img)
	if buf.Width <= 0 || buf.Height <= 0 {
		return nil, nil, fmt.Errorf("invalid decoded dimensions: %dx%d (format %s)", buf.Width, buf.Height, format)
	}

	meta := &ImageMetadata{
		Capture: ExtractCaptureMetadata(data),
	}
	if isJPEG(data) {
		meta.XMP = ExtractXMP(data)
		meta.ICCProfile = ExtractICC(data)
	}
	return buf, meta, nil
}

// toPixelBuffer flattens a decoded image into the dense RGB buffer. imaging's
// NRGBA clone gives a single predictable stride regardless of source format.
func toPixelBuffer(img image.Image) *enhance.PixelBuffer {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	buf := enhance.NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := buf.Pix[y*w*3:]
		for x := 0; x < w; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return buf
}

// toImage converts a pixel buffer back to an image.Image for encoding.
func toImage(buf *enhance.PixelBuffer) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		src := buf.Pix[y*buf.Width*3:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < buf.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xFF
		}
	}
	return out
}
