package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/openphotolab/enhancebackend/enhance"
)

const DefaultJpegQuality = 95

// EncodeJPEG serializes a pixel buffer as JPEG at the given quality and
// re-injects the source ICC profile so colors keep their original rendering
// intent. quality outside [1, 100] falls back to DefaultJpegQuality.
func EncodeJPEG(buf *enhance.PixelBuffer, iccProfile []byte, quality int) ([]byte, error) {
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 {
		return nil, fmt.Errorf("cannot encode empty pixel buffer")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJpegQuality
	}

	var out bytes.Buffer
	err := imaging.Encode(&out, toImage(buf), imaging.JPEG, imaging.JPEGQuality(quality))
	if err != nil {
		return nil, fmt.Errorf("jpeg encoding failed: %w", err)
	}

	encoded := out.Bytes()
	if len(iccProfile) > 0 {
		encoded = InjectICC(encoded, iccProfile)
	}
	return encoded, nil
}
