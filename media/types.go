// media/types.go
package media

import (
	"github.com/openphotolab/enhancebackend/enhance"
)

type AssetType string

const (
	AssetTypeEnhanced AssetType = "enhanced"
	AssetTypeOriginal AssetType = "original"
	AssetTypeUnknown  AssetType = "unknown"
)

// ImageMetadata bundles everything lifted from a file at decode time besides
// the pixels: the typed capture record, the raw XMP payload (embedded face
// regions live there), and the opaque ICC profile blob that is carried
// through to the encoder unmodified.
type ImageMetadata struct {
	Capture    *enhance.CaptureMetadata
	XMP        []byte
	ICCProfile []byte
}
