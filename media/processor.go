package media

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/openphotolab/enhancebackend/enhance"
)

const EnhancedFileExtension = ".jpg"

// Processor runs the enhancement pipeline on raw image bytes and persists the
// result through a Store. It relies on the injected pipeline for all pixel
// work; one Processor per worker when the pipeline's detector is stateful.
type Processor struct {
	store    Store
	pipeline *enhance.Pipeline
	quality  int
}

// ProcessedImage describes one finished enhancement.
type ProcessedImage struct {
	OutputPath string // relative path within the store
	Width      int
	Height     int
	Metrics    enhance.Metrics
	Params     enhance.AdjustmentParameters
}

func NewProcessor(store Store, pipeline *enhance.Pipeline, jpegQuality int) *Processor {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJpegQuality
	}
	return &Processor{store: store, pipeline: pipeline, quality: jpegQuality}
}

// EnhanceBytes decodes, enhances, encodes, and saves one image. originalName
// is used only for logging; the stored file gets a generated name.
func (p *Processor) EnhanceBytes(data []byte, originalName string) (*ProcessedImage, error) {
	buf, meta, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode '%s': %w", originalName, err)
	}

	result := p.pipeline.Enhance(buf, meta.Capture, meta.XMP)

	encoded, err := EncodeJPEG(result.Buffer, meta.ICCProfile, p.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode enhanced '%s': %w", originalName, err)
	}

	outUUID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for enhanced image: %w", err)
	}
	targetFilename := outUUID.String() + EnhancedFileExtension

	savedRelPath, err := p.store.Save(AssetTypeEnhanced, targetFilename, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to save enhanced image via store: %w", err)
	}

	log.Printf("processor: Enhanced %s -> %s (%dx%d)", originalName, savedRelPath, result.Buffer.Width, result.Buffer.Height)
	return &ProcessedImage{
		OutputPath: savedRelPath,
		Width:      result.Buffer.Width,
		Height:     result.Buffer.Height,
		Metrics:    result.Metrics,
		Params:     result.Params,
	}, nil
}

// EnhanceFile reads a file from disk and enhances it.
func (p *Processor) EnhanceFile(path string) (*ProcessedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}
	return p.EnhanceBytes(data, path)
}
