package media

import (
	"bytes"
	"log"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/openphotolab/enhancebackend/enhance"
)

var sceneCaptureNames = map[int]string{
	0: "standard",
	1: "landscape",
	2: "portrait",
	3: "night",
}

var meteringModeNames = map[int]string{
	0:   "unknown",
	1:   "average",
	2:   "center-weighted-average",
	3:   "spot",
	4:   "multi-spot",
	5:   "pattern",
	6:   "partial",
	255: "other",
}

// helper to safely get and convert a rational tag (like ExposureTime, FNumber)
func getRational(exifData *exif.Exif, tagName exif.FieldName) *float64 {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		// sometimes stored as Int instead
		valInt, errInt := tag.Int(0)
		if errInt == nil {
			fVal := float64(valInt)
			return &fVal
		}
		return nil
	}
	val := float64(num) / float64(den)
	return &val
}

// helper to safely get and convert an integer tag (like ISO)
func getInt(exifData *exif.Exif, tagName exif.FieldName) *int {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	// ISO might be a slice, get the first value
	val, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &val
}

// helper to map an integer tag through a name table
func getMapped(exifData *exif.Exif, tagName exif.FieldName, names map[int]string) *string {
	val := getInt(exifData, tagName)
	if val == nil {
		return nil
	}
	name, ok := names[*val]
	if !ok {
		name = "unknown"
	}
	return &name
}

// ExtractCaptureMetadata decodes the EXIF block of a raw image file and maps
// the fields the analyzer consumes. Missing or unreadable EXIF is not an
// error; every field of the returned record is optional.
func ExtractCaptureMetadata(data []byte) *enhance.CaptureMetadata {
	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// file might just lack EXIF data
		log.Printf("media.metadata: no EXIF data found: %v", err)
		return &enhance.CaptureMetadata{}
	}

	capture := &enhance.CaptureMetadata{
		ISO:                  getInt(exifData, exif.ISOSpeedRatings),
		ExposureTime:         getRational(exifData, exif.ExposureTime),
		FNumber:              getRational(exifData, exif.FNumber),
		ExposureCompensation: getRational(exifData, exif.ExposureBiasValue),
		BrightnessValue:      getRational(exifData, exif.BrightnessValue),
		SceneType:            getMapped(exifData, exif.SceneCaptureType, sceneCaptureNames),
		MeteringMode:         getMapped(exifData, exif.MeteringMode, meteringModeNames),
	}

	if flash := getInt(exifData, exif.Flash); flash != nil {
		// bit 0 indicates whether the flash fired
		fired := *flash&0x01 != 0
		capture.FlashFired = &fired
	}

	return capture
}
