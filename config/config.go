package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/openphotolab/enhancebackend/enhance"
)

const (
	DefaultEnhancedSubDir  = "enhanced"
	DefaultOriginalsSubDir = "originals"
)

const (
	defaultEnhanceQueueSize  = 200
	defaultNumEnhanceWorkers = 4
	defaultJpegQuality       = 95
)

type Config struct {
	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored assets
	EnhancedPath     string // full-calculated path for enhanced outputs
	OriginalsPath    string // full-calculated path for retained originals

	// output encoding
	JpegQuality int

	// worker settings
	EnhanceQueueSize  int
	NumEnhanceWorkers int

	// face detection cascade model path; empty disables pixel-based detection
	FaceCascadePath string

	// optimization style preferences
	Style enhance.StylePreferences
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "enhancements.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	enhancedSubDir := getEnvOrDefault("ENHANCED_SUBDIR", DefaultEnhancedSubDir)
	absEnhancedPath := filepath.Join(absMediaStorage, enhancedSubDir)

	originalsSubDir := getEnvOrDefault("ORIGINALS_SUBDIR", DefaultOriginalsSubDir)
	absOriginalsPath := filepath.Join(absMediaStorage, originalsSubDir)

	quality := getEnvIntOrDefault("JPEG_QUALITY", defaultJpegQuality)
	if quality > 100 {
		log.Printf("Warning: JPEG_QUALITY %d out of range, using %d", quality, defaultJpegQuality)
		quality = defaultJpegQuality
	}

	queueSize := getEnvIntOrDefault("ENHANCE_QUEUE_SIZE", defaultEnhanceQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_ENHANCE_WORKERS", defaultNumEnhanceWorkers)

	cascadePath := getEnvOrDefault("FACE_CASCADE_PATH", "./models/haarcascade_frontalface_default.xml")

	defaults := enhance.DefaultStylePreferences()
	style := enhance.StylePreferences{
		NaturalAppearance:  getEnvBoolOrDefault("STYLE_NATURAL_APPEARANCE", defaults.NaturalAppearance),
		PreserveHighlights: getEnvBoolOrDefault("STYLE_PRESERVE_HIGHLIGHTS", defaults.PreserveHighlights),
		StableSkinTones:    getEnvBoolOrDefault("STYLE_STABLE_SKIN_TONES", defaults.StableSkinTones),
		AvoidFilterLook:    getEnvBoolOrDefault("STYLE_AVOID_FILTER_LOOK", defaults.AvoidFilterLook),
	}

	cfg := Config{
		DatabasePath:      dbPath,
		MediaStoragePath:  absMediaStorage,
		EnhancedPath:      absEnhancedPath,
		OriginalsPath:     absOriginalsPath,
		JpegQuality:       quality,
		EnhanceQueueSize:  queueSize,
		NumEnhanceWorkers: numWorkers,
		FaceCascadePath:   cascadePath,
		Style:             style,
	}

	return cfg, nil
}
