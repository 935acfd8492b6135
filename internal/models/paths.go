package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model name constants.
const (
	// DetectionMeikiSmall is the text box detector used by the meikimanga engine.
	DetectionMeikiSmall = "meiki.text.detect.small.v0.onnx"

	// RecognitionManga is the CTC crop recognizer.
	RecognitionManga = "manga_rec.onnx"

	// DictionaryManga is the character set of RecognitionManga.
	DictionaryManga = "manga_keys.txt"
)

// Model type categories for organized directory structure.
const (
	TypeDetection    = "detection"
	TypeRecognition  = "recognition"
	TypeDictionaries = "dictionaries"
)

// DefaultModelsDir is the models directory relative to the project root.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "BUBBLEOCR_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo contains metadata about a model.
type ModelInfo struct {
	Name        string
	Type        string
	Description string
	Filename    string
}

// GetModelsDir returns the models directory path from various sources
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath resolves a model filename to its full path. The organized
// layout (<dir>/<type>/<file>) wins when present, otherwise the flat layout
// (<dir>/<file>) is returned.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)
	if modelType != "" {
		organized := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
		if _, err := os.Stat(filepath.Join(baseDir, filename)); err != nil {
			return organized
		}
	}
	return filepath.Join(baseDir, filename)
}

// ResolveRef resolves a user-supplied model reference. An existing file path
// is returned unchanged; anything else is treated as a file name inside the
// models directory.
func ResolveRef(modelsDir, modelType, ref string) string {
	if ref == "" {
		return ""
	}
	if _, err := os.Stat(ref); err == nil {
		return ref
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	return ResolveModelPath(modelsDir, modelType, ref)
}

// GetDetectionModelPath returns the path of the box detector.
func GetDetectionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDetection, DetectionMeikiSmall)
}

// GetRecognitionModelPath returns the path of the crop recognizer.
func GetRecognitionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeRecognition, RecognitionManga)
}

// GetDictionaryPath returns the path for a dictionary file.
func GetDictionaryPath(modelsDir, filename string) string {
	return ResolveModelPath(modelsDir, TypeDictionaries, filename)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns information about the bundled models.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "meiki-detection",
			Type:        TypeDetection,
			Description: "Meiki small text box detector (640x640)",
			Filename:    DetectionMeikiSmall,
		},
		{
			Name:        "manga-recognition",
			Type:        TypeRecognition,
			Description: "CTC recognizer for manga text crops",
			Filename:    RecognitionManga,
		},
		{
			Name:        "manga-keys",
			Type:        TypeDictionaries,
			Description: "Character dictionary for the manga recognizer",
			Filename:    DictionaryManga,
		},
	}
}
