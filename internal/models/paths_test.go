package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestGetModelsDir(t *testing.T) {
	tests := []struct {
		name        string
		explicitDir string
		envVar      string
		want        string
	}{
		{"explicit directory takes precedence", "/explicit/path", "/env/path", "/explicit/path"},
		{"environment variable used when no explicit dir", "", "/env/path", "/env/path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvModelsDir, tt.envVar)
			assert.Equal(t, tt.want, GetModelsDir(tt.explicitDir))
		})
	}

	t.Run("project root default", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "")
		got := GetModelsDir("")
		assert.Equal(t, DefaultModelsDir, filepath.Base(got))
	})
}

func TestResolveModelPath_DefaultsToOrganized(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, TypeDetection, DetectionMeikiSmall), GetDetectionModelPath(dir))
	assert.Equal(t, filepath.Join(dir, TypeRecognition, RecognitionManga), GetRecognitionModelPath(dir))
	assert.Equal(t, filepath.Join(dir, TypeDictionaries, DictionaryManga), GetDictionaryPath(dir, DictionaryManga))
}

func TestResolveModelPath_FlatLayout(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, DetectionMeikiSmall))
	assert.Equal(t, filepath.Join(dir, DetectionMeikiSmall), GetDetectionModelPath(dir))

	// The organized layout wins once it exists.
	touch(t, filepath.Join(dir, TypeDetection, DetectionMeikiSmall))
	assert.Equal(t, filepath.Join(dir, TypeDetection, DetectionMeikiSmall), GetDetectionModelPath(dir))
}

func TestResolveModelPath_EmptyModelType(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "a.onnx"), ResolveModelPath(dir, "", "a.onnx"))
}

func TestResolveRef(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(t.TempDir(), "custom_rec.onnx")
	touch(t, existing)

	assert.Equal(t, "", ResolveRef(dir, TypeRecognition, ""))
	assert.Equal(t, existing, ResolveRef(dir, TypeRecognition, existing))
	assert.Equal(t, "/abs/missing.onnx", ResolveRef(dir, TypeRecognition, "/abs/missing.onnx"))
	assert.Equal(t, filepath.Join(dir, TypeRecognition, "other.onnx"), ResolveRef(dir, TypeRecognition, "other.onnx"))
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "m.onnx")
	err := ValidateModelExists(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")

	touch(t, p)
	require.NoError(t, ValidateModelExists(p))
}

func TestListAvailableModels(t *testing.T) {
	list := ListAvailableModels()
	require.Len(t, list, 3)
	seen := map[string]bool{}
	for _, m := range list {
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.Filename)
		assert.NotEmpty(t, m.Description)
		seen[m.Type] = true
	}
	assert.True(t, seen[TypeDetection])
	assert.True(t, seen[TypeRecognition])
	assert.True(t, seen[TypeDictionaries])
}

func TestFindProjectRoot(t *testing.T) {
	root, err := findProjectRoot()
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, statErr)
}
