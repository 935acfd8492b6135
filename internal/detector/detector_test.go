package detector

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/MeKo-Tech/bubbleocr/internal/models"
	"github.com/MeKo-Tech/bubbleocr/internal/testutil"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, models.GetDetectionModelPath(""), config.ModelPath)
	assert.Equal(t, 640, config.InputSize)
	assert.InDelta(t, 0.5, config.ConfidenceThreshold, 1e-9)
	assert.Equal(t, utils.BGR, config.ChannelOrder)
	assert.False(t, config.GPU.UseGPU)
	require.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty model path", func(c *Config) { c.ModelPath = "" }, "model path cannot be empty"},
		{"zero input size", func(c *Config) { c.InputSize = 0 }, "input size"},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }, "confidence threshold"},
		{"bad gpu device", func(c *Config) { c.GPU.UseGPU = true; c.GPU.DeviceID = -1 }, "device ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestUpdateModelPath(t *testing.T) {
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.UpdateModelPath(dir)
	assert.Equal(t, models.GetDetectionModelPath(dir), cfg.ModelPath)
}

func TestNewDetector_InvalidModelPath(t *testing.T) {
	config := DefaultConfig()
	config.ModelPath = "nonexistent/model.onnx"

	detector, err := NewDetector(config)
	require.Error(t, err)
	assert.Nil(t, detector)
	assert.Contains(t, err.Error(), "model file not found")
}

func TestNewDetector_EmptyModelPath(t *testing.T) {
	detector, err := NewDetector(Config{InputSize: 640})
	require.Error(t, err)
	assert.Nil(t, detector)
	assert.Contains(t, err.Error(), "model path cannot be empty")
}

func TestDetector_CloseIdempotent(t *testing.T) {
	d := &Detector{config: DefaultConfig()}
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestDetector_NilImage(t *testing.T) {
	d := &Detector{config: DefaultConfig()}
	_, err := d.Detect(nil)
	require.Error(t, err)
}

func TestNewDetector_ValidModel(t *testing.T) {
	modelPath := models.GetDetectionModelPath("")
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("Detection model not available, skipping test")
	}

	config := DefaultConfig()
	detector, err := NewDetector(config)
	if err != nil {
		t.Skipf("ONNX Runtime not available: %v", err)
	}
	defer func() {
		require.NoError(t, detector.Close())
	}()
	assert.Equal(t, config, detector.GetConfig())

	img := testutil.CreateTestImage(800, 1200, color.White)
	dets, err := detector.Detect(img)
	require.NoError(t, err)
	for _, d := range dets {
		assert.Greater(t, d.Score, config.ConfidenceThreshold)
		assert.GreaterOrEqual(t, d.Box.MinX, 0.0)
		assert.LessOrEqual(t, d.Box.MaxX, 800.0)
		assert.LessOrEqual(t, d.Box.MaxY, 1200.0)
	}
}
