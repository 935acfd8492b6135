package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/bubbleocr/internal/mempool"
	"github.com/MeKo-Tech/bubbleocr/internal/models"
	"github.com/MeKo-Tech/bubbleocr/internal/onnx"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
	"github.com/yalue/onnxruntime_go"
)

// Config holds configuration for the text box detector.
type Config struct {
	ModelPath           string             // Path to ONNX detection model
	InputSize           int                // Square model input side (default: 640)
	ConfidenceThreshold float64            // Keep detections scoring strictly above this (default: 0.5)
	ChannelOrder        utils.ChannelOrder // Input plane order (default: BGR)
	NumThreads          int                // Number of CPU threads (default: 0 for auto)
	GPU                 onnx.GPUConfig     // GPU acceleration configuration
}

// DefaultConfig returns a default detector configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:           models.GetDetectionModelPath(""),
		InputSize:           640,
		ConfidenceThreshold: 0.5,
		ChannelOrder:        utils.BGR,
		GPU:                 onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath re-resolves ModelPath against modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetDetectionModelPath(modelsDir)
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	return onnx.ValidateGPUConfig(c.GPU)
}

// Detector finds text boxes with a letterboxed ONNX detection model that takes
// an image plus its target size and returns labels, boxes and scores.
type Detector struct {
	config  Config
	session *onnxruntime_go.DynamicAdvancedSession
	inputs  []string
	outputs []string
	mu      sync.Mutex
}

// NewDetector loads the detection model.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateModelExists(config.ModelPath); err != nil {
		return nil, err
	}

	slog.Debug("Initializing detector",
		"model_path", config.ModelPath,
		"gpu_enabled", config.GPU.UseGPU,
		"input_size", config.InputSize,
		"threshold", config.ConfidenceThreshold)

	if err := onnx.InitEnvironment(config.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnx.ModelIO(config.ModelPath)
	if err != nil {
		return nil, err
	}
	if len(inputs) < 2 {
		return nil, fmt.Errorf("expected 2 inputs (image, target size), got %d", len(inputs))
	}
	if len(outputs) < 3 {
		return nil, fmt.Errorf("expected 3 outputs (labels, boxes, scores), got %d", len(outputs))
	}
	inputs, outputs = inputs[:2], outputs[:3]

	session, err := onnx.NewSession(config.ModelPath, inputs, outputs, onnx.SessionConfig{
		GPU:        config.GPU,
		NumThreads: config.NumThreads,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Detector initialized successfully", "inputs", inputs, "outputs", outputs)
	return &Detector{config: config, session: session, inputs: inputs, outputs: outputs}, nil
}

// Close releases the model session. It is safe to call more than once.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	if err != nil {
		return fmt.Errorf("failed to destroy detector session: %w", err)
	}
	return nil
}

// GetConfig returns a copy of the detector's configuration.
func (d *Detector) GetConfig() Config {
	return d.config
}

// Detect returns score-filtered boxes in the pixel coordinates of img,
// in model output order.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	start := time.Now()

	canvas, info, err := utils.Letterbox(img, d.config.InputSize)
	if err != nil {
		return nil, fmt.Errorf("preprocessing failed: %w", err)
	}
	data, w, h, err := utils.NormalizeImage(canvas, d.config.ChannelOrder)
	if err != nil {
		return nil, fmt.Errorf("preprocessing failed: %w", err)
	}
	defer mempool.PutFloat32(data)
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		lo, hi, mean := onnx.TensorStats(data)
		slog.Debug("Detector input", "width", w, "height", h, "min", lo, "max", hi, "mean", mean)
	}
	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}

	labels, boxes, scores, err := d.run(tensor)
	if err != nil {
		return nil, err
	}

	dets := Postprocess(labels, boxes, scores, info, d.config.ConfidenceThreshold)
	slog.Debug("Detection complete",
		"candidates", len(scores),
		"kept", len(dets),
		"duration", time.Since(start))
	return dets, nil
}

func (d *Detector) run(tensor onnx.Tensor) ([]int64, []float32, []float32, error) {
	if err := onnx.VerifyImageTensor(tensor); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid tensor: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, nil, nil, errors.New("detector session is closed")
	}

	imageTensor, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer destroy(imageTensor)

	size := int64(d.config.InputSize)
	sizeTensor, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(1, 2), []int64{size, size})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create size tensor: %w", err)
	}
	defer destroy(sizeTensor)

	outputs := []onnxruntime_go.Value{nil, nil, nil}
	if err := d.session.Run([]onnxruntime_go.Value{imageTensor, sizeTensor}, outputs); err != nil {
		return nil, nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	for _, o := range outputs {
		if o != nil {
			defer destroy(o)
		}
	}

	labels := int64Data(outputs[0])
	boxes, err := float32Data(outputs[1])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("boxes output: %w", err)
	}
	scores, err := float32Data(outputs[2])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("scores output: %w", err)
	}
	return labels, boxes, scores, nil
}

func destroy(v onnxruntime_go.Value) {
	if err := v.Destroy(); err != nil {
		slog.Warn("failed to destroy tensor", "error", err)
	}
}

func float32Data(v onnxruntime_go.Value) ([]float32, error) {
	t, ok := v.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 tensor, got %T", v)
	}
	src := t.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

// int64Data tolerates models that emit labels as another integer type by
// returning nil; labels are informational only.
func int64Data(v onnxruntime_go.Value) []int64 {
	t, ok := v.(*onnxruntime_go.Tensor[int64])
	if !ok {
		return nil
	}
	src := t.GetData()
	out := make([]int64, len(src))
	copy(out, src)
	return out
}
