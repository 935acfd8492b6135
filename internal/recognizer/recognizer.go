package recognizer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/bubbleocr/internal/mempool"
	"github.com/MeKo-Tech/bubbleocr/internal/models"
	"github.com/MeKo-Tech/bubbleocr/internal/onnx"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// Config holds configuration for the crop recognizer.
type Config struct {
	ModelPath        string // Path to ONNX recognition model
	DictPath         string // Path to character dictionary
	ImageHeight      int    // Input height (0 adopts the model's fixed height, else 48)
	MaxWidth         int    // Optional max width clamp (0 = no clamp)
	PadWidthMultiple int    // If >0, right-pad width to this multiple
	RotateVertical   bool   // Rotate tall crops before recognition
	NumThreads       int    // Number of CPU threads (0 for default)
	GPU              onnx.GPUConfig
}

// DefaultConfig returns a default recognizer configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:        models.GetRecognitionModelPath(""),
		DictPath:         models.GetDictionaryPath("", models.DictionaryManga),
		ImageHeight:      48,
		PadWidthMultiple: 8,
		RotateVertical:   true,
		GPU:              onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath re-resolves the model and dictionary against modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetRecognitionModelPath(modelsDir)
	c.DictPath = models.GetDictionaryPath(modelsDir, models.DictionaryManga)
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.DictPath == "" {
		return errors.New("dictionary path cannot be empty")
	}
	if c.ImageHeight < 0 {
		return fmt.Errorf("image height must not be negative, got %d", c.ImageHeight)
	}
	return onnx.ValidateGPUConfig(c.GPU)
}

// Recognizer reads the text of a single cropped region with a CTC model.
type Recognizer struct {
	config  Config
	session *onnxrt.DynamicAdvancedSession
	charset *Charset
	mu      sync.Mutex
}

// NewRecognizer loads the recognition model and its dictionary.
func NewRecognizer(config Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateModelExists(config.ModelPath); err != nil {
		return nil, err
	}

	charset, err := LoadCharset(config.DictPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("Dictionary loaded successfully", "path", config.DictPath, "charset_size", charset.Size())

	if err := onnx.InitEnvironment(config.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	in := inputs[0]
	if len(in.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(in.Dimensions))
	}
	// A model with a fixed input height overrides an unset config height.
	if h := in.Dimensions[2]; h > 0 && config.ImageHeight <= 0 {
		config.ImageHeight = int(h)
	}
	if config.ImageHeight <= 0 {
		config.ImageHeight = 48
	}

	session, err := onnx.NewSession(config.ModelPath, []string{in.Name}, []string{outputs[0].Name},
		onnx.SessionConfig{GPU: config.GPU, NumThreads: config.NumThreads})
	if err != nil {
		return nil, err
	}

	return &Recognizer{config: config, session: session, charset: charset}, nil
}

// Close releases the model session. It is safe to call more than once.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Destroy()
	r.session = nil
	if err != nil {
		return fmt.Errorf("failed to destroy recognizer session: %w", err)
	}
	return nil
}

// GetConfig returns a copy of the recognizer's configuration.
func (r *Recognizer) GetConfig() Config { return r.config }

// Result is the detailed output for one crop.
type Result struct {
	Text            string
	Confidence      float64
	CharConfidences []float64
	Rotated         bool
	Duration        time.Duration
}

// Recognize returns the post-processed text of a crop.
func (r *Recognizer) Recognize(img image.Image) (string, error) {
	res, err := r.RecognizeDetailed(img)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// RecognizeDetailed runs preprocessing, inference and greedy CTC decoding.
func (r *Recognizer) RecognizeDetailed(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	start := time.Now()

	rotated := false
	if r.config.RotateVertical {
		img, rotated = OrientCrop(img)
	}
	resized, _, _, err := ResizeForRecognition(img, r.config.ImageHeight, r.config.MaxWidth, r.config.PadWidthMultiple)
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	tensor, err := NormalizeForRecognition(resized)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	defer mempool.PutFloat32(tensor.Data)

	logits, shape, err := r.run(tensor)
	if err != nil {
		return nil, err
	}

	res, err := decode(logits, shape, r.charset)
	if err != nil {
		return nil, err
	}
	res.Rotated = rotated
	res.Duration = time.Since(start)
	return res, nil
}

func (r *Recognizer) run(tensor onnx.Tensor) ([]float32, []int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, nil, errors.New("recognizer session is closed")
	}

	input, err := onnxrt.NewTensor(onnxrt.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := r.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() { _ = outputs[0].Destroy() }()

	ft, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 tensor, got %T", outputs[0])
	}
	data := append([]float32(nil), ft.GetData()...)
	return data, ft.GetShape(), nil
}

// decode turns raw logits into post-processed text.
func decode(logits []float32, shape []int64, charset *Charset) (*Result, error) {
	seqs := DecodeCTCGreedy(logits, shape, 0, classesFirst(shape, charset.Classes()))
	if len(seqs) == 0 {
		return nil, fmt.Errorf("empty decoded output for shape %v", shape)
	}
	seq := seqs[0]
	return &Result{
		Text:            PostProcessText(charset.Decode(seq.Collapsed)),
		Confidence:      SequenceConfidence(seq.CollapsedProb),
		CharConfidences: seq.CollapsedProb,
	}, nil
}
