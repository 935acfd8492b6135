package onnx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// SessionConfig configures a DynamicAdvancedSession.
type SessionConfig struct {
	GPU        GPUConfig
	NumThreads int
}

var envMu sync.Mutex

// InitEnvironment locates the shared library and initializes the process-wide
// ONNX Runtime environment once. Later calls are no-ops.
func InitEnvironment(useGPU bool) error {
	envMu.Lock()
	defer envMu.Unlock()

	if onnxruntime_go.IsInitialized() {
		return nil
	}
	if err := SetONNXLibraryPath(useGPU); err != nil {
		return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// NewSession opens modelPath with the given input and output names.
func NewSession(modelPath string, inputs, outputs []string, cfg SessionConfig,
) (*onnxruntime_go.DynamicAdvancedSession, error) {
	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(modelPath, inputs, outputs, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// ModelIO returns the declared input and output names of a model file.
func ModelIO(modelPath string) ([]string, []string, error) {
	in, out, err := onnxruntime_go.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read model IO info: %w", err)
	}
	names := func(infos []onnxruntime_go.InputOutputInfo) []string {
		s := make([]string, 0, len(infos))
		for _, i := range infos {
			s = append(s, i.Name)
		}
		return s
	}
	return names(in), names(out), nil
}
