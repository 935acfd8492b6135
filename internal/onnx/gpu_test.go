package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGPUConfig(t *testing.T) {
	cfg := DefaultGPUConfig()
	assert.False(t, cfg.UseGPU)
	assert.Equal(t, 0, cfg.DeviceID)
	assert.Equal(t, "kNextPowerOfTwo", cfg.ArenaExtendStrategy)
	assert.Equal(t, "DEFAULT", cfg.CUDNNConvAlgoSearch)
	assert.True(t, cfg.DoCopyInDefaultStream)
	require.NoError(t, ValidateGPUConfig(cfg))
}

func TestValidateGPUConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GPUConfig
		wantErr bool
	}{
		{"cpu ignores fields", GPUConfig{DeviceID: -5, ArenaExtendStrategy: "bogus"}, false},
		{"valid gpu", GPUConfig{UseGPU: true, ArenaExtendStrategy: "kSameAsRequested", CUDNNConvAlgoSearch: "HEURISTIC"}, false},
		{"negative device", GPUConfig{UseGPU: true, DeviceID: -1}, true},
		{"bad arena", GPUConfig{UseGPU: true, ArenaExtendStrategy: "invalid"}, true},
		{"bad algo", GPUConfig{UseGPU: true, CUDNNConvAlgoSearch: "invalid"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGPUConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCUDASettings(t *testing.T) {
	s := GPUConfig{UseGPU: true, DeviceID: 2, GPUMemLimit: 1024}.CUDASettings()
	assert.Equal(t, "2", s["device_id"])
	assert.Equal(t, "1024", s["gpu_mem_limit"])
	assert.Equal(t, "0", s["do_copy_in_default_stream"])
	assert.NotContains(t, s, "arena_extend_strategy")

	s = DefaultGPUConfig().CUDASettings()
	assert.Equal(t, "1", s["do_copy_in_default_stream"])
	assert.NotContains(t, s, "gpu_mem_limit")
}

func TestLibraryName(t *testing.T) {
	name, err := libraryName("linux")
	require.NoError(t, err)
	assert.Equal(t, "libonnxruntime.so", name)
	name, err = libraryName("darwin")
	require.NoError(t, err)
	assert.Equal(t, "libonnxruntime.dylib", name)
	_, err = libraryName("plan9")
	assert.Error(t, err)
}

func TestLibraryCandidates_EnvFirst(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/custom/libonnxruntime.so")

	cpu := LibraryCandidates(false)
	require.NotEmpty(t, cpu)
	assert.Equal(t, "/custom/libonnxruntime.so", cpu[0])
	assert.NotContains(t, cpu, "/opt/onnxruntime/gpu/lib/libonnxruntime.so")

	gpu := LibraryCandidates(true)
	assert.Equal(t, "/opt/onnxruntime/gpu/lib/libonnxruntime.so", gpu[1])
}

func TestFindProjectRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o600))
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	root, err := findProjectRoot()
	require.NoError(t, err)
	assert.Equal(t, evalDir(t, dir), evalDir(t, root))
}

func TestSetONNXLibraryPath_UsesEnvFile(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte{}, 0o600))
	t.Setenv(LibraryPathEnv, lib)
	require.NoError(t, SetONNXLibraryPath(false))
}

func evalDir(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return r
}
