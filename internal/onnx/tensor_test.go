package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensorAndVerify(t *testing.T) {
	c, h, w := 3, 4, 5
	ten, err := NewImageTensor(make([]float32, c*h*w), c, h, w)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, ten.Shape)
	require.NoError(t, ValidateNCHW(ten.Shape))
	require.NoError(t, VerifyImageTensor(ten))
}

func TestNewImageTensorErrors(t *testing.T) {
	tests := []struct {
		name string
		data []float32
	}{
		{"nil data", nil},
		{"too short", make([]float32, 10)},
		{"too long", make([]float32, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageTensor(tt.data, 3, 4, 5)
			assert.Error(t, err)
		})
	}
}

func TestValidateNCHW(t *testing.T) {
	assert.NoError(t, ValidateNCHW([]int64{1, 3, 640, 640}))
	assert.Error(t, ValidateNCHW([]int64{3, 640, 640}))
	assert.Error(t, ValidateNCHW([]int64{1, 0, 640, 640}))
	assert.Error(t, ValidateNCHW([]int64{1, 3, -1, 640}))
}

func TestVerifyImageTensor_LengthMismatch(t *testing.T) {
	err := VerifyImageTensor(Tensor{Data: make([]float32, 5), Shape: []int64{1, 1, 2, 2}})
	assert.Error(t, err)
}

func TestTensorStats(t *testing.T) {
	lo, hi, mean := TensorStats([]float32{0.5, -1, 2, 0.5})
	assert.InDelta(t, -1, lo, 1e-6)
	assert.InDelta(t, 2, hi, 1e-6)
	assert.InDelta(t, 0.5, mean, 1e-6)

	lo, hi, mean = TensorStats(nil)
	assert.Zero(t, lo)
	assert.Zero(t, hi)
	assert.Zero(t, mean)
}
