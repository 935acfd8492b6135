// Package mempool recycles the float32 buffers that back model input tensors.
package mempool

import "sync"

// step is the granularity of size classes.
const step = 1024

var pools sync.Map // size class (int) -> *sync.Pool

// sizeClass rounds n up to the next multiple of step, with a minimum of step.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func pool(cls int) *sync.Pool {
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]float32, cls)
		return &buf
	}})
	return p.(*sync.Pool)
}

// GetFloat32 returns a buffer of length n. Its contents are unspecified;
// callers are expected to overwrite every element.
func GetFloat32(n int) []float32 {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	bp := pool(cls).Get().(*[]float32)
	buf := *bp
	if cap(buf) < cls {
		buf = make([]float32, cls)
	}
	return buf[:n]
}

// PutFloat32 hands buf back for reuse. buf must not be used afterwards.
// Slices whose capacity is not a size class are dropped.
func PutFloat32(buf []float32) {
	c := cap(buf)
	if c == 0 || c%step != 0 {
		return
	}
	buf = buf[:c]
	pool(c).Put(&buf)
}
