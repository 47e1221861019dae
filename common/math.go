package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Clamp01 clamps v to the closed range [0, 1].
func Clamp01(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}

// Wrap returns v wrapped into the half-open range [0, period).
// A non-positive period returns 0.
//
// Parameters:
//   - v: the value to wrap
//   - period: the length of the range
//
// Returns:
//   - float32: the wrapped value
func Wrap(v, period float32) float32 {
	if period <= 0 {
		return 0
	}
	w := float32(math.Mod(float64(v), float64(period)))
	if w < 0 {
		w += period
	}
	// Rounding can land exactly on the period for values just below a multiple of it.
	if w >= period {
		w = 0
	}
	return w
}
