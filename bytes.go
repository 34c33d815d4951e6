package gpgpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// sizeOf returns the byte size of the memory layout of T. Element types
// used with buffers and images must have a fixed layout: no pointers,
// maps, slices or other indirections.
func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// toBytes views a slice of fixed-layout values as raw bytes.
func toBytes[T any](values []T) []byte {
	if len(values) == 0 {
		return nil
	}

	return wgpu.ToBytes(values)
}

// fromBytes copies raw bytes into a freshly allocated slice of T. The
// payload must divide into whole elements; a remainder is an error, not
// a truncation.
func fromBytes[T any](raw []byte) ([]T, error) {
	size := sizeOf[T]()
	if size == 0 {
		return nil, fmt.Errorf("gpgpu: element type has zero size")
	}

	if len(raw)%size != 0 {
		return nil, fmt.Errorf("gpgpu: payload of %d bytes does not divide into elements of %d bytes", len(raw), size)
	}

	out := make([]T, len(raw)/size)
	if len(out) > 0 {
		copy(out, wgpu.FromBytes[T](raw))
	}

	return out, nil
}
