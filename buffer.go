package gpgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	storageUsages = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	uniformUsages = wgpu.BufferUsageUniform | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
)

// Buffer is a GPU resident array of fixed-layout elements, bindable as
// read-only or read-write storage in a kernel. It must not outlive the
// Framework it was created from.
type Buffer[T any] struct {
	genericBuffer[T]
}

// NewBuffer allocates a zero filled storage buffer of length elements.
func NewBuffer[T any](fw *Framework, length int) (*Buffer[T], error) {
	gb, err := newGenericBuffer[T](fw, "Buffer", length, storageUsages)
	if err != nil {
		return nil, err
	}

	return RegisterWithGC(&Buffer[T]{gb}), nil
}

// NewBufferFrom allocates a storage buffer holding a copy of data.
func NewBufferFrom[T any](fw *Framework, data []T) (*Buffer[T], error) {
	gb, err := newGenericBufferFrom(fw, "Buffer", data, storageUsages)
	if err != nil {
		return nil, err
	}

	return RegisterWithGC(&Buffer[T]{gb}), nil
}

func (b *Buffer[T]) storageBuffer() *wgpu.Buffer {
	return b.buffer
}

// UniformBuffer is a small, read-only GPU resident array of fixed-layout
// elements, bindable as uniform storage in a kernel.
type UniformBuffer[T any] struct {
	genericBuffer[T]
}

// NewUniformBuffer allocates a zero filled uniform buffer of length elements.
func NewUniformBuffer[T any](fw *Framework, length int) (*UniformBuffer[T], error) {
	gb, err := newGenericBuffer[T](fw, "UniformBuffer", length, uniformUsages)
	if err != nil {
		return nil, err
	}

	return RegisterWithGC(&UniformBuffer[T]{gb}), nil
}

// NewUniformBufferFrom allocates a uniform buffer holding a copy of data.
func NewUniformBufferFrom[T any](fw *Framework, data []T) (*UniformBuffer[T], error) {
	gb, err := newGenericBufferFrom(fw, "UniformBuffer", data, uniformUsages)
	if err != nil {
		return nil, err
	}

	return RegisterWithGC(&UniformBuffer[T]{gb}), nil
}

func (b *UniformBuffer[T]) uniformBuffer() *wgpu.Buffer {
	return b.buffer
}

// genericBuffer is the device-side storage shared by Buffer and
// UniformBuffer.
type genericBuffer[T any] struct {
	fw     *Framework
	buffer *wgpu.Buffer
	length int
	size   uint64
}

func newGenericBuffer[T any](fw *Framework, label string, length int, usage wgpu.BufferUsage) (genericBuffer[T], error) {
	size := uint64(length) * uint64(sizeOf[T]())

	buf, err := fw.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return genericBuffer[T]{}, fmt.Errorf("create buffer: %w", err)
	}

	return genericBuffer[T]{fw: fw, buffer: buf, length: length, size: size}, nil
}

func newGenericBufferFrom[T any](fw *Framework, label string, data []T, usage wgpu.BufferUsage) (genericBuffer[T], error) {
	buf, err := fw.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: toBytes(data),
		Usage:    usage,
	})
	if err != nil {
		return genericBuffer[T]{}, fmt.Errorf("create buffer: %w", err)
	}

	size := uint64(len(data)) * uint64(sizeOf[T]())

	return genericBuffer[T]{fw: fw, buffer: buf, length: len(data), size: size}, nil
}

// Len returns the number of elements in the buffer.
func (b *genericBuffer[T]) Len() int {
	return b.length
}

// Size returns the byte size of the buffer.
func (b *genericBuffer[T]) Size() uint64 {
	return b.size
}

// Read blocks until the whole buffer has been copied into a new host
// side slice. It internally drives Framework.Poll until the transfer
// completes.
func (b *genericBuffer[T]) Read() ([]T, error) {
	op, err := b.ReadAsync()
	if err != nil {
		return nil, err
	}

	return op.Wait(b.fw)
}

// ReadAsync starts a deferred read of the whole buffer. The returned
// Pending only makes progress while Framework.Poll is being called.
func (b *genericBuffer[T]) ReadAsync() (*Pending[[]T], error) {
	if b.size == 0 {
		return completed([]T{}, nil), nil
	}

	staging, err := b.fw.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  b.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}

	enc, err := b.fw.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "BufferRead"})
	if err != nil {
		staging.Release()
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer enc.Release()

	enc.CopyBufferToBuffer(b.buffer, 0, staging, 0, b.size)

	cmd, err := enc.Finish(nil)
	if err != nil {
		staging.Release()
		return nil, fmt.Errorf("finish command encoder: %w", err)
	}
	defer cmd.Release()

	b.fw.Queue.Submit(cmd)

	op := &Pending[[]T]{}
	err = staging.MapAsync(wgpu.MapModeRead, 0, b.size, func(status wgpu.BufferMapAsyncStatus) {
		defer staging.Release()

		if status != wgpu.BufferMapAsyncStatusSuccess {
			op.complete(nil, fmt.Errorf("gpgpu: map buffer for read: %s", status.String()))
			return
		}

		raw := staging.GetMappedRange(0, uint(b.size))
		values, err := fromBytes[T](raw)
		staging.Unmap()
		op.complete(values, err)
	})
	if err != nil {
		staging.Release()
		return nil, fmt.Errorf("request buffer map: %w", err)
	}

	return op, nil
}

// Write copies data into the buffer via the device queue. The write is
// ordered before any later submission on the same queue. The length of
// data must match the buffer exactly.
func (b *genericBuffer[T]) Write(data []T) error {
	if len(data) != b.length {
		return fmt.Errorf("gpgpu: write of %d elements into buffer of %d elements", len(data), b.length)
	}

	if b.size == 0 {
		return nil
	}

	if err := b.fw.Queue.WriteBuffer(b.buffer, 0, toBytes(data)); err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}

	return nil
}

// WriteAsync stages data into the buffer and returns a Pending that
// completes once the write has executed on the device. The Pending only
// makes progress while Framework.Poll is being called.
func (b *genericBuffer[T]) WriteAsync(data []T) (*Pending[struct{}], error) {
	if err := b.Write(data); err != nil {
		return nil, err
	}

	if b.size == 0 {
		return completed(struct{}{}, nil), nil
	}

	return b.fw.fence()
}

// Release frees the device memory backing this buffer.
func (b *genericBuffer[T]) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}
