package gpgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// AccessMode describes how a kernel may access a bound resource.
type AccessMode int

const (
	// ReadOnly marks a binding the kernel may only read.
	ReadOnly AccessMode = iota

	// ReadWrite marks a binding the kernel may read and write.
	ReadWrite
)

// StorageBinding is satisfied by *Buffer values of any element type.
type StorageBinding interface {
	storageBuffer() *wgpu.Buffer
}

// UniformBinding is satisfied by *UniformBuffer values of any element type.
type UniformBinding interface {
	uniformBuffer() *wgpu.Buffer
}

// ImageBinding is satisfied by *Image values of any pixel type.
type ImageBinding interface {
	imageView() *wgpu.TextureView
	imageFormat() wgpu.TextureFormat
}

// DescriptorSet is an ordered, append-only collection of resource
// bindings describing one shader binding group. The binding index seen
// by the shader equals the append order, starting at 0. The zero value
// is an empty set ready for use.
//
// A DescriptorSet only borrows the resources bound into it; once a
// Kernel has been built from it, the set may be dropped.
type DescriptorSet struct {
	layout []wgpu.BindGroupLayoutEntry
	binds  []wgpu.BindGroupEntry
}

// AddBuffer appends a storage buffer binding with the given access
// mode. Returns the set for chaining.
func (ds *DescriptorSet) AddBuffer(buf StorageBinding, access AccessMode) *DescriptorSet {
	typ := wgpu.BufferBindingTypeStorage
	if access == ReadOnly {
		typ = wgpu.BufferBindingTypeReadOnlyStorage
	}

	binding := uint32(len(ds.binds))

	ds.layout = append(ds.layout, wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type: typ,
		},
	})

	ds.binds = append(ds.binds, wgpu.BindGroupEntry{
		Binding: binding,
		Buffer:  buf.storageBuffer(),
		Size:    wgpu.WholeSize,
	})

	return ds
}

// AddUniformBuffer appends a uniform buffer binding. Uniform buffers
// are always read-only. Returns the set for chaining.
func (ds *DescriptorSet) AddUniformBuffer(buf UniformBinding) *DescriptorSet {
	binding := uint32(len(ds.binds))

	ds.layout = append(ds.layout, wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type: wgpu.BufferBindingTypeUniform,
		},
	})

	ds.binds = append(ds.binds, wgpu.BindGroupEntry{
		Binding: binding,
		Buffer:  buf.uniformBuffer(),
		Size:    wgpu.WholeSize,
	})

	return ds
}

// AddImage appends a write-only storage image binding. Returns the set
// for chaining.
func (ds *DescriptorSet) AddImage(img ImageBinding) *DescriptorSet {
	binding := uint32(len(ds.binds))

	ds.layout = append(ds.layout, wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		StorageTexture: wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        img.imageFormat(),
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	})

	ds.binds = append(ds.binds, wgpu.BindGroupEntry{
		Binding:     binding,
		TextureView: img.imageView(),
	})

	return ds
}

// Len returns the number of bindings in the set.
func (ds *DescriptorSet) Len() int {
	return len(ds.binds)
}
