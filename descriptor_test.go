package gpgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

type fakeStorage struct{}

func (fakeStorage) storageBuffer() *wgpu.Buffer { return nil }

type fakeUniform struct{}

func (fakeUniform) uniformBuffer() *wgpu.Buffer { return nil }

type fakeImage struct{}

func (fakeImage) imageView() *wgpu.TextureView    { return nil }
func (fakeImage) imageFormat() wgpu.TextureFormat { return wgpu.TextureFormatRGBA8Unorm }

func TestDescriptorSetBindingOrder(t *testing.T) {
	var ds DescriptorSet
	ds.
		AddBuffer(fakeStorage{}, ReadOnly).
		AddUniformBuffer(fakeUniform{}).
		AddBuffer(fakeStorage{}, ReadWrite).
		AddImage(fakeImage{})

	assert.Equal(t, 4, ds.Len())

	// binding index equals append order
	for i, entry := range ds.layout {
		assert.Equal(t, uint32(i), entry.Binding)
	}
	for i, entry := range ds.binds {
		assert.Equal(t, uint32(i), entry.Binding)
	}
}

func TestDescriptorSetAccessModes(t *testing.T) {
	var ds DescriptorSet
	ds.
		AddBuffer(fakeStorage{}, ReadOnly).
		AddBuffer(fakeStorage{}, ReadWrite).
		AddUniformBuffer(fakeUniform{})

	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, ds.layout[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, ds.layout[1].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, ds.layout[2].Buffer.Type)

	for _, entry := range ds.layout {
		assert.Equal(t, wgpu.ShaderStageCompute, entry.Visibility)
	}
}

func TestDescriptorSetImageLayout(t *testing.T) {
	var ds DescriptorSet
	ds.AddImage(fakeImage{})

	entry := ds.layout[0]
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, entry.StorageTexture.Access)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, entry.StorageTexture.Format)
	assert.Equal(t, wgpu.TextureViewDimension2D, entry.StorageTexture.ViewDimension)
}

func TestDescriptorSetZeroValue(t *testing.T) {
	var ds DescriptorSet
	assert.Equal(t, 0, ds.Len())
}
