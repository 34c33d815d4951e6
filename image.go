package gpgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// copyRowAlignment is the row pitch alignment WebGPU requires for
// texture to buffer copies.
const copyRowAlignment = 256

// Image is a GPU resident 2D array of fixed-layout pixels. Kernels bind
// it as a write-only storage texture; the host can read and write it
// through the transfer operations below. The byte size of P must match
// the texel size of the chosen format. An Image must not outlive the
// Framework it was created from.
type Image[P any] struct {
	fw      *Framework
	texture *wgpu.Texture
	view    *wgpu.TextureView
	format  wgpu.TextureFormat

	width  uint32
	height uint32
}

// NewImage allocates a zero filled width x height image with the given
// device pixel format, bindable as a write-only storage texture. The
// format must support storage binding; use NewTransferImage for formats
// that do not.
func NewImage[P any](fw *Framework, width, height uint32, format wgpu.TextureFormat) (*Image[P], error) {
	usage := wgpu.TextureUsageStorageBinding |
		wgpu.TextureUsageCopySrc |
		wgpu.TextureUsageCopyDst

	return newImage[P](fw, width, height, format, usage)
}

// NewTransferImage allocates an image that only supports host side
// transfers. It cannot be bound into a DescriptorSet. This is the only
// way to create images of formats without storage binding support, such
// as the single channel 8 bit ones.
func NewTransferImage[P any](fw *Framework, width, height uint32, format wgpu.TextureFormat) (*Image[P], error) {
	usage := wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst

	return newImage[P](fw, width, height, format, usage)
}

func newImage[P any](fw *Framework, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*Image[P], error) {
	texture, err := fw.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Image",
		Format:        format,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create image texture: %w", err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("create image view: %w", err)
	}

	return RegisterWithGC(&Image[P]{
		fw:      fw,
		texture: texture,
		view:    view,
		format:  format,
		width:   width,
		height:  height,
	}), nil
}

// NewImageFrom allocates an image and synchronously stages the given
// row-major pixel data into it.
func NewImageFrom[P any](fw *Framework, data []byte, width, height uint32, format wgpu.TextureFormat) (*Image[P], error) {
	img, err := NewImage[P](fw, width, height, format)
	if err != nil {
		return nil, err
	}

	if err := img.Write(data); err != nil {
		img.Release()
		return nil, err
	}

	return img, nil
}

// NewTransferImageFrom allocates a transfer only image and synchronously
// stages the given row-major pixel data into it.
func NewTransferImageFrom[P any](fw *Framework, data []byte, width, height uint32, format wgpu.TextureFormat) (*Image[P], error) {
	img, err := NewTransferImage[P](fw, width, height, format)
	if err != nil {
		return nil, err
	}

	if err := img.Write(data); err != nil {
		img.Release()
		return nil, err
	}

	return img, nil
}

// Width returns the image width in pixels.
func (img *Image[P]) Width() uint32 {
	return img.width
}

// Height returns the image height in pixels.
func (img *Image[P]) Height() uint32 {
	return img.height
}

// Format returns the device pixel format.
func (img *Image[P]) Format() wgpu.TextureFormat {
	return img.format
}

// Size returns the byte size of the tightly packed image payload.
func (img *Image[P]) Size() uint64 {
	return uint64(img.width) * uint64(img.height) * uint64(sizeOf[P]())
}

func (img *Image[P]) rowBytes() uint32 {
	return img.width * uint32(sizeOf[P]())
}

func (img *Image[P]) imageView() *wgpu.TextureView {
	return img.view
}

func (img *Image[P]) imageFormat() wgpu.TextureFormat {
	return img.format
}

// Write stages tightly packed row-major pixel data into the image via
// the device queue. The byte length of data must match the image
// exactly; a mismatch is an error, never a truncation.
func (img *Image[P]) Write(data []byte) error {
	if uint64(len(data)) != img.Size() {
		return fmt.Errorf("gpgpu: write of %d bytes into image of %d bytes", len(data), img.Size())
	}

	if len(data) == 0 {
		return nil
	}

	err := img.fw.Queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Aspect:   wgpu.TextureAspectAll,
			Texture:  img.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  img.rowBytes(),
			RowsPerImage: img.height,
		},
		&wgpu.Extent3D{
			Width:              img.width,
			Height:             img.height,
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		return fmt.Errorf("write texture: %w", err)
	}

	return nil
}

// WriteAsync stages pixel data into the image and returns a Pending
// that completes once the write has executed on the device. The Pending
// only makes progress while Framework.Poll is being called.
func (img *Image[P]) WriteAsync(data []byte) (*Pending[struct{}], error) {
	if err := img.Write(data); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return completed(struct{}{}, nil), nil
	}

	return img.fw.fence()
}

// Read blocks until the whole image has been copied into a new host
// side slice of pixels in tightly packed row-major order. It internally
// drives Framework.Poll until the transfer completes.
func (img *Image[P]) Read() ([]P, error) {
	op, err := img.ReadAsync()
	if err != nil {
		return nil, err
	}

	return op.Wait(img.fw)
}

// ReadAsync starts a deferred read of the whole image. The returned
// Pending only makes progress while Framework.Poll is being called.
func (img *Image[P]) ReadAsync() (*Pending[[]P], error) {
	if img.Size() == 0 {
		return completed([]P{}, nil), nil
	}

	// texture to buffer copies need their row pitch aligned; the
	// padding is stripped again after mapping
	rowBytes := img.rowBytes()
	paddedRow := alignTo(rowBytes, copyRowAlignment)
	stagingSize := uint64(paddedRow) * uint64(img.height)

	staging, err := img.fw.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  stagingSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}

	enc, err := img.fw.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "ImageRead"})
	if err != nil {
		staging.Release()
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer enc.Release()

	enc.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Aspect:   wgpu.TextureAspectAll,
			Texture:  img.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  paddedRow,
				RowsPerImage: img.height,
			},
		},
		&wgpu.Extent3D{
			Width:              img.width,
			Height:             img.height,
			DepthOrArrayLayers: 1,
		},
	)

	cmd, err := enc.Finish(nil)
	if err != nil {
		staging.Release()
		return nil, fmt.Errorf("finish command encoder: %w", err)
	}
	defer cmd.Release()

	img.fw.Queue.Submit(cmd)

	height := img.height
	op := &Pending[[]P]{}
	err = staging.MapAsync(wgpu.MapModeRead, 0, stagingSize, func(status wgpu.BufferMapAsyncStatus) {
		defer staging.Release()

		if status != wgpu.BufferMapAsyncStatusSuccess {
			op.complete(nil, fmt.Errorf("gpgpu: map image for read: %s", status.String()))
			return
		}

		raw := staging.GetMappedRange(0, uint(stagingSize))

		tight := raw
		if paddedRow != rowBytes {
			tight = make([]byte, uint64(rowBytes)*uint64(height))
			for y := uint32(0); y < height; y++ {
				src := raw[uint64(y)*uint64(paddedRow):]
				copy(tight[uint64(y)*uint64(rowBytes):], src[:rowBytes])
			}
		}

		pixels, err := fromBytes[P](tight)
		staging.Unmap()
		op.complete(pixels, err)
	})
	if err != nil {
		staging.Release()
		return nil, fmt.Errorf("request image map: %w", err)
	}

	return op, nil
}

// Release frees the device memory backing this image.
func (img *Image[P]) Release() {
	if img.view != nil {
		img.view.Release()
		img.view = nil
	}

	if img.texture != nil {
		img.texture.Release()
		img.texture = nil
	}
}

func alignTo(value, align uint32) uint32 {
	return (value + align - 1) / align * align
}
