// Package imagex bridges images from the standard image package to GPU
// resident gpgpu images and back.
//
// Each supported host pixel maps to two device formats, an integer one
// exposing raw channel values to the kernel and a normalized one
// exposing them as floats in [0, 1].
package imagex

import (
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/gpgpu"
)

// RGBA8 is a device pixel with four 8 bit channels, matching the layout
// of image.RGBA.
type RGBA8 struct {
	R, G, B, A uint8
}

// Gray8 is a device pixel with a single 8 bit channel, matching the
// layout of image.Gray.
type Gray8 struct {
	Y uint8
}

// FromRGBA uploads src into a new GPU image with format RGBA8Uint. The
// kernel sees raw integer channel values.
func FromRGBA(fw *gpgpu.Framework, src *image.RGBA) (*gpgpu.Image[RGBA8], error) {
	return uploadRGBA(fw, src, wgpu.TextureFormatRGBA8Uint)
}

// FromRGBANorm uploads src into a new GPU image with format RGBA8Unorm.
// The kernel sees channel values normalized to [0, 1].
func FromRGBANorm(fw *gpgpu.Framework, src *image.RGBA) (*gpgpu.Image[RGBA8], error) {
	return uploadRGBA(fw, src, wgpu.TextureFormatRGBA8Unorm)
}

// FromGray uploads src into a new GPU image with format R8Uint. The R8
// formats do not support storage binding, so the image is transfer only
// and cannot be bound into a descriptor set.
func FromGray(fw *gpgpu.Framework, src *image.Gray) (*gpgpu.Image[Gray8], error) {
	return uploadGray(fw, src, wgpu.TextureFormatR8Uint)
}

// FromGrayNorm uploads src into a new GPU image with format R8Unorm.
// Transfer only, like FromGray.
func FromGrayNorm(fw *gpgpu.Framework, src *image.Gray) (*gpgpu.Image[Gray8], error) {
	return uploadGray(fw, src, wgpu.TextureFormatR8Unorm)
}

// ToRGBA reads the whole GPU image back into a new image.RGBA.
func ToRGBA(img *gpgpu.Image[RGBA8]) (*image.RGBA, error) {
	pixels, err := img.Read()
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, int(img.Width()), int(img.Height())))
	for i, p := range pixels {
		out.Pix[i*4+0] = p.R
		out.Pix[i*4+1] = p.G
		out.Pix[i*4+2] = p.B
		out.Pix[i*4+3] = p.A
	}

	return out, nil
}

// ToGray reads the whole GPU image back into a new image.Gray.
func ToGray(img *gpgpu.Image[Gray8]) (*image.Gray, error) {
	pixels, err := img.Read()
	if err != nil {
		return nil, err
	}

	out := image.NewGray(image.Rect(0, 0, int(img.Width()), int(img.Height())))
	for i, p := range pixels {
		out.Pix[i] = p.Y
	}

	return out, nil
}

// WriteRGBA overwrites the GPU image with the pixels of src. The
// dimensions must match exactly.
func WriteRGBA(img *gpgpu.Image[RGBA8], src *image.RGBA) error {
	if err := checkBounds(src.Bounds(), img.Width(), img.Height()); err != nil {
		return err
	}

	return img.Write(rgbaBytes(src))
}

// WriteGray overwrites the GPU image with the pixels of src. The
// dimensions must match exactly.
func WriteGray(img *gpgpu.Image[Gray8], src *image.Gray) error {
	if err := checkBounds(src.Bounds(), img.Width(), img.Height()); err != nil {
		return err
	}

	return img.Write(grayBytes(src))
}

func uploadRGBA(fw *gpgpu.Framework, src *image.RGBA, format wgpu.TextureFormat) (*gpgpu.Image[RGBA8], error) {
	b := src.Bounds()
	return gpgpu.NewImageFrom[RGBA8](fw, rgbaBytes(src), uint32(b.Dx()), uint32(b.Dy()), format)
}

func uploadGray(fw *gpgpu.Framework, src *image.Gray, format wgpu.TextureFormat) (*gpgpu.Image[Gray8], error) {
	b := src.Bounds()
	return gpgpu.NewTransferImageFrom[Gray8](fw, grayBytes(src), uint32(b.Dx()), uint32(b.Dy()), format)
}

func checkBounds(bounds image.Rectangle, width, height uint32) error {
	if uint32(bounds.Dx()) != width || uint32(bounds.Dy()) != height {
		return fmt.Errorf("imagex: image of %dx%d pixels does not match target of %dx%d pixels",
			bounds.Dx(), bounds.Dy(), width, height)
	}

	return nil
}

// rgbaBytes returns the pixels of src as tightly packed rows. The pixel
// data is shared with src where the layout already is tight.
func rgbaBytes(src *image.RGBA) []byte {
	b := src.Bounds()
	row := b.Dx() * 4

	if src.Stride == row && b.Min == (image.Point{}) {
		return src.Pix[:row*b.Dy()]
	}

	out := make([]byte, row*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*row:(y+1)*row], src.Pix[off:off+row])
	}

	return out
}

func grayBytes(src *image.Gray) []byte {
	b := src.Bounds()
	row := b.Dx()

	if src.Stride == row && b.Min == (image.Point{}) {
		return src.Pix[:row*b.Dy()]
	}

	out := make([]byte, row*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*row:(y+1)*row], src.Pix[off:off+row])
	}

	return out
}
