package imagex

import (
	"image"
	"testing"

	"github.com/oliverbestmann/gpgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGBABytesTight(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = byte(i)
	}

	raw := rgbaBytes(src)
	assert.Equal(t, src.Pix, raw)
}

func TestRGBABytesSubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = byte(i)
	}

	sub := src.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)

	raw := rgbaBytes(sub)
	require.Len(t, raw, 2*2*4)

	// first pixel of the sub image is (1, 1) of the parent
	off := src.PixOffset(1, 1)
	assert.Equal(t, src.Pix[off:off+8], raw[:8])

	off = src.PixOffset(1, 2)
	assert.Equal(t, src.Pix[off:off+8], raw[8:])
}

func TestGrayBytesSubImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = byte(i)
	}

	sub := src.SubImage(image.Rect(2, 0, 4, 2)).(*image.Gray)

	raw := grayBytes(sub)
	assert.Equal(t, []byte{2, 3, 6, 7}, raw)
}

func TestCheckBounds(t *testing.T) {
	assert.NoError(t, checkBounds(image.Rect(0, 0, 4, 2), 4, 2))
	assert.Error(t, checkBounds(image.Rect(0, 0, 4, 2), 2, 4))
	assert.Error(t, checkBounds(image.Rect(0, 0, 4, 2), 4, 3))
}

func testFramework(t *testing.T) *gpgpu.Framework {
	t.Helper()

	fw, err := gpgpu.NewFramework(gpgpu.FrameworkOptions{DeviceLabel: t.Name()})
	if err != nil {
		t.Skipf("no compute device available: %v", err)
	}

	t.Cleanup(fw.Release)

	return fw
}

func TestRGBARoundTrip(t *testing.T) {
	fw := testFramework(t)

	src := image.NewRGBA(image.Rect(0, 0, 5, 3))
	for i := range src.Pix {
		src.Pix[i] = byte(i * 3)
	}

	img, err := FromRGBA(fw, src)
	require.NoError(t, err)
	defer img.Release()

	back, err := ToRGBA(img)
	require.NoError(t, err)

	assert.Equal(t, src.Bounds(), back.Bounds())
	assert.Equal(t, src.Pix, back.Pix)
}

func TestGrayRoundTrip(t *testing.T) {
	fw := testFramework(t)

	src := image.NewGray(image.Rect(0, 0, 7, 2))
	for i := range src.Pix {
		src.Pix[i] = byte(255 - i)
	}

	img, err := FromGray(fw, src)
	require.NoError(t, err)
	defer img.Release()

	back, err := ToGray(img)
	require.NoError(t, err)

	assert.Equal(t, src.Bounds(), back.Bounds())
	assert.Equal(t, src.Pix, back.Pix)
}

func TestWriteRGBASizeMismatch(t *testing.T) {
	fw := testFramework(t)

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))

	img, err := FromRGBA(fw, src)
	require.NoError(t, err)
	defer img.Release()

	assert.Error(t, WriteRGBA(img, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	assert.NoError(t, WriteRGBA(img, src))
}
