package facemesh

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_ImgToNRGBA(t *testing.T) {
	rect := image.Rect(-1, -1, 15, 15)
	want := color.NRGBA{R: 40, G: 180, B: 220, A: 255}

	rgba := image.NewRGBA(rect)
	gray := image.NewGray(rect)
	ycbcr := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
	nrgba := image.NewNRGBA(rect)

	yy, cb, cr := color.RGBToYCbCr(want.R, want.G, want.B)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			rgba.Set(x, y, want)
			gray.Set(x, y, color.Gray{Y: 77})
			nrgba.Set(x, y, want)
			ycbcr.Y[ycbcr.YOffset(x, y)] = yy
			ycbcr.Cb[ycbcr.COffset(x, y)] = cb
			ycbcr.Cr[ycbcr.COffset(x, y)] = cr
		}
	}
	r, g, b := color.YCbCrToRGB(yy, cb, cr)

	testCases := []struct {
		name string
		img  image.Image
		want color.NRGBA
	}{
		{"RGBA", rgba, want},
		{"NRGBA", nrgba, want},
		{"Gray", gray, color.NRGBA{R: 77, G: 77, B: 77, A: 255}},
		{"YCbCr-420", ycbcr, color.NRGBA{R: r, G: g, B: b, A: 255}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dst := imgToNRGBA(tc.img)

			assert.Equal(t, image.Rect(0, 0, 16, 16), dst.Bounds())
			assert.Equal(t, tc.want, dst.NRGBAAt(0, 0))
			assert.Equal(t, tc.want, dst.NRGBAAt(15, 15))
		})
	}
}

func TestImage_ImgToNRGBAKeepsOriginBuffer(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Same(t, img, imgToNRGBA(img))
}

func TestImage_FromBGR(t *testing.T) {
	pix := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30,
	}
	img, err := FromBGR(pix, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 0, A: 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 255}, img.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{R: 30, G: 20, B: 10, A: 255}, img.NRGBAAt(1, 1))

	_, err = FromBGR(pix[:5], 2, 2)
	assert.True(t, errors.Is(err, ErrInvalidFrame))

	_, err = FromBGR(nil, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidFrame))
}

func TestImage_DecodeImg(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, newFrame(8, 6, gray)))

	img, err := decodeImg(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = decodeImg(bytes.NewReader([]byte("definitely not an image")))
	assert.True(t, errors.Is(err, ErrInvalidFrame))

	_, err = decodeImg(nil)
	assert.True(t, errors.Is(err, ErrInvalidFrame))
}

func TestImage_EncodeImgByExtension(t *testing.T) {
	dir := t.TempDir()
	frame := newFrame(8, 6, gray)

	for _, name := range []string{"out.png", "out.jpg", "out.bmp", "out.gif"} {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)

		require.NoError(t, encodeImg(f, frame), name)
		require.NoError(t, f.Close())

		f, err = os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		_, format, err := image.Decode(f)
		f.Close()

		require.NoError(t, err, name)
		assert.Contains(t, []string{"png", "jpeg", "bmp", "gif"}, format)
	}

	f, err := os.Create(filepath.Join(dir, "out.tiff"))
	require.NoError(t, err)
	defer f.Close()
	assert.Error(t, encodeImg(f, frame))

	var buf bytes.Buffer
	require.NoError(t, encodeImg(&buf, frame))
	_, format, err := image.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}
