package facemesh

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// decodeImg decodes the frame read from r. Any decoding failure is reported as an invalid frame.
func decodeImg(r io.Reader) (image.Image, error) {
	if r == nil {
		return nil, invalidFrame("nil reader")
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFrame, "could not decode the image: %v", err)
	}
	return img, nil
}

// encodeImg encodes the image to a destination of type io.Writer.
// The output format is chosen by the destination file extension, falling back to jpeg.
// Gif frames are quantized to the Plan9 palette.
func encodeImg(w io.Writer, img image.Image) error {
	ext := ""
	if f, ok := w.(*os.File); ok {
		ext = strings.ToLower(filepath.Ext(f.Name()))
	}

	switch ext {
	case "", ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".gif":
		return gif.Encode(w, img, nil)
	default:
		return errors.Errorf("unsupported image format: %s", ext)
	}
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
// This is the color conversion performed before a frame is handed to the detector:
// whatever the source color model is, the detector receives straight alpha R, G, B, A samples.
// An *image.NRGBA already anchored at the origin is returned as it is, without copying.
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	if srcBounds.Min.X == 0 && srcBounds.Min.Y == 0 {
		if src0, ok := img.(*image.NRGBA); ok {
			return src0
		}
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := dstW * 4
		for y := 0; y < dstH; y++ {
			di := dst.PixOffset(0, y)
			si := src.PixOffset(srcMinX, srcMinY+y)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for y := 0; y < dstH; y++ {
			di := dst.PixOffset(0, y)
			for x := 0; x < dstW; x++ {
				siy := src.YOffset(srcMinX+x, srcMinY+y)
				sic := src.COffset(srcMinX+x, srcMinY+y)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for y := 0; y < dstH; y++ {
			di := dst.PixOffset(0, y)
			for x := 0; x < dstW; x++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+x, srcMinY+y)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}

// FromBGR converts a packed 3 bytes per pixel BGR buffer, the layout used by most camera
// capture libraries, into an RGB ordered *image.NRGBA frame.
func FromBGR(pix []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, invalidFrame("empty frame dimension")
	}
	if len(pix) < width*height*3 {
		return nil, errors.Wrapf(ErrInvalidFrame, "short BGR buffer: got %d bytes, want %d", len(pix), width*height*3)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	for i, j := 0, 0; i < width*height*3; i, j = i+3, j+4 {
		dst.Pix[j+0] = pix[i+2]
		dst.Pix[j+1] = pix[i+1]
		dst.Pix[j+2] = pix[i+0]
		dst.Pix[j+3] = 0xff
	}
	return dst, nil
}
