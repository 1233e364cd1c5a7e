// Package imop implements the Porter-Duff composition operations
// used for mixing a graphic element with its backdrop.
// The image/draw core package implements only the source-over-destination and source
// operators, this package provides the rest of them together with a few separable blend modes.
//
// It is mainly used to merge the landmark overlay layer into the processed frame,
// which makes it possible to render the face mesh in a color that stays visible
// on both bright and dark backgrounds.
package imop

import (
	"image"
	"image/color"
	"math"

	"github.com/esimov/facemesh/utils"
)

// Op is a Porter-Duff composition operator.
type Op string

const (
	Clear   Op = "clear"
	Copy    Op = "copy"
	Dst     Op = "dst"
	SrcOver Op = "src_over"
	DstOver Op = "dst_over"
	SrcIn   Op = "src_in"
	DstIn   Op = "dst_in"
	SrcOut  Op = "src_out"
	DstOut  Op = "dst_out"
	SrcAtop Op = "src_atop"
	DstAtop Op = "dst_atop"
	Xor     Op = "xor"
)

var ops = []Op{Clear, Copy, Dst, SrcOver, DstOver, SrcIn, DstIn, SrcOut, DstOut, SrcAtop, DstAtop, Xor}

// Bitmap is the destination of a composition.
type Bitmap struct {
	Img *image.NRGBA
}

// NewBitmap allocates a new transparent bitmap.
func NewBitmap(rect image.Rectangle) *Bitmap {
	return &Bitmap{
		Img: image.NewNRGBA(rect),
	}
}

// Composite holds the currently active composition operator.
type Composite struct {
	current Op
}

// InitOp initializes a new composition with source-over as the active operator.
func InitOp() *Composite {
	return &Composite{current: SrcOver}
}

// Set activates one of the supported composition operators. Unknown operators are ignored.
func (c *Composite) Set(op Op) {
	if utils.Contains(ops, op) {
		c.current = op
	}
}

// Get returns the active composition operator.
func (c *Composite) Get() Op {
	return c.current
}

// factors returns the Porter-Duff weights of the source and the backdrop.
func (c *Composite) factors(as, ab float64) (fa, fb float64) {
	switch c.current {
	case Clear:
		return 0, 0
	case Copy:
		return 1, 0
	case Dst:
		return 0, 1
	case SrcOver:
		return 1, 1 - as
	case DstOver:
		return 1 - ab, 1
	case SrcIn:
		return ab, 0
	case DstIn:
		return 0, as
	case SrcOut:
		return 1 - ab, 0
	case DstOut:
		return 0, 1 - as
	case SrcAtop:
		return ab, 1 - as
	case DstAtop:
		return 1 - ab, as
	case Xor:
		return 1 - ab, 1 - as
	}
	return 1, 1 - as
}

// Draw composites src over the dst backdrop and writes the result into the bitmap.
// The bitmap may share its pixel buffer with dst, in which case dst is updated in place.
// When blend is not nil the source color is mixed with the backdrop before the composition.
func (c *Composite) Draw(bitmap *Bitmap, src, dst *image.NRGBA, blend *Blend) {
	if bitmap == nil {
		bitmap = NewBitmap(dst.Bounds())
	}
	rect := src.Bounds().Intersect(dst.Bounds()).Intersect(bitmap.Img.Bounds())

	var cs, cb [3]float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(x, y)

			as := float64(src.Pix[si+3]) / 255
			ab := float64(dst.Pix[di+3]) / 255
			for i := 0; i < 3; i++ {
				cs[i] = float64(src.Pix[si+i]) / 255
				cb[i] = float64(dst.Pix[di+i]) / 255
			}

			if blend != nil && blend.Get() != "" {
				for i := 0; i < 3; i++ {
					cs[i] = (1-ab)*cs[i] + ab*blend.apply(cb[i], cs[i])
				}
			}

			fa, fb := c.factors(as, ab)
			ao := as*fa + ab*fb

			var px color.NRGBA
			if ao > 0 {
				var co [3]float64
				for i := 0; i < 3; i++ {
					// premultiplied result, converted back to straight alpha
					co[i] = (as*fa*cs[i] + ab*fb*cb[i]) / ao
				}
				px = color.NRGBA{
					R: toUint8(co[0]),
					G: toUint8(co[1]),
					B: toUint8(co[2]),
					A: toUint8(ao),
				}
			}
			bitmap.Img.SetNRGBA(x, y, px)
		}
	}
}

func toUint8(v float64) uint8 {
	return uint8(math.Round(utils.Clamp(v, 0, 1) * 255))
}
