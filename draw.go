package facemesh

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/esimov/facemesh/imop"
	"golang.org/x/image/vector"
)

// kappa is the distance of the cubic Bézier control points used to approximate a quarter circle.
const kappa = 0.5522847498

var (
	// markColor is the color of the distance measurement annotation.
	markColor = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	// meshColor is the default color of the landmark overlay.
	meshColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
)

const (
	markRadius    = 15
	markThickness = 3
)

// DrawSpec defines how the landmark overlay is rendered.
type DrawSpec struct {
	Thickness    float32
	CircleRadius float32
	Color        color.NRGBA
	// Blend is the imop blend mode used to merge the overlay into the frame.
	// The empty value paints the overlay as it is.
	Blend string
}

// DefaultDrawSpec returns the drawing spec of the landmark overlay.
func DefaultDrawSpec() DrawSpec {
	return DrawSpec{
		Thickness:    1,
		CircleRadius: 2,
		Color:        meshColor,
	}
}

// drawLandmarks renders the faces onto a transparent layer, then composites the layer over the frame.
// The contour lines are drawn first, so the landmark circles stay on top.
func drawLandmarks(dst *image.NRGBA, faces []Face, contours [][2]int, spec DrawSpec) {
	if len(faces) == 0 {
		return
	}
	layer := image.NewNRGBA(dst.Bounds())

	for _, face := range faces {
		for _, c := range contours {
			if c[0] < 0 || c[1] < 0 || c[0] >= len(face) || c[1] >= len(face) {
				continue
			}
			strokeLine(layer, face[c[0]], face[c[1]], spec.Thickness, spec.Color)
		}
		for _, p := range face {
			fillCircle(layer, p, spec.CircleRadius, spec.Color)
		}
	}

	blend := imop.NewBlend()
	blend.Set(spec.Blend)

	op := imop.InitOp()
	op.Draw(&imop.Bitmap{Img: dst}, layer, dst, blend)
}

// drawMeasurement annotates the frame with the two endpoints, the midpoint and the connecting line.
func drawMeasurement(dst draw.Image, m Measurement) {
	fillCircle(dst, m.P1, markRadius, markColor)
	fillCircle(dst, m.P2, markRadius, markColor)
	strokeLine(dst, m.P1, m.P2, markThickness, markColor)
	fillCircle(dst, m.Mid, markRadius, markColor)
}

// newRasterizer returns a rasterizer covering the destination bounds.
// The path coordinates are relative to the top-left corner of the bounds.
func newRasterizer(b image.Rectangle) *vector.Rasterizer {
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	return z
}

// fillCircle draws a filled circle centered on the p pixel.
func fillCircle(dst draw.Image, p Point, radius float32, col color.Color) {
	b := dst.Bounds()
	if radius <= 0 || b.Empty() {
		return
	}
	z := newRasterizer(b)

	cx := float32(p.X-b.Min.X) + 0.5
	cy := float32(p.Y-b.Min.Y) + 0.5
	r, k := radius, radius*kappa

	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}

// strokeLine draws a straight line of the provided thickness between the p1 and p2 pixels.
func strokeLine(dst draw.Image, p1, p2 Point, thickness float32, col color.Color) {
	b := dst.Bounds()
	if thickness <= 0 || b.Empty() || p1 == p2 {
		return
	}
	z := newRasterizer(b)

	x1, y1 := float64(p1.X-b.Min.X)+0.5, float64(p1.Y-b.Min.Y)+0.5
	x2, y2 := float64(p2.X-b.Min.X)+0.5, float64(p2.Y-b.Min.Y)+0.5

	// unit normal of the segment scaled to half of the line thickness
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	nx := float32(-dy / l * float64(thickness) / 2)
	ny := float32(dx / l * float64(thickness) / 2)

	z.MoveTo(float32(x1)+nx, float32(y1)+ny)
	z.LineTo(float32(x2)+nx, float32(y2)+ny)
	z.LineTo(float32(x2)-nx, float32(y2)-ny)
	z.LineTo(float32(x1)-nx, float32(y1)-ny)
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}
