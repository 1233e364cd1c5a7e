package facemesh

import (
	"image"

	"github.com/esimov/facemesh/utils"
	"gonum.org/v1/gonum/floats"
)

// Measurement holds the result of a distance measurement between two pixels.
type Measurement struct {
	Length float64
	P1     Point
	P2     Point
	Mid    Point
	// Frame is the annotated frame, or nil if no frame has been provided.
	Frame *image.NRGBA
}

// Info returns the measurement as the (x1, y1, x2, y2, midX, midY) tuple.
func (m Measurement) Info() [6]int {
	return [6]int{m.P1.X, m.P1.Y, m.P2.X, m.P2.Y, m.Mid.X, m.Mid.Y}
}

// Measure computes the Euclidean distance and the midpoint between two pixels.
// The midpoint is the floor division of the coordinate sums by two, which for
// the non-negative pixel coordinates is the same as truncating the half.
// It is computed without forming the sums, so any pair of integers is accepted.
// If a frame is provided the endpoints, the midpoint and the connecting line
// are painted onto it and the same frame is returned in the measurement.
// Measure keeps no state and can be called concurrently, as long as the callers
// do not share the frame.
func Measure(p1, p2 Point, frame *image.NRGBA) Measurement {
	m := Measurement{
		Length: floats.Distance(
			[]float64{float64(p1.X), float64(p1.Y)},
			[]float64{float64(p2.X), float64(p2.Y)},
			2,
		),
		P1: p1,
		P2: p2,
		Mid: Point{
			X: utils.Mid(p1.X, p2.X),
			Y: utils.Mid(p1.Y, p2.Y),
		},
	}

	if frame != nil {
		drawMeasurement(frame, m)
		m.Frame = frame
	}
	return m
}
