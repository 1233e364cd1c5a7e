package facemesh

import "image"

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Face holds the pixel coordinates of the facial landmarks of a single face.
// The slice is ordered by landmark index: the same index always refers to the same anatomical point.
type Face []Point

// Landmark is a landmark coordinate normalized to the [0, 1] range of the frame width and height.
type Landmark struct {
	X float64
	Y float64
}

// Detector is the capability the Locator needs from a landmark detection backend.
// Given an RGB(A) frame it returns one landmark set per detected face, every set
// having the same number of landmarks. The coordinates must lie in the [0, 1] range,
// a result having any other value is rejected by the Locator.
type Detector interface {
	Detect(img *image.NRGBA, cfg Config) ([][]Landmark, error)
}

// ContourProvider is implemented by detectors which know how their landmarks are connected.
// The returned pairs of landmark indices are used to render the contour lines of the overlay.
type ContourProvider interface {
	Contours() [][2]int
}
