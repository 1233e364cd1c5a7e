package facemesh

import (
	"image"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Locator finds the facial landmarks of the faces present in a frame
// and converts them into pixel coordinates.
//
// A Locator owns the detection backend handle and the drawing spec used for the overlay.
// It is not safe for concurrent use: the backend may keep state between frames,
// so every goroutine processing frames should use its own Locator.
type Locator struct {
	cfg      Config
	detector Detector
	drawSpec DrawSpec
	log      *logrus.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithConfig sets the detector configuration.
func WithConfig(cfg Config) Option {
	return func(l *Locator) {
		l.cfg = cfg
	}
}

// WithDrawSpec sets the rendering spec of the landmark overlay.
func WithDrawSpec(spec DrawSpec) Option {
	return func(l *Locator) {
		l.drawSpec = spec
	}
}

// WithLogger sets the logger used to report the detections.
func WithLogger(logger *logrus.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.log = logger
		}
	}
}

// NewLocator creates a new Locator backed by the provided detector.
// Unless overridden by the options the default configuration and drawing spec are used.
func NewLocator(det Detector, opts ...Option) (*Locator, error) {
	if det == nil {
		return nil, errors.New("facemesh: nil detector")
	}
	l := &Locator{
		cfg:      DefaultConfig(),
		detector: det,
		drawSpec: DefaultDrawSpec(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Config returns the detector configuration of the locator.
func (l *Locator) Config() Config {
	return l.cfg
}

// Close releases the detection backend.
func (l *Locator) Close() error {
	if c, ok := l.detector.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Locate detects the faces in the frame and returns the pixel coordinates of their landmarks,
// one Face per detected face in the order reported by the backend.
//
// The frame is first converted to straight alpha RGBA, the color order expected by the detector.
// An *image.NRGBA frame anchored at the origin is used without copying, so when draw is true
// the overlay is painted onto the caller's buffer; any other frame type is painted on the converted copy.
// The returned frame is the one that has been processed.
func (l *Locator) Locate(frame image.Image, draw bool) (*image.NRGBA, []Face, error) {
	if frame == nil {
		return nil, nil, invalidFrame("nil frame")
	}
	if frame.Bounds().Empty() {
		return nil, nil, invalidFrame("empty frame")
	}
	img := imgToNRGBA(frame)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	sets, err := l.detector.Detect(img, l.cfg)
	if err != nil {
		return img, nil, &DetectionBackendError{Err: err}
	}
	if err := checkLandmarks(sets); err != nil {
		return img, nil, &DetectionBackendError{Err: err}
	}

	faces := make([]Face, 0, len(sets))
	for _, set := range sets {
		face := make(Face, 0, len(set))
		for _, lm := range set {
			// Truncation toward zero, not rounding.
			face = append(face, Point{
				X: int(lm.X * float64(width)),
				Y: int(lm.Y * float64(height)),
			})
		}
		faces = append(faces, face)
	}

	l.log.WithFields(logrus.Fields{
		"width":  width,
		"height": height,
		"faces":  len(faces),
	}).Debug("landmarks located")

	if draw && len(faces) > 0 {
		var contours [][2]int
		if cp, ok := l.detector.(ContourProvider); ok {
			contours = cp.Contours()
		}
		drawLandmarks(img, faces, contours, l.drawSpec)
	}
	return img, faces, nil
}

// Measure measures the distance between the i-th and j-th landmark of the face.
// See the Measure function for the details.
func (l *Locator) Measure(face Face, i, j int, frame *image.NRGBA) (Measurement, error) {
	if i < 0 || i >= len(face) {
		return Measurement{}, errors.Wrapf(ErrLandmarkIndex, "index %d, face has %d landmarks", i, len(face))
	}
	if j < 0 || j >= len(face) {
		return Measurement{}, errors.Wrapf(ErrLandmarkIndex, "index %d, face has %d landmarks", j, len(face))
	}
	return Measure(face[i], face[j], frame), nil
}

// checkLandmarks rejects a detection result which cannot be projected into pixel space.
func checkLandmarks(sets [][]Landmark) error {
	for i, set := range sets {
		if len(set) != len(sets[0]) {
			return errors.Errorf("face %d has %d landmarks, expected %d", i, len(set), len(sets[0]))
		}
		for j, lm := range set {
			if math.IsNaN(lm.X) || math.IsNaN(lm.Y) || math.IsInf(lm.X, 0) || math.IsInf(lm.Y, 0) {
				return errors.Errorf("face %d: landmark %d is not a finite coordinate", i, j)
			}
			if lm.X < 0 || lm.X > 1 || lm.Y < 0 || lm.Y > 1 {
				return errors.Errorf("face %d: landmark %d (%v, %v) is outside of the [0, 1] range", i, j, lm.X, lm.Y)
			}
		}
	}
	return nil
}
