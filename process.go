package facemesh

import (
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/esimov/facemesh/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pair selects the two landmarks of a face whose distance is measured.
type Pair struct {
	Face int
	From int
	To   int
}

// Processor options
type Processor struct {
	Config     Config
	CascadeDir string
	DrawSpec   *DrawSpec
	Pair       *Pair
	Logger     *logrus.Logger
	Spinner    *utils.Spinner
	Draw       bool

	// NewDetector overrides the detection backend. When nil, a PigoDetector
	// loaded from CascadeDir (or the bundled cascades) is used, cloned for every Locator.
	NewDetector func() (Detector, error)

	once sync.Once
	pd   *PigoDetector
	err  error
}

// Distance is the serializable form of a Measurement.
type Distance struct {
	Face   int     `json:"face"`
	From   int     `json:"from"`
	To     int     `json:"to"`
	Length float64 `json:"length"`
	P1     Point   `json:"p1"`
	P2     Point   `json:"p2"`
	Mid    Point   `json:"mid"`
}

// Report holds the outcome of processing a single image.
type Report struct {
	Source   string    `json:"source,omitempty"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Faces    []Face    `json:"faces"`
	Distance *Distance `json:"distance,omitempty"`
}

// WriteJSON writes the reports as an indented JSON document.
// A single report is written as an object, more of them as an array.
func WriteJSON(w io.Writer, reports ...*Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	if reports == nil {
		reports = []*Report{}
	}
	return enc.Encode(reports)
}

func (p *Processor) logger() *logrus.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}

// NewLocator creates a Locator configured with the processor options.
// Every call returns a Locator with its own detector, so the result can be handed to a separate goroutine.
func (p *Processor) NewLocator() (*Locator, error) {
	var (
		det Detector
		err error
	)
	if p.NewDetector != nil {
		det, err = p.NewDetector()
	} else {
		p.once.Do(func() {
			p.pd, p.err = NewPigoDetector(p.CascadeDir)
		})
		if p.err != nil {
			return nil, p.err
		}
		det = p.pd.Clone()
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not create the detector")
	}

	opts := []Option{WithConfig(p.Config), WithLogger(p.logger())}
	if p.DrawSpec != nil {
		opts = append(opts, WithDrawSpec(*p.DrawSpec))
	}
	return NewLocator(det, opts...)
}

// Process is the main entry point for processing a single image.
// It decodes the image from r, locates the facial landmarks and measures the
// selected landmark pair, then encodes the resulting image into w.
// A nil writer skips the encoding.
func (p *Processor) Process(r io.Reader, w io.Writer) (*Report, error) {
	loc, err := p.NewLocator()
	if err != nil {
		return nil, err
	}
	defer loc.Close()

	return p.process(loc, r, w)
}

func (p *Processor) process(loc *Locator, r io.Reader, w io.Writer) (*Report, error) {
	src, err := decodeImg(r)
	if err != nil {
		return nil, err
	}

	img, faces, err := loc.Locate(src, p.Draw)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Faces:  faces,
	}

	if p.Pair != nil {
		if p.Pair.Face < 0 || p.Pair.Face >= len(faces) {
			p.logger().WithFields(logrus.Fields{
				"face":  p.Pair.Face,
				"faces": len(faces),
			}).Warn("no face to measure")
		} else {
			var frame = img
			if !p.Draw {
				frame = nil
			}
			m, err := loc.Measure(faces[p.Pair.Face], p.Pair.From, p.Pair.To, frame)
			if err != nil {
				return nil, err
			}
			rep.Distance = &Distance{
				Face:   p.Pair.Face,
				From:   p.Pair.From,
				To:     p.Pair.To,
				Length: m.Length,
				P1:     m.P1,
				P2:     m.P2,
				Mid:    m.Mid,
			}
		}
	}

	if w != nil {
		if err := encodeImg(w, img); err != nil {
			return nil, errors.Wrap(err, "could not encode the image")
		}
	}
	return rep, nil
}
