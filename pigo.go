package facemesh

import (
	"embed"
	"fmt"
	"image"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/esimov/facemesh/utils"
	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
)

// QualityScale maps the [0, 1] confidence thresholds onto the Pigo detection score.
// The default 0.5 confidence corresponds to a detection quality of 5.0.
const QualityScale = 10

// perturbs is the number of randomly perturbed runs averaged by the Pigo localizers.
// Pigo sorts a buffer of 63 entries on every run, so the count must fill all of them.
const perturbs = 63

//go:embed data/facefinder data/puploc data/lps
var cascadeFS embed.FS

var (
	eyeCascades   = []string{"lp46", "lp44", "lp42", "lp38", "lp312"}
	mouthCascades = []string{"lp93", "lp84", "lp82", "lp81"}
)

// Landmark indices of the faces located by PigoDetector.
// The eye region cascades are evaluated twice: once as they are and once mirrored,
// giving a landmark on each side of the face.
const (
	LeftPupil = iota
	RightPupil
	EyeLP46
	EyeLP46Mirror
	EyeLP44
	EyeLP44Mirror
	EyeLP42
	EyeLP42Mirror
	EyeLP38
	EyeLP38Mirror
	EyeLP312
	EyeLP312Mirror
	MouthLP93
	MouthLP84
	MouthLP82
	MouthLP81
	MouthLP84Mirror

	// PigoLandmarkCount is the number of landmarks returned per face.
	PigoLandmarkCount
)

var pigoContours = [][2]int{
	{EyeLP46, EyeLP44}, {EyeLP44, EyeLP42},
	{EyeLP46Mirror, EyeLP44Mirror}, {EyeLP44Mirror, EyeLP42Mirror},
	{EyeLP38, EyeLP312}, {EyeLP38Mirror, EyeLP312Mirror},
	{MouthLP84, MouthLP82}, {MouthLP82, MouthLP84Mirror},
	{MouthLP84Mirror, MouthLP81}, {MouthLP81, MouthLP84},
}

// Cascades holds the binary cascade files consumed by PigoDetector.
type Cascades struct {
	Face      []byte
	Pupil     []byte
	Landmarks map[string][]byte
}

// LoadCascades reads the cascade files from dir. The directory is expected to contain
// the facefinder and puploc files, and the lps subdirectory with the facial landmark point cascades.
func LoadCascades(dir string) (*Cascades, error) {
	return loadCascades(os.DirFS(dir))
}

// DefaultCascades returns the cascade files bundled with the package.
func DefaultCascades() (*Cascades, error) {
	data, err := fs.Sub(cascadeFS, "data")
	if err != nil {
		return nil, err
	}
	return loadCascades(data)
}

func loadCascades(fsys fs.FS) (*Cascades, error) {
	read := func(name string) ([]byte, error) {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read the %s cascade", name)
		}
		return data, nil
	}

	var (
		c   = &Cascades{Landmarks: make(map[string][]byte)}
		err error
	)
	if c.Face, err = read("facefinder"); err != nil {
		return nil, err
	}
	if c.Pupil, err = read("puploc"); err != nil {
		return nil, err
	}
	for _, name := range append(append([]string{}, eyeCascades...), mouthCascades...) {
		if c.Landmarks[name], err = read(path.Join("lps", name)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// trackedFace is a face accepted in the previous frame, in normalized coordinates.
type trackedFace struct {
	x, y, r float64
}

// PigoDetector is a Detector implementation based on the Pigo face detection library.
// Faces are found with the face finder cascade, then the pupils are localized
// and used to anchor the facial landmark point cascades.
//
// Pigo's localizers average a set of randomly perturbed runs, so the coordinates
// may differ by a pixel or so between two runs over the same frame.
type PigoDetector struct {
	// MinSize and MaxSize bound the size of the detected faces, in pixels.
	// A zero MaxSize means the larger frame dimension.
	MinSize int
	MaxSize int
	// ShiftFactor and ScaleFactor control the sliding window of the face finder.
	ShiftFactor float64
	ScaleFactor float64
	// IoUThreshold is the intersection over union threshold used to cluster the detections.
	IoUThreshold float64
	// Angle is the in-plane rotation of the searched faces, in the [0, 1] range (1 is 2π).
	Angle float64
	// MaxDimension downscales frames having a larger width or height before the detection.
	// Zero keeps the frames at their original size.
	MaxDimension int

	faceFinder *pigo.Pigo
	puploc     *pigo.PuplocCascade
	flpcs      map[string]*pigo.PuplocCascade

	tracked []trackedFace
}

// NewPigoDetector loads the cascade files from dir and creates a new detector.
// An empty dir uses the cascades bundled with the package.
func NewPigoDetector(dir string) (*PigoDetector, error) {
	var (
		c   *Cascades
		err error
	)
	if dir == "" {
		c, err = DefaultCascades()
	} else {
		c, err = LoadCascades(dir)
	}
	if err != nil {
		return nil, err
	}
	return NewPigoDetectorFromCascades(c)
}

// NewPigoDetectorFromCascades unpacks the cascades and creates a new detector.
func NewPigoDetectorFromCascades(c *Cascades) (*PigoDetector, error) {
	if c == nil {
		return nil, errors.New("nil cascades")
	}
	pd := &PigoDetector{
		MinSize:      20,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MaxDimension: 1024,
		flpcs:        make(map[string]*pigo.PuplocCascade),
	}

	var err error
	if pd.faceFinder, err = pigo.NewPigo().Unpack(c.Face); err != nil {
		return nil, errors.Wrap(err, "error unpacking the face finder cascade")
	}

	plc := &pigo.PuplocCascade{}
	if pd.puploc, err = plc.UnpackCascade(c.Pupil); err != nil {
		return nil, errors.Wrap(err, "error unpacking the pupil localization cascade")
	}

	for _, name := range append(append([]string{}, eyeCascades...), mouthCascades...) {
		data, ok := c.Landmarks[name]
		if !ok {
			return nil, errors.Errorf("missing facial landmark cascade: %s", name)
		}
		if pd.flpcs[name], err = plc.UnpackCascade(data); err != nil {
			return nil, errors.Wrapf(err, "error unpacking the %s cascade", name)
		}
	}
	return pd, nil
}

// Clone returns a detector sharing the unpacked cascades, without the tracking state.
// The cascades are never modified, so clones can run in parallel goroutines.
func (pd *PigoDetector) Clone() *PigoDetector {
	c := *pd
	c.tracked = nil
	return &c
}

// Contours returns the pairs of connected landmark indices.
func (pd *PigoDetector) Contours() [][2]int {
	return pigoContours
}

// Detect implements the Detector interface.
func (pd *PigoDetector) Detect(img *image.NRGBA, cfg Config) (sets [][]Landmark, err error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	if pd.faceFinder == nil || pd.puploc == nil {
		return nil, errors.New("the cascades are not loaded")
	}
	defer func() {
		if r := recover(); r != nil {
			sets, err = nil, fmt.Errorf("pigo: %v", r)
		}
	}()

	var src image.Image = img
	if pd.MaxDimension > 0 && utils.Max(img.Bounds().Dx(), img.Bounds().Dy()) > pd.MaxDimension {
		src = imaging.Fit(img, pd.MaxDimension, pd.MaxDimension, imaging.Linear)
	}
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	imgParams := pigo.ImageParams{
		Pixels: pigo.RgbToGrayscale(src),
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}
	maxSize := pd.MaxSize
	if maxSize <= 0 {
		maxSize = utils.Max(rows, cols)
	}
	cParams := pigo.CascadeParams{
		MinSize:     pd.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: pd.ShiftFactor,
		ScaleFactor: pd.ScaleFactor,
		ImageParams: imgParams,
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := pd.faceFinder.RunCascade(cParams, pd.Angle)
	dets = pd.faceFinder.ClusterDetections(dets, pd.IoUThreshold)
	dets = pd.accept(dets, cfg, float64(cols), float64(rows))

	sets = make([][]Landmark, 0, len(dets))
	for _, det := range dets {
		points := pd.landmarks(det, imgParams, cfg.RefineLandmarks)

		set := make([]Landmark, 0, len(points))
		for _, p := range points {
			set = append(set, Landmark{
				X: utils.Clamp(float64(p.Col)/float64(cols), 0, 1),
				Y: utils.Clamp(float64(p.Row)/float64(rows), 0, 1),
			})
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// accept keeps the detections scoring above the detection threshold, or above the tracking
// threshold when they overlap a face accepted in the previous frame. The result is ordered
// by descending score and truncated to the maximum number of faces.
func (pd *PigoDetector) accept(dets []pigo.Detection, cfg Config, cols, rows float64) []pigo.Detection {
	detQ := float32(cfg.MinDetectionConfidence * QualityScale)
	trackQ := float32(cfg.MinTrackingConfidence * QualityScale)

	res := make([]pigo.Detection, 0, len(dets))
	for _, det := range dets {
		switch {
		case det.Q >= detQ:
			res = append(res, det)
		case !cfg.StaticMode && det.Q >= trackQ && pd.isTracked(det, cols, rows):
			res = append(res, det)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Q > res[j].Q
	})
	if len(res) > cfg.MaxFaces {
		res = res[:cfg.MaxFaces]
	}

	pd.tracked = pd.tracked[:0]
	if !cfg.StaticMode {
		for _, det := range res {
			pd.tracked = append(pd.tracked, trackedFace{
				x: float64(det.Col) / cols,
				y: float64(det.Row) / rows,
				r: float64(det.Scale) / 2 / math.Max(cols, rows),
			})
		}
	}
	return res
}

// isTracked reports whether the detection center falls inside a face of the previous frame.
func (pd *PigoDetector) isTracked(det pigo.Detection, cols, rows float64) bool {
	x, y := float64(det.Col)/cols, float64(det.Row)/rows
	scale := math.Max(cols, rows)

	for _, f := range pd.tracked {
		dx, dy := (x-f.x)*cols/scale, (y-f.y)*rows/scale
		if math.Hypot(dx, dy) <= f.r {
			return true
		}
	}
	return false
}

// landmarks localizes the pupils of the detected face, then runs the facial
// landmark point cascades anchored on the pupil positions.
// With refine set, the pupil localizer runs a second pass seeded from the first estimate.
func (pd *PigoDetector) landmarks(det pigo.Detection, imgParams pigo.ImageParams, refine bool) []pigo.Puploc {
	points := make([]pigo.Puploc, 0, PigoLandmarkCount)
	scale := float32(det.Scale)

	locate := func(col int) *pigo.Puploc {
		estimate := pigo.Puploc{
			Row:      det.Row - int(0.085*scale),
			Col:      col,
			Scale:    scale * 0.4,
			Perturbs: perturbs,
		}
		eye := pd.puploc.RunDetector(estimate, imgParams, pd.Angle, false)
		if eye == nil || eye.Row <= 0 || eye.Col <= 0 {
			// keep the initial estimate, the landmark count is fixed
			return &estimate
		}
		if refine {
			seed := estimate
			seed.Row, seed.Col = eye.Row, eye.Col
			if next := pd.puploc.RunDetector(seed, imgParams, pd.Angle, false); next != nil && next.Row > 0 && next.Col > 0 {
				eye = next
			}
		}
		return eye
	}
	leftEye := locate(det.Col - int(0.185*scale))
	rightEye := locate(det.Col + int(0.185*scale))
	points = append(points, *leftEye, *rightEye)

	flp := func(name string, flipV bool) pigo.Puploc {
		p := pd.flpcs[name].GetLandmarkPoint(leftEye, rightEye, imgParams, perturbs, flipV)
		if p == nil {
			return pigo.Puploc{Row: det.Row, Col: det.Col}
		}
		return *p
	}
	for _, name := range eyeCascades {
		points = append(points, flp(name, false), flp(name, true))
	}
	for _, name := range mouthCascades {
		points = append(points, flp(name, false))
	}
	points = append(points, flp("lp84", true))

	return points
}
