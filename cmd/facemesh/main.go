package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/esimov/facemesh"
	"github.com/esimov/facemesh/utils"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌┬┐┌─┐┌─┐┬ ┬
├┤ ├─┤│  ├┤ │││├┤ └─┐├─┤
└  ┴ ┴└─┘└─┘┴ ┴└─┘└─┘┴ ┴

Facial landmark locator and distance measurer.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

func main() {
	// The .env file is optional, the flags fall back to the built-in defaults without it.
	_ = godotenv.Load()

	defaults := facemesh.DefaultConfig()
	maxFaces := defaults.MaxFaces
	if v, ok := os.LookupEnv("FACEMESH_MAX_FACES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			maxFaces = n
		}
	}

	var (
		// Flags
		source      = flag.String("in", pipeName, "Source image, URL or directory")
		destination = flag.String("out", pipeName, "Destination image or directory")
		cascadeDir  = flag.String("cc", os.Getenv("FACEMESH_CASCADE_DIR"), "Directory of the Pigo cascade files (the bundled cascades are used when empty)")
		static      = flag.Bool("static", true, "Treat the images as unrelated (disable face tracking)")
		faces       = flag.Int("faces", maxFaces, "Maximum number of faces to detect")
		detConf     = flag.Float64("det", defaults.MinDetectionConfidence, "Minimum detection confidence [0, 1]")
		trackConf   = flag.Float64("track", defaults.MinTrackingConfidence, "Minimum tracking confidence [0, 1]")
		refine      = flag.Bool("refine", defaults.RefineLandmarks, "Refine the landmark localization")
		draw        = flag.Bool("draw", true, "Draw the landmarks and the measurement")
		face        = flag.Int("face", 0, "Index of the measured face")
		from        = flag.Int("from", -1, "Index of the first measured landmark")
		to          = flag.Int("to", -1, "Index of the second measured landmark")
		report      = flag.String("json", "", "Write the JSON report to this file (- for stdout)")
		workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := utils.NewLogger(os.Stderr, *debug)

	proc := &facemesh.Processor{
		Config: facemesh.Config{
			StaticMode:             *static,
			MaxFaces:               *faces,
			MinDetectionConfidence: *detConf,
			MinTrackingConfidence:  *trackConf,
			RefineLandmarks:        *refine,
		},
		CascadeDir: *cascadeDir,
		Draw:       *draw,
		Logger:     logger,
	}
	if err := proc.Config.Validate(); err != nil {
		logger.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}

	if *from >= 0 || *to >= 0 {
		if *from < 0 || *to < 0 {
			logger.Fatal(utils.DecorateText("Both -from and -to should be provided for the measurement!", utils.ErrorMessage))
		}
		proc.Pair = &facemesh.Pair{Face: *face, From: *from, To: *to}
	}

	op := &facemesh.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		JSON:     *report,
		Workers:  *workers,
	}
	if err := proc.Execute(op); err != nil {
		logger.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}
}
