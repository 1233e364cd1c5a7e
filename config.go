package facemesh

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Config holds the options passed to the landmark detection backend.
// It is set once when the Locator is constructed and never revisited per frame.
type Config struct {
	// StaticMode treats every frame as an unrelated still image.
	// When false, the backend may use the previous frame to keep tracking the faces.
	StaticMode bool
	// MaxFaces is the maximum number of faces reported per frame.
	MaxFaces int `validate:"gte=1"`
	// MinDetectionConfidence is the minimum score for a face to be considered detected.
	MinDetectionConfidence float64 `validate:"gte=0,lte=1"`
	// MinTrackingConfidence is the minimum score for a face to be considered tracked
	// from the previous frame. It is ignored in static mode.
	MinTrackingConfidence float64 `validate:"gte=0,lte=1"`
	// RefineLandmarks asks the backend for a more accurate landmark localization.
	RefineLandmarks bool
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		StaticMode:             false,
		MaxFaces:               2,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		RefineLandmarks:        false,
	}
}

var validate = validator.New()

// Validate checks the configuration values against their permitted ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Errorf("invalid config: %s must satisfy %s=%s, got %v",
				fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
