package imop

import (
	"github.com/esimov/facemesh/utils"
)

const (
	Normal   = ""
	Darken   = "darken"
	Lighten  = "lighten"
	Multiply = "multiply"
	Screen   = "screen"
	Overlay  = "overlay"
)

// Blend holds the currently active blend mode.
type Blend struct {
	OpType string
}

// NewBlend initializes a new Blend.
func NewBlend() *Blend {
	return &Blend{}
}

// Set activates one of the supported blend modes.
func (b *Blend) Set(opType string) {
	modes := []string{Normal, Darken, Lighten, Multiply, Screen, Overlay}

	if utils.Contains(modes, opType) {
		b.OpType = opType
	}
}

// Get returns the currently active blend mode.
func (b *Blend) Get() string {
	return b.OpType
}

// apply mixes the backdrop channel cb with the source channel cs.
func (b *Blend) apply(cb, cs float64) float64 {
	switch b.OpType {
	case Darken:
		return utils.Min(cb, cs)
	case Lighten:
		return utils.Max(cb, cs)
	case Multiply:
		return cb * cs
	case Screen:
		return cb + cs - cb*cs
	case Overlay:
		// hard light with the operands swapped
		if cb <= 0.5 {
			return 2 * cs * cb
		}
		t := 2*cb - 1
		return cs + t - cs*t
	}
	return cs
}
