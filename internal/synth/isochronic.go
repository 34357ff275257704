// ABOUTME: Isochronic pulse gate
// ABOUTME: Raised-cosine ramps at each on/off edge keep the gate click-free
package synth

import (
	"fmt"
	"math"
)

// DefaultGateRamp is the edge ramp length when a spec leaves it unset
const DefaultGateRamp = 0.005

// IsochronicSpec gates the tone on and off at Rate pulses per second
type IsochronicSpec struct {
	Rate        float64 `yaml:"rate"`
	Duty        float64 `yaml:"duty"`
	RampSeconds float64 `yaml:"ramp_seconds,omitempty"`
}

// Gate evaluates an IsochronicSpec at a fixed sample rate
type Gate struct {
	spec       IsochronicSpec
	sampleRate int
	rampP      float64 // ramp length as a fraction of one pulse period
}

// NewGate creates a gate, stretching the edge ramp to the click bound when needed
func NewGate(spec IsochronicSpec, sampleRate int) (Gate, error) {
	if spec.Rate <= 0 {
		return Gate{}, fmt.Errorf("isochronic rate must be positive, got %.2f", spec.Rate)
	}
	if spec.Duty <= 0 || spec.Duty >= 1 {
		return Gate{}, fmt.Errorf("isochronic duty %.2f outside (0, 1)", spec.Duty)
	}

	ramp := spec.RampSeconds
	if ramp <= 0 {
		ramp = DefaultGateRamp
	}
	minRamp := float64(MinRampSamples()) / float64(sampleRate)
	if ramp < minRamp {
		ramp = minRamp
	}

	rampP := ramp * spec.Rate
	if rampP > spec.Duty/2 {
		rampP = spec.Duty / 2
	}

	// Each edge must span enough samples to stay under the step bound
	periodSamples := float64(sampleRate) / spec.Rate
	if rampP*periodSamples < float64(MinRampSamples())-1e-9 {
		return Gate{}, fmt.Errorf("isochronic %.2fHz at duty %.2f leaves %.0f samples per edge, need %d",
			spec.Rate, spec.Duty, math.Floor(rampP*periodSamples), MinRampSamples())
	}

	return Gate{spec: spec, sampleRate: sampleRate, rampP: rampP}, nil
}

// Gain returns the gate gain in [0,1] at sample n
func (g Gate) Gain(n int64) float64 {
	p := frac(g.spec.Rate, n, g.sampleRate)
	d := g.spec.Duty

	switch {
	case p >= d:
		return 0
	case p < g.rampP:
		return RaisedCosine(p / g.rampP)
	case p > d-g.rampP:
		return RaisedCosine((d - p) / g.rampP)
	default:
		return 1
	}
}
