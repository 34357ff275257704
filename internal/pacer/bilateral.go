// ABOUTME: Bilateral stimulator sweeping stereo emphasis left and right
// ABOUTME: Runs on its own clock, independent of breath
package pacer

import (
	"fmt"
	"math"

	"github.com/resonance-audio/resonance/internal/synth"
)

// minBilateralPeriod keeps the sweep within the per-sample step bound with margin
const minBilateralPeriod = 0.5

// BilateralSpec describes the left/right sweep
type BilateralSpec struct {
	Period float64 `yaml:"period"`
	Depth  float64 `yaml:"depth"`
}

// Validate checks the sweep parameters
func (s BilateralSpec) Validate() error {
	if s.Depth < 0 || s.Depth > 1 {
		return fmt.Errorf("bilateral depth %.2f outside [0, 1]", s.Depth)
	}
	if s.Depth > 0 && s.Period < minBilateralPeriod {
		return fmt.Errorf("bilateral period must be at least %.1fs, got %.2fs", minBilateralPeriod, s.Period)
	}
	return nil
}

// Bilateral evaluates a BilateralSpec in samples
type Bilateral struct {
	spec   BilateralSpec
	period int64
}

// NewBilateral creates a stimulator
func NewBilateral(spec BilateralSpec, sampleRate int) Bilateral {
	return Bilateral{
		spec:   spec,
		period: int64(math.Round(spec.Period * float64(sampleRate))),
	}
}

// Pan returns the pan position in [-depth, +depth] at sample n. The sweep
// starts centred and moving right, easing into each side.
func (b Bilateral) Pan(n int64) float64 {
	if b.spec.Depth == 0 || b.period <= 0 {
		return 0
	}

	// Offset by a quarter period so sample 0 sits at centre
	pos := (n + b.period/4) % b.period
	x := float64(pos) / float64(b.period)

	var p float64
	if x < 0.5 {
		p = -1 + 2*synth.Smoothstep(2*x)
	} else {
		p = 1 - 2*synth.Smoothstep(2*x-1)
	}
	return p * b.spec.Depth
}

// Gains converts a pan position to left/right channel gains. Centre is unity
// on both sides; moving right attenuates the left channel and vice versa.
func Gains(pan float64) (left, right float64) {
	left = math.Min(1, 1-pan)
	right = math.Min(1, 1+pan)
	return left, right
}
