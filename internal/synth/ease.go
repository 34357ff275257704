// ABOUTME: Easing curves shared by every modulation layer
// ABOUTME: Smoothstep for breath and pan, raised cosine for gates and clip edges
package synth

import "math"

// MaxGainStep bounds how far any gain envelope may move between consecutive samples
const MaxGainStep = 0.01

// Smoothstep eases x in [0,1] with 3x^2-2x^3. Slope peaks at 1.5 in the middle
// and is zero at both ends, so phases join without corners.
func Smoothstep(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}

// RaisedCosine eases x in [0,1] with half a cosine period. Peak slope is pi/2.
func RaisedCosine(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(math.Pi*x)
}

// MinRampSamples is the shortest raised-cosine ramp that stays within MaxGainStep
func MinRampSamples() int {
	return int(math.Ceil(math.Pi / (2 * MaxGainStep)))
}

// frac returns the fractional part of cycles elapsed after n samples at hz,
// computed as (hz*n mod sampleRate)/sampleRate so long sessions keep precision
func frac(hz float64, n int64, sampleRate int) float64 {
	sr := float64(sampleRate)
	p := math.Mod(hz*float64(n), sr) / sr
	if p < 0 {
		p += 1
	}
	return p
}
