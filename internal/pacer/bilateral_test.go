// ABOUTME: Tests for the bilateral stimulator
// ABOUTME: Checks sweep extremes, depth scaling and gain law
package pacer

import (
	"math"
	"testing"

	"github.com/resonance-audio/resonance/internal/synth"
)

func TestBilateral_Sweep(t *testing.T) {
	b := NewBilateral(BilateralSpec{Period: 2, Depth: 1}, testRate)

	tests := []struct {
		seconds float64
		want    float64
	}{
		{0, 0},     // centre, heading right
		{0.5, 1},   // hard right
		{1, 0},     // centre, heading left
		{1.5, -1},  // hard left
		{2, 0},     // next period
		{100.5, 1}, // many periods later
	}
	for _, tt := range tests {
		if got := b.Pan(at(tt.seconds)); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Pan(%vs) = %v, want %v", tt.seconds, got, tt.want)
		}
	}

	if b.Pan(at(0.25)) <= 0 {
		t.Error("sweep should move right first")
	}
}

func TestBilateral_DepthScales(t *testing.T) {
	half := NewBilateral(BilateralSpec{Period: 2, Depth: 0.5}, testRate)
	if got := half.Pan(at(0.5)); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("half depth extreme = %v, want 0.5", got)
	}

	none := NewBilateral(BilateralSpec{Period: 2, Depth: 0}, testRate)
	for _, s := range []float64{0, 0.5, 1.5} {
		if got := none.Pan(at(s)); got != 0 {
			t.Errorf("zero depth Pan(%vs) = %v, want 0", s, got)
		}
	}
}

func TestBilateral_GainStepBound(t *testing.T) {
	b := NewBilateral(BilateralSpec{Period: minBilateralPeriod, Depth: 1}, testRate)

	pl, pr := Gains(b.Pan(0))
	for n := int64(1); n < testRate*2; n++ {
		l, r := Gains(b.Pan(n))
		if math.Abs(l-pl) > synth.MaxGainStep || math.Abs(r-pr) > synth.MaxGainStep {
			t.Fatalf("gain step too large at n=%d", n)
		}
		pl, pr = l, r
	}
}

func TestGains(t *testing.T) {
	tests := []struct {
		pan         float64
		left, right float64
	}{
		{0, 1, 1},
		{1, 0, 1},
		{-1, 1, 0},
		{0.5, 0.5, 1},
	}
	for _, tt := range tests {
		l, r := Gains(tt.pan)
		if l != tt.left || r != tt.right {
			t.Errorf("Gains(%v) = (%v, %v), want (%v, %v)", tt.pan, l, r, tt.left, tt.right)
		}
	}
}

func TestBilateralSpec_Validate(t *testing.T) {
	if err := (BilateralSpec{Period: 4, Depth: 0.8}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (BilateralSpec{Depth: 0}).Validate(); err != nil {
		t.Errorf("disabled sweep should validate: %v", err)
	}
	if err := (BilateralSpec{Period: 0.1, Depth: 1}).Validate(); err == nil {
		t.Error("expected error for short period")
	}
	if err := (BilateralSpec{Period: 4, Depth: 1.5}).Validate(); err == nil {
		t.Error("expected error for depth > 1")
	}
}
