// ABOUTME: Built-in session presets embedded from presets.yaml
// ABOUTME: Presets are data: tone, breath, isochronic and bilateral settings per name
package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/synth"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is a named set of generator settings
type Preset struct {
	Name         string                `yaml:"name"`
	Description  string                `yaml:"description"`
	Duration     time.Duration         `yaml:"duration"`
	Tone         synth.ToneSpec        `yaml:"tone"`
	Amplitude    float64               `yaml:"amplitude"`
	Isochronic   *synth.IsochronicSpec `yaml:"isochronic,omitempty"`
	Breath       pacer.BreathProfile   `yaml:"breath"`
	BreathTarget mixer.BreathTarget    `yaml:"breath_target"`
	BreathFloor  *float64              `yaml:"breath_floor,omitempty"`
	Bilateral    *pacer.BilateralSpec  `yaml:"bilateral,omitempty"`
}

// Summary returns a one-line description of the preset's layers
func (p Preset) Summary() string {
	var parts []string
	if r := p.Tone.Ramp; r != nil {
		parts = append(parts, fmt.Sprintf("%.0f→%.0fHz", r.Start, r.End))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fHz", p.Tone.Frequency))
	}
	if p.Tone.BinauralOffset > 0 {
		parts = append(parts, fmt.Sprintf("beat %.2fHz", p.Tone.BinauralOffset))
	}
	if p.Isochronic != nil {
		parts = append(parts, fmt.Sprintf("iso %.1fHz", p.Isochronic.Rate))
	}
	b := p.Breath
	parts = append(parts, fmt.Sprintf("breath %g-%g-%g-%g", b.Inhale, b.HoldIn, b.Exhale, b.HoldOut))
	if p.Bilateral != nil {
		parts = append(parts, fmt.Sprintf("pan %.1fs", p.Bilateral.Period))
	}
	return strings.Join(parts, ", ")
}

var (
	builtinOnce sync.Once
	builtin     []Preset
	builtinErr  error
)

func loadBuiltin() ([]Preset, error) {
	builtinOnce.Do(func() {
		var table struct {
			Presets []Preset `yaml:"presets"`
		}
		if err := yaml.Unmarshal(presetsYAML, &table); err != nil {
			builtinErr = fmt.Errorf("failed to parse built-in presets: %w", err)
			return
		}
		builtin = table.Presets
	})
	return builtin, builtinErr
}

// Presets returns the built-in presets in table order
func Presets() []Preset {
	presets, err := loadBuiltin()
	if err != nil {
		panic(err)
	}
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a built-in preset by name, ignoring case
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// AllPresets returns the built-in presets with user presets merged in.
// A user preset replaces a built-in one of the same name.
func (c Config) AllPresets() []Preset {
	all := Presets()
	for _, user := range c.Presets {
		replaced := false
		for i := range all {
			if strings.EqualFold(all[i].Name, user.Name) {
				all[i] = user
				replaced = true
				break
			}
		}
		if !replaced {
			all = append(all, user)
		}
	}
	return all
}

// FindPreset looks a preset up among built-in and user presets
func (c Config) FindPreset(name string) (Preset, bool) {
	for _, p := range c.AllPresets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}
