// ABOUTME: Resolves application configuration into a validated session configuration
// ABOUTME: Combines the chosen preset with output, speech and affirmation settings
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/internal/session"
)

// Resolve builds a session.Config from the preset and settings. Errors are
// *session.ConfigurationError.
func Resolve(cfg Config) (session.Config, error) {
	if err := Validate(cfg); err != nil {
		return session.Config{}, err
	}

	preset, ok := cfg.FindPreset(cfg.Preset)
	if !ok {
		return session.Config{}, &session.ConfigurationError{
			Field: "preset",
			Err:   fmt.Errorf("unknown preset %q (see -list-presets)", cfg.Preset),
		}
	}

	duration := preset.Duration
	if cfg.Duration > 0 {
		duration = cfg.Duration
	}

	floor := mixer.DefaultFloor
	if preset.BreathFloor != nil {
		floor = *preset.BreathFloor
	}
	amplitude := preset.Amplitude
	if amplitude == 0 {
		amplitude = mixer.DefaultAmplitude
	}

	sc := session.Config{
		Preset:       preset.Name,
		SampleRate:   cfg.SampleRate,
		FrameSize:    cfg.Output.FrameSize,
		Duration:     duration,
		Mode:         session.Mode(cfg.Output.Mode),
		OutPath:      ExpandHome(cfg.Output.Path),
		BitDepth:     cfg.Output.BitDepth,
		Tone:         preset.Tone,
		Amplitude:    amplitude,
		Isochronic:   preset.Isochronic,
		Breath:       preset.Breath,
		BreathTarget: preset.BreathTarget,
		BreathFloor:  floor,
		Bilateral:    preset.Bilateral,
		VoiceGain:    cfg.Affirm.VoiceGain,
		FadeIn:       cfg.FadeIn,
		FadeOut:      cfg.FadeOut,

		Exhaust:    cfg.Affirm.Exhaust,
		StartCycle: cfg.Affirm.StartCycle,
		Lookahead:  cfg.Affirm.Lookahead,
		MaxQueued:  cfg.Affirm.MaxQueued,

		Workers:       cfg.Speech.Workers,
		RenderTimeout: cfg.Speech.RenderTimeout,
		CacheSize:     cfg.Speech.CacheSize,
	}
	if sc.Mode == session.ModeFile && sc.Duration == 0 {
		return session.Config{}, &session.ConfigurationError{
			Field: "duration",
			Err:   fmt.Errorf("preset %s has no length; set -duration for file output", preset.Name),
		}
	}

	rounds, err := loadRounds(cfg)
	if err != nil {
		return session.Config{}, err
	}
	if len(rounds) > 0 && cfg.Speech.Engine == "none" {
		return session.Config{}, &session.ConfigurationError{
			Field: "speech.engine",
			Err:   fmt.Errorf("affirmations need a speech engine"),
		}
	}
	sc.Rounds = rounds

	if err := sc.Validate(); err != nil {
		return session.Config{}, err
	}
	return sc, nil
}

func loadRounds(cfg Config) ([]affirm.Round, error) {
	switch {
	case cfg.Affirm.Script != "":
		rounds, err := affirm.LoadScript(ExpandHome(cfg.Affirm.Script))
		if err != nil {
			return nil, &session.ConfigurationError{Field: "affirmations.script", Err: err}
		}
		for _, r := range rounds {
			for i := range r.Utterances {
				if r.Utterances[i].Voice == "" {
					r.Utterances[i].Voice = cfg.Speech.Voice
				}
			}
		}
		return rounds, nil
	case cfg.Affirm.Book != "":
		round, err := affirm.LoadBook(ExpandHome(cfg.Affirm.Book), cfg.Speech.Voice)
		if err != nil {
			return nil, &session.ConfigurationError{Field: "affirmations.book", Err: err}
		}
		return []affirm.Round{round}, nil
	default:
		return nil, nil
	}
}

// ExpandHome resolves a leading ~/ against the user home directory
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
