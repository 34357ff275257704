// ABOUTME: Tests for configuration loading, env overrides, presets and resolution
// ABOUTME: Every built-in preset must resolve to a valid session configuration
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/internal/session"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Preset != "calm-alpha" || cfg.SampleRate != 44100 {
		t.Fatalf("unexpected defaults: preset=%s rate=%d", cfg.Preset, cfg.SampleRate)
	}
	if cfg.Speech.RenderTimeout != 30*time.Second {
		t.Fatalf("expected 30s render timeout, got %v", cfg.Speech.RenderTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RESONANCE_PRESET", "deep-theta")
	t.Setenv("RESONANCE_SAMPLE_RATE", "48000")
	t.Setenv("RESONANCE_DURATION", "90s")
	t.Setenv("RESONANCE_OUTPUT_MODE", "file")
	t.Setenv("RESONANCE_OUTPUT_PATH", "/tmp/out.flac")
	t.Setenv("RESONANCE_OUTPUT_BIT_DEPTH", "16")
	t.Setenv("RESONANCE_SPEECH_ENGINE", "exec")
	t.Setenv("RESONANCE_SPEECH_COMMAND", "espeak --stdout {text}")
	t.Setenv("RESONANCE_SPEECH_RENDER_TIMEOUT", "5s")
	t.Setenv("RESONANCE_AFFIRM_EXHAUST", "Advance")
	t.Setenv("RESONANCE_AFFIRM_VOICE_GAIN", "0.6")
	t.Setenv("RESONANCE_TELEMETRY_OTLP_INSECURE", "true")
	t.Setenv("RESONANCE_BROADCAST_PORT", "9000")
	t.Setenv("RESONANCE_UI_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Preset != "deep-theta" || cfg.SampleRate != 48000 {
		t.Fatalf("expected preset and rate override, got %s %d", cfg.Preset, cfg.SampleRate)
	}
	if cfg.Duration != 90*time.Second {
		t.Fatalf("expected 90s, got %v", cfg.Duration)
	}
	if cfg.Output.Mode != "file" || cfg.Output.Path != "/tmp/out.flac" || cfg.Output.BitDepth != 16 {
		t.Fatalf("expected output override, got %+v", cfg.Output)
	}
	if cfg.Speech.Engine != "exec" || cfg.Speech.RenderTimeout != 5*time.Second {
		t.Fatalf("expected speech override, got %+v", cfg.Speech)
	}
	if cfg.Affirm.Exhaust != affirm.ExhaustAdvance || cfg.Affirm.VoiceGain != 0.6 {
		t.Fatalf("expected affirmation override, got %+v", cfg.Affirm)
	}
	if !cfg.Telemetry.OTLPInsecure || cfg.Broadcast.Port != 9000 || cfg.UI.Enabled {
		t.Fatalf("expected telemetry, broadcast and ui overrides")
	}
}

func TestEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("RESONANCE_SAMPLE_RATE", "fast")
	t.Setenv("RESONANCE_DURATION", "forever")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SampleRate != 44100 || cfg.Duration != 0 {
		t.Fatalf("unparseable env values should be ignored, got %d %v", cfg.SampleRate, cfg.Duration)
	}
}

func TestLoadFile(t *testing.T) {
	data := `
preset: my-preset
duration: 2m
output:
  mode: file
  path: out.wav
  bit_depth: 16
speech:
  engine: none
presets:
  - name: my-preset
    tone: {frequency: 210, binaural_offset: 5}
    breath: {inhale: 3, hold_in: 0, exhale: 3, hold_out: 0}
    breath_floor: 0
  - name: minimal
    tone: {frequency: 300}
    breath: {inhale: 2, hold_in: 0, exhale: 2, hold_out: 0}
`
	path := filepath.Join(t.TempDir(), "resonance.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Mode != "file" || cfg.Duration != 2*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg.Output)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("defaults should survive a partial file, got rate %d", cfg.SampleRate)
	}

	all := cfg.AllPresets()
	if len(all) != 21 {
		t.Errorf("expected 20 built-in + 1 new preset, got %d", len(all))
	}
	if p, _ := cfg.FindPreset("minimal"); p.Tone.Frequency != 300 {
		t.Errorf("user preset should replace built-in minimal, got %v", p.Tone.Frequency)
	}

	sc, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sc.Tone.Frequency != 210 || sc.BreathFloor != 0 || sc.Amplitude != mixer.DefaultAmplitude {
		t.Errorf("resolved mix = %+v", sc)
	}
	if sc.Mode != session.ModeFile || sc.BitDepth != 16 || sc.Duration != 2*time.Minute {
		t.Errorf("resolved output = %s %d %v", sc.Mode, sc.BitDepth, sc.Duration)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty preset", func(c *Config) { c.Preset = "" }, "preset"},
		{"sample rate", func(c *Config) { c.SampleRate = 0 }, "sample_rate"},
		{"mode", func(c *Config) { c.Output.Mode = "stream" }, "output.mode"},
		{"backend", func(c *Config) { c.Output.Backend = "alsa" }, "output.backend"},
		{"file without path", func(c *Config) { c.Output.Mode = "file" }, "output.path"},
		{"engine", func(c *Config) { c.Speech.Engine = "festival" }, "speech.engine"},
		{"exec without command", func(c *Config) { c.Speech.Engine = "exec" }, "speech.command"},
		{"openai without key", func(c *Config) { c.Speech.Engine = "openai" }, "speech.openai.api_key"},
		{"script and book", func(c *Config) { c.Affirm.Script = "a"; c.Affirm.Book = "b" }, "affirmations"},
		{"exhaust", func(c *Config) { c.Affirm.Exhaust = "shuffle" }, "affirmations.exhaust"},
		{"broadcast codec", func(c *Config) { c.Broadcast.Enabled = true; c.Broadcast.Codec = "mp3" }, "broadcast.codec"},
		{"events subject", func(c *Config) { c.Events.URL = "nats://x"; c.Events.Subject = "" }, "events.subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			var cfgErr *session.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestBuiltinPresetsResolve(t *testing.T) {
	presets := Presets()
	if len(presets) != 20 {
		t.Fatalf("expected 20 built-in presets, got %d", len(presets))
	}

	seen := map[string]bool{}
	for _, p := range presets {
		t.Run(p.Name, func(t *testing.T) {
			if seen[p.Name] {
				t.Fatalf("duplicate preset %s", p.Name)
			}
			seen[p.Name] = true
			if p.Description == "" || p.Duration <= 0 {
				t.Errorf("preset needs a description and a duration")
			}
			if p.Summary() == "" {
				t.Error("empty summary")
			}

			cfg := Default()
			cfg.Preset = p.Name
			if _, err := Resolve(cfg); err != nil {
				t.Fatalf("Resolve: %v", err)
			}
		})
	}
}

func TestLookupPreset(t *testing.T) {
	p, ok := LookupPreset("Gamma-40")
	if !ok {
		t.Fatal("expected case-insensitive match")
	}
	if p.Isochronic == nil || p.Isochronic.Rate != 40 {
		t.Errorf("gamma-40 isochronic = %+v", p.Isochronic)
	}
	if _, ok := LookupPreset("nope"); ok {
		t.Error("unexpected match")
	}

	ramp, _ := LookupPreset("wind-down")
	if ramp.Tone.Ramp == nil || ramp.Tone.Ramp.Seconds != 1200 {
		t.Errorf("wind-down ramp = %+v", ramp.Tone.Ramp)
	}
}

func TestResolveErrors(t *testing.T) {
	t.Run("unknown preset", func(t *testing.T) {
		cfg := Default()
		cfg.Preset = "nope"
		var cfgErr *session.ConfigurationError
		if _, err := Resolve(cfg); !errors.As(err, &cfgErr) || cfgErr.Field != "preset" {
			t.Fatalf("expected preset error, got %v", err)
		}
	})

	t.Run("affirmations without engine", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), "script.yaml")
		data := "rounds:\n  - triplets:\n      - [\"a\", \"b\", \"c\"]\n"
		if err := os.WriteFile(script, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg := Default()
		cfg.Affirm.Script = script
		cfg.Speech.Engine = "none"
		var cfgErr *session.ConfigurationError
		if _, err := Resolve(cfg); !errors.As(err, &cfgErr) || cfgErr.Field != "speech.engine" {
			t.Fatalf("expected speech.engine error, got %v", err)
		}
	})

	t.Run("missing book", func(t *testing.T) {
		cfg := Default()
		cfg.Affirm.Book = filepath.Join(t.TempDir(), "missing.txt")
		var cfgErr *session.ConfigurationError
		if _, err := Resolve(cfg); !errors.As(err, &cfgErr) || cfgErr.Field != "affirmations.book" {
			t.Fatalf("expected book error, got %v", err)
		}
	})
}

func TestResolveScriptFillsVoices(t *testing.T) {
	script := filepath.Join(t.TempDir(), "script.yaml")
	data := "rounds:\n  - voices: {anchor: Samantha}\n    triplets:\n      - [\"a\", \"b\", \"c\"]\n"
	if err := os.WriteFile(script, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Affirm.Script = script
	cfg.Speech.Voice = "Daniel"

	sc, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sc.Rounds) != 1 || sc.Rounds[0].Len() != 3 {
		t.Fatalf("rounds = %+v", sc.Rounds)
	}
	u := sc.Rounds[0].Utterances
	if u[0].Voice != "Samantha" || u[1].Voice != "Daniel" || u[2].Voice != "Daniel" {
		t.Errorf("voices = %s %s %s", u[0].Voice, u[1].Voice, u[2].Voice)
	}
}
