// ABOUTME: Application configuration loaded from YAML with RESONANCE_* env overrides
// ABOUTME: Validation failures are reported as session configuration errors
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/session"
)

// OutputConfig selects the sink. Path is the file mode target (.flac or .wav);
// Device is a name substring matched by the malgo backend.
type OutputConfig struct {
	Mode      string `yaml:"mode"`
	Path      string `yaml:"path"`
	BitDepth  int    `yaml:"bit_depth"`
	Backend   string `yaml:"backend"`
	Device    string `yaml:"device"`
	BufferMS  int    `yaml:"buffer_ms"`
	FrameSize int    `yaml:"frame_size"`
}

type OpenAIConfig struct {
	APIKey  string  `yaml:"api_key"`
	BaseURL string  `yaml:"base_url"`
	Model   string  `yaml:"model"`
	Speed   float64 `yaml:"speed"`
}

type SpeechConfig struct {
	Engine        string        `yaml:"engine"` // none, tone, exec, openai
	Command       string        `yaml:"command"`
	Voice         string        `yaml:"voice"`
	RawRate       int           `yaml:"raw_sample_rate"`
	Workers       int           `yaml:"workers"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
	CacheSize     int           `yaml:"cache_size"`
	OpenAI        OpenAIConfig  `yaml:"openai"`
}

type AffirmConfig struct {
	Script     string         `yaml:"script"`
	Book       string         `yaml:"book"`
	Exhaust    affirm.Exhaust `yaml:"exhaust"`
	StartCycle int64          `yaml:"start_cycle"`
	Lookahead  int            `yaml:"lookahead"`
	MaxQueued  int            `yaml:"max_queued"`
	VoiceGain  float64        `yaml:"voice_gain"`
}

type TelemetryConfig struct {
	MetricsBind  string `yaml:"metrics_bind"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type BroadcastConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
	Codec   string `yaml:"codec"` // opus, pcm
	MDNS    bool   `yaml:"mdns"`
}

type EventsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type UIConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogFile string `yaml:"log_file"`
}

type Config struct {
	Preset     string          `yaml:"preset"`
	SampleRate int             `yaml:"sample_rate"`
	Duration   time.Duration   `yaml:"duration"` // overrides the preset's length when set
	FadeIn     float64         `yaml:"fade_in"`
	FadeOut    float64         `yaml:"fade_out"`
	Output     OutputConfig    `yaml:"output"`
	Speech     SpeechConfig    `yaml:"speech"`
	Affirm     AffirmConfig    `yaml:"affirmations"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Broadcast  BroadcastConfig `yaml:"broadcast"`
	Events     EventsConfig    `yaml:"events"`
	History    HistoryConfig   `yaml:"history"`
	UI         UIConfig        `yaml:"ui"`
	Presets    []Preset        `yaml:"presets"`
}

func Default() Config {
	return Config{
		Preset:     "calm-alpha",
		SampleRate: 44100,
		FadeIn:     1,
		FadeOut:    1,
		Output: OutputConfig{
			Mode:      "live",
			BitDepth:  24,
			Backend:   "oto",
			BufferMS:  200,
			FrameSize: 1024,
		},
		Speech: SpeechConfig{
			Engine:        "tone",
			Voice:         "default",
			RawRate:       22050,
			Workers:       2,
			RenderTimeout: 30 * time.Second,
			CacheSize:     512,
			OpenAI: OpenAIConfig{
				Model: "tts-1",
				Speed: 0.9,
			},
		},
		Affirm: AffirmConfig{
			Exhaust:    affirm.ExhaustLoop,
			StartCycle: 1,
			Lookahead:  2,
			MaxQueued:  4,
			VoiceGain:  0.8,
		},
		Broadcast: BroadcastConfig{
			Port:  8927,
			Name:  "resonance",
			Codec: "opus",
			MDNS:  true,
		},
		Events: EventsConfig{
			Subject: "resonance.session",
		},
		UI: UIConfig{
			Enabled: true,
			LogFile: "resonance.log",
		},
	}
}

// Load reads path (optional), applies env overrides and validates
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Preset, "RESONANCE_PRESET")
	overrideInt(&cfg.SampleRate, "RESONANCE_SAMPLE_RATE")
	overrideDuration(&cfg.Duration, "RESONANCE_DURATION")
	overrideFloat(&cfg.FadeIn, "RESONANCE_FADE_IN")
	overrideFloat(&cfg.FadeOut, "RESONANCE_FADE_OUT")
	overrideString(&cfg.Output.Mode, "RESONANCE_OUTPUT_MODE")
	overrideString(&cfg.Output.Path, "RESONANCE_OUTPUT_PATH")
	overrideInt(&cfg.Output.BitDepth, "RESONANCE_OUTPUT_BIT_DEPTH")
	overrideString(&cfg.Output.Backend, "RESONANCE_OUTPUT_BACKEND")
	overrideString(&cfg.Output.Device, "RESONANCE_OUTPUT_DEVICE")
	overrideInt(&cfg.Output.BufferMS, "RESONANCE_OUTPUT_BUFFER_MS")
	overrideInt(&cfg.Output.FrameSize, "RESONANCE_OUTPUT_FRAME_SIZE")
	overrideString(&cfg.Speech.Engine, "RESONANCE_SPEECH_ENGINE")
	overrideString(&cfg.Speech.Command, "RESONANCE_SPEECH_COMMAND")
	overrideString(&cfg.Speech.Voice, "RESONANCE_SPEECH_VOICE")
	overrideInt(&cfg.Speech.RawRate, "RESONANCE_SPEECH_RAW_SAMPLE_RATE")
	overrideInt(&cfg.Speech.Workers, "RESONANCE_SPEECH_WORKERS")
	overrideDuration(&cfg.Speech.RenderTimeout, "RESONANCE_SPEECH_RENDER_TIMEOUT")
	overrideInt(&cfg.Speech.CacheSize, "RESONANCE_SPEECH_CACHE_SIZE")
	overrideString(&cfg.Speech.OpenAI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.Speech.OpenAI.APIKey, "RESONANCE_OPENAI_API_KEY")
	overrideString(&cfg.Speech.OpenAI.BaseURL, "RESONANCE_OPENAI_BASE_URL")
	overrideString(&cfg.Speech.OpenAI.Model, "RESONANCE_OPENAI_MODEL")
	overrideFloat(&cfg.Speech.OpenAI.Speed, "RESONANCE_OPENAI_SPEED")
	overrideString(&cfg.Affirm.Script, "RESONANCE_AFFIRM_SCRIPT")
	overrideString(&cfg.Affirm.Book, "RESONANCE_AFFIRM_BOOK")
	overrideExhaust(&cfg.Affirm.Exhaust, "RESONANCE_AFFIRM_EXHAUST")
	overrideInt(&cfg.Affirm.Lookahead, "RESONANCE_AFFIRM_LOOKAHEAD")
	overrideFloat(&cfg.Affirm.VoiceGain, "RESONANCE_AFFIRM_VOICE_GAIN")
	overrideString(&cfg.Telemetry.MetricsBind, "RESONANCE_TELEMETRY_METRICS_BIND")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "RESONANCE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "RESONANCE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Broadcast.Enabled, "RESONANCE_BROADCAST_ENABLED")
	overrideInt(&cfg.Broadcast.Port, "RESONANCE_BROADCAST_PORT")
	overrideString(&cfg.Broadcast.Codec, "RESONANCE_BROADCAST_CODEC")
	overrideBool(&cfg.Broadcast.MDNS, "RESONANCE_BROADCAST_MDNS")
	overrideString(&cfg.Events.URL, "RESONANCE_EVENTS_URL")
	overrideString(&cfg.Events.Subject, "RESONANCE_EVENTS_SUBJECT")
	overrideString(&cfg.History.Path, "RESONANCE_HISTORY_PATH")
	overrideBool(&cfg.UI.Enabled, "RESONANCE_UI_ENABLED")
	overrideString(&cfg.UI.LogFile, "RESONANCE_UI_LOG_FILE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}

func overrideExhaust(target *affirm.Exhaust, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = affirm.Exhaust(strings.ToLower(strings.TrimSpace(value)))
	}
}

// Validate checks settings that do not depend on the chosen preset
func Validate(cfg Config) error {
	invalid := func(field, msg string) error {
		return &session.ConfigurationError{Field: field, Err: errors.New(msg)}
	}

	if cfg.Preset == "" {
		return invalid("preset", "must not be empty")
	}
	if cfg.SampleRate <= 0 {
		return invalid("sample_rate", "must be positive")
	}
	if cfg.Duration < 0 {
		return invalid("duration", "must not be negative")
	}
	switch cfg.Output.Mode {
	case "live":
		switch cfg.Output.Backend {
		case "oto", "malgo", "headless":
		default:
			return invalid("output.backend", "must be one of oto|malgo|headless")
		}
	case "file":
		if cfg.Output.Path == "" {
			return invalid("output.path", "must be set when mode=file")
		}
	default:
		return invalid("output.mode", "must be one of live|file")
	}
	if cfg.Output.BufferMS < 0 || cfg.Output.FrameSize < 0 {
		return invalid("output", "buffer_ms and frame_size must be >= 0")
	}

	switch cfg.Speech.Engine {
	case "none", "tone":
	case "exec":
		if cfg.Speech.Command == "" {
			return invalid("speech.command", "must be set when engine=exec")
		}
	case "openai":
		if cfg.Speech.OpenAI.APIKey == "" {
			return invalid("speech.openai.api_key", "must be set when engine=openai (or OPENAI_API_KEY)")
		}
	default:
		return invalid("speech.engine", "must be one of none|tone|exec|openai")
	}
	if cfg.Speech.Workers < 0 {
		return invalid("speech.workers", "must be >= 0")
	}

	if cfg.Affirm.Script != "" && cfg.Affirm.Book != "" {
		return invalid("affirmations", "script and book are mutually exclusive")
	}
	switch cfg.Affirm.Exhaust {
	case affirm.ExhaustLoop, affirm.ExhaustAdvance, affirm.ExhaustSilent:
	default:
		return invalid("affirmations.exhaust", "must be one of loop|advance|silent")
	}

	if cfg.Broadcast.Enabled {
		if cfg.Broadcast.Port <= 0 || cfg.Broadcast.Port > 65535 {
			return invalid("broadcast.port", "must be between 1 and 65535")
		}
		switch cfg.Broadcast.Codec {
		case "opus", "pcm":
		default:
			return invalid("broadcast.codec", "must be one of opus|pcm")
		}
	}
	if cfg.Events.URL != "" && cfg.Events.Subject == "" {
		return invalid("events.subject", "must be set when events.url is configured")
	}

	for _, p := range cfg.Presets {
		if p.Name == "" {
			return invalid("presets", "user preset without a name")
		}
	}
	return nil
}
