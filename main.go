// ABOUTME: Entry point for the resonance session engine
// ABOUTME: Parses CLI flags, wires sinks, speech, telemetry and listeners, then runs one session
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/resonance-audio/resonance/internal/broadcast"
	"github.com/resonance-audio/resonance/internal/config"
	"github.com/resonance-audio/resonance/internal/events"
	"github.com/resonance-audio/resonance/internal/history"
	"github.com/resonance-audio/resonance/internal/session"
	"github.com/resonance-audio/resonance/internal/speech"
	"github.com/resonance-audio/resonance/internal/telemetry"
	"github.com/resonance-audio/resonance/internal/ui"
	"github.com/resonance-audio/resonance/internal/version"
	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/output"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	preset      = flag.String("preset", "", "Preset name (see -list-presets)")
	listPresets = flag.Bool("list-presets", false, "Print the preset table and exit")
	outputMode  = flag.String("output", "", "Output mode: live or file")
	outPath     = flag.String("out", "", "File to render to in file mode (.flac or .wav)")
	duration    = flag.Duration("duration", 0, "Session length, overrides the preset")
	device      = flag.String("device", "", "Output device name substring (malgo backend)")
	backend     = flag.String("backend", "", "Live backend: oto, malgo or headless")
	tts         = flag.String("tts", "", "Speech engine: none, tone, exec or openai")
	script      = flag.String("script", "", "Affirmation script (YAML)")
	book        = flag.String("book", "", "Plain text book to read one paragraph per cycle")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	logFile     = flag.String("log-file", "", "Log file path")
	metrics     = flag.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9464")
	listen      = flag.Bool("broadcast", false, "Stream the session to listen-along clients")
	recent      = flag.Int("history", 0, "Print the last N sessions from the history database and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	applyFlags(&cfg)
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}

	if *listPresets {
		printPresets(cfg)
		return
	}
	if *recent > 0 {
		if err := printHistory(cfg, *recent); err != nil {
			fatal(err)
		}
		return
	}

	sc, err := config.Resolve(cfg)
	if err != nil {
		fatal(err)
	}

	useTUI := cfg.UI.Enabled && !*noTUI && sc.Mode == session.ModeLive

	// Set up logging
	f, err := os.OpenFile(cfg.UI.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if err := run(cfg, sc, useTUI); err != nil {
		log.Printf("Session failed: %v", err)
		if useTUI {
			fmt.Fprintf(os.Stderr, "resonance: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(cfg config.Config, sc session.Config, useTUI bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Printf("Starting %s: preset %s, %s mode", version.String(), sc.Preset, sc.Mode)

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  "resonance",
		Version:      version.Version,
		MetricsBind:  cfg.Telemetry.MetricsBind,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown: %v", err)
		}
	}()
	go func() {
		if err := tel.Serve(); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	deps := session.Deps{
		Observer: tel,
		Hooks:    []session.Hooks{tel},
	}

	if len(sc.Rounds) > 0 {
		deps.Renderer, err = newRenderer(cfg.Speech)
		if err != nil {
			return err
		}
	}

	if sc.Mode == session.ModeLive {
		deps.Output = newOutput(cfg.Output)
	}

	if cfg.History.Path != "" {
		store, err := history.Open(ctx, config.ExpandHome(cfg.History.Path))
		if err != nil {
			log.Printf("History disabled: %v", err)
		} else {
			defer store.Close()
			deps.Hooks = append(deps.Hooks, store)
		}
	}

	if cfg.Events.URL != "" {
		pub, err := events.Connect(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			log.Printf("Events disabled: %v", err)
		} else {
			defer pub.Close()
			deps.Hooks = append(deps.Hooks, pub)
		}
	}

	if cfg.Broadcast.Enabled {
		srv, err := broadcast.New(broadcast.Config{
			Port:       cfg.Broadcast.Port,
			Name:       cfg.Broadcast.Name,
			Codec:      cfg.Broadcast.Codec,
			MDNS:       cfg.Broadcast.MDNS,
			SampleRate: sc.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}
		defer srv.Stop()
		deps.Tap = srv
	}

	sess, err := session.New(sc, deps)
	if err != nil {
		return err
	}
	tel.Observe(sess.Status)

	// First signal fades out; a second one stops at the next frame
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Printf("Shutdown signal received, fading out")
			sess.Cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigChan:
			log.Printf("Second signal, stopping now")
			cancel()
		case <-ctx.Done():
		}
	}()

	if useTUI {
		tui := ui.New(sess.Status)
		tuiDone := make(chan struct{})
		go func() {
			defer close(tuiDone)
			if err := tui.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go func() {
			select {
			case <-tui.QuitChan():
				log.Printf("Received quit signal from TUI")
				sess.Cancel()
			case <-ctx.Done():
			}
		}()
		defer func() {
			tui.Update(sess.Status())
			tui.Stop()
			<-tuiDone
		}()
	}

	err = sess.Run(ctx)
	st := sess.Status()
	log.Printf("Session %s %s after %v: %d cues played, %d missed",
		st.ID, st.Outcome, st.Elapsed.Round(time.Second), st.Cues.Played, st.Cues.Missed)
	if err != nil {
		return err
	}
	if sc.Mode == session.ModeFile && !useTUI {
		fmt.Printf("Wrote %s\n", sc.OutPath)
	}
	return nil
}

func applyFlags(cfg *config.Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.Preset, *preset)
	setString(&cfg.Output.Mode, *outputMode)
	setString(&cfg.Output.Path, *outPath)
	setString(&cfg.Output.Device, *device)
	setString(&cfg.Output.Backend, *backend)
	setString(&cfg.Speech.Engine, *tts)
	setString(&cfg.Affirm.Script, *script)
	setString(&cfg.Affirm.Book, *book)
	setString(&cfg.UI.LogFile, *logFile)
	setString(&cfg.Telemetry.MetricsBind, *metrics)

	// -out alone implies file mode
	if *outPath != "" && *outputMode == "" {
		cfg.Output.Mode = string(session.ModeFile)
	}
	if *duration > 0 {
		cfg.Duration = *duration
	}
	if *listen {
		cfg.Broadcast.Enabled = true
	}
	if *noTUI {
		cfg.UI.Enabled = false
	}
}

func newRenderer(cfg config.SpeechConfig) (speech.Renderer, error) {
	switch cfg.Engine {
	case "tone":
		return speech.NewToneRenderer(), nil
	case "exec":
		raw := audio.Format{Codec: "pcm", SampleRate: cfg.RawRate, Channels: 1, BitDepth: 16}
		r, err := speech.NewExecRenderer(cfg.Command, raw)
		if err != nil {
			return nil, &session.ConfigurationError{Field: "speech.command", Err: err}
		}
		return r, nil
	case "openai":
		o := cfg.OpenAI
		return speech.NewOpenAIRenderer(o.APIKey, o.BaseURL, o.Model, o.Speed), nil
	default:
		return nil, &session.ConfigurationError{Field: "speech.engine", Err: fmt.Errorf("no renderer for %q", cfg.Engine)}
	}
}

func newOutput(cfg config.OutputConfig) output.Output {
	switch cfg.Backend {
	case "malgo":
		return output.NewMalgo(cfg.Device)
	case "headless":
		return output.NewHeadless(true, nil)
	default:
		return output.NewOto(time.Duration(cfg.BufferMS) * time.Millisecond)
	}
}

func printPresets(cfg config.Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLENGTH\tSOUND\tDESCRIPTION")
	for _, p := range cfg.AllPresets() {
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", p.Name, p.Duration, p.Summary(), p.Description)
	}
	w.Flush()
}

func printHistory(cfg config.Config, n int) error {
	if cfg.History.Path == "" {
		return errors.New("no history database configured (history.path or RESONANCE_HISTORY_PATH)")
	}
	ctx := context.Background()
	store, err := history.Open(ctx, config.ExpandHome(cfg.History.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(ctx, n)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tPRESET\tMODE\tLENGTH\tCUES\tMISSED\tOUTCOME")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Preset, r.Mode,
			r.Audio.Round(time.Second), r.CuesPlayed, r.CuesMissed, r.Outcome)
	}
	return w.Flush()
}

func fatal(err error) {
	var cfgErr *session.ConfigurationError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "resonance: invalid configuration: %v\n", err)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "resonance: %v\n", err)
	os.Exit(1)
}
