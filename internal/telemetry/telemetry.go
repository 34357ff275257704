// ABOUTME: OpenTelemetry metrics exported to Prometheus and optional OTLP render tracing
// ABOUTME: Implements the speech observer and session hooks so the engine stays unaware of metrics
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/session"
	"github.com/resonance-audio/resonance/internal/speech"
)

const meterName = "resonance"

// Config configures telemetry
type Config struct {
	ServiceName  string
	Version      string
	MetricsBind  string // e.g. ":9464"; empty disables the HTTP endpoint
	OTLPEndpoint string // empty disables tracing export
	OTLPInsecure bool
}

// Telemetry owns the meter and tracer providers and the session instruments
type Telemetry struct {
	cfg           Config
	meterProvider *sdkmetric.MeterProvider
	traceShutdown func(context.Context) error
	handler       http.Handler
	server        *http.Server

	cues          metric.Int64Counter
	renders       metric.Int64Counter
	renderLatency metric.Float64Histogram
	sessions      metric.Int64Counter

	mu     sync.Mutex
	status func() session.Status
}

// Setup creates providers and instruments and installs them globally
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "resonance"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	t := &Telemetry{cfg: cfg, traceShutdown: func(context.Context) error { return nil }}

	if err := t.initTracer(ctx, res); err != nil {
		return nil, err
	}
	if err := t.initMetrics(res); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Telemetry) initTracer(ctx context.Context, res *resource.Resource) error {
	endpoint := strings.TrimSpace(t.cfg.OTLPEndpoint)
	if endpoint == "" {
		return nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if t.cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	t.traceShutdown = tp.Shutdown
	log.Printf("Tracing speech renders to %s", endpoint)
	return nil
}

func (t *Telemetry) initMetrics(res *resource.Resource) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(t.meterProvider)
	t.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	meter := t.meterProvider.Meter(meterName)

	if t.cues, err = meter.Int64Counter("resonance.cues",
		metric.WithDescription("Affirmation cues by outcome")); err != nil {
		return err
	}
	if t.renders, err = meter.Int64Counter("resonance.renders",
		metric.WithDescription("Speech renders by result")); err != nil {
		return err
	}
	if t.renderLatency, err = meter.Float64Histogram("resonance.render.latency",
		metric.WithDescription("Speech render latency"),
		metric.WithUnit("s")); err != nil {
		return err
	}
	if t.sessions, err = meter.Int64Counter("resonance.sessions",
		metric.WithDescription("Finished sessions by outcome")); err != nil {
		return err
	}

	_, err = meter.Int64ObservableCounter("resonance.frames",
		metric.WithDescription("Frames rendered by the current session"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if st, ok := t.snapshot(); ok {
				o.Observe(st.Position)
			}
			return nil
		}))
	if err != nil {
		return err
	}
	_, err = meter.Int64ObservableGauge("resonance.breath.cycle",
		metric.WithDescription("Current breath cycle of the session"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if st, ok := t.snapshot(); ok {
				o.Observe(st.Breath.Cycle, metric.WithAttributes(attribute.String("phase", st.Breath.Phase.String())))
			}
			return nil
		}))
	return err
}

// Handler returns the Prometheus scrape handler
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Serve exposes /metrics on MetricsBind until Shutdown. It returns immediately
// when no bind address is configured.
func (t *Telemetry) Serve() error {
	if t.cfg.MetricsBind == "" {
		return nil
	}

	ln, err := net.Listen("tcp", t.cfg.MetricsBind)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.cfg.MetricsBind, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	t.mu.Lock()
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := t.server
	t.mu.Unlock()

	log.Printf("Metrics available at http://%s/metrics", ln.Addr())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server error: %v", err)
		}
	}()
	return nil
}

// Shutdown flushes and stops exporters and the metrics server
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := t.traceShutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Observe registers the session whose position feeds the observable instruments
func (t *Telemetry) Observe(status func() session.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

func (t *Telemetry) snapshot() (session.Status, bool) {
	t.mu.Lock()
	fn := t.status
	t.mu.Unlock()
	if fn == nil {
		return session.Status{}, false
	}
	return fn(), true
}

// RenderFinished implements speech.Observer
func (t *Telemetry) RenderFinished(key speech.Key, latency time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(attribute.String("result", result), attribute.String("voice", key.Voice))
	ctx := context.Background()
	t.renders.Add(ctx, 1, attrs)
	t.renderLatency.Record(ctx, latency.Seconds(), attrs)
}

// Started implements session.Hooks
func (t *Telemetry) Started(session.Status) {}

// Cue implements session.Hooks
func (t *Telemetry) Cue(_ session.Status, c affirm.Cue) {
	t.cues.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", c.Outcome.String())))
}

// Stopped implements session.Hooks
func (t *Telemetry) Stopped(st session.Status, _ error) {
	t.sessions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("outcome", string(st.Outcome)),
		attribute.String("preset", st.Preset),
	))
}
