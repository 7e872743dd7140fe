// Package tracing wraps OpenTelemetry span creation for per-frame
// tracing: one span per transmit attempt and one per receive, tagged
// with sequence number and endpoint address, exported to Jaeger or
// Zipkin depending on configuration.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config configures the tracer.
type Config struct {
	Enable       bool    `json:",default=false"`
	ServiceName  string  `json:",default=gbnsim"`
	Endpoint     string  `json:",default=http://localhost:14268/api/traces"`
	Exporter     string  `json:",default=jaeger,options=jaeger|zipkin"`
	SampleRate   float64 `json:",default=1.0"`
	Environment  string  `json:",default=development"`
	BatchTimeout int     `json:",default=5"`
	MaxQueueSize int     `json:",default=2048"`
}

// Tracer wraps an OTel TracerProvider, no-op when disabled.
type Tracer struct {
	cfg      Config
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	log      *zap.Logger
}

// New builds a Tracer. If cfg.Enable is false, every span operation is a
// no-op (SpanFromContext on the incoming context).
func New(cfg Config, log *zap.Logger) (*Tracer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enable {
		log.Info("tracing disabled")
		return &Tracer{cfg: cfg, log: log}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "jaeger":
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
		if err != nil {
			return nil, fmt.Errorf("tracing: jaeger exporter: %w", err)
		}
	case "zipkin":
		exporter, err = zipkin.New(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("tracing: zipkin exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("tracing: unsupported exporter %q", cfg.Exporter)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	batcher := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithBatchTimeout(time.Duration(cfg.BatchTimeout)*time.Second),
		sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithSpanProcessor(batcher),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	log.Info("tracing initialized",
		zap.String("exporter", cfg.Exporter),
		zap.Float64("sample_rate", cfg.SampleRate),
	)

	return &Tracer{
		cfg:      cfg,
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		log:      log,
	}, nil
}

// Shutdown flushes and stops the underlying provider, if any.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartFrameSpan starts a span for one frame's transmit or receive
// event, tagged with its sequence number, kind (data/ack), and the local
// endpoint's address.
func (t *Tracer) StartFrameSpan(ctx context.Context, spanName string, endpoint string, seq uint64, isAck bool) (context.Context, trace.Span) {
	if !t.cfg.Enable || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	kind := "data"
	if isAck {
		kind = "ack"
	}
	return t.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("gbn.endpoint", endpoint),
		attribute.Int64("gbn.seq", int64(seq)),
		attribute.String("gbn.kind", kind),
	))
}

// RecordError records err on the span in ctx, a no-op when tracing is
// disabled or err is nil.
func (t *Tracer) RecordError(ctx context.Context, err error) {
	if !t.cfg.Enable || err == nil {
		return
	}
	trace.SpanFromContext(ctx).RecordError(err)
}

// IsEnabled reports whether tracing is active.
func (t *Tracer) IsEnabled() bool { return t.cfg.Enable }
