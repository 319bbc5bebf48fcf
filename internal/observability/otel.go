package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/coursehub-backend/internal/platform/envutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"

	defaultServiceName = "coursehub-backend"
)

// OtelConfig describes the process for the trace resource. Role is one of
// "api", "worker" or "api+worker".
type OtelConfig struct {
	ServiceName string
	Role        string
	Environment string
	Version     string
}

func (c OtelConfig) production() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "prod", "production":
		return true
	}
	return false
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider once. It is a no-op unless
// OTEL_ENABLED is set, and the returned shutdown func is always safe to call.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !envutil.Bool("OTEL_ENABLED", false) {
			return
		}
		if log == nil {
			log = logger.Nop()
		}
		name := strings.TrimSpace(cfg.ServiceName)
		if name == "" {
			name = defaultServiceName
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			attribute.String("coursehub.role", strings.TrimSpace(cfg.Role)),
		))
		if err != nil {
			log.Warn("otel resource init failed, continuing", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg)))),
			sdktrace.WithResource(res),
		}
		kind := exporterKind(cfg)
		exporter, err := newExporter(ctx, kind, cfg)
		switch {
		case err != nil:
			log.Warn("otel exporter init failed, spans will be dropped", "exporter", kind, "error", err)
		case exporter != nil:
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", name, "role", cfg.Role, "exporter", kind)
	})
	return otelShutdown
}

// TraceRequest reports whether an inbound request should get a server span.
// Health checks and scrapes are skipped.
func TraceRequest(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthcheck", "/readyz", "/metrics":
		return false
	}
	return true
}

// exporterKind honours OTEL_TRACES_EXPORTER. Without it, an OTLP endpoint
// selects otlp; otherwise development prints spans and production drops them.
func exporterKind(cfg OtelConfig) string {
	switch v := strings.ToLower(envutil.String("OTEL_TRACES_EXPORTER", "")); v {
	case ExporterOTLP, ExporterStdout, ExporterNone:
		return v
	}
	if otelEndpoint() != "" {
		return ExporterOTLP
	}
	if cfg.production() {
		return ExporterNone
	}
	return ExporterStdout
}

func newExporter(ctx context.Context, kind string, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	switch kind {
	case ExporterNone:
		return nil, nil
	case ExporterStdout:
		if cfg.production() {
			return stdouttrace.New()
		}
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		endpoint := otelEndpoint()
		if endpoint == "" {
			return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required for the otlp exporter")
		}
		var opts []otlptracehttp.Option
		if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
			if envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false) {
				opts = append(opts, otlptracehttp.WithInsecure())
			}
		}
		if h := otelHeaders(); h != nil {
			opts = append(opts, otlptracehttp.WithHeaders(h))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unknown trace exporter %q", kind)
}

// sampleRatio reads OTEL_SAMPLER_RATIO clamped to [0,1]. Development samples
// everything by default, production 10%.
func sampleRatio(cfg OtelConfig) float64 {
	def := 1.0
	if cfg.production() {
		def = 0.1
	}
	v := envutil.String("OTEL_SAMPLER_RATIO", "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func otelEndpoint() string {
	return strings.TrimSpace(envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
}

// otelHeaders parses "k1=v1,k2=v2" and drops malformed pairs.
func otelHeaders() map[string]string {
	raw := envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		headers[k] = v
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
