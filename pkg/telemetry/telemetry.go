// Package telemetry wires OpenTelemetry tracing and JSON structured
// logging for lnurld. Tracing is optional: without an OTLP endpoint the
// service still logs, which matters for the common standalone deployment
// next to a single lightning node.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// Middleware wraps an HTTP handler with tracing and request logging.
type Middleware func(http.Handler) http.Handler

// Init configures tracing (when OTEL_EXPORTER_OTLP_ENDPOINT is set) and
// JSON logging for the named service. The returned shutdown function
// flushes the trace exporter; it is a no-op when tracing is disabled.
func Init(ctx context.Context, serviceName string) (func(context.Context) error, Middleware, *log.Logger, error) {
	if serviceName == "" {
		return nil, nil, nil, fmt.Errorf("telemetry: service name is required")
	}

	logWriter := newJSONLogWriter(serviceName, os.Stdout)
	logger := log.New(logWriter, "", 0)

	shutdown := func(context.Context) error { return nil }
	traced := false

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err := newTraceExporter(ctx, endpoint)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("telemetry: create exporter: %w", err)
		}

		res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("telemetry: create resource: %w", err)
		}

		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		shutdown = tracerProvider.Shutdown
		traced = true
	}

	middleware := func(next http.Handler) http.Handler {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			traceID := ""
			if spanCtx := trace.SpanFromContext(r.Context()).SpanContext(); spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
			}

			msg := fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, recorder.status, time.Since(start))
			if err := logWriter.Log("INFO", msg, traceID); err != nil {
				fmt.Fprintf(os.Stderr, "telemetry: failed to write request log: %v\n", err)
			}
		})

		if !traced {
			return handler
		}
		return otelhttp.NewHandler(handler, serviceName)
	}

	return shutdown, middleware, logger, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func newTraceExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	var opts []otlptracehttp.Option

	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		if parsed.Host == "" {
			return nil, fmt.Errorf("invalid OTLP endpoint: %s", endpoint)
		}
		opts = append(opts, otlptracehttp.WithEndpoint(parsed.Host))
		if parsed.Path != "" && parsed.Path != "/" {
			opts = append(opts, otlptracehttp.WithURLPath(parsed.Path))
		}
		if parsed.Scheme == "http" {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}

	return otlptracehttp.New(ctx, opts...)
}

type jsonLogWriter struct {
	mu      sync.Mutex
	service string
	out     io.Writer
}

func newJSONLogWriter(service string, out io.Writer) *jsonLogWriter {
	if out == nil {
		out = os.Stdout
	}
	return &jsonLogWriter{service: service, out: out}
}

func (w *jsonLogWriter) Write(p []byte) (int, error) {
	level, message := parseLevel(strings.TrimSpace(string(p)))
	if err := w.Log(level, message, ""); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *jsonLogWriter) Log(level, message, traceID string) error {
	entry := map[string]string{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   level,
		"service": w.service,
		"msg":     message,
	}
	if traceID != "" {
		entry["trace_id"] = traceID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.out.Write(append(data, '\n'))
	return err
}

// parseLevel splits messages written as "LEVEL rest of message"; anything
// else logs at INFO unchanged.
func parseLevel(message string) (string, string) {
	fields := strings.Fields(message)
	if len(fields) > 1 {
		switch level := strings.ToUpper(fields[0]); level {
		case "INFO", "WARN", "ERROR", "DEBUG":
			return level, strings.TrimSpace(strings.TrimPrefix(message, fields[0]))
		}
	}
	return "INFO", message
}
