package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	PDFProcessingTime   metric.Float64Histogram
	ModelCalls          metric.Int64Counter
	ModelCallDuration   metric.Float64Histogram
	QuestionsAnswered   metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	DatabaseOperations  metric.Int64Counter
}

// MetricsExporter serves the OpenTelemetry meter provider in Prometheus
// exposition format.
type MetricsExporter struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// InitMetricsExporter installs a global meter provider backed by a
// Prometheus registry.
func InitMetricsExporter() (*MetricsExporter, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return &MetricsExporter{provider: provider, registry: registry}, nil
}

// Handler serves /metrics.
func (e *MetricsExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *MetricsExporter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("pdf-qa-service")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pdfProcessingTime, err := meter.Float64Histogram(
		"pdf.processing.duration",
		metric.WithDescription("PDF text extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	modelCalls, err := meter.Int64Counter(
		"model.calls.total",
		metric.WithDescription("Total question-answering and embedding model calls"),
	)
	if err != nil {
		return nil, err
	}

	modelCallDuration, err := meter.Float64Histogram(
		"model.call.duration",
		metric.WithDescription("Model call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	questionsAnswered, err := meter.Int64Counter(
		"qa.questions.total",
		metric.WithDescription("Questions processed by the QA pipeline"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	databaseOperations, err := meter.Int64Counter(
		"database.operations.total",
		metric.WithDescription("Total database operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		PDFProcessingTime:   pdfProcessingTime,
		ModelCalls:          modelCalls,
		ModelCallDuration:   modelCallDuration,
		QuestionsAnswered:   questionsAnswered,
		CircuitBreakerState: circuitBreakerState,
		DatabaseOperations:  databaseOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordPDFProcessing records PDF extraction metrics
func (m *Metrics) RecordPDFProcessing(duration float64, method, status string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pdf.method", method),
		attribute.String("pdf.status", status),
	}

	m.PDFProcessingTime.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordModelCall records one answerer or embedder invocation
func (m *Metrics) RecordModelCall(stage string, success bool, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("model.stage", stage),
		attribute.Bool("model.success", success),
	}

	m.ModelCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.ModelCallDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordQuestion records the outcome of an ask
func (m *Metrics) RecordQuestion(strategy, status string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("qa.strategy", strategy),
		attribute.String("qa.status", status),
	}

	m.QuestionsAnswered.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDatabaseOperation records document store metrics
func (m *Metrics) RecordDatabaseOperation(operation string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.Bool("db.success", success),
	}

	m.DatabaseOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
