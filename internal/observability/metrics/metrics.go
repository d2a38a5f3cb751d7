package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	workflowTransitions   metric.Int64Counter
	assessmentsCreated    metric.Int64Counter
	paymentsApplied       metric.Int64Counter
	notificationsDispatch metric.Int64Counter
	rateLimitAllowed      metric.Int64Counter
	rateLimitDenied       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "cadastre"
	}
	meter := provider.Meter(name)

	workflowTransitions, err := meter.Int64Counter("cadastre_workflow_transitions_total")
	if err != nil {
		return nil, err
	}
	assessmentsCreated, err := meter.Int64Counter("cadastre_assessments_created_total")
	if err != nil {
		return nil, err
	}
	paymentsApplied, err := meter.Int64Counter("cadastre_payments_applied_total")
	if err != nil {
		return nil, err
	}
	notificationsDispatch, err := meter.Int64Counter("cadastre_notifications_dispatched_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("cadastre_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("cadastre_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		workflowTransitions:   workflowTransitions,
		assessmentsCreated:    assessmentsCreated,
		paymentsApplied:       paymentsApplied,
		notificationsDispatch: notificationsDispatch,
		rateLimitAllowed:      rateLimitAllowed,
		rateLimitDenied:       rateLimitDenied,
	}, nil
}

// RecordWorkflowTransition increments workflow transition counts.
func (m *Metrics) RecordWorkflowTransition(ctx context.Context, entityKind, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("entity_kind", strings.TrimSpace(entityKind)),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.workflowTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAssessmentCreated increments assessment creation counts.
func (m *Metrics) RecordAssessmentCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.assessmentsCreated.Add(ctx, 1)
}

// RecordPaymentApplied increments applied payment counts.
func (m *Metrics) RecordPaymentApplied(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.paymentsApplied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationDispatched increments notification fan-out counts.
func (m *Metrics) RecordNotificationDispatched(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.notificationsDispatch.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"entity_kind": {},
	"action":      {},
	"status":      {},
	"status_code": {},
	"event_type":  {},
	"endpoint":    {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
