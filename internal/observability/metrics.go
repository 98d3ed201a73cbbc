package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "flightgate"

type gatewayMetrics struct {
	apiKeyAdmissions  metric.Int64Counter
	sessionValidation metric.Int64Counter
	csrfDecisions     metric.Int64Counter
	mfaTransitions    metric.Int64Counter
	authzDecisions    metric.Int64Counter
	loginAttempts     metric.Int64Counter
	repositoryOps     metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *gatewayMetrics
)

// MetricsConfig is the slice of application config the metrics runtime needs.
type MetricsConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	Environment string
}

func InitMetrics(ctx context.Context, cfg MetricsConfig, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	logger.Info("otel metrics initialized", "endpoint", cfg.Endpoint)
	return mp, nil
}

func gateway() *gatewayMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		m := &gatewayMetrics{}
		var err error
		if m.apiKeyAdmissions, err = meter.Int64Counter("gateway.apikey.admissions"); err != nil {
			return
		}
		if m.sessionValidation, err = meter.Int64Counter("gateway.session.validations"); err != nil {
			return
		}
		if m.csrfDecisions, err = meter.Int64Counter("gateway.csrf.decisions"); err != nil {
			return
		}
		if m.mfaTransitions, err = meter.Int64Counter("gateway.mfa.transitions"); err != nil {
			return
		}
		if m.authzDecisions, err = meter.Int64Counter("gateway.authz.decisions"); err != nil {
			return
		}
		if m.loginAttempts, err = meter.Int64Counter("gateway.auth.login.attempts"); err != nil {
			return
		}
		if m.repositoryOps, err = meter.Int64Counter("gateway.repository.operations"); err != nil {
			return
		}
		metrics = m
	})
	return metrics
}

func RecordAPIKeyAdmission(ctx context.Context, outcome string) {
	m := gateway()
	if m == nil {
		return
	}
	m.apiKeyAdmissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordSessionValidation(ctx context.Context, outcome, source string) {
	m := gateway()
	if m == nil {
		return
	}
	m.sessionValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordCSRFDecision(ctx context.Context, outcome string) {
	m := gateway()
	if m == nil {
		return
	}
	m.csrfDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordMFATransition(ctx context.Context, transition, outcome string) {
	m := gateway()
	if m == nil {
		return
	}
	m.mfaTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", transition),
		attribute.String("outcome", outcome),
	))
}

func RecordAuthzDecision(ctx context.Context, action, outcome string) {
	m := gateway()
	if m == nil {
		return
	}
	m.authzDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordAuthLogin(ctx context.Context, outcome string) {
	m := gateway()
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := gateway()
	if m == nil {
		return
	}
	m.repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
