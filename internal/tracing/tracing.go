package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint коллектор Jaeger в docker-compose окружении
const DefaultEndpoint = "http://jaeger:14268/api/traces"

// InitTracer настраивает глобальный провайдер с экспортом в Jaeger
func InitTracer(serviceName, endpoint string) (*tracesdk.TracerProvider, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать экспортера джагер: %w", err)
	}

	tp := NewProvider(serviceName, tracesdk.WithBatcher(exp))
	otel.SetTracerProvider(tp)

	return tp, nil
}

// NewProvider провайдер с ресурсом сервиса; в тестах сюда передают SpanRecorder
func NewProvider(serviceName string, opts ...tracesdk.TracerProviderOption) *tracesdk.TracerProvider {
	opts = append(opts, tracesdk.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)))
	return tracesdk.NewTracerProvider(opts...)
}

// Shutdown сбрасывает накопленные спаны, не дольше timeout
func Shutdown(tp *tracesdk.TracerProvider, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return tp.Shutdown(ctx)
}

// возвращает трейсер для компонента
func GetTracer(componentName string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(componentName)
}
