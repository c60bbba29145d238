// =============================================================================
// mcpclient 请求追踪导出
// =============================================================================
// 客户端为每次 Request 创建一个 "mcp.request" span（见 client 包）。
// 本包负责把这些 span 经 OTLP gRPC 发往 collector，并附带会话属性
// （传输类型、协议版本）。未启用时 span 落到全局 noop provider 上。
// =============================================================================

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/BaSui01/mcpclient/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Providers 是一次客户端会话的导出管线。
// 未启用时 tp/mp 为 nil，所有方法退化为全局 provider 或空操作。
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init 为会话建立 span 导出。attrs 作为 resource 属性附加到每个导出的
// mcp.request span 上，通常是传输类型与协商的协议版本。
func Init(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger, attrs ...attribute.KeyValue) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("telemetry disabled, mcp.request spans are not exported")
		return &Providers{}, nil
	}

	res, err := sessionResource(ctx, cfg.ServiceName, attrs)
	if err != nil {
		return nil, err
	}

	spanExp, metricExp, err := dialCollector(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	// 采样跟随上游：调用方 ctx 已带 span 时沿用其决定
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("exporting mcp.request spans",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Float64("sample_rate", cfg.SampleRate),
		zap.Int("session_attributes", len(attrs)),
	)

	return &Providers{tp: tp, mp: mp}, nil
}

func sessionResource(ctx context.Context, service string, attrs []attribute.KeyValue) (*resource.Resource, error) {
	kv := make([]attribute.KeyValue, 0, len(attrs)+2)
	kv = append(kv,
		semconv.ServiceNameKey.String(service),
		semconv.ServiceVersionKey.String(buildVersion()),
	)
	kv = append(kv, attrs...)

	res, err := resource.New(ctx, resource.WithAttributes(kv...))
	if err != nil {
		return nil, fmt.Errorf("build session resource: %w", err)
	}
	return res, nil
}

// dialCollector 创建指向同一 collector 的 span 与指标导出器。
func dialCollector(ctx context.Context, endpoint string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	spanExp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial span exporter %s: %w", endpoint, err)
	}

	metricExp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = spanExp.Shutdown(ctx)
		return nil, nil, fmt.Errorf("dial metric exporter %s: %w", endpoint, err)
	}
	return spanExp, metricExp, nil
}

// TracerProvider 交给 client.WithTracerProvider；未启用时返回全局 provider。
func (p *Providers) TracerProvider() trace.TracerProvider {
	if p == nil || p.tp == nil {
		return otel.GetTracerProvider()
	}
	return p.tp
}

// Enabled reports whether mcp.request spans leave the process.
func (p *Providers) Enabled() bool {
	return p != nil && p.tp != nil
}

// Shutdown 在会话结束时刷出剩余的 span。nil 安全。
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush mcp.request spans: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return "dev"
}
