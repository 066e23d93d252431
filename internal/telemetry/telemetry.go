// Package telemetry 用 OpenTelemetry 记录识别路由与合成指标，并以 Prometheus 格式导出。
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/tts"
)

const scope = "github.com/iabetor/taigivoice"

// Metrics 持有指标仪表和 /metrics 处理器。
type Metrics struct {
	provider   *sdkmetric.MeterProvider
	handler    http.Handler
	sttRoutes  metric.Int64Counter
	sttLatency metric.Float64Histogram
	ttsResults metric.Int64Counter
	ttsLatency metric.Float64Histogram
}

// New 创建独立注册表的指标导出，不影响全局 MeterProvider。
func New(serviceName string) (*Metrics, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("创建 Prometheus 导出器失败: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(scope)

	m := &Metrics{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if m.sttRoutes, err = meter.Int64Counter("taigivoice_stt_routes",
		metric.WithDescription("识别结果来源计数")); err != nil {
		return nil, fmt.Errorf("创建指标失败: %w", err)
	}
	if m.sttLatency, err = meter.Float64Histogram("taigivoice_stt_latency",
		metric.WithDescription("单次识别路由耗时"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("创建指标失败: %w", err)
	}
	if m.ttsResults, err = meter.Int64Counter("taigivoice_tts_results",
		metric.WithDescription("合成结果按模式计数")); err != nil {
		return nil, fmt.Errorf("创建指标失败: %w", err)
	}
	if m.ttsLatency, err = meter.Float64Histogram("taigivoice_tts_latency",
		metric.WithDescription("单次合成耗时"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("创建指标失败: %w", err)
	}

	logger.Info("[telemetry] 指标已启用")
	return m, nil
}

// Handler 返回 Prometheus 抓取接口。
func (m *Metrics) Handler() http.Handler { return m.handler }

// RecognitionHook 记录识别来源和耗时。失败记为 route="none"。
func (m *Metrics) RecognitionHook() stt.Hook {
	return func(ctx context.Context, r *stt.Result, err error) {
		route := string(r.Route)
		if err != nil || route == "" {
			route = "none"
		}
		attrs := metric.WithAttributes(attribute.String("route", route))
		m.sttRoutes.Add(ctx, 1, attrs)
		m.sttLatency.Record(ctx, r.Elapsed.Seconds(), attrs)
	}
}

// SynthesisHook 记录合成模式和耗时。
func (m *Metrics) SynthesisHook() tts.Hook {
	return func(ctx context.Context, r *tts.Result) {
		attrs := metric.WithAttributes(
			attribute.String("mode", string(r.Mode)),
			attribute.Bool("cached", r.Cached),
		)
		m.ttsResults.Add(ctx, 1, attrs)
		m.ttsLatency.Record(ctx, r.Elapsed.Seconds(), attrs)
	}
}

// Shutdown 刷新并关闭 MeterProvider。
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
