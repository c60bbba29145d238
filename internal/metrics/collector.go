// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 请求结果标签
const (
	OutcomeSuccess        = "success"
	OutcomeProtocolError  = "protocol_error"
	OutcomeTransportError = "transport_error"
	OutcomeInternalError  = "internal_error"
	OutcomeTimeout        = "timeout"
	OutcomeCanceled       = "canceled"
)

// 丢弃原因标签
const (
	DiscardUnmatchedResponse = "unmatched_response"
	DiscardPeerRequest       = "peer_request"
	DiscardNotification      = "notification"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。nil *Collector 的所有方法都是空操作。
type Collector struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	notificationsSent *prometheus.CounterVec
	inboundMessages   *prometheus.CounterVec
	discardedMessages *prometheus.CounterVec
	pendingRequests   prometheus.Gauge
	pumpTerminations  *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg（nil 时使用 prometheus.DefaultRegisterer）
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 请求指标
	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of MCP requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	c.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "MCP request round-trip duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method"},
	)

	c.notificationsSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications sent",
		},
		[]string{"method"},
	)

	// 入站指标
	c.inboundMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Total number of messages received from the server",
		},
		[]string{"kind"},
	)

	c.discardedMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_messages_total",
			Help:      "Total number of inbound messages dropped without a consumer",
		},
		[]string{"reason"},
	)

	c.pendingRequests = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Number of requests awaiting a response",
		},
	)

	c.pumpTerminations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_terminations_total",
			Help:      "Ingress pump terminations by cause",
		},
		[]string{"cause"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordRequest 记录一次请求的结果与耗时
func (c *Collector) RecordRequest(method, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, outcome).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordNotification 记录已发送的通知
func (c *Collector) RecordNotification(method string) {
	if c == nil {
		return
	}
	c.notificationsSent.WithLabelValues(method).Inc()
}

// RecordInbound 记录入站消息
func (c *Collector) RecordInbound(kind string) {
	if c == nil {
		return
	}
	c.inboundMessages.WithLabelValues(kind).Inc()
}

// RecordDiscard 记录被丢弃的入站消息
func (c *Collector) RecordDiscard(reason string) {
	if c == nil {
		return
	}
	c.discardedMessages.WithLabelValues(reason).Inc()
}

// RecordPumpTermination 记录 pump 终止原因（eof / error）
func (c *Collector) RecordPumpTermination(cause string) {
	if c == nil {
		return
	}
	c.pumpTerminations.WithLabelValues(cause).Inc()
}

// IncPending 增加等待中的请求数
func (c *Collector) IncPending() {
	if c == nil {
		return
	}
	c.pendingRequests.Inc()
}

// DecPending 减少等待中的请求数
func (c *Collector) DecPending() {
	if c == nil {
		return
	}
	c.pendingRequests.Dec()
}
