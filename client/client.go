package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/BaSui01/mcpclient/internal/channel"
	"github.com/BaSui01/mcpclient/internal/metrics"
	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/transport"
	"github.com/BaSui01/mcpclient/types"
)

// DefaultRequestTimeout 单个请求等待响应的默认时长
const DefaultRequestTimeout = 30 * time.Second

const tracerName = "github.com/BaSui01/mcpclient/client"

// DispatchMode 决定入站响应如何交还给调用方
type DispatchMode int

const (
	// DispatchRegistry 按请求 ID 登记等待者，并发安全
	DispatchRegistry DispatchMode = iota
	// DispatchExclusive 单消费者队列，不匹配的消息被丢弃；只适合串行请求
	DispatchExclusive
)

// ParseDispatchMode 解析配置中的分发模式
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "registry":
		return DispatchRegistry, nil
	case "exclusive":
		return DispatchExclusive, nil
	default:
		return 0, fmt.Errorf("unknown dispatch mode %q", s)
	}
}

func (m DispatchMode) String() string {
	if m == DispatchExclusive {
		return "exclusive"
	}
	return "registry"
}

// NotificationHandler 处理服务端通知，在 pump goroutine 上同步调用
type NotificationHandler func(n *protocol.Notification)

// Option 配置 Client
type Option func(*Client)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestTimeout 设置请求超时（<=0 时忽略）
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDispatchMode 设置分发模式
func WithDispatchMode(mode DispatchMode) Option {
	return func(c *Client) {
		c.mode = mode
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithTracerProvider 设置 span 的 TracerProvider（默认全局 provider）
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithSendRateLimit 限制出站消息速率
func WithSendRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(limit, burst)
		}
	}
}

// WithNotificationHandler 设置服务端通知回调
func WithNotificationHandler(fn NotificationHandler) Option {
	return func(c *Client) {
		c.onNotification = fn
	}
}

// WithProtocolVersion 设置 initialize 时请求的协议版本
func WithProtocolVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.protocolVersion = version
		}
	}
}

// Client 是 MCP 客户端。除 Shutdown 外所有方法可并发调用
// （DispatchExclusive 模式下请求须串行）。
type Client struct {
	transport transport.Transport
	logger    *zap.Logger

	timeout         time.Duration
	mode            DispatchMode
	protocolVersion string
	ids             idGenerator

	metrics        *metrics.Collector
	tracer         trace.Tracer
	limiter        *rate.Limiter
	onNotification NotificationHandler

	// DispatchRegistry
	pendingMu sync.Mutex
	pending   map[protocol.RequestID]chan *protocol.Response
	stopped   bool

	// DispatchExclusive
	queue    *channel.Unbounded[protocol.Message]
	consumer *semaphore.Weighted

	capsMu     sync.RWMutex
	initResult *types.InitializeResult

	done         chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
}

// New 创建客户端并启动 ingress pump
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport:       t,
		logger:          zap.NewNop(),
		timeout:         DefaultRequestTimeout,
		mode:            DispatchRegistry,
		protocolVersion: protocol.LatestVersion,
		pending:         make(map[protocol.RequestID]chan *protocol.Response),
		queue:           channel.NewUnbounded[protocol.Message](),
		consumer:        semaphore.NewWeighted(1),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	c.logger = c.logger.With(zap.String("component", "mcp_client"))

	go c.pump()

	c.logger.Debug("client started",
		zap.Stringer("dispatch_mode", c.mode),
		zap.Duration("request_timeout", c.timeout))
	return c
}

// RequestTimeout 返回生效的请求超时
func (c *Client) RequestTimeout() time.Duration { return c.timeout }

// DispatchMode 返回分发模式
func (c *Client) DispatchMode() DispatchMode { return c.mode }

// Done 在 ingress pump 终止后关闭
func (c *Client) Done() <-chan struct{} { return c.done }

// Request 发送请求并等待匹配的响应，返回原始 result。
// params 可为 nil、json.RawMessage 或任意可 JSON 序列化的值。
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	start := time.Now()
	id := c.ids.next()

	ctx, span := c.tracer.Start(ctx, "mcp.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("rpc.jsonrpc.request_id", id.String()),
		))
	defer span.End()

	var (
		result json.RawMessage
		err    error
	)
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		err = types.NewSerializationError(method, err)
	} else if c.mode == DispatchExclusive {
		result, err = c.requestExclusive(ctx, req)
	} else {
		result, err = c.requestRegistry(ctx, req)
	}

	c.observe(span, method, id, start, err)
	return result, err
}

// Notify 发送通知，不等待回复
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return types.NewSerializationError(method, err)
	}
	if err := c.send(ctx, n); err != nil {
		c.logger.Warn("notification send failed", zap.String("method", method), zap.Error(err))
		return types.NewTransportError(method, err)
	}
	c.metrics.RecordNotification(method)
	c.logger.Debug("notification sent", zap.String("method", method))
	return nil
}

// Shutdown 关闭 transport 并等待 pump 退出（以 ctx 为限）。不发送任何协议消息。
func (c *Client) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		if err := c.transport.Close(); err != nil {
			c.shutdownErr = types.NewTransportError("", err)
		}
	})
	if c.shutdownErr != nil {
		return c.shutdownErr
	}

	select {
	case <-c.done:
		c.logger.Info("client shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send 经过可选限流后写入 transport
func (c *Client) send(ctx context.Context, msg protocol.Message) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return c.transport.Send(ctx, msg)
}

// resolve 把匹配的响应转换为结果或错误
func (c *Client) resolve(method string, resp *protocol.Response) (json.RawMessage, error) {
	if resp.Error != nil {
		return nil, types.NewProtocolError(method, resp.Error)
	}
	if !resp.HasResult() {
		return nil, types.NewInternalError(method, "response missing result")
	}
	return resp.Result, nil
}

// waitError 区分调用方取消与请求超时
func (c *Client) waitError(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return types.NewTimeoutError(method, c.timeout)
}

func (c *Client) observe(span trace.Span, method string, id protocol.RequestID, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	c.metrics.RecordRequest(method, outcome, elapsed)

	span.SetAttributes(attribute.String("mcp.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.Stringer("id", id),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	span.SetStatus(codes.Ok, "")
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.Stringer("id", id),
		zap.Duration("elapsed", elapsed))
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if !types.IsErrorCode(err, types.ErrTransport) {
			return metrics.OutcomeCanceled
		}
	}
	switch types.GetErrorCode(err) {
	case types.ErrProtocol:
		return metrics.OutcomeProtocolError
	case types.ErrTimeout:
		return metrics.OutcomeTimeout
	case types.ErrTransport:
		return metrics.OutcomeTransportError
	default:
		return metrics.OutcomeInternalError
	}
}
