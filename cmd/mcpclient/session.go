package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/mcpclient/client"
	"github.com/BaSui01/mcpclient/config"
	"github.com/BaSui01/mcpclient/internal/metrics"
	"github.com/BaSui01/mcpclient/internal/server"
	"github.com/BaSui01/mcpclient/internal/telemetry"
	"github.com/BaSui01/mcpclient/internal/tlsutil"
	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/transport"
	"github.com/BaSui01/mcpclient/types"
)

// shutdownTimeout bounds the final transport close. With the stdio kind this
// wait is usually spent in full when stdin is a blocking file, since closing
// it does not interrupt the pending read.
const shutdownTimeout = 5 * time.Second

var operations = map[string]bool{
	"tools":        true,
	"call":         true,
	"resources":    true,
	"read":         true,
	"ping":         true,
	"capabilities": true,
	"listen":       true,
}

func isOperation(cmd string) bool { return operations[cmd] }

// =============================================================================
// 🔌 Transport
// =============================================================================

// openTransport 按配置建立传输；返回的 cleanup 在 transport 关闭后调用
func openTransport(ctx context.Context, cfg config.TransportConfig, logger *zap.Logger) (transport.Transport, func(), error) {
	noop := func() {}

	framing, err := transport.ParseFraming(cfg.Framing)
	if err != nil {
		return nil, noop, err
	}

	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsCfg, err = tlsutil.ClientConfig(tlsutil.Options{
			CAFile:             cfg.TLS.CAFile,
			CertFile:           cfg.TLS.CertFile,
			KeyFile:            cfg.TLS.KeyFile,
			ServerName:         cfg.TLS.ServerName,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		})
		if err != nil {
			return nil, noop, err
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	switch cfg.Kind {
	case config.TransportStdio:
		return transport.NewStdioTransport(os.Stdin, os.Stdout, logger, transport.WithFraming(framing)), noop, nil

	case config.TransportProcess:
		p, err := transport.StartProcess(ctx, transport.ProcessConfig{
			Command:     cfg.Command,
			Args:        cfg.Args,
			Env:         cfg.Env,
			Dir:         cfg.Dir,
			Framing:     framing,
			GracePeriod: cfg.GracePeriod,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil

	case config.TransportSSE:
		opts := make([]transport.SSEOption, 0, len(cfg.Headers)+1)
		if tlsCfg != nil {
			opts = append(opts, transport.WithHTTPClient(tlsutil.StreamingHTTPClient(tlsCfg)))
		}
		for k, v := range cfg.Headers {
			opts = append(opts, transport.WithHeader(k, v))
		}
		t := transport.NewSSETransport(cfg.URL, logger, opts...)
		if err := t.Connect(dialCtx); err != nil {
			_ = t.Close()
			return nil, noop, err
		}
		return t, noop, nil

	case config.TransportWebSocket:
		wsCfg := transport.DefaultWSTransportConfig()
		if len(cfg.Headers) > 0 {
			wsCfg.HTTPHeader = make(http.Header, len(cfg.Headers))
			for k, v := range cfg.Headers {
				wsCfg.HTTPHeader.Set(k, v)
			}
		}
		if tlsCfg != nil {
			wsCfg.HTTPClient = tlsutil.StreamingHTTPClient(tlsCfg)
		}
		t := transport.NewWebSocketTransportWithConfig(cfg.URL, wsCfg, logger)
		if err := t.Connect(dialCtx); err != nil {
			return nil, noop, err
		}
		return t, noop, nil

	case config.TransportRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.DialTimeout,
			TLSConfig:   tlsCfg,
		})
		cleanup := func() { _ = rdb.Close() }
		t := transport.NewRedisTransport(rdb, transport.RedisConfig{
			Prefix:    cfg.Redis.Prefix,
			SessionID: cfg.Redis.SessionID,
		}, logger)
		if err := t.Connect(dialCtx); err != nil {
			cleanup()
			return nil, noop, err
		}
		logger.Info("redis session", zap.String("session_id", t.SessionID()))
		return t, cleanup, nil

	default:
		return nil, noop, fmt.Errorf("unknown transport kind %q", cfg.Kind)
	}
}

// =============================================================================
// 🎯 执行
// =============================================================================

// run 打开 transport 后交给 runSession
func run(ctx context.Context, cfg *config.Config, cmd string, args []string, out io.Writer, logger *zap.Logger) error {
	if err := checkArgs(cmd, args); err != nil {
		return err
	}

	tr, cleanup, err := openTransport(ctx, cfg.Transport, logger)
	if err != nil {
		return fmt.Errorf("open %s transport: %w", cfg.Transport.Kind, err)
	}
	defer cleanup()

	// stdout 被 stdio 传输占用时结果改写到 stderr
	if cfg.Transport.Kind == config.TransportStdio {
		out = os.Stderr
	}

	return runSession(ctx, cfg, tr, cmd, args, out, logger)
}

// runSession 在给定 transport 上完成握手、执行操作并关闭客户端
func runSession(ctx context.Context, cfg *config.Config, tr transport.Transport, cmd string, args []string, out io.Writer, logger *zap.Logger) error {
	// 遥测
	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger,
		attribute.String("mcp.transport", cfg.Transport.Kind),
		attribute.String("mcp.protocol_version", cfg.Client.ProtocolVersion),
	)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	mode, err := client.ParseDispatchMode(cfg.Client.DispatchMode)
	if err != nil {
		_ = tr.Close()
		return err
	}

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithRequestTimeout(cfg.Client.RequestTimeout),
		client.WithDispatchMode(mode),
		client.WithProtocolVersion(cfg.Client.ProtocolVersion),
		client.WithTracerProvider(providers.TracerProvider()),
		client.WithSendRateLimit(rate.Limit(cfg.Client.SendRateLimit), cfg.Client.SendBurst),
	}

	// 指标
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		opts = append(opts, client.WithMetrics(metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)))
	}

	if cmd == "listen" {
		opts = append(opts, client.WithNotificationHandler(notificationPrinter(out, logger)))
	}

	c := client.New(tr, opts...)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Shutdown(shutdownCtx); err != nil {
			logger.Warn("client shutdown failed", zap.Error(err))
		}
	}()

	if reg != nil && cfg.Metrics.Addr != "" {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = cfg.Metrics.Addr
		srv := server.NewManager(srvCfg, reg, pumpHealth(c), logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	info := types.Implementation{Name: cfg.Client.Name, Version: cfg.Client.Version}
	if _, err := c.Initialize(ctx, info, types.ClientCapabilities{}); err != nil {
		return err
	}

	return execute(ctx, c, cmd, args, out)
}

// checkArgs 校验位置参数个数
func checkArgs(cmd string, args []string) error {
	switch cmd {
	case "call":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: mcpclient call <name> [json-arguments]")
		}
	case "read":
		if len(args) != 1 {
			return errors.New("usage: mcpclient read <uri>")
		}
	default:
		if !isOperation(cmd) {
			return fmt.Errorf("unknown command %q", cmd)
		}
		if len(args) != 0 {
			return fmt.Errorf("%s takes no arguments", cmd)
		}
	}
	return nil
}

// execute 执行单个操作并将结果以 JSON 写出
func execute(ctx context.Context, c *client.Client, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "tools":
		result, err := c.ListTools(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "call":
		var arguments json.RawMessage
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("tool arguments are not valid JSON: %s", args[1])
			}
			arguments = json.RawMessage(args[1])
		}
		var callArgs any
		if arguments != nil {
			callArgs = arguments
		}
		result, err := c.CallTool(ctx, args[0], callArgs)
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "resources":
		result, err := c.ListResources(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "read":
		result, err := c.ReadResource(ctx, args[0])
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "ping":
		start := time.Now()
		if err := c.Ping(ctx); err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"ok": true, "latency": time.Since(start).String()})

	case "capabilities":
		result, _ := c.InitializeResult()
		return writeJSON(out, result)

	case "listen":
		select {
		case <-ctx.Done():
		case <-c.Done():
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// notificationPrinter 将通知逐行写出
func notificationPrinter(out io.Writer, logger *zap.Logger) client.NotificationHandler {
	enc := json.NewEncoder(out)
	return func(n *protocol.Notification) {
		line := struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params,omitempty"`
		}{n.Method, n.Params}
		if err := enc.Encode(line); err != nil {
			logger.Warn("failed to write notification", zap.Error(err))
		}
	}
}

// pumpHealth 在 ingress pump 退出后报告不健康
func pumpHealth(c *client.Client) server.HealthFunc {
	return func() error {
		select {
		case <-c.Done():
			return errors.New("inbound stream closed")
		default:
			return nil
		}
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
