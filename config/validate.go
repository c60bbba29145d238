package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/mcpclient/transport"
)

// 传输类型
const (
	TransportStdio     = "stdio"
	TransportProcess   = "process"
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 客户端
	if c.Client.Name == "" {
		errs = append(errs, "client.name is required")
	}
	if c.Client.RequestTimeout <= 0 {
		errs = append(errs, "client.request_timeout must be positive")
	}
	switch strings.ToLower(c.Client.DispatchMode) {
	case "", "registry", "exclusive":
	default:
		errs = append(errs, fmt.Sprintf("unknown client.dispatch_mode %q", c.Client.DispatchMode))
	}
	if c.Client.SendRateLimit < 0 {
		errs = append(errs, "client.send_rate_limit must not be negative")
	}

	// 传输
	errs = append(errs, c.Transport.validate()...)

	// 日志
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log.level %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("invalid log.format %q", c.Log.Format))
	}

	// 指标 / 遥测
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, "metrics.namespace is required when metrics are enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (t *TransportConfig) validate() []string {
	var errs []string

	if _, err := transport.ParseFraming(t.Framing); err != nil {
		errs = append(errs, fmt.Sprintf("invalid transport.framing %q", t.Framing))
	}

	if t.TLS.Enabled && (t.TLS.CertFile == "") != (t.TLS.KeyFile == "") {
		errs = append(errs, "transport.tls.cert_file and transport.tls.key_file must be set together")
	}

	switch t.Kind {
	case TransportStdio:
	case TransportProcess:
		if t.Command == "" {
			errs = append(errs, "transport.command is required for process transport")
		}
	case TransportSSE, TransportWebSocket:
		if t.URL == "" {
			errs = append(errs, fmt.Sprintf("transport.url is required for %s transport", t.Kind))
		} else if u, err := url.Parse(t.URL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid transport.url %q", t.URL))
		}
	case TransportRedis:
		if t.Redis.Addr == "" {
			errs = append(errs, "transport.redis.addr is required for redis transport")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown transport.kind %q", t.Kind))
	}

	return errs
}
