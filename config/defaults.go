// =============================================================================
// 📦 mcpclient 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Client:    DefaultClientConfig(),
		Transport: DefaultTransportConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Name:            "mcpclient",
		Version:         "0.1.0",
		ProtocolVersion: "2024-11-05",
		RequestTimeout:  30 * time.Second,
		DispatchMode:    "registry",
		SendRateLimit:   0,
		SendBurst:       1,
	}
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Kind:        "stdio",
		Framing:     "newline",
		GracePeriod: 5 * time.Second,
		DialTimeout: 10 * time.Second,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			DB:     0,
			Prefix: "mcp",
		},
	}
}

// DefaultLogConfig 返回默认日志配置。输出到 stderr，stdout 留给命令结果
// 以及 stdio 传输。
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "mcpclient",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "mcpclient",
		SampleRate:   0.1,
	}
}
