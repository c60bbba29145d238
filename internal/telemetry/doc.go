// Package telemetry 把客户端的 mcp.request span 经 OTLP gRPC 导出，
// 并给每个 span 附上会话属性（传输类型、协议版本）。
// 禁用时不连接 collector，client 使用全局 noop tracer。
package telemetry
