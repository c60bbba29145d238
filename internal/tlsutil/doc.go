// Package tlsutil 提供集中式客户端 TLS 配置，
// 为 SSE、WebSocket 与 Redis 传输提供安全加固的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件），
// 支持自定义根证书与双向认证。
package tlsutil
