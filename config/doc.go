// Package config 提供 mcpclient 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（MCPCLIENT_ 前缀）→ 验证器 的顺序加载，
// 覆盖客户端行为、传输方式、日志、指标与遥测。
package config
