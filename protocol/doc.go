// Package protocol 定义 MCP 线上信封模型（JSON-RPC 2.0）。
//
// 一条消息（Message）是 Request、Response、Notification 三者之一。
// 本包只描述数据形状与编解码，不包含任何收发或关联逻辑。
package protocol
