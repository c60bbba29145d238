// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 MCP 客户端指标采集能力。

# 概述

Collector 通过 promauto.With 注册到调用方提供的 Registerer，
所有指标按 namespace 隔离。nil *Collector 的方法均为空操作，
客户端未启用指标时无需判空。

# 指标

  - requests_total{method,outcome}：请求总数，outcome 取
    success/protocol_error/transport_error/internal_error/timeout/canceled。
  - request_duration_seconds{method}：请求往返耗时。
  - notifications_sent_total{method}：已发送通知数。
  - inbound_messages_total{kind}：入站消息数，按 request/response/notification 分组。
  - discarded_messages_total{reason}：无人认领而被丢弃的入站消息。
  - pending_requests：等待响应中的请求数。
  - pump_terminations_total{cause}：入站 pump 终止次数（eof/error）。
*/
package metrics
