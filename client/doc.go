// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package client 实现 MCP 客户端的请求关联引擎。

# 概述

Client 在任意 transport.Transport 之上提供 JSON-RPC 请求/响应关联：
生成唯一请求 ID、发送请求与通知、由后台 ingress pump 读取入站流，
并把响应交还给等待中的调用方。每个请求都有超时（默认 30 秒）。

# 分发模式

  - DispatchRegistry（默认）：发送前登记 map[RequestID]chan，
    pump 直接把响应投递给对应等待者，支持并发请求。
  - DispatchExclusive：pump 把所有入站消息推入无界队列，
    同一时刻只有一个请求持有消费权并丢弃不匹配的消息。
    并发请求会互相丢弃对方的响应，仅适用于串行调用。

# 握手与能力缓存

Initialize 发送 initialize 请求，缓存服务端能力后发送
notifications/initialized 通知。Capabilities/ServerInfo 返回缓存副本。

# 便捷方法

ListTools、CallTool、GetTool、ListResources、ReadResource、Ping、
BatchCallTools 封装常用 MCP 方法。

# 使用示例

	c := client.New(tr, client.WithLogger(logger))
	defer c.Shutdown(ctx)

	if _, err := c.Initialize(ctx, types.Implementation{Name: "demo", Version: "1.0"}, types.ClientCapabilities{}); err != nil {
		return err
	}
	tools, err := c.ListTools(ctx)
*/
package client
