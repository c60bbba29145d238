// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 MCP 客户端的共享类型定义。

# 概述

types 是最底层的公共包，只依赖 protocol，为 client、transport 与 cmd
提供统一的类型契约：握手负载、能力集合、工具与资源结构，以及结构化错误。

# 核心类型

  - Implementation / ClientCapabilities / ServerCapabilities：握手双方身份与能力
  - InitializeResult：initialize 请求的结果
  - Tool / CallToolResult / Content：工具列表与调用结果
  - Resource / ResourceContents：资源列表与读取结果
  - Error / ErrorCode：结构化错误体系（传输、协议、内部、超时、工具执行）

# 主要能力

  - 错误工具链：GetErrorCode / IsTimeout / IsProtocol / IsErrorCode
  - 常用错误构造：NewTransportError / NewProtocolError / NewTimeoutError 等
  - 能力深拷贝：ServerCapabilities.Clone
*/
package types
