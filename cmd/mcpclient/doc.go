// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 mcpclient 命令行程序入口。

# 概述

cmd/mcpclient 按配置建立传输（stdio、子进程、SSE、WebSocket、Redis），
完成 initialize 握手后执行单个操作，将结果以 JSON 写到标准输出，
最后关闭传输。配置来自 YAML 文件与 MCPCLIENT_ 前缀的环境变量。

# 子命令

  - tools / resources：列出工具与资源
  - call <name> [json]：调用工具，isError 结果以非零退出码返回
  - read <uri>：读取资源
  - ping / capabilities：存活检查与握手结果
  - listen：逐行输出服务端通知，直到中断或连接关闭
  - version / help

# 可观测性

metrics.enabled 时客户端指标注册到独立 Registry，metrics.addr 非空则
通过 /metrics 暴露，/healthz 反映 ingress pump 是否存活。
telemetry.enabled 时请求 span 经 OTLP 导出。

# 构建注入

Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
