// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 为 mcpclient 命令行提供指标与健康检查 HTTP 服务。

# 概述

Manager 封装 net/http.Server，非阻塞启动，可重复优雅关闭，
异步错误通过 Errors 通道传播。

# 路由

  - /metrics：promhttp 导出指定 Gatherer 的指标
  - /healthz：调用 HealthFunc，返回 200 或 503
*/
package server
