// Package transport 定义 MCP 客户端消费的传输契约及其实现。
//
// 契约只有三个操作：Send 发送一条信封、Receive 拉取下一条入站信封、
// Close 释放连接。实现包括 stdio（换行或 Content-Length 分帧）、子进程、
// 进程内内存管道、HTTP+SSE、WebSocket 与 Redis Pub/Sub。
//
// 所有实现都不做重连与重试：连接断开即流结束。
package transport
