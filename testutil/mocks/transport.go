// MockTransport 的传输层测试模拟实现。
//
// 支持脚本化响应、入站消息注入、发送/接收错误注入与发送记录。
package mocks

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/BaSui01/mcpclient/internal/channel"
	"github.com/BaSui01/mcpclient/protocol"
)

// ErrMockClosed 关闭后发送返回的错误
var ErrMockClosed = errors.New("mock transport closed")

// Responder 根据客户端发出的请求生成服务端回复（可为多条，包括噪声消息）
type Responder func(req *protocol.Request) []protocol.Message

type inbound struct {
	msg protocol.Message
	err error
}

// --- MockTransport 结构 ---

// MockTransport 是 transport.Transport 的模拟实现
type MockTransport struct {
	mu sync.Mutex

	inbound *channel.Unbounded[inbound]

	responder    Responder
	sendErr      error
	methodErrors map[string]error

	sent       []protocol.Message
	sentNotify chan struct{}
	closeCount int
}

// --- 构造函数和 Builder 方法 ---

// NewMockTransport 创建新的 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		inbound:      channel.NewUnbounded[inbound](),
		methodErrors: make(map[string]error),
		sentNotify:   make(chan struct{}, 1),
	}
}

// WithResponder 设置请求响应函数
func (m *MockTransport) WithResponder(fn Responder) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
	return m
}

// WithSendError 让所有发送失败
func (m *MockTransport) WithSendError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
	return m
}

// WithMethodError 让指定 method 的发送失败
func (m *MockTransport) WithMethodError(method string, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methodErrors[method] = err
	return m
}

// --- Transport 接口实现 ---

// Send 记录消息并在有 responder 时投递回复
func (m *MockTransport) Send(ctx context.Context, msg protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closeCount > 0 {
		m.mu.Unlock()
		return ErrMockClosed
	}
	if m.sendErr != nil {
		err := m.sendErr
		m.mu.Unlock()
		return err
	}
	if err := m.methodErrors[methodOf(msg)]; err != nil {
		m.mu.Unlock()
		return err
	}
	m.sent = append(m.sent, msg)
	responder := m.responder
	m.mu.Unlock()

	select {
	case m.sentNotify <- struct{}{}:
	default:
	}

	if req, ok := msg.(*protocol.Request); ok && responder != nil {
		m.Deliver(responder(req)...)
	}
	return nil
}

// Receive 返回下一条注入的消息；流结束后返回 io.EOF
func (m *MockTransport) Receive(ctx context.Context) (protocol.Message, error) {
	item, err := m.inbound.Pop(ctx)
	if err != nil {
		if errors.Is(err, channel.ErrDrained) {
			return nil, io.EOF
		}
		return nil, err
	}
	return item.msg, item.err
}

// Close 结束入站流
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closeCount++
	m.mu.Unlock()
	m.inbound.Close()
	return nil
}

// --- 测试控制 ---

// Deliver 注入服务端消息
func (m *MockTransport) Deliver(msgs ...protocol.Message) {
	for _, msg := range msgs {
		_ = m.inbound.Push(inbound{msg: msg})
	}
}

// FailReceive 让下一次 Receive 返回 err
func (m *MockTransport) FailReceive(err error) {
	_ = m.inbound.Push(inbound{err: err})
}

// EndStream 在已注入的消息之后结束入站流（不计入 Close）
func (m *MockTransport) EndStream() {
	m.inbound.Close()
}

// Sent 返回已发送消息的副本
func (m *MockTransport) Sent() []protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentMethods 返回已发送消息的 method 列表
func (m *MockTransport) SentMethods() []string {
	sent := m.Sent()
	methods := make([]string, len(sent))
	for i, msg := range sent {
		methods[i] = methodOf(msg)
	}
	return methods
}

// SentRequests 返回已发送的请求
func (m *MockTransport) SentRequests() []*protocol.Request {
	var reqs []*protocol.Request
	for _, msg := range m.Sent() {
		if req, ok := msg.(*protocol.Request); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// WaitForSent 等待至少 n 条消息被发送，超时返回 false
func (m *MockTransport) WaitForSent(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		m.mu.Lock()
		count := len(m.sent)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		select {
		case <-m.sentNotify:
		case <-deadline.C:
			return false
		}
	}
}

// CloseCount 返回 Close 被调用的次数
func (m *MockTransport) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// Reset 清除发送记录
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

func methodOf(msg protocol.Message) string {
	switch v := msg.(type) {
	case *protocol.Request:
		return v.Method
	case *protocol.Notification:
		return v.Method
	default:
		return ""
	}
}

// --- 常用 Responder ---

// ResultResponder 对每个请求返回相同的 result
func ResultResponder(result any) Responder {
	return func(req *protocol.Request) []protocol.Message {
		resp, err := protocol.NewResultResponse(req.ID, result)
		if err != nil {
			return nil
		}
		return []protocol.Message{resp}
	}
}

// MethodResponder 按 method 分派 responder，未命中时不回复
func MethodResponder(routes map[string]Responder) Responder {
	return func(req *protocol.Request) []protocol.Message {
		if fn, ok := routes[req.Method]; ok {
			return fn(req)
		}
		return nil
	}
}

// ErrorResponder 对每个请求返回 JSON-RPC 错误
func ErrorResponder(code int, message string, data any) Responder {
	return func(req *protocol.Request) []protocol.Message {
		resp, err := protocol.NewErrorResponse(req.ID, code, message, data)
		if err != nil {
			return nil
		}
		return []protocol.Message{resp}
	}
}
