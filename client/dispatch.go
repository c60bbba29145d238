package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/internal/channel"
	"github.com/BaSui01/mcpclient/internal/metrics"
	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/types"
)

const connectionClosedMessage = "connection closed while waiting for response"

// =============================================================================
// DispatchRegistry
// =============================================================================

func (c *Client) requestRegistry(ctx context.Context, req *protocol.Request) (json.RawMessage, error) {
	waiter := c.register(req.ID)

	if err := c.send(ctx, req); err != nil {
		c.unregister(req.ID)
		return nil, types.NewTransportError(req.Method, err)
	}

	c.metrics.IncPending()
	defer c.metrics.DecPending()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-waiter:
		if !ok {
			return nil, types.NewInternalError(req.Method, connectionClosedMessage)
		}
		return c.resolve(req.Method, resp)
	case <-timer.C:
		c.unregister(req.ID)
		return nil, types.NewTimeoutError(req.Method, c.timeout)
	case <-ctx.Done():
		c.unregister(req.ID)
		return nil, ctx.Err()
	}
}

// register 在发送前登记等待者；pump 已退出时返回已关闭的 channel
func (c *Client) register(id protocol.RequestID) chan *protocol.Response {
	ch := make(chan *protocol.Response, 1)

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.stopped {
		close(ch)
		return ch
	}
	c.pending[id] = ch
	return ch
}

func (c *Client) unregister(id protocol.RequestID) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// deliver 把响应交给登记的等待者，只在 pump goroutine 上调用
func (c *Client) deliver(resp *protocol.Response) {
	c.pendingMu.Lock()
	waiter, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.discard(resp, metrics.DiscardUnmatchedResponse)
		return
	}
	waiter <- resp
}

// releaseWaiters 在 pump 终止时唤醒所有等待者
func (c *Client) releaseWaiters() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	c.stopped = true
	n := len(c.pending)
	for id, waiter := range c.pending {
		close(waiter)
		delete(c.pending, id)
	}
	return n
}

// =============================================================================
// DispatchExclusive
// =============================================================================

// requestExclusive 发送后获取唯一消费权，从共享队列中取出消息直到匹配。
// 超时从获取消费权之前开始计算。
func (c *Client) requestExclusive(ctx context.Context, req *protocol.Request) (json.RawMessage, error) {
	if err := c.send(ctx, req); err != nil {
		return nil, types.NewTransportError(req.Method, err)
	}

	c.metrics.IncPending()
	defer c.metrics.DecPending()

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.consumer.Acquire(waitCtx, 1); err != nil {
		return nil, c.waitError(ctx, req.Method)
	}
	defer c.consumer.Release(1)

	for {
		msg, err := c.queue.Pop(waitCtx)
		if err != nil {
			if errors.Is(err, channel.ErrDrained) {
				return nil, types.NewInternalError(req.Method, connectionClosedMessage)
			}
			return nil, c.waitError(ctx, req.Method)
		}

		switch m := msg.(type) {
		case *protocol.Response:
			if m.ID == req.ID {
				return c.resolve(req.Method, m)
			}
			c.discard(m, metrics.DiscardUnmatchedResponse)
		case *protocol.Request:
			c.discard(m, metrics.DiscardPeerRequest)
		default:
			c.discard(m, metrics.DiscardNotification)
		}
	}
}

func (c *Client) discard(msg protocol.Message, reason string) {
	c.metrics.RecordDiscard(reason)

	fields := []zap.Field{zap.String("reason", reason), zap.Stringer("kind", msg.Kind())}
	switch m := msg.(type) {
	case *protocol.Response:
		fields = append(fields, zap.Stringer("id", m.ID))
	case *protocol.Request:
		fields = append(fields, zap.String("method", m.Method), zap.Stringer("id", m.ID))
	case *protocol.Notification:
		fields = append(fields, zap.String("method", m.Method))
	}
	c.logger.Debug("discarding inbound message", fields...)
}
