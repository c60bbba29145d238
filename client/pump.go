package client

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/internal/metrics"
	"github.com/BaSui01/mcpclient/protocol"
)

// pump 读取入站流直到 EOF 或出错，然后永久退出
func (c *Client) pump() {
	defer c.terminate()

	ctx := context.Background()
	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info("inbound stream ended")
				c.metrics.RecordPumpTermination("eof")
			} else {
				c.logger.Error("receive failed, stopping ingress pump", zap.Error(err))
				c.metrics.RecordPumpTermination("error")
			}
			return
		}

		c.metrics.RecordInbound(msg.Kind().String())
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.Message) {
	if n, ok := msg.(*protocol.Notification); ok && c.onNotification != nil {
		c.onNotification(n)
	}

	if c.mode == DispatchExclusive {
		_ = c.queue.Push(msg)
		return
	}

	switch m := msg.(type) {
	case *protocol.Response:
		c.deliver(m)
	case *protocol.Request:
		c.logger.Warn("server-initiated request not supported", zap.String("method", m.Method))
		c.discard(m, metrics.DiscardPeerRequest)
	case *protocol.Notification:
		if c.onNotification == nil {
			c.discard(m, metrics.DiscardNotification)
		}
	}
}

func (c *Client) terminate() {
	c.queue.Close()
	if n := c.releaseWaiters(); n > 0 {
		c.logger.Warn("connection closed with requests in flight", zap.Int("pending", n))
	}
	close(c.done)
}
