package transport

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/protocol"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisTransport_ChannelNames(t *testing.T) {
	tr := NewRedisTransport(nil, RedisConfig{Prefix: "agent", SessionID: "s1"}, nil)
	assert.Equal(t, "agent:s1:c2s", tr.OutboundChannel())
	assert.Equal(t, "agent:s1:s2c", tr.InboundChannel())

	tr = NewRedisTransport(nil, RedisConfig{}, nil)
	assert.NotEmpty(t, tr.SessionID())
	assert.Contains(t, tr.OutboundChannel(), "mcp:")
}

func TestRedisTransport_RoundTrip(t *testing.T) {
	ctx := testCtx(t)
	rdb := newTestRedis(t)

	tr := NewRedisTransport(rdb, RedisConfig{SessionID: "sess"}, zap.NewNop())

	// server side: answer every request published by the client
	server := rdb.Subscribe(ctx, tr.OutboundChannel())
	_, err := server.Receive(ctx)
	require.NoError(t, err)
	defer server.Close()

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	go func() {
		ch := server.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				msg, err := protocol.Decode([]byte(m.Payload))
				if err != nil {
					continue
				}
				if req, ok := msg.(*protocol.Request); ok {
					resp, _ := protocol.NewResultResponse(req.ID, map[string]any{})
					data, _ := protocol.Encode(resp)
					rdb.Publish(serverCtx, tr.InboundChannel(), data)
				}
			case <-serverCtx.Done():
				return
			}
		}
	}()

	require.NoError(t, tr.Connect(ctx))

	req, err := protocol.NewRequest(protocol.NumberID(42), protocol.MethodPing, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Send(ctx, req))

	msg, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.NumberID(42), msg.(*protocol.Response).ID)

	require.NoError(t, tr.Close())
	_, err = tr.Receive(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, tr.Send(ctx, req), ErrClosed)
}

func TestRedisTransport_ReceiveBeforeConnect(t *testing.T) {
	tr := NewRedisTransport(newTestRedis(t), RedisConfig{}, nil)
	_, err := tr.Receive(testCtx(t))
	assert.Error(t, err)
}
