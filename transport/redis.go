package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/protocol"
)

// RedisConfig configures a RedisTransport.
type RedisConfig struct {
	// Prefix namespaces the channels (default "mcp").
	Prefix string
	// SessionID pairs the client with one server session (default: random UUID).
	SessionID string
}

// RedisTransport exchanges envelopes over Redis Pub/Sub. Outbound envelopes
// are published on "<prefix>:<session>:c2s"; inbound ones are read from a
// subscription to "<prefix>:<session>:s2c".
type RedisTransport struct {
	rdb     redis.UniversalClient
	prefix  string
	session string
	logger  *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	msgs   <-chan *redis.Message
	closed bool
}

// NewRedisTransport creates a transport on top of an existing Redis client.
// The client is not closed by Close.
func NewRedisTransport(rdb redis.UniversalClient, cfg RedisConfig, logger *zap.Logger) *RedisTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "mcp"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	return &RedisTransport{
		rdb:     rdb,
		prefix:  cfg.Prefix,
		session: cfg.SessionID,
		logger: logger.With(
			zap.String("component", "mcp_redis_transport"),
			zap.String("session_id", cfg.SessionID),
		),
	}
}

// SessionID returns the session the channels are keyed on.
func (t *RedisTransport) SessionID() string { return t.session }

// OutboundChannel is where the client publishes.
func (t *RedisTransport) OutboundChannel() string {
	return fmt.Sprintf("%s:%s:c2s", t.prefix, t.session)
}

// InboundChannel is where the server publishes.
func (t *RedisTransport) InboundChannel() string {
	return fmt.Sprintf("%s:%s:s2c", t.prefix, t.session)
}

// Connect subscribes to the inbound channel and waits for confirmation, so
// nothing published after Connect returns is missed.
func (t *RedisTransport) Connect(ctx context.Context) error {
	ps := t.rdb.Subscribe(ctx, t.InboundChannel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe %s: %w", t.InboundChannel(), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		_ = ps.Close()
		return ErrClosed
	}
	t.pubsub = ps
	t.msgs = ps.Channel()
	t.logger.Info("redis transport subscribed", zap.String("channel", t.InboundChannel()))
	return nil
}

// Send publishes one envelope.
func (t *RedisTransport) Send(ctx context.Context, msg protocol.Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}

	body, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := t.rdb.Publish(ctx, t.OutboundChannel(), body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Receive returns the next envelope published on the inbound channel.
func (t *RedisTransport) Receive(ctx context.Context) (protocol.Message, error) {
	t.mu.Lock()
	msgs, closed := t.msgs, t.closed
	t.mu.Unlock()
	if closed {
		return nil, io.EOF
	}
	if msgs == nil {
		return nil, errors.New("redis transport: not connected")
	}

	select {
	case m, ok := <-msgs:
		if !ok {
			return nil, io.EOF
		}
		return protocol.Decode([]byte(m.Payload))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the subscription, which ends the inbound stream.
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.pubsub != nil {
		return t.pubsub.Close()
	}
	return nil
}
