package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/protocol"
)

// WSState represents the connection state of a WebSocket transport.
type WSState string

const (
	WSStateDisconnected WSState = "disconnected"
	WSStateConnecting   WSState = "connecting"
	WSStateConnected    WSState = "connected"
	WSStateClosed       WSState = "closed"
)

// WSTransportConfig configures the WebSocket transport behavior.
type WSTransportConfig struct {
	Subprotocols []string    // WebSocket subprotocols (default ["mcp"])
	ReadLimit    int64       // Max inbound message size in bytes (default 4 MiB)
	HTTPHeader   http.Header // Extra headers for the handshake
	HTTPClient   *http.Client
}

// DefaultWSTransportConfig returns a WSTransportConfig with sensible defaults.
func DefaultWSTransportConfig() WSTransportConfig {
	return WSTransportConfig{
		Subprotocols: []string{"mcp"},
		ReadLimit:    4 << 20,
	}
}

// WebSocketTransport carries one envelope per text frame. A dropped
// connection ends the stream; there is no reconnect.
type WebSocketTransport struct {
	url    string
	conn   *websocket.Conn
	logger *zap.Logger

	mu            sync.Mutex
	closed        bool
	state         WSState
	config        WSTransportConfig
	onStateChange func(state WSState)
}

// NewWebSocketTransport creates a WebSocket transport with default configuration.
func NewWebSocketTransport(url string, logger *zap.Logger) *WebSocketTransport {
	return NewWebSocketTransportWithConfig(url, DefaultWSTransportConfig(), logger)
}

// NewWebSocketTransportWithConfig creates a WebSocket transport with custom configuration.
func NewWebSocketTransportWithConfig(url string, config WSTransportConfig, logger *zap.Logger) *WebSocketTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Apply defaults for zero-value fields so callers can set only what they care about.
	if len(config.Subprotocols) == 0 {
		config.Subprotocols = []string{"mcp"}
	}
	if config.ReadLimit == 0 {
		config.ReadLimit = 4 << 20
	}
	return &WebSocketTransport{
		url:    url,
		logger: logger.With(zap.String("component", "mcp_ws_transport")),
		config: config,
		state:  WSStateDisconnected,
	}
}

// OnStateChange registers a callback invoked whenever the connection state changes.
func (t *WebSocketTransport) OnStateChange(fn func(WSState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStateChange = fn
}

// setState updates the internal state and fires the callback (if registered).
// Caller must NOT hold t.mu.
func (t *WebSocketTransport) setState(s WSState) {
	t.mu.Lock()
	t.state = s
	fn := t.onStateChange
	t.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// IsConnected returns true when the transport has an active connection.
func (t *WebSocketTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == WSStateConnected && !t.closed
}

// State returns the current connection state.
func (t *WebSocketTransport) State() WSState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect dials the server.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	t.setState(WSStateConnecting)

	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{
		Subprotocols: t.config.Subprotocols,
		HTTPHeader:   t.config.HTTPHeader,
		HTTPClient:   t.config.HTTPClient,
	})
	if err != nil {
		t.setState(WSStateDisconnected)
		return fmt.Errorf("websocket connect: %w", err)
	}
	conn.SetReadLimit(t.config.ReadLimit)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	t.setState(WSStateConnected)
	t.logger.Info("websocket connected", zap.String("url", t.url), zap.String("subprotocol", conn.Subprotocol()))
	return nil
}

// Send writes one envelope as a text frame. Safe for concurrent callers.
func (t *WebSocketTransport) Send(ctx context.Context, msg protocol.Message) error {
	body, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return errors.New("websocket: not connected")
	}
	return conn.Write(ctx, websocket.MessageText, body)
}

// Receive reads the next envelope. A normal closure from either side ends the
// stream with io.EOF.
func (t *WebSocketTransport) Receive(ctx context.Context) (protocol.Message, error) {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return nil, io.EOF
	}
	if conn == nil {
		return nil, errors.New("websocket: not connected")
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed = t.closed
		t.mu.Unlock()

		status := websocket.CloseStatus(err)
		if closed || status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			t.setState(WSStateClosed)
			return nil, io.EOF
		}
		t.setState(WSStateDisconnected)
		return nil, fmt.Errorf("websocket read: %w", err)
	}

	return protocol.Decode(data)
}

// Close shuts down the transport, closing the underlying WebSocket connection.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	t.setState(WSStateClosed)

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}
