package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/tmaxmax/go-sse"
	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/internal/channel"
	"github.com/BaSui01/mcpclient/protocol"
)

// SSEOption configures an SSETransport.
type SSEOption func(*SSETransport)

// WithHTTPClient sets the HTTP client used for both the stream and POSTs.
func WithHTTPClient(c *http.Client) SSEOption {
	return func(t *SSETransport) {
		t.httpClient = c
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) SSEOption {
	return func(t *SSETransport) {
		t.headers.Add(key, value)
	}
}

// WithMaxEventSize bounds the size of a single SSE event.
func WithMaxEventSize(n int) SSEOption {
	return func(t *SSETransport) {
		t.maxEventSize = n
	}
}

// SSETransport implements the MCP HTTP+SSE transport: server-to-client
// envelopes arrive as "message" events on a GET stream, and the stream's
// first "endpoint" event names the URL client-to-server envelopes are POSTed to.
type SSETransport struct {
	endpoint     string
	httpClient   *http.Client
	headers      http.Header
	maxEventSize int
	logger       *zap.Logger

	messages *channel.Unbounded[protocol.Message]

	mu        sync.RWMutex
	postURL   string
	streamErr error

	ready     chan struct{}
	readyOnce sync.Once
	cancel    context.CancelFunc
	closed    atomic.Bool
	done      chan struct{}
}

// NewSSETransport creates an SSE transport for the given stream URL.
func NewSSETransport(endpoint string, logger *zap.Logger, opts ...SSEOption) *SSETransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &SSETransport{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
		logger:     logger.With(zap.String("component", "mcp_sse_transport")),
		messages:   channel.NewUnbounded[protocol.Message](),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect opens the event stream and waits for the endpoint event. ctx bounds
// only the wait; the stream stays open until Close.
func (t *SSETransport) Connect(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = t.headers.Clone()
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("SSE connect failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("SSE connect: unexpected status %d", resp.StatusCode)
	}

	go t.readEvents(resp.Body)

	select {
	case <-t.ready:
		t.logger.Info("SSE stream connected", zap.String("post_url", t.PostURL()))
		return nil
	case <-t.done:
		if err := t.err(); err != nil {
			return fmt.Errorf("SSE stream ended before endpoint event: %w", err)
		}
		return errors.New("SSE stream ended before endpoint event")
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// PostURL returns the endpoint announced by the server, or "" before Connect.
func (t *SSETransport) PostURL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.postURL
}

// Send POSTs msg to the announced endpoint.
func (t *SSETransport) Send(ctx context.Context, msg protocol.Message) error {
	if t.closed.Load() {
		return ErrClosed
	}
	postURL := t.PostURL()
	if postURL == "" {
		return errors.New("SSE: not connected")
	}

	body, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header = t.headers.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("SSE send: unexpected status %d", resp.StatusCode)
	}
}

// Receive returns the next "message" event.
func (t *SSETransport) Receive(ctx context.Context) (protocol.Message, error) {
	msg, err := t.messages.Pop(ctx)
	if err != nil {
		if errors.Is(err, channel.ErrDrained) {
			if streamErr := t.err(); streamErr != nil && !t.closed.Load() {
				return nil, streamErr
			}
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

// Close aborts the event stream.
func (t *SSETransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.messages.Close()
	return nil
}

func (t *SSETransport) readEvents(body io.ReadCloser) {
	defer close(t.done)
	defer t.messages.Close()
	defer body.Close()

	var cfg *sse.ReadConfig
	if t.maxEventSize > 0 {
		cfg = &sse.ReadConfig{MaxEventSize: t.maxEventSize}
	}

	for ev, err := range sse.Read(body, cfg) {
		if err != nil {
			if !t.closed.Load() && !errors.Is(err, context.Canceled) {
				t.logger.Error("SSE read error", zap.Error(err))
				t.setErr(err)
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			postURL, err := t.resolve(ev.Data)
			if err != nil {
				t.logger.Error("invalid endpoint event", zap.String("data", ev.Data), zap.Error(err))
				t.setErr(err)
				return
			}
			t.mu.Lock()
			t.postURL = postURL
			t.mu.Unlock()
			t.readyOnce.Do(func() { close(t.ready) })
		case "message", "":
			msg, err := protocol.Decode([]byte(ev.Data))
			if err != nil {
				t.logger.Error("SSE parse error", zap.Error(err))
				t.setErr(err)
				return
			}
			if err := t.messages.Push(msg); err != nil {
				return
			}
		default:
			t.logger.Debug("ignoring SSE event", zap.String("type", ev.Type))
		}
	}
}

func (t *SSETransport) resolve(ref string) (string, error) {
	base, err := url.Parse(t.endpoint)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(u)
	if resolved.String() == "" {
		return "", errors.New("empty endpoint URL")
	}
	return resolved.String(), nil
}

func (t *SSETransport) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.streamErr == nil {
		t.streamErr = err
	}
}

func (t *SSETransport) err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.streamErr
}
