package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BaSui01/mcpclient/protocol"
)

// Framing selects how envelopes are delimited on a byte stream.
type Framing int

const (
	// FramingNewline writes one JSON object per line (MCP stdio).
	FramingNewline Framing = iota
	// FramingContentLength prefixes each body with a Content-Length header.
	FramingContentLength
)

// ParseFraming maps a config value to a Framing. Empty means newline.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newline", "line":
		return FramingNewline, nil
	case "content-length", "content_length", "lsp":
		return FramingContentLength, nil
	default:
		return 0, fmt.Errorf("unknown framing %q", s)
	}
}

func (f Framing) String() string {
	if f == FramingContentLength {
		return "content-length"
	}
	return "newline"
}

// DefaultMaxFrameSize bounds one inbound frame (same as the WebSocket read limit).
const DefaultMaxFrameSize = 4 << 20

// ErrFrameTooLarge is returned by Receive when the peer announces or sends a
// frame larger than the configured maximum.
var ErrFrameTooLarge = errors.New("transport: frame too large")

// StdioOption configures a StdioTransport.
type StdioOption func(*StdioTransport)

// WithMaxFrameSize bounds the size of one inbound frame (default
// DefaultMaxFrameSize). Values <= 0 keep the default.
func WithMaxFrameSize(n int) StdioOption {
	return func(t *StdioTransport) {
		if n > 0 {
			t.maxFrame = n
		}
	}
}

// WithFraming sets the framing (default FramingNewline).
func WithFraming(f Framing) StdioOption {
	return func(t *StdioTransport) {
		t.framing = f
	}
}

// StdioTransport speaks JSON-RPC over a reader/writer pair.
type StdioTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	closers []io.Closer
	framing  Framing
	maxFrame int
	writeMu  sync.Mutex
	closed  atomic.Bool
	once    sync.Once
	logger  *zap.Logger
}

// NewStdioTransport creates a stdio transport. If reader or writer implement
// io.Closer they are closed by Close.
func NewStdioTransport(reader io.Reader, writer io.Writer, logger *zap.Logger, opts ...StdioOption) *StdioTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &StdioTransport{
		reader:   bufio.NewReader(reader),
		writer:   writer,
		maxFrame: DefaultMaxFrameSize,
		logger:   logger.With(zap.String("component", "mcp_stdio_transport")),
	}
	if c, ok := writer.(io.Closer); ok {
		t.closers = append(t.closers, c)
	}
	if c, ok := reader.(io.Closer); ok {
		t.closers = append(t.closers, c)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send writes one framed envelope.
func (t *StdioTransport) Send(ctx context.Context, msg protocol.Message) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	var frame []byte
	switch t.framing {
	case FramingContentLength:
		header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
		frame = append([]byte(header), body...)
	default:
		frame = append(body, '\n')
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive reads the next framed envelope. The read itself is not
// interruptible by ctx; Close unblocks it.
func (t *StdioTransport) Receive(ctx context.Context) (protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.closed.Load() {
		return nil, io.EOF
	}

	var (
		body []byte
		err  error
	)
	switch t.framing {
	case FramingContentLength:
		body, err = t.readContentLength()
	default:
		body, err = t.readLine()
	}
	if err != nil {
		if errors.Is(err, ErrFrameTooLarge) {
			return nil, err
		}
		if t.closed.Load() || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}

	msg, err := protocol.Decode(body)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("frame received", zap.Stringer("kind", msg.Kind()), zap.Int("bytes", len(body)))
	return msg, nil
}

// Close closes the underlying reader and writer when they are closable.
// A Read blocked on a non-pollable file (os.Stdin attached to a regular file
// or a blocking terminal) is not interrupted by closing it; Receive then
// returns only when that Read does.
func (t *StdioTransport) Close() error {
	var errs []error
	t.once.Do(func() {
		t.closed.Store(true)
		for _, c := range t.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// readBounded 读取一行（含换行符），超过 limit 字节时返回 ErrFrameTooLarge
func (t *StdioTransport) readBounded(limit int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := t.reader.ReadSlice('\n')
		if len(line)+len(chunk) > limit {
			return nil, fmt.Errorf("%w: line exceeds %d bytes", ErrFrameTooLarge, limit)
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

func (t *StdioTransport) readLine() ([]byte, error) {
	for {
		// 换行符 \r\n 不计入帧大小
		line, err := t.readBounded(t.maxFrame + 2)
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// maxHeaderLine bounds one Content-Length header line.
const maxHeaderLine = 1024

// readContentLength 读取 Content-Length 头 + JSON body
func (t *StdioTransport) readContentLength() ([]byte, error) {
	contentLength := -1
	for {
		raw, err := t.readBounded(maxHeaderLine)
		if err != nil {
			return nil, err
		}
		line := strings.TrimRight(string(raw), "\r\n")
		if line == "" {
			if contentLength < 0 {
				// tolerate blank lines between frames
				continue
			}
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", value)
		}
		if n > t.maxFrame {
			return nil, fmt.Errorf("%w: Content-Length %d exceeds %d bytes", ErrFrameTooLarge, n, t.maxFrame)
		}
		contentLength = n
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated body: %w", err)
		}
		return nil, err
	}
	return body, nil
}
