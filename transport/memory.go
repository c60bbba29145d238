package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/mcpclient/internal/channel"
	"github.com/BaSui01/mcpclient/protocol"
)

// MemoryTransport is one end of an in-process pipe. Envelopes are encoded on
// Send and decoded on Receive so both ends observe exactly what a wire
// transport would carry.
type MemoryTransport struct {
	inbound *channel.Unbounded[[]byte]
	peer    *MemoryTransport
	closed  atomic.Bool
	once    *sync.Once
}

// NewMemoryPipe returns two connected ends. Closing either end ends the
// stream for both after queued envelopes are drained.
func NewMemoryPipe() (*MemoryTransport, *MemoryTransport) {
	once := &sync.Once{}
	a := &MemoryTransport{inbound: channel.NewUnbounded[[]byte](), once: once}
	b := &MemoryTransport{inbound: channel.NewUnbounded[[]byte](), once: once}
	a.peer, b.peer = b, a
	return a, b
}

// Send encodes msg and queues it for the peer.
func (t *MemoryTransport) Send(ctx context.Context, msg protocol.Message) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := t.peer.inbound.Push(data); err != nil {
		return ErrClosed
	}
	return nil
}

// Receive returns the next envelope sent by the peer, or io.EOF once the pipe
// is closed and drained.
func (t *MemoryTransport) Receive(ctx context.Context) (protocol.Message, error) {
	data, err := t.inbound.Pop(ctx)
	if err != nil {
		if errors.Is(err, channel.ErrDrained) {
			return nil, io.EOF
		}
		return nil, err
	}
	return protocol.Decode(data)
}

// Close shuts both directions of the pipe.
func (t *MemoryTransport) Close() error {
	t.once.Do(func() {
		t.closed.Store(true)
		t.peer.closed.Store(true)
		t.inbound.Close()
		t.peer.inbound.Close()
	})
	return nil
}
