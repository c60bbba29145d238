package transport

import (
	"context"
	"errors"

	"github.com/BaSui01/mcpclient/protocol"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// Transport carries protocol envelopes in both directions.
//
// Receive is called from a single goroutine. It returns io.EOF once the
// inbound stream has ended; any other error is a receive failure. Close must
// unblock a pending Receive.
type Transport interface {
	// Send delivers one envelope.
	Send(ctx context.Context, msg protocol.Message) error
	// Receive blocks until the next inbound envelope is available.
	Receive(ctx context.Context) (protocol.Message, error)
	// Close releases the underlying connection.
	Close() error
}
