package client

import (
	"sync/atomic"

	"github.com/BaSui01/mcpclient/protocol"
)

// idGenerator issues numeric request IDs starting at 1.
type idGenerator struct {
	counter atomic.Int64
}

func (g *idGenerator) next() protocol.RequestID {
	return protocol.NumberID(g.counter.Add(1))
}
