package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessage is returned by Encode for values outside the three envelopes.
var ErrUnknownMessage = errors.New("protocol: unknown message type")

type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RequestID      `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Encode renders a Message as a JSON-RPC 2.0 object.
func Encode(msg Message) ([]byte, error) {
	w := wireMessage{JSONRPC: JSONRPCVersion}

	switch m := msg.(type) {
	case *Request:
		id := m.ID
		w.ID = &id
		w.Method = m.Method
		w.Params = m.Params
	case *Notification:
		w.Method = m.Method
		w.Params = m.Params
	case *Response:
		id := m.ID
		w.ID = &id
		w.Result = m.Result
		w.Error = m.Error
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}

	data, err := json.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// Decode parses one JSON-RPC 2.0 object. A method with an id is a Request, a
// method without one is a Notification, anything else is a Response. The
// jsonrpc member, when present, must be "2.0".
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if w.JSONRPC != "" && w.JSONRPC != JSONRPCVersion {
		return nil, fmt.Errorf("invalid JSON-RPC version: expected %q, got %q", JSONRPCVersion, w.JSONRPC)
	}

	if w.Method != "" {
		if w.ID != nil {
			return &Request{ID: *w.ID, Method: w.Method, Params: w.Params}, nil
		}
		return &Notification{Method: w.Method, Params: w.Params}, nil
	}

	resp := &Response{Result: w.Result, Error: w.Error}
	if w.ID != nil {
		resp.ID = *w.ID
	}
	return resp, nil
}
