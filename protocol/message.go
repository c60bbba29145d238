package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies which envelope a Message is.
type Kind int

const (
	KindRequest Kind = iota + 1
	KindResponse
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Message is one unit of protocol traffic: *Request, *Response or *Notification.
type Message interface {
	Kind() Kind
	isMessage()
}

// Request is a call that expects a Response carrying the same ID.
type Request struct {
	ID     RequestID
	Method string
	Params json.RawMessage
}

// Notification is a fire-and-forget message without an ID.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Response answers the Request with the same ID. Exactly one of Result and
// Error is expected; a response carrying neither is a protocol violation that
// callers detect through HasResult.
type Response struct {
	ID     RequestID
	Result json.RawMessage
	Error  *ErrorObject
}

func (*Request) Kind() Kind      { return KindRequest }
func (*Response) Kind() Kind     { return KindResponse }
func (*Notification) Kind() Kind { return KindNotification }

func (*Request) isMessage()      {}
func (*Response) isMessage()     {}
func (*Notification) isMessage() {}

// HasResult reports whether the response carries a non-null result.
func (r *Response) HasResult() bool {
	return present(r.Result)
}

// ErrorObject is the JSON-RPC error member of a Response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds a Request, marshaling params with MarshalParams.
func NewRequest(id RequestID, method string, params any) (*Request, error) {
	raw, err := MarshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Request{ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a Notification, marshaling params with MarshalParams.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := MarshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Notification{Method: method, Params: raw}, nil
}

// NewResultResponse builds a successful Response.
func NewResultResponse(id RequestID, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error Response. data may be nil.
func NewErrorResponse(id RequestID, code int, message string, data any) (*Response, error) {
	obj := &ErrorObject{Code: code, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal error data: %w", err)
		}
		obj.Data = raw
	}
	return &Response{ID: id, Error: obj}, nil
}

// MarshalParams converts an optional params value to raw JSON. nil yields nil
// (the member is omitted on the wire) and json.RawMessage passes through.
func MarshalParams(params any) (json.RawMessage, error) {
	switch v := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		return raw, nil
	}
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
