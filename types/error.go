package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/mcpclient/protocol"
)

// ErrorCode classifies client-side failures.
type ErrorCode string

const (
	// ErrTransport covers send, receive and close failures.
	ErrTransport ErrorCode = "TRANSPORT"
	// ErrProtocol means the peer answered with an explicit error object.
	ErrProtocol ErrorCode = "PROTOCOL"
	// ErrInternal covers malformed or missing results and closed connections.
	ErrInternal ErrorCode = "INTERNAL"
	// ErrTimeout means no matching response arrived before the deadline.
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrToolExecution means a tool call returned with isError set.
	ErrToolExecution ErrorCode = "TOOL_EXECUTION"
	// ErrSerialization covers params/result (un)marshaling failures.
	ErrSerialization ErrorCode = "SERIALIZATION"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Method  string          `json:"method,omitempty"`
	RPCCode int             `json:"rpc_code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Cause   error           `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.RPCCode != 0 {
		msg = fmt.Sprintf("[%s %d] %s", e.Code, e.RPCCode, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithMethod records the RPC method the error belongs to.
func (e *Error) WithMethod(method string) *Error {
	e.Method = method
	return e
}

// WithRPCCode sets the JSON-RPC error code.
func (e *Error) WithRPCCode(code int) *Error {
	e.RPCCode = code
	return e
}

// NewTransportError wraps a transport failure.
func NewTransportError(method string, cause error) *Error {
	return NewError(ErrTransport, fmt.Sprintf("transport failure during %q", method)).
		WithMethod(method).
		WithCause(cause)
}

// NewProtocolError reproduces the peer's error object verbatim.
func NewProtocolError(method string, obj *protocol.ErrorObject) *Error {
	return &Error{
		Code:    ErrProtocol,
		Message: obj.Message,
		Method:  method,
		RPCCode: obj.Code,
		Data:    obj.Data,
	}
}

// NewInternalError reports an internal failure using the JSON-RPC internal error code.
func NewInternalError(method, message string) *Error {
	return NewError(ErrInternal, message).
		WithMethod(method).
		WithRPCCode(protocol.CodeInternalError)
}

// NewTimeoutError reports that method received no response within d.
func NewTimeoutError(method string, d time.Duration) *Error {
	return NewError(ErrTimeout, fmt.Sprintf("request to '%s' timed out after %s", method, d)).
		WithMethod(method)
}

// NewSerializationError wraps a JSON encoding or decoding failure.
func NewSerializationError(method string, cause error) *Error {
	return NewError(ErrSerialization, fmt.Sprintf("failed to process payload of %q", method)).
		WithMethod(method).
		WithCause(cause)
}

// AsError extracts an *Error anywhere in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	return IsErrorCode(err, ErrTimeout)
}

// IsProtocol reports whether err is an error answered by the peer.
func IsProtocol(err error) bool {
	return IsErrorCode(err, ErrProtocol)
}
