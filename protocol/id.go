package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestID is a JSON-RPC identifier. It is either a number or a string and
// is comparable, so it can be used directly as a map key.
type RequestID struct {
	num      int64
	str      string
	isString bool
}

// NumberID returns a numeric RequestID.
func NumberID(n int64) RequestID {
	return RequestID{num: n}
}

// StringID returns a string RequestID.
func StringID(s string) RequestID {
	return RequestID{str: s, isString: true}
}

// IsString reports whether the ID carries a string value.
func (id RequestID) IsString() bool {
	return id.isString
}

// Int64 returns the numeric value and true for numeric IDs.
func (id RequestID) Int64() (int64, bool) {
	if id.isString {
		return 0, false
	}
	return id.num, true
}

// String renders the ID for logs.
func (id RequestID) String() string {
	if id.isString {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON implements json.Marshaler.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if id.isString {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatInt(id.num, 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler. Fractional numbers are rejected.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid request id: %w", err)
		}
		*id = StringID(s)
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid request id %s: must be an integer or string", data)
	}
	*id = NumberID(n)
	return nil
}
