package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ClassifiesEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
	}{
		{"request", `{"jsonrpc":"2.0","id":3,"method":"ping"}`, KindRequest},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/progress","params":{"p":1}}`, KindNotification},
		{"result response", `{"jsonrpc":"2.0","id":1,"result":{}}`, KindResponse},
		{"error response", `{"jsonrpc":"2.0","id":"a","error":{"code":-32601,"message":"nope"}}`, KindResponse},
		{"bare response", `{"jsonrpc":"2.0","id":7}`, KindResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, msg.Kind())
		})
	}
}

func TestDecode_Response(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found","data":{"m":"x"}}}`))
	require.NoError(t, err)

	resp, ok := msg.(*Response)
	require.True(t, ok)
	assert.Equal(t, NumberID(1), resp.ID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "method not found", resp.Error.Message)
	assert.JSONEq(t, `{"m":"x"}`, string(resp.Error.Data))
	assert.False(t, resp.HasResult())
}

func TestDecode_NullResultIsAbsent(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":2,"result":null}`))
	require.NoError(t, err)
	assert.False(t, msg.(*Response).HasResult())
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"1.0","id":1,"result":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON-RPC version")

	_, err = Decode([]byte(`{not json`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"jsonrpc":"2.0","id":1.5,"result":{}}`))
	require.Error(t, err)
}

func TestEncode(t *testing.T) {
	req, err := NewRequest(NumberID(1), MethodToolsList, nil)
	require.NoError(t, err)
	data, err := Encode(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, string(data))

	notif, err := NewNotification(MethodInitialized, nil)
	require.NoError(t, err)
	data, err = Encode(notif)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, string(data))

	resp, err := NewResultResponse(StringID("x"), map[string]any{"tools": []any{}})
	require.NoError(t, err)
	data, err = Encode(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"x","result":{"tools":[]}}`, string(data))
}

func TestEncode_UnknownMessage(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestMarshalParams(t *testing.T) {
	raw, err := MarshalParams(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	passthrough := json.RawMessage(`{"uri":"file:///a"}`)
	raw, err = MarshalParams(passthrough)
	require.NoError(t, err)
	assert.Equal(t, passthrough, raw)

	raw, err = MarshalParams(map[string]string{"name": "echo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"echo"}`, string(raw))

	_, err = MarshalParams(make(chan int))
	require.Error(t, err)
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, NumberID(5), NumberID(5))
	assert.NotEqual(t, NumberID(5), StringID("5"))

	n, ok := NumberID(9).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(9), n)

	_, ok = StringID("abc").Int64()
	assert.False(t, ok)
	assert.Equal(t, "abc", StringID("abc").String())
	assert.Equal(t, "42", NumberID(42).String())

	var id RequestID
	require.NoError(t, json.Unmarshal([]byte(`"req-1"`), &id))
	assert.True(t, id.IsString())
	require.NoError(t, json.Unmarshal([]byte(`17`), &id))
	assert.Equal(t, NumberID(17), id)
}
