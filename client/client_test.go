package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/BaSui01/mcpclient/internal/metrics"
	"github.com/BaSui01/mcpclient/protocol"
	"github.com/BaSui01/mcpclient/testutil"
	"github.com/BaSui01/mcpclient/testutil/mocks"
	"github.com/BaSui01/mcpclient/types"
)

var bothModes = []DispatchMode{DispatchRegistry, DispatchExclusive}

func newTestClient(t *testing.T, tr *mocks.MockTransport, opts ...Option) *Client {
	t.Helper()
	c := New(tr, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	})
	return c
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func TestParseDispatchMode(t *testing.T) {
	tests := []struct {
		in   string
		want DispatchMode
		err  bool
	}{
		{"", DispatchRegistry, false},
		{"registry", DispatchRegistry, false},
		{"Exclusive", DispatchExclusive, false},
		{"fifo", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDispatchMode(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "exclusive", DispatchExclusive.String())
	assert.Equal(t, "registry", DispatchRegistry.String())
}

func TestNew_Defaults(t *testing.T) {
	c := newTestClient(t, mocks.NewMockTransport())

	assert.Equal(t, 30*time.Second, DefaultRequestTimeout)
	assert.Equal(t, DefaultRequestTimeout, c.RequestTimeout())
	assert.Equal(t, DispatchRegistry, c.DispatchMode())

	c = newTestClient(t, mocks.NewMockTransport(), WithRequestTimeout(-1))
	assert.Equal(t, DefaultRequestTimeout, c.RequestTimeout())
}

func TestRequest_Success(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			tr := mocks.NewMockTransport().WithResponder(mocks.ResultResponder(map[string]any{"ok": true}))
			c := newTestClient(t, tr, WithDispatchMode(mode))

			raw, err := c.Request(testutil.TestContext(t), protocol.MethodToolsList, nil)
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(raw))

			reqs := tr.SentRequests()
			require.Len(t, reqs, 1)
			assert.Equal(t, protocol.MethodToolsList, reqs[0].Method)
			assert.Nil(t, reqs[0].Params)
		})
	}
}

func TestRequest_ParamsPassThrough(t *testing.T) {
	tr := mocks.NewMockTransport().WithResponder(mocks.ResultResponder(struct{}{}))
	c := newTestClient(t, tr)
	ctx := testutil.TestContext(t)

	_, err := c.Request(ctx, "custom/raw", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	_, err = c.Request(ctx, "custom/struct", map[string]string{"b": "x"})
	require.NoError(t, err)

	reqs := tr.SentRequests()
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `{"a":1}`, string(reqs[0].Params))
	assert.JSONEq(t, `{"b":"x"}`, string(reqs[1].Params))
}

func TestRequest_SerializationFailure(t *testing.T) {
	tr := mocks.NewMockTransport()
	c := newTestClient(t, tr)

	_, err := c.Request(testutil.TestContext(t), "bad", make(chan int))
	require.Error(t, err)
	assert.Equal(t, types.ErrSerialization, types.GetErrorCode(err))
	assert.Empty(t, tr.Sent())
}

func TestRequest_ProtocolError(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			tr := mocks.NewMockTransport().
				WithResponder(mocks.ErrorResponder(protocol.CodeMethodNotFound, "Method not found", map[string]string{"method": "nope"}))
			c := newTestClient(t, tr, WithDispatchMode(mode))

			_, err := c.Request(testutil.TestContext(t), "nope", nil)
			require.Error(t, err)
			assert.True(t, types.IsProtocol(err))

			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, -32601, e.RPCCode)
			assert.Equal(t, "Method not found", e.Message)
			assert.Equal(t, "nope", e.Method)
			assert.JSONEq(t, `{"method":"nope"}`, string(e.Data))
		})
	}
}

func TestRequest_MissingResult(t *testing.T) {
	results := []json.RawMessage{nil, json.RawMessage("null")}
	for _, mode := range bothModes {
		for _, result := range results {
			t.Run(mode.String(), func(t *testing.T) {
				tr := mocks.NewMockTransport().WithResponder(func(req *protocol.Request) []protocol.Message {
					return []protocol.Message{&protocol.Response{ID: req.ID, Result: result}}
				})
				c := newTestClient(t, tr, WithDispatchMode(mode))

				_, err := c.Request(testutil.TestContext(t), protocol.MethodPing, nil)
				require.Error(t, err)

				e, ok := types.AsError(err)
				require.True(t, ok)
				assert.Equal(t, types.ErrInternal, e.Code)
				assert.Equal(t, protocol.CodeInternalError, e.RPCCode)
				assert.Contains(t, e.Message, "missing result")
			})
		}
	}
}

func TestRequest_Timeout(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			tr := mocks.NewMockTransport()
			c := newTestClient(t, tr, WithDispatchMode(mode), WithRequestTimeout(50*time.Millisecond))

			start := time.Now()
			_, err := c.Request(testutil.TestContext(t), protocol.MethodToolsList, nil)
			require.Error(t, err)

			assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
			assert.True(t, types.IsTimeout(err))
			assert.Contains(t, err.Error(), "request to 'tools/list' timed out after 50ms")

			e, _ := types.AsError(err)
			assert.Equal(t, protocol.MethodToolsList, e.Method)
		})
	}
}

func TestRequest_LateResponseIsDiscarded(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tr := mocks.NewMockTransport()
	c := newTestClient(t, tr, WithRequestTimeout(20*time.Millisecond), WithLogger(zap.New(core)))

	_, err := c.Request(testutil.TestContext(t), protocol.MethodPing, nil)
	require.True(t, types.IsTimeout(err))

	c.pendingMu.Lock()
	assert.Empty(t, c.pending)
	c.pendingMu.Unlock()

	late, _ := protocol.NewResultResponse(protocol.NumberID(1), struct{}{})
	tr.Deliver(late)

	testutil.AssertEventuallyTrue(t, func() bool {
		return logs.FilterMessage("discarding inbound message").Len() == 1
	}, time.Second)
}

func TestRequest_SendFailure(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			sendErr := errors.New("broken pipe")
			tr := mocks.NewMockTransport().WithSendError(sendErr)
			c := newTestClient(t, tr, WithDispatchMode(mode))

			_, err := c.Request(testutil.TestContext(t), protocol.MethodPing, nil)
			require.Error(t, err)
			assert.Equal(t, types.ErrTransport, types.GetErrorCode(err))
			assert.ErrorIs(t, err, sendErr)

			c.pendingMu.Lock()
			assert.Empty(t, c.pending)
			c.pendingMu.Unlock()
		})
	}
}

func TestRequest_ConnectionClosed(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			tr := mocks.NewMockTransport()
			c := newTestClient(t, tr, WithDispatchMode(mode))

			go func() {
				if tr.WaitForSent(1, time.Second) {
					tr.EndStream()
				}
			}()

			_, err := c.Request(testutil.TestContext(t), protocol.MethodToolsList, nil)
			require.Error(t, err)
			assert.Equal(t, types.ErrInternal, types.GetErrorCode(err))
			assert.Contains(t, err.Error(), "connection closed")

			testutil.AssertClosed(t, c.Done(), time.Second)

			// the pump never restarts
			_, err = c.Request(testutil.TestContext(t), protocol.MethodPing, nil)
			assert.Equal(t, types.ErrInternal, types.GetErrorCode(err))
		})
	}
}

func TestRequest_ContextCancelled(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			tr := mocks.NewMockTransport()
			c := newTestClient(t, tr, WithDispatchMode(mode))

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				if tr.WaitForSent(1, time.Second) {
					cancel()
				}
			}()

			_, err := c.Request(ctx, protocol.MethodPing, nil)
			assert.ErrorIs(t, err, context.Canceled)
			assert.False(t, types.IsTimeout(err))
		})
	}
}

func TestPump_ReceiveErrorTerminates(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	tr := mocks.NewMockTransport()
	c := newTestClient(t, tr, WithLogger(zap.New(core)))

	tr.FailReceive(errors.New("frame corrupted"))
	testutil.AssertClosed(t, c.Done(), time.Second)
	assert.Equal(t, 1, logs.FilterMessage("receive failed, stopping ingress pump").Len())

	// messages delivered after termination are never read
	resp, _ := protocol.NewResultResponse(protocol.NumberID(1), struct{}{})
	tr.Deliver(resp)
	_, err := c.Request(testutil.TestContext(t), protocol.MethodPing, nil)
	assert.Equal(t, types.ErrInternal, types.GetErrorCode(err))
}

func TestNotify(t *testing.T) {
	tr := mocks.NewMockTransport()
	c := newTestClient(t, tr)

	require.NoError(t, c.Notify(testutil.TestContext(t), "notifications/roots/list_changed", nil))

	sent := tr.Sent()
	require.Len(t, sent, 1)
	n, ok := sent[0].(*protocol.Notification)
	require.True(t, ok)
	assert.Equal(t, "notifications/roots/list_changed", n.Method)
}

func TestNotify_SendFailure(t *testing.T) {
	tr := mocks.NewMockTransport().WithSendError(errors.New("closed"))
	c := newTestClient(t, tr)

	err := c.Notify(testutil.TestContext(t), "notifications/cancelled", map[string]any{"requestId": 1})
	assert.Equal(t, types.ErrTransport, types.GetErrorCode(err))
}

func TestNotificationHandler(t *testing.T) {
	for _, mode := range bothModes {
		t.Run(mode.String(), func(t *testing.T) {
			received := make(chan *protocol.Notification, 1)
			tr := mocks.NewMockTransport()
			newTestClient(t, tr, WithDispatchMode(mode), WithNotificationHandler(func(n *protocol.Notification) {
				received <- n
			}))

			n, _ := protocol.NewNotification("notifications/tools/list_changed", nil)
			tr.Deliver(n)

			got, ok := testutil.WaitForValue(received, time.Second)
			require.True(t, ok)
			assert.Equal(t, "notifications/tools/list_changed", got.Method)
		})
	}
}

func TestShutdown(t *testing.T) {
	tr := mocks.NewMockTransport()
	c := New(tr)
	ctx := testutil.TestContext(t)

	require.NoError(t, c.Shutdown(ctx))
	testutil.AssertClosed(t, c.Done(), time.Second)
	require.NoError(t, c.Shutdown(ctx))

	assert.Equal(t, 1, tr.CloseCount())
	assert.Empty(t, tr.Sent(), "shutdown sends no protocol message")
}

func TestSendRateLimit(t *testing.T) {
	tr := mocks.NewMockTransport()
	c := newTestClient(t, tr, WithSendRateLimit(rate.Every(time.Hour), 1))

	require.NoError(t, c.Notify(testutil.TestContext(t), "first", nil))

	ctx := testutil.TestContextWithTimeout(t, 50*time.Millisecond)
	err := c.Notify(ctx, "second", nil)
	assert.Equal(t, types.ErrTransport, types.GetErrorCode(err))
	assert.Len(t, tr.Sent(), 1)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("mcp", reg, zap.NewNop())

	tr := mocks.NewMockTransport().WithResponder(mocks.MethodResponder(map[string]mocks.Responder{
		protocol.MethodPing:      mocks.ResultResponder(struct{}{}),
		protocol.MethodToolsList: mocks.ErrorResponder(protocol.CodeInternalError, "boom", nil),
	}))
	c := newTestClient(t, tr, WithMetrics(collector), WithRequestTimeout(20*time.Millisecond))
	ctx := testutil.TestContext(t)

	require.NoError(t, c.Ping(ctx))
	_, err := c.ListTools(ctx)
	require.Error(t, err)
	_, err = c.Request(ctx, "never/answered", nil)
	require.Error(t, err)
	require.NoError(t, c.Notify(ctx, "notifications/initialized", nil))

	assert.Equal(t, 1.0, metricValue(t, reg, "mcp_requests_total", map[string]string{"method": "ping", "outcome": "success"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "mcp_requests_total", map[string]string{"method": "tools/list", "outcome": "protocol_error"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "mcp_requests_total", map[string]string{"method": "never/answered", "outcome": "timeout"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "mcp_notifications_sent_total", map[string]string{"method": "notifications/initialized"}))
	assert.Equal(t, 2.0, metricValue(t, reg, "mcp_inbound_messages_total", map[string]string{"kind": "response"}))
	assert.Equal(t, 0.0, metricValue(t, reg, "mcp_pending_requests", nil))
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tr := mocks.NewMockTransport().WithResponder(mocks.MethodResponder(map[string]mocks.Responder{
		protocol.MethodPing:      mocks.ResultResponder(struct{}{}),
		protocol.MethodToolsList: mocks.ErrorResponder(protocol.CodeMethodNotFound, "Method not found", nil),
	}))
	c := newTestClient(t, tr, WithTracerProvider(tp))
	ctx := testutil.TestContext(t)

	require.NoError(t, c.Ping(ctx))
	_, err := c.ListTools(ctx)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "mcp.request", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("rpc.method", "ping"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("rpc.jsonrpc.request_id", "1"))
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	assert.Contains(t, spans[1].Attributes(), attribute.String("rpc.method", "tools/list"))
	assert.Contains(t, spans[1].Attributes(), attribute.String("rpc.jsonrpc.request_id", "2"))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
