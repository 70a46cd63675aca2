package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp/internal/concurrency"
	"github.com/richard-senior/mcp/internal/resilience"
	"github.com/richard-senior/mcp/internal/session"
	"github.com/richard-senior/mcp/internal/validation"
	"github.com/richard-senior/mcp/pkg/protocol"
)

func newTestConnID(t *testing.T, m *session.Manager) string {
	t.Helper()
	conn := m.Accept(func(frame []byte) error { return nil })
	return conn.ID
}

func decodeResponse(t *testing.T, frame []byte) *protocol.Response {
	t.Helper()
	require.NotNil(t, frame)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(frame, &resp))
	return &resp
}

func TestHandleFrameParseError(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	connID := newTestConnID(t, m)

	frame := rt.HandleFrame(context.Background(), connID, []byte(`not json`))
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrParse, resp.Error.Code)
}

func TestHandleFrameInvalidEnvelope(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	connID := newTestConnID(t, m)

	// Missing jsonrpc version is an invalid envelope, not a parse error.
	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"method":"ping","id":1}`))
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInvalidRequest, resp.Error.Code)
}

func TestHandleFrameRejectsBeforeInitialize(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	rt.Register("tools/list", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		return "should not run", nil
	})
	connID := newTestConnID(t, m)

	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrNotInitialized, resp.Error.Code)
}

func TestHandleFrameMethodNotFound(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{Name: "t"}, nil, "2024-11-05"))

	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"nope","id":2}`))
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrMethodNotFound, resp.Error.Code)
}

func TestHandleFrameNotificationNeverProducesResponse(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	rt.Register("notifications/whatever", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		panic("boom")
	})
	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{}, nil, "2024-11-05"))

	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"notifications/whatever"}`))
	assert.Nil(t, frame)

	// Unknown notification method is also silently dropped.
	frame = rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"notifications/unknown"}`))
	assert.Nil(t, frame)
}

func TestHandleFrameRateLimited(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	limiter := resilience.New(nil, resilience.BucketLimits{Limit: 1, RefillRate: 0})
	rt := New(m, limiter, nil, concurrency.NewCancellationManager())
	rt.Register("ping", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		return "pong", nil
	})
	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{}, nil, "2024-11-05"))

	first := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"ping","id":1}`))
	resp := decodeResponse(t, first)
	assert.Nil(t, resp.Error)

	second := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"ping","id":2}`))
	resp2 := decodeResponse(t, second)
	require.NotNil(t, resp2.Error)
	assert.Equal(t, protocol.ErrRateLimited, resp2.Error.Code)
}

func TestHandleFrameInvalidParams(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	v := validation.New(validation.Strict)
	v.Register("tools/call", protocol.InputSchema{
		Type: "object",
		Properties: map[string]protocol.SchemaProp{
			"name": {Type: "string"},
		},
		Required: []string{"name"},
	})
	rt := New(m, nil, v, concurrency.NewCancellationManager())
	rt.Register("tools/call", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		return "should not run", nil
	})
	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{}, nil, "2024-11-05"))

	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"tools/call","params":{},"id":3}`))
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInvalidParams, resp.Error.Code)
}

func TestHandleFramePanicRecoversWithCorrelationID(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	rt.Register("boom", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		panic("something went very wrong")
	})
	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{}, nil, "2024-11-05"))

	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"boom","id":4}`))
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrInternal, resp.Error.Code)

	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok)
	correlationID, ok := data["correlationId"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, correlationID)
	// The panic value itself must never leak onto the wire.
	assert.NotContains(t, string(frame), "something went very wrong")
}

func TestHandleFrameSuccess(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	rt := New(m, nil, nil, concurrency.NewCancellationManager())
	rt.Register("echo", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		return map[string]string{"ok": "yes"}, nil
	})
	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{}, nil, "2024-11-05"))

	frame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"echo","id":5}`))
	resp := decodeResponse(t, frame)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

// TestHandleFrameCancelInFlight exercises spec.md §8 scenario 5: a
// long-running request is cancelled mid-flight by a "cancel" request on the
// same connection, and the cancelled request's response carries -32800.
func TestHandleFrameCancelInFlight(t *testing.T) {
	m := session.NewManager(concurrency.NewCancellationManager())
	cm := concurrency.NewCancellationManager()
	rt := New(m, nil, nil, cm)

	started := make(chan struct{})
	rt.Register("tools/call", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	rt.Register("cancel", func(ctx context.Context, connID string, params json.RawMessage) (any, error) {
		var p struct {
			RequestID json.RawMessage `json:"requestId"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		cm.Trigger(connID, p.RequestID)
		return map[string]any{}, nil
	})

	connID := newTestConnID(t, m)
	require.NoError(t, m.AuthorizeRequest(connID, "initialize"))
	conn, ok := m.Get(connID)
	require.True(t, ok)
	require.True(t, conn.MarkInitialized(session.ClientInfo{}, nil, "2024-11-05"))

	done := make(chan []byte, 1)
	go func() {
		done <- rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"tools/call","id":10}`))
	}()
	<-started

	cancelFrame := rt.HandleFrame(context.Background(), connID, []byte(`{"jsonrpc":"2.0","method":"cancel","params":{"requestId":10},"id":11}`))
	cancelResp := decodeResponse(t, cancelFrame)
	assert.Nil(t, cancelResp.Error)

	frame := <-done
	resp := decodeResponse(t, frame)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrCancelled, resp.Error.Code)
}
