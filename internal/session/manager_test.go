package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp/internal/concurrency"
)

func newTestConnection(t *testing.T, m *Manager) (*Connection, *[][]byte) {
	t.Helper()
	var mu sync.Mutex
	var sent [][]byte
	conn := m.Accept(func(frame []byte) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, frame)
		return nil
	})
	return conn, &sent
}

func TestAuthorizeRequestRejectsBeforeInitialize(t *testing.T) {
	m := NewManager(concurrency.NewCancellationManager())
	conn, _ := newTestConnection(t, m)

	err := m.AuthorizeRequest(conn.ID, "tools/list")
	require.Error(t, err)
	var notInit *NotInitializedError
	assert.ErrorAs(t, err, &notInit)
}

func TestAuthorizeRequestAllowsInitializeOnce(t *testing.T) {
	m := NewManager(concurrency.NewCancellationManager())
	conn, _ := newTestConnection(t, m)

	require.NoError(t, m.AuthorizeRequest(conn.ID, "initialize"))
	require.True(t, conn.MarkInitialized(ClientInfo{Name: "test"}, nil, "2024-11-05"))

	err := m.AuthorizeRequest(conn.ID, "initialize")
	require.Error(t, err)
	var alreadyInit *AlreadyInitializedError
	assert.ErrorAs(t, err, &alreadyInit)

	assert.NoError(t, m.AuthorizeRequest(conn.ID, "tools/list"))
}

func TestCloseRunsHooksOnceAndRemovesConnection(t *testing.T) {
	cancellation := concurrency.NewCancellationManager()
	m := NewManager(cancellation)
	conn, _ := newTestConnection(t, m)

	var hookCalls int
	m.OnClose(func(connID string) {
		assert.Equal(t, conn.ID, connID)
		hookCalls++
	})

	m.Close(conn.ID)
	assert.Equal(t, 1, hookCalls)
	assert.Equal(t, StateClosed, conn.State())

	// Idempotent: closing again must not re-run hooks or panic.
	m.Close(conn.ID)
	assert.Equal(t, 1, hookCalls)

	_, ok := m.Get(conn.ID)
	assert.False(t, ok)
}

func TestBroadcastOnlyReachesInitializedConnections(t *testing.T) {
	m := NewManager(concurrency.NewCancellationManager())
	ready, readySent := newTestConnection(t, m)
	require.True(t, ready.MarkInitialized(ClientInfo{}, nil, "2024-11-05"))

	_, pendingSent := newTestConnection(t, m)

	m.Broadcast([]byte(`{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}`))

	assert.Len(t, *readySent, 1)
	assert.Len(t, *pendingSent, 0)
}
