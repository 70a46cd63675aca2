package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp/internal/config"
	"github.com/richard-senior/mcp/pkg/protocol"
)

func buildTestServices(t *testing.T) *Services {
	t.Helper()
	cfg := config.Default()
	services, err := Build(cfg,
		WithPromptDir(filepath.Join(t.TempDir(), "prompts")),
		WithFileRoot(filepath.Join(t.TempDir(), "files")),
	)
	require.NoError(t, err)
	return services
}

func call(t *testing.T, s *Services, connID string, method string, params any, id int) *protocol.Response {
	t.Helper()
	req, err := protocol.NewRequest(method, params, id)
	require.NoError(t, err)
	frame, err := json.Marshal(req)
	require.NoError(t, err)
	out := s.Router.HandleFrame(context.Background(), connID, frame)
	require.NotNil(t, out, "method %s unexpectedly produced no response", method)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	return &resp
}

// TestFullHandshakeToolsResourcesPrompts drives one connection through
// initialize, tools/list, tools/call, resources/read, and prompts/list,
// exercising the whole wired pipeline end to end.
func TestFullHandshakeToolsResourcesPrompts(t *testing.T) {
	s := buildTestServices(t)
	conn := s.Manager.Accept(func(frame []byte) error { return nil })

	initResp := call(t, s, conn.ID, "initialize", map[string]any{
		"protocolVersion": "0.1.0",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0"},
	}, 1)
	require.Nil(t, initResp.Error)

	listResp := call(t, s, conn.ID, "tools/list", nil, 2)
	require.Nil(t, listResp.Error)
	var toolsOut struct {
		Tools []protocol.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(listResp.Result, &toolsOut))
	names := make([]string, 0, len(toolsOut.Tools))
	for _, tl := range toolsOut.Tools {
		names = append(names, tl.Name)
	}
	assert.Equal(t, []string{"echo", "calculator", "datetime", "fetch_markdown"}, names)

	echoResp := call(t, s, conn.ID, "tools/call", map[string]any{
		"name":      "echo",
		"arguments": map[string]any{"text": "hello"},
	}, 3)
	require.Nil(t, echoResp.Error)
	var toolResult protocol.ToolResult
	require.NoError(t, json.Unmarshal(echoResp.Result, &toolResult))
	require.Len(t, toolResult.Content, 1)
	assert.Equal(t, "hello", toolResult.Content[0].Text)

	readResp := call(t, s, conn.ID, "resources/read", map[string]any{
		"uri": "memory://example_documentation",
	}, 4)
	require.Nil(t, readResp.Error)
	var readOut struct {
		Contents []protocol.ResourceContentPayload `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(readResp.Result, &readOut))
	require.Len(t, readOut.Contents, 1)
	assert.Contains(t, readOut.Contents[0].Text, "MCP Documentation")

	promptsResp := call(t, s, conn.ID, "prompts/list", nil, 5)
	require.Nil(t, promptsResp.Error)
}

// TestToolCallUnknownToolReportsToolNotFound exercises the tool-not-found
// error path rather than a success path.
func TestToolCallUnknownToolReportsToolNotFound(t *testing.T) {
	s := buildTestServices(t)
	conn := s.Manager.Accept(func(frame []byte) error { return nil })
	call(t, s, conn.ID, "initialize", map[string]any{
		"protocolVersion": "0.1.0",
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0"},
	}, 1)

	resp := call(t, s, conn.ID, "tools/call", map[string]any{"name": "does-not-exist"}, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrToolNotFound, resp.Error.Code)
}

// TestResourceSubscribeThenUnsubscribe subscribes one connection to a
// memory:// demo resource through the wired handlers and checks that the
// registry lists it as an observer until it unsubscribes.
func TestResourceSubscribeThenUnsubscribe(t *testing.T) {
	s := buildTestServices(t)
	conn := s.Manager.Accept(func(frame []byte) error { return nil })
	call(t, s, conn.ID, "initialize", map[string]any{
		"protocolVersion": "0.1.0",
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0"},
	}, 1)

	subResp := call(t, s, conn.ID, "resources/subscribe", map[string]any{"uri": "memory://weather_data"}, 2)
	require.Nil(t, subResp.Error)
	assert.Contains(t, s.Resources.Observers("memory://weather_data"), conn.ID)

	unsubResp := call(t, s, conn.ID, "resources/unsubscribe", map[string]any{"uri": "memory://weather_data"}, 3)
	require.Nil(t, unsubResp.Error)
	assert.NotContains(t, s.Resources.Observers("memory://weather_data"), conn.ID)
}

func TestWithoutDemoCatalogueStartsEmpty(t *testing.T) {
	cfg := config.Default()
	s, err := Build(cfg, WithoutDemoCatalogue())
	require.NoError(t, err)
	assert.Empty(t, s.Tools.List())
	assert.Empty(t, s.Prompts.List())
}

// TestToolCacheEnabledReturnsSameResultOnRepeatedCall exercises the
// CachedToolWrapper wiring with the default in-memory backing store.
func TestToolCacheEnabledReturnsSameResultOnRepeatedCall(t *testing.T) {
	cfg := config.Default()
	cfg.ToolCache.Enabled = true
	s, err := Build(cfg,
		WithPromptDir(filepath.Join(t.TempDir(), "prompts")),
		WithFileRoot(filepath.Join(t.TempDir(), "files")),
	)
	require.NoError(t, err)
	defer s.Close()

	conn := s.Manager.Accept(func(frame []byte) error { return nil })
	call(t, s, conn.ID, "initialize", map[string]any{
		"protocolVersion": "0.1.0",
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0"},
	}, 1)

	first := call(t, s, conn.ID, "tools/call", map[string]any{
		"name":      "datetime",
		"arguments": map[string]any{},
	}, 2)
	require.Nil(t, first.Error)

	second := call(t, s, conn.ID, "tools/call", map[string]any{
		"name":      "datetime",
		"arguments": map[string]any{},
	}, 3)
	require.Nil(t, second.Error)
	assert.Equal(t, string(first.Result), string(second.Result), "cached call should return the identical serialized result")
}

// TestCancelInFlightToolCall drives spec.md §8 scenario 5 through the real
// wired Services: a long-running tool call is cancelled mid-flight by a
// "cancel" request on the same connection.
func TestCancelInFlightToolCall(t *testing.T) {
	s := buildTestServices(t)
	conn := s.Manager.Accept(func(frame []byte) error { return nil })
	call(t, s, conn.ID, "initialize", map[string]any{
		"protocolVersion": "0.1.0",
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0"},
	}, 1)

	started := make(chan struct{})
	require.NoError(t, s.Tools.Register(blockingTool{started: started}))

	toolCallFrame, err := json.Marshal(mustRequest(t, "tools/call", map[string]any{
		"name": "block_until_cancelled",
	}, 10))
	require.NoError(t, err)

	done := make(chan []byte, 1)
	go func() {
		done <- s.Router.HandleFrame(context.Background(), conn.ID, toolCallFrame)
	}()
	<-started

	cancelResp := call(t, s, conn.ID, "cancel", map[string]any{"requestId": 10}, 11)
	require.Nil(t, cancelResp.Error)

	frame := <-done
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(frame, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrCancelled, resp.Error.Code)
}

func mustRequest(t *testing.T, method string, params any, id int) *protocol.Request {
	t.Helper()
	req, err := protocol.NewRequest(method, params, id)
	require.NoError(t, err)
	return req
}

// blockingTool never returns on its own; it only observes ctx, so the test
// above can deterministically trigger cancellation rather than racing a
// fast handler against an HTTP-framework-style timeout.
type blockingTool struct {
	started chan struct{}
}

func (blockingTool) Definition() protocol.Tool {
	return protocol.Tool{Name: "block_until_cancelled", Description: "test-only tool that blocks until its context is cancelled"}
}

func (t blockingTool) Execute(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
	close(t.started)
	<-ctx.Done()
	return nil, ctx.Err()
}
