package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp/pkg/protocol"
)

type fakeProvider struct {
	scheme string

	mu           sync.Mutex
	subscribed   map[string]func(string)
	subscribeErr error
}

func newFakeProvider(scheme string) *fakeProvider {
	return &fakeProvider{scheme: scheme, subscribed: make(map[string]func(string))}
}

func (p *fakeProvider) Scheme() string { return p.scheme }

func (p *fakeProvider) List(ctx context.Context) ([]protocol.Resource, error) {
	return []protocol.Resource{{URI: p.scheme + "://one"}}, nil
}

func (p *fakeProvider) Read(ctx context.Context, uri string) (*protocol.ResourceContentPayload, error) {
	return &protocol.ResourceContentPayload{URI: uri, Text: "content of " + uri}, nil
}

func (p *fakeProvider) Subscribe(uri string, onUpdate func(uri string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribeErr != nil {
		return p.subscribeErr
	}
	p.subscribed[uri] = onUpdate
	return nil
}

func (p *fakeProvider) Unsubscribe(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subscribed[uri]; !ok {
		return fmt.Errorf("not subscribed: %s", uri)
	}
	delete(p.subscribed, uri)
	return nil
}

func (p *fakeProvider) trigger(uri string) {
	p.mu.Lock()
	cb := p.subscribed[uri]
	p.mu.Unlock()
	if cb != nil {
		cb(uri)
	}
}

func (p *fakeProvider) isSubscribed(uri string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subscribed[uri]
	return ok
}

func TestResourceRegistrySubscribeCallsProviderOnlyOnFirstObserver(t *testing.T) {
	reg := NewResourceRegistry(nil)
	p := newFakeProvider("mem")
	require.NoError(t, reg.RegisterProvider(p))

	require.NoError(t, reg.Subscribe("conn-1", "mem://x"))
	assert.True(t, p.isSubscribed("mem://x"))

	require.NoError(t, reg.Subscribe("conn-2", "mem://x"))
	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, reg.Observers("mem://x"))
}

func TestResourceRegistryUnsubscribeReleasesOnlyOnLastObserver(t *testing.T) {
	reg := NewResourceRegistry(nil)
	p := newFakeProvider("mem")
	require.NoError(t, reg.RegisterProvider(p))
	require.NoError(t, reg.Subscribe("conn-1", "mem://x"))
	require.NoError(t, reg.Subscribe("conn-2", "mem://x"))

	require.NoError(t, reg.Unsubscribe("conn-1", "mem://x"))
	assert.True(t, p.isSubscribed("mem://x"), "provider must stay subscribed while an observer remains")

	require.NoError(t, reg.Unsubscribe("conn-2", "mem://x"))
	assert.False(t, p.isSubscribed("mem://x"))
}

func TestResourceRegistryReleaseConnectionCleansUpAllSubscriptions(t *testing.T) {
	reg := NewResourceRegistry(nil)
	p := newFakeProvider("mem")
	require.NoError(t, reg.RegisterProvider(p))
	require.NoError(t, reg.Subscribe("conn-1", "mem://x"))
	require.NoError(t, reg.Subscribe("conn-1", "mem://y"))
	require.NoError(t, reg.Subscribe("conn-2", "mem://y"))

	reg.ReleaseConnection("conn-1")

	assert.False(t, p.isSubscribed("mem://x"))
	assert.True(t, p.isSubscribed("mem://y"), "conn-2 is still observing mem://y")
	assert.Equal(t, []string{"conn-2"}, reg.Observers("mem://y"))
}

func TestResourceRegistryUpdateSinkReceivesCurrentObservers(t *testing.T) {
	reg := NewResourceRegistry(nil)
	p := newFakeProvider("mem")
	require.NoError(t, reg.RegisterProvider(p))

	var gotConns []string
	var gotURI string
	reg.SetUpdateSink(func(connIDs []string, uri string) {
		gotConns = connIDs
		gotURI = uri
	})

	require.NoError(t, reg.Subscribe("conn-1", "mem://x"))
	p.trigger("mem://x")

	assert.Equal(t, "mem://x", gotURI)
	assert.Equal(t, []string{"conn-1"}, gotConns)
}

func TestResourceRegistryReadDispatchesByScheme(t *testing.T) {
	reg := NewResourceRegistry(nil)
	require.NoError(t, reg.RegisterProvider(newFakeProvider("mem")))
	require.NoError(t, reg.RegisterProvider(newFakeProvider("file")))

	content, err := reg.Read(context.Background(), "file://doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "content of file://doc.txt", content.Text)
}

func TestResourceRegistryFireChangedOnRegisterAndUnregister(t *testing.T) {
	var calls int
	reg := NewResourceRegistry(func() { calls++ })

	require.NoError(t, reg.RegisterProvider(newFakeProvider("mem")))
	assert.Equal(t, 1, calls)

	require.NoError(t, reg.UnregisterProvider("mem"))
	assert.Equal(t, 2, calls)
}
