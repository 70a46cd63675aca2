package resources

import (
	"context"
	"fmt"
	"io"
	"net/http"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/richard-senior/mcp/pkg/protocol"
	"github.com/richard-senior/mcp/pkg/transport"
)

// WebProvider exposes arbitrary http(s) pages as web:// resources, reading
// them on demand and converting HTML bodies to Markdown the same way the
// fetch_markdown tool does. It has no fixed List: List returns the pages
// this provider has already been asked to Read at least once, matching the
// teacher's habit of treating web content as pull-only, not a catalogue.
type WebProvider struct {
	seen map[string]protocol.Resource
}

// NewWebProvider builds an empty provider.
func NewWebProvider() *WebProvider {
	return &WebProvider{seen: make(map[string]protocol.Resource)}
}

func (p *WebProvider) Scheme() string { return "web" }

func (p *WebProvider) List(ctx context.Context) ([]protocol.Resource, error) {
	out := make([]protocol.Resource, 0, len(p.seen))
	for _, r := range p.seen {
		out = append(out, r)
	}
	return out, nil
}

func (p *WebProvider) Read(ctx context.Context, uri string) (*protocol.ResourceContentPayload, error) {
	targetURL := "https://" + uri[len("web://"):]

	client, err := transport.GetCustomHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("web provider: building http client: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("web provider: building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web provider: fetching %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("web provider: reading body: %w", err)
	}
	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("web provider: converting to markdown: %w", err)
	}

	p.seen[uri] = protocol.Resource{URI: uri, Name: uri, MimeType: "text/markdown"}
	return &protocol.ResourceContentPayload{URI: uri, MimeType: "text/markdown", Text: markdown}, nil
}

// Subscribe always fails: this provider has no way to detect when a remote
// page changes, unlike FileProvider's fsnotify watch.
func (p *WebProvider) Subscribe(uri string, onUpdate func(uri string)) error {
	return fmt.Errorf("web provider: subscriptions are not supported for remote pages")
}

func (p *WebProvider) Unsubscribe(uri string) error { return nil }
