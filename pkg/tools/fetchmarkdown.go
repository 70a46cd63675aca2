package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
	"github.com/richard-senior/mcp/pkg/transport"
)

// maxMarkdownLength caps how much markdown fetch_markdown returns, the same
// truncation budget the teacher's html_2_markdown tool applied.
const maxMarkdownLength = 10000

// FetchMarkdown downloads a URL and converts its HTML body to Markdown,
// generalizing the teacher's HandleURLToMarkdown: goquery now extracts the
// title (replacing its hand-rolled <title> string search) since goquery is
// already a direct dependency in go.mod.
func FetchMarkdown() mcp.Tool {
	return mcp.ToolFunc{
		Def: protocol.Tool{
			Name: "fetch_markdown",
			Description: "Fetches a URL's HTML content and converts it to Markdown for easier " +
				"consumption by an LLM client. Use this for summarizing or extracting " +
				"information from a web page.",
			InputSchema: protocol.InputSchema{
				Type: "object",
				Properties: map[string]protocol.SchemaProp{
					"url": {
						Type:        "string",
						Description: "The URL to fetch and convert to markdown, e.g. https://example.com/",
					},
				},
				Required: []string{"url"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
			rawURL, _ := args["url"].(string)
			if rawURL == "" {
				return nil, fmt.Errorf("url parameter is required and must be a non-empty string")
			}

			client, err := transport.GetCustomHTTPClient()
			if err != nil {
				return nil, fmt.Errorf("fetch_markdown: building http client: %w", err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, fmt.Errorf("fetch_markdown: building request: %w", err)
			}
			req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; mcp-fetch-markdown/1.0)")

			logger.Debug("fetch_markdown: requesting", rawURL)
			resp, err := client.Do(req)
			if err != nil {
				return protocol.ErrorToolResult(fmt.Sprintf("failed to fetch %s: %v", rawURL, err)), nil
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			if err != nil {
				return nil, fmt.Errorf("fetch_markdown: reading body: %w", err)
			}

			domain, err := extractDomain(rawURL)
			if err != nil {
				logger.Warn("fetch_markdown: failed to extract domain", err)
				domain = "unknown"
			}

			markdown, err := htmltomarkdown.ConvertString(string(body), converter.WithDomain(domain))
			if err != nil {
				return nil, fmt.Errorf("fetch_markdown: converting to markdown: %w", err)
			}
			if len(markdown) > maxMarkdownLength {
				markdown = markdown[:maxMarkdownLength] + "\n\n... (content truncated due to size)"
			}

			title := extractTitleWithGoquery(body)
			text := fmt.Sprintf("# %s\n\nSource: %s\n\n%s", title, rawURL, markdown)
			return &protocol.ToolResult{Content: []protocol.ContentItem{protocol.TextContent(text)}}, nil
		},
	}
}

func extractTitleWithGoquery(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "No title found"
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "No title found"
	}
	return title
}

// extractDomain extracts the scheme+host portion from a URL string, used to
// resolve relative links during markdown conversion.
func extractDomain(urlString string) (string, error) {
	if !strings.HasPrefix(urlString, "http://") && !strings.HasPrefix(urlString, "https://") {
		urlString = "https://" + urlString
	}
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if strings.HasPrefix(urlString, "http://") {
		return "http://" + parsedURL.Hostname(), nil
	}
	return "https://" + parsedURL.Hostname(), nil
}
