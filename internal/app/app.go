// Package app wires every collaborator package builds into one running
// server (spec.md §9's Services container), replacing the teacher's
// sync.Once package-level Server singleton with an explicitly constructed
// dependency graph that a test can build more than once.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/richard-senior/mcp/internal/concurrency"
	"github.com/richard-senior/mcp/internal/config"
	"github.com/richard-senior/mcp/internal/handlers"
	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/notify"
	"github.com/richard-senior/mcp/internal/registry"
	"github.com/richard-senior/mcp/internal/resilience"
	"github.com/richard-senior/mcp/internal/router"
	"github.com/richard-senior/mcp/internal/session"
	"github.com/richard-senior/mcp/internal/validation"
	"github.com/richard-senior/mcp/internal/version"
	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/prompts"
	"github.com/richard-senior/mcp/pkg/protocol"
	"github.com/richard-senior/mcp/pkg/resources"
	"github.com/richard-senior/mcp/pkg/tools"
	"github.com/richard-senior/mcp/pkg/transport"
)

// ServerName and ServerVersion identify this implementation in the
// "initialize" handshake's serverInfo field.
const (
	ServerName    = "mcp-core"
	ServerVersion = "0.1.0"
)

// Services holds every collaborator built from a config.Config: the
// registries, the session manager, the router with its dispatch table
// fully populated, and the notification service bound to that manager.
// Transports are held separately since a host may run any subset of them
// concurrently over the same Services.
type Services struct {
	Config *config.Config

	Manager      *session.Manager
	Negotiator   *version.Negotiator
	Cancellation *concurrency.CancellationManager
	Progress     *concurrency.ProgressTracker
	Notify       *notify.Service
	Limiter      *resilience.RateLimiter
	Validator    *validation.Validator

	Tools     *registry.ToolRegistry
	Resources *registry.ResourceRegistry
	Prompts   *registry.PromptRegistry
	Roots     *registry.RootRegistry

	Router *router.Router

	toolCacheCloser io.Closer
}

// Close releases any resources Build opened that outlive a single request,
// currently just the sqlite tool cache's database handle, if configured.
func (s *Services) Close() error {
	if s.toolCacheCloser != nil {
		return s.toolCacheCloser.Close()
	}
	return nil
}

// Option customizes Build beyond what config.Config expresses, chiefly so
// tests can substitute their own tool/resource/prompt catalogue instead of
// the demo one.
type Option func(*buildOptions)

type buildOptions struct {
	skipDemoCatalogue bool
	promptDir         string
	fileRootDir       string
}

// WithoutDemoCatalogue skips registering the built-in echo/calculator/
// datetime/fetch_markdown tools and memory/file/web resource providers,
// for tests that want an empty registry to populate themselves.
func WithoutDemoCatalogue() Option {
	return func(o *buildOptions) { o.skipDemoCatalogue = true }
}

// WithPromptDir overrides the directory prompts.LoadDir reads from;
// defaults to "prompts" under the working directory.
func WithPromptDir(dir string) Option {
	return func(o *buildOptions) { o.promptDir = dir }
}

// WithFileRoot overrides the directory the file:// resource provider
// serves and watches; defaults to "data" under the working directory.
func WithFileRoot(dir string) Option {
	return func(o *buildOptions) { o.fileRootDir = dir }
}

// Build constructs a fully wired Services from cfg. It registers the
// demo tool, resource, and prompt catalogues unless WithoutDemoCatalogue is
// given, and populates the router's dispatch table with every handler
// named in spec.md §4.
func Build(cfg *config.Config, opts ...Option) (*Services, error) {
	options := buildOptions{promptDir: "prompts", fileRootDir: "data"}
	for _, o := range opts {
		o(&options)
	}

	negotiator, err := version.New(
		cfg.ProtocolVersion.SupportedVersions,
		cfg.ProtocolVersion.CurrentVersion,
		cfg.ProtocolVersion.AllowBackwardCompatibility,
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	cancellation := concurrency.NewCancellationManager()
	manager := session.NewManager(cancellation)

	notifySvc := notify.New(manager.SendTo, manager.Broadcast)

	progress := concurrency.NewProgressTracker(func(connID string, report concurrency.ProgressReport) {
		notifySvc.Progress(connID, report.Token, report.Progress, report.Total, report.Message)
	})

	perMethod := make(map[string]resilience.BucketLimits, len(cfg.RateLimiting.PerMethod))
	for method, b := range cfg.RateLimiting.PerMethod {
		perMethod[method] = resilience.BucketLimits{Limit: b.Limit, RefillRate: b.RefillRate}
	}
	limiter := resilience.New(perMethod, resilience.BucketLimits{
		Limit:      cfg.RateLimiting.Default.Limit,
		RefillRate: cfg.RateLimiting.Default.RefillRate,
	})

	validator := validation.New(validation.Lenient)
	registerParamSchemas(validator)

	toolReg := registry.NewToolRegistry(notifySvc.ToolsListChanged)
	resourceReg := registry.NewResourceRegistry(notifySvc.ResourcesListChanged)
	resourceReg.SetUpdateSink(notifySvc.ResourceUpdated)
	promptReg := registry.NewPromptRegistry(notifySvc.PromptsListChanged)
	rootReg := registry.NewRootRegistry()

	manager.OnClose(resourceReg.ReleaseConnection)
	manager.OnClose(func(connID string) {
		logger.Debug("releasing per-connection state:", connID)
	})

	var toolCache registry.ToolResultCache
	if cfg.ToolCache.Enabled {
		var err error
		toolCache, err = buildToolCache(cfg.ToolCache)
		if err != nil {
			return nil, err
		}
	}

	if !options.skipDemoCatalogue {
		if err := registerDemoCatalogue(toolReg, resourceReg, promptReg, validator, cfg.ToolCache, toolCache, options.promptDir, options.fileRootDir); err != nil {
			return nil, err
		}
	}

	deps := &handlers.Deps{
		Manager:      manager,
		Negotiator:   negotiator,
		Cancellation: cancellation,
		Progress:     progress,
		Notify:       notifySvc,
		Tools:        toolReg,
		Resources:    resourceReg,
		Prompts:      promptReg,
		Roots:        rootReg,
		ServerInfo:   handlers.ServerInfo{Name: ServerName, Version: ServerVersion},
	}

	rt := router.New(manager, limiter, validator, cancellation)
	registerHandlers(rt, deps)

	return &Services{
		Config:       cfg,
		Manager:      manager,
		Negotiator:   negotiator,
		Cancellation: cancellation,
		Progress:     progress,
		Notify:       notifySvc,
		Limiter:      limiter,
		Validator:    validator,
		Tools:        toolReg,
		Resources:    resourceReg,
		Prompts:      promptReg,
		Roots:        rootReg,
		Router:       rt,
		toolCacheCloser: func() io.Closer {
			if closer, ok := toolCache.(io.Closer); ok {
				return closer
			}
			return nil
		}(),
	}, nil
}

// registerHandlers populates rt's dispatch table with every method named in
// spec.md §4. Kept as one place so the full method surface is visible at a
// glance.
func registerHandlers(rt *router.Router, d *handlers.Deps) {
	rt.Register("initialize", d.Initialize)
	rt.Register("ping", d.Ping)
	rt.Register("cancel", d.Cancel)
	rt.Register("notifications/roots/list_changed", d.RootsListChanged)
	rt.Register("roots/list", d.RootsList)
	rt.Register("logging/setLevel", d.LoggingSetLevel)
	rt.Register("sampling/createMessage", d.SamplingCreateMessage)
	rt.Register("completion/complete", d.CompletionComplete)

	rt.Register("tools/list", d.ToolsList)
	rt.Register("tools/call", d.ToolsCall)

	rt.Register("resources/list", d.ResourcesList)
	rt.Register("resources/read", d.ResourcesRead)
	rt.Register("resources/subscribe", d.ResourcesSubscribe)
	rt.Register("resources/unsubscribe", d.ResourcesUnsubscribe)

	rt.Register("prompts/list", d.PromptsList)
	rt.Register("prompts/get", d.PromptsGet)
}

// registerParamSchemas registers the handful of request schemas worth
// validating eagerly (spec.md §4.9); most methods validate their own
// arguments inline via decodeParams and are left unregistered here.
func registerParamSchemas(v *validation.Validator) {
	v.Register("tools/call", protocol.InputSchema{
		Type: "object",
		Properties: map[string]protocol.SchemaProp{
			"name":      {Type: "string", Description: "Tool name"},
			"arguments": {Type: "object", Description: "Tool arguments"},
		},
		Required:             []string{"name"},
		AdditionalProperties: true,
	})
	v.Register("resources/read", protocol.InputSchema{
		Type: "object",
		Properties: map[string]protocol.SchemaProp{
			"uri": {Type: "string", Description: "Resource URI"},
		},
		Required: []string{"uri"},
	})
	v.Register("prompts/get", protocol.InputSchema{
		Type: "object",
		Properties: map[string]protocol.SchemaProp{
			"name":      {Type: "string", Description: "Prompt name"},
			"arguments": {Type: "object", Description: "Prompt arguments"},
		},
		Required:             []string{"name"},
		AdditionalProperties: true,
	})
}

// buildToolCache builds the backing store CachedToolWrapper reads through:
// sqlite if a path is configured, otherwise the in-process store.
func buildToolCache(cfg config.ToolCacheConfig) (registry.ToolResultCache, error) {
	if cfg.SQLitePath != "" {
		cache, err := registry.NewSQLiteToolCache(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("app: building sqlite tool cache: %w", err)
		}
		return cache, nil
	}
	return registry.NewMemoryToolCache(), nil
}

// registerDemoCatalogue wires the built-in echo/calculator/datetime/
// fetch_markdown tools, the memory/file/web resource providers, and the
// file-backed prompt store into their respective registries (spec.md §8
// scenario 1's registration order).
func registerDemoCatalogue(
	toolReg *registry.ToolRegistry,
	resourceReg *registry.ResourceRegistry,
	promptReg *registry.PromptRegistry,
	validator *validation.Validator,
	cacheCfg config.ToolCacheConfig,
	toolCache registry.ToolResultCache,
	promptDir string,
	fileRootDir string,
) error {
	for _, t := range []mcp.Tool{
		tools.Echo(),
		tools.Calculator(),
		tools.DateTime(),
		tools.FetchMarkdown(),
	} {
		var wrapped mcp.Tool = &registry.ValidatedToolWrapper{Inner: t, Validator: validator}
		if toolCache != nil {
			wrapped = &registry.CachedToolWrapper{
				Inner:    wrapped,
				Cache:    toolCache,
				TTL:      cacheCfg.TTL,
				MaxBytes: cacheCfg.MaxBytes,
			}
		}
		if err := toolReg.Register(wrapped); err != nil {
			return fmt.Errorf("app: registering demo tool: %w", err)
		}
	}

	if err := resourceReg.RegisterProvider(resources.NewMemoryProvider()); err != nil {
		return fmt.Errorf("app: registering memory provider: %w", err)
	}
	if err := os.MkdirAll(fileRootDir, 0755); err != nil {
		return fmt.Errorf("app: creating file resource root %s: %w", fileRootDir, err)
	}
	if err := resourceReg.RegisterProvider(resources.NewFileProvider(fileRootDir)); err != nil {
		return fmt.Errorf("app: registering file provider: %w", err)
	}
	if err := resourceReg.RegisterProvider(resources.NewWebProvider()); err != nil {
		return fmt.Errorf("app: registering web provider: %w", err)
	}

	if err := prompts.RegisterAll(promptReg, promptDir); err != nil {
		return fmt.Errorf("app: registering prompts: %w", err)
	}
	return nil
}

// RunTransports runs every transport configured as enabled, blocking until
// ctx is cancelled or the first transport returns an error. Each transport
// runs in its own goroutine sharing the same Services.
func (s *Services) RunTransports(ctx context.Context) error {
	type result struct {
		name string
		err  error
	}
	results := make(chan result, 3)
	running := 0

	start := func(name string, t transport.Transport) {
		running++
		go func() {
			results <- result{name: name, err: t.Serve(ctx, s.Manager, s.Router)}
		}()
	}

	if s.Config.Transport.Stdio.Enabled {
		start("stdio", transport.NewStdioTransport())
	}
	if s.Config.Transport.SSE.Enabled {
		sse := s.Config.Transport.SSE
		start("sse", transport.NewSSETransport(sse.Addr, sse.Path, sse.RequireHTTPS, sse.APIKey, sse.AllowedOrigins, sse.KeepAlive))
	}
	if s.Config.Transport.WebSocket.Enabled {
		ws := s.Config.Transport.WebSocket
		start("websocket", transport.NewWebSocketTransport(ws.Addr, ws.Path, ws.SubProtocol, ws.AllowedOrigins, ws.MaxMessageSize))
	}

	if running == 0 {
		return fmt.Errorf("app: no transport enabled")
	}

	for i := 0; i < running; i++ {
		r := <-results
		if r.err != nil && r.err != context.Canceled {
			logger.Error("transport exited with error:", r.name, r.err)
			return fmt.Errorf("transport %s: %w", r.name, r.err)
		}
		logger.Info("transport exited:", r.name)
	}
	return nil
}
