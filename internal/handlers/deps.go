package handlers

import (
	"github.com/richard-senior/mcp/internal/concurrency"
	"github.com/richard-senior/mcp/internal/notify"
	"github.com/richard-senior/mcp/internal/registry"
	"github.com/richard-senior/mcp/internal/session"
	"github.com/richard-senior/mcp/internal/version"
)

// Deps bundles every collaborator a handler needs, injected explicitly
// rather than reached for through a package-level singleton (spec.md §9:
// "avoid module-level globals").
type Deps struct {
	Manager      *session.Manager
	Negotiator   *version.Negotiator
	Cancellation *concurrency.CancellationManager
	Progress     *concurrency.ProgressTracker
	Notify       *notify.Service

	Tools     *registry.ToolRegistry
	Resources *registry.ResourceRegistry
	Prompts   *registry.PromptRegistry
	Roots     *registry.RootRegistry

	ServerInfo ServerInfo
}
