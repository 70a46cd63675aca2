// Package notify implements the NotificationService from spec.md §9: it
// breaks the ConnectionManager -> Router -> Registries -> NotificationService
// -> ConnectionManager cycle by holding only connection IDs and a send
// function, never a *session.Manager or *router.Router directly.
package notify

import (
	"encoding/json"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// Sender delivers one already-marshalled notification frame to connID.
// app.Build binds this to session.Manager.SendTo without notify importing
// package session.
type Sender func(connID string, frame []byte) error

// Broadcaster delivers one frame to every live, initialized connection.
type Broadcaster func(frame []byte)

// Service posts notifications as events rather than direct method calls, so
// registries and the resource subscription table can trigger fan-out
// without holding a reference to the connection table.
type Service struct {
	send      Sender
	broadcast Broadcaster
}

// New builds a Service bound to the given delivery functions.
func New(send Sender, broadcast Broadcaster) *Service {
	return &Service{send: send, broadcast: broadcast}
}

func (s *Service) deliver(connID string, method string, params any) {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		logger.Error("notify: failed to build notification", method, err)
		return
	}
	b, err := json.Marshal(n)
	if err != nil {
		logger.Error("notify: failed to marshal notification", method, err)
		return
	}
	if err := s.send(connID, b); err != nil {
		logger.Warn("notify: delivery failed, connection likely gone", connID, method, err)
	}
}

func (s *Service) broadcastAll(method string, params any) {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		logger.Error("notify: failed to build notification", method, err)
		return
	}
	b, err := json.Marshal(n)
	if err != nil {
		logger.Error("notify: failed to marshal notification", method, err)
		return
	}
	s.broadcast(b)
}

// ToolsListChanged fans out "notifications/tools/list_changed" to every
// connection.
func (s *Service) ToolsListChanged() { s.broadcastAll("notifications/tools/list_changed", nil) }

// ResourcesListChanged fans out "notifications/resources/list_changed".
func (s *Service) ResourcesListChanged() {
	s.broadcastAll("notifications/resources/list_changed", nil)
}

// PromptsListChanged fans out "notifications/prompts/list_changed".
func (s *Service) PromptsListChanged() { s.broadcastAll("notifications/prompts/list_changed", nil) }

// ResourceUpdated delivers "notifications/resources/updated" to each
// connection currently subscribed to uri (spec.md §8 scenario 7).
func (s *Service) ResourceUpdated(connIDs []string, uri string) {
	for _, id := range connIDs {
		s.deliver(id, "notifications/resources/updated", map[string]string{"uri": uri})
	}
}

// Progress delivers one "notifications/progress" update to connID.
func (s *Service) Progress(connID, token string, progress float64, total *float64, message string) {
	payload := map[string]any{"progressToken": token, "progress": progress}
	if total != nil {
		payload["total"] = *total
	}
	if message != "" {
		payload["message"] = message
	}
	s.deliver(connID, "notifications/progress", payload)
}

// Message delivers a "notifications/message" (logging) event to connID.
func (s *Service) Message(connID, level, logger string, data any) {
	s.deliver(connID, "notifications/message", map[string]any{
		"level":  level,
		"logger": logger,
		"data":   data,
	})
}
