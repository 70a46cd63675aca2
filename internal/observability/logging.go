package observability

import "github.com/richard-senior/mcp/internal/logger"

// LoggingObserver writes each Event as a structured log line via the
// logger package's With(kv...) scoping, using event fields as key/value
// pairs (spec.md §6.3).
type LoggingObserver struct{}

func (LoggingObserver) Emit(e Event) {
	kv := make([]any, 0, len(e.Fields)*2)
	for k, v := range e.Fields {
		kv = append(kv, k, v)
	}
	logger.With(kv...).Info(e.Name)
}
