package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/router"
	"github.com/richard-senior/mcp/internal/session"
)

// SSETransport implements the single-POST contract decided in SPEC_FULL.md
// §6 / spec.md §9 open question 1: each POST to Path carries one JSON-RPC
// frame and gets back a "text/event-stream" response carrying that
// request's reply plus any notifications emitted while it was handled.
// There is no separate GET long-poll stream.
type SSETransport struct {
	Path           string
	RequireHTTPS   bool
	APIKey         string
	AllowedOrigins []string
	KeepAlive      time.Duration

	srv *http.Server
}

// NewSSETransport builds a transport listening on addr.
func NewSSETransport(addr, path string, requireHTTPS bool, apiKey string, allowedOrigins []string, keepAlive time.Duration) *SSETransport {
	return &SSETransport{
		Path:           path,
		RequireHTTPS:   requireHTTPS,
		APIKey:         apiKey,
		AllowedOrigins: allowedOrigins,
		srv:            &http.Server{Addr: addr},
		KeepAlive:      keepAlive,
	}
}

// Serve starts the HTTP listener and blocks until ctx is cancelled.
func (t *SSETransport) Serve(ctx context.Context, manager *session.Manager, rt *router.Router) error {
	mux := http.NewServeMux()
	mux.HandleFunc(t.Path, t.handlePost(manager, rt))
	t.srv.Handler = mux

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sse transport listening", t.srv.Addr, t.Path)
		if err := t.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (t *SSETransport) handlePost(manager *session.Manager, rt *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t.RequireHTTPS && r.TLS == nil {
			http.Error(w, "https required", http.StatusUpgradeRequired)
			return
		}
		if !t.originAllowed(r.Header.Get("Origin")) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if t.APIKey != "" && r.Header.Get("X-API-Key") != t.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, ": ping\n\n")
		flusher.Flush()

		var mu sync.Mutex
		writer := bufio.NewWriter(w)
		send := func(frame []byte) error {
			mu.Lock()
			defer mu.Unlock()
			if _, err := fmt.Fprintf(writer, "data: %s\n\n", frame); err != nil {
				return err
			}
			if err := writer.Flush(); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		}

		conn := manager.Accept(send)
		defer manager.Close(conn.ID)

		resp := rt.HandleFrame(r.Context(), conn.ID, body)
		if resp != nil {
			if err := send(resp); err != nil {
				logger.Warn("sse: failed to write response", err)
			}
		}
	}
}

func (t *SSETransport) originAllowed(origin string) bool {
	if len(t.AllowedOrigins) == 0 {
		return true
	}
	if origin == "" {
		return true
	}
	for _, o := range t.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
