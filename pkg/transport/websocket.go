package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/router"
	"github.com/richard-senior/mcp/internal/session"
)

// WebSocketTransport serves one long-lived, full-duplex connection per
// upgraded socket. Unlike SSETransport's one-POST-per-request shape, a
// WebSocket connection stays open across many requests and notifications.
type WebSocketTransport struct {
	Path           string
	SubProtocol    string
	AllowedOrigins []string
	MaxMessageSize int64

	srv      *http.Server
	upgrader websocket.Upgrader
}

// NewWebSocketTransport builds a transport listening on addr.
func NewWebSocketTransport(addr, path, subProtocol string, allowedOrigins []string, maxMessageSize int64) *WebSocketTransport {
	t := &WebSocketTransport{
		Path:           path,
		SubProtocol:    subProtocol,
		AllowedOrigins: allowedOrigins,
		MaxMessageSize: maxMessageSize,
		srv:            &http.Server{Addr: addr},
	}
	t.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return t.originAllowed(r.Header.Get("Origin")) },
	}
	if subProtocol != "" {
		t.upgrader.Subprotocols = []string{subProtocol}
	}
	return t
}

// Serve starts the HTTP listener and blocks until ctx is cancelled.
func (t *WebSocketTransport) Serve(ctx context.Context, manager *session.Manager, rt *router.Router) error {
	mux := http.NewServeMux()
	mux.HandleFunc(t.Path, t.handleUpgrade(manager, rt))
	t.srv.Handler = mux

	errCh := make(chan error, 1)
	go func() {
		logger.Info("websocket transport listening", t.srv.Addr, t.Path)
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

func (t *WebSocketTransport) handleUpgrade(manager *session.Manager, rt *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket: upgrade failed", err)
			return
		}
		defer conn.Close()
		if t.MaxMessageSize > 0 {
			conn.SetReadLimit(t.MaxMessageSize)
		}

		var writeMu sync.Mutex
		send := func(frame []byte) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return conn.WriteMessage(websocket.TextMessage, frame)
		}

		sess := manager.Accept(send)
		defer manager.Close(sess.ID)

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket: unexpected close", err)
				}
				return
			}
			resp := rt.HandleFrame(r.Context(), sess.ID, frame)
			if resp != nil {
				if err := send(resp); err != nil {
					logger.Warn("websocket: failed to write response", err)
					return
				}
			}
		}
	}
}

func (t *WebSocketTransport) originAllowed(origin string) bool {
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
