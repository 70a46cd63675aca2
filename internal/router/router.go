// Package router implements the message pipeline described in spec.md §4.3:
// parse -> validate envelope -> rate-limit -> schema-validate params ->
// dispatch -> respond, with uniform error mapping and panic containment.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/richard-senior/mcp/internal/concurrency"
	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/resilience"
	"github.com/richard-senior/mcp/internal/session"
	"github.com/richard-senior/mcp/internal/validation"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// Handler processes one request's params and returns a result to be
// marshalled into the response, or an error. Handlers never see the
// envelope directly, only method, the per-connection id, and ctx - the
// polymorphic-handler sum type from spec.md §9 collapses to this one Go
// function type plus a method->Handler dispatch table.
type Handler func(ctx context.Context, connID string, params json.RawMessage) (any, error)

// Router owns the dispatch table and the defensive layers every request
// passes through before reaching a Handler.
type Router struct {
	handlers     map[string]Handler
	manager      *session.Manager
	limiter      *resilience.RateLimiter
	validator    *validation.Validator
	cancellation *concurrency.CancellationManager
}

// New builds a Router. limiter and validator may be nil to disable those
// stages (e.g. in unit tests exercising dispatch alone). cancellation may
// also be nil, in which case requests run without a registered cancel
// handle and "cancel" is always a no-op.
func New(manager *session.Manager, limiter *resilience.RateLimiter, validator *validation.Validator, cancellation *concurrency.CancellationManager) *Router {
	return &Router{
		handlers:     make(map[string]Handler),
		manager:      manager,
		limiter:      limiter,
		validator:    validator,
		cancellation: cancellation,
	}
}

// Register binds method to handler. Re-registering a method replaces its
// handler.
func (rt *Router) Register(method string, handler Handler) {
	rt.handlers[method] = handler
}

// HandleFrame runs one inbound frame through the full pipeline and returns
// the bytes to write back, or nil if nothing should be written (the frame
// was a well-formed notification). HandleFrame never panics: any handler panic is
// recovered, logged with a correlation ID, and reported as -32603.
func (rt *Router) HandleFrame(ctx context.Context, connID string, frame []byte) []byte {
	req, err := protocol.ParseRequest(frame)
	if err != nil {
		return encode(protocol.NewErrorResponse(protocol.ErrParse, "Parse error", nil, protocol.NullID))
	}
	if verr := req.Validate(); verr != nil {
		return encode(protocol.NewErrorResponse(protocol.ErrInvalidRequest, "Invalid Request", verr.Error(), safeID(req.ID)))
	}

	if authErr := rt.manager.AuthorizeRequest(connID, req.Method); authErr != nil {
		if req.IsNotification() {
			logger.Warn("dropping unauthorized notification", connID, req.Method, authErr)
			return nil
		}
		return encode(mapAuthError(authErr, req.ID))
	}

	if rt.limiter != nil {
		decision := rt.limiter.Check(connID, req.Method)
		if !decision.Allowed {
			if req.IsNotification() {
				return nil
			}
			data := protocol.RateLimitData{
				Limit:      decision.Limit,
				Remaining:  decision.Remaining,
				ResetsAt:   decision.ResetsAt.Unix(),
				RetryAfter: decision.RetryAfter.Seconds(),
			}
			return encode(protocol.NewErrorResponse(protocol.ErrRateLimited, "Too many requests", data, req.ID))
		}
	}

	if rt.validator != nil {
		findings, verr := rt.validator.ValidateMethod(req.Method, req.Params)
		if verr != nil {
			if req.IsNotification() {
				return nil
			}
			return encode(protocol.NewErrorResponse(protocol.ErrInvalidParams, "Invalid params", verr.Error(), req.ID))
		}
		if len(findings) > 0 && rt.validator.Strict() {
			if req.IsNotification() {
				return nil
			}
			return encode(protocol.NewErrorResponse(protocol.ErrInvalidParams, "Invalid params", findings, req.ID))
		}
	}

	handler, ok := rt.handlers[req.Method]
	if !ok {
		if req.IsNotification() {
			logger.Warn("no handler for notification method", req.Method)
			return nil
		}
		return encode(protocol.NewErrorResponse(protocol.ErrMethodNotFound, "Method not found", req.Method, req.ID))
	}

	handlerCtx := ctx
	if !req.IsNotification() && rt.cancellation != nil {
		handlerCtx = rt.cancellation.Register(ctx, connID, req.ID)
		defer rt.cancellation.Deregister(connID, req.ID)
	}

	result, herr := rt.dispatch(handlerCtx, connID, handler, req)
	if req.IsNotification() {
		if herr != nil {
			logger.Error("notification handler failed", req.Method, herr)
		}
		return nil
	}
	if herr != nil {
		return encode(rt.mapHandlerError(herr, req.ID))
	}
	resp, err := protocol.NewResponse(result, req.ID)
	if err != nil {
		correlation := uuid.NewString()
		logger.Error("failed to marshal handler result", correlation, err)
		return encode(protocol.NewErrorResponse(protocol.ErrInternal, "Internal error", map[string]string{"correlationId": correlation}, req.ID))
	}
	return encode(resp)
}

// dispatch calls handler, recovering any panic into an error so a single
// misbehaving handler can never take down the connection's read loop. A
// handler that returns after its context was cancelled is reported uniformly
// as -32800, whatever error (if any) the handler itself returned, per
// spec.md §4.11's "cancellation is reported uniformly" rule.
func (rt *Router) dispatch(ctx context.Context, connID string, handler Handler, req *protocol.Request) (result any, err error) {
	correlation := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", correlation, req.Method, fmt.Sprintf("%v", r))
			err = &protocol.Error{Code: protocol.ErrInternal, Message: "Internal error", Data: map[string]string{"correlationId": correlation}}
			return
		}
		if ctx.Err() == context.Canceled {
			result = nil
			err = &protocol.Error{Code: protocol.ErrCancelled, Message: "cancelled", Data: nil}
		}
	}()
	return handler(ctx, connID, req.Params)
}

// mapHandlerError converts a handler's returned error into a wire Error. A
// *protocol.Error is passed through verbatim; anything else is wrapped as
// -32603 with only a correlation ID disclosed, per spec.md §4.3.
func (rt *Router) mapHandlerError(err error, id json.RawMessage) *protocol.Response {
	if perr, ok := err.(*protocol.Error); ok {
		return &protocol.Response{JSONRPC: protocol.Version, Error: perr, ID: safeID(id)}
	}
	correlation := uuid.NewString()
	logger.Error("unclassified handler error", correlation, err)
	return protocol.NewErrorResponse(protocol.ErrInternal, "Internal error", map[string]string{"correlationId": correlation}, id)
}

func mapAuthError(err error, id json.RawMessage) *protocol.Response {
	switch err.(type) {
	case *session.NotInitializedError:
		return protocol.NewErrorResponse(protocol.ErrNotInitialized, "Server not initialized", nil, id)
	case *session.AlreadyInitializedError:
		return protocol.NewErrorResponse(protocol.ErrInvalidRequest, "Connection already initialized", nil, id)
	default:
		return protocol.NewErrorResponse(protocol.ErrInvalidRequest, "Invalid Request", err.Error(), id)
	}
}

func safeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return protocol.NullID
	}
	return id
}

func encode(resp *protocol.Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
	}
	return b
}
