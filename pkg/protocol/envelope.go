// Package protocol implements the JSON-RPC 2.0 envelope and the MCP message
// records carried inside it: tools, resources, prompts, roots, and content.
//
// https://modelcontextprotocol.info/specification/draft/basic/lifecycle/
// Flow:
//
//	Client sends "initialize" with its protocolVersion, capabilities and clientInfo.
//	Server replies with its own protocolVersion, capabilities and serverInfo.
//	Client sends the "notifications/initialized" notification.
//	Client may now send "tools/list", "resources/list", "prompts/list" etc.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version. MCP only ever speaks "2.0".
const Version = "2.0"

// Request represents a JSON-RPC 2.0 request or notification object.
//
// A Request is a notification iff ID is nil (the "id" member was absent from
// the wire). An explicit JSON null id ("id":null) is NOT a notification: ID
// will hold the four bytes "null" and IsNotification reports false.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether this request carries no id member at all.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response represents a JSON-RPC 2.0 response object: exactly one of Result
// or Error is set. ID is always present, including when it echoes an
// explicit null request id or when the request id could not be determined
// (in which case ID is the literal "null").
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`

	// Cause is the underlying Go error, if any. Never serialized: §7 forbids
	// leaking internal detail onto the wire.
	Cause error `json:"-"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("jsonrpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NullID is the canonical raw encoding of a JSON null id.
var NullID = json.RawMessage("null")

// NewID encodes v (a string, a number, or nil) as a raw JSON-RPC id.
func NewID(v any) json.RawMessage {
	if v == nil {
		return append(json.RawMessage(nil), NullID...)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return append(json.RawMessage(nil), NullID...)
	}
	return b
}

// IDEqual reports whether two raw ids have the same textual form, which is
// the comparison §3 requires (never normalise a numeric id through float64).
func IDEqual(a, b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
}

// FormatID renders a raw id for logs and map keys.
func FormatID(id json.RawMessage) string {
	if len(id) == 0 {
		return "<none>"
	}
	return string(bytes.TrimSpace(id))
}

// ValidIDShape reports whether raw is a well-formed JSON-RPC id: a JSON
// number, string, or null. Objects and arrays are rejected by §3.
func ValidIDShape(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true // absent id: valid for a notification
	}
	switch trimmed[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v any
		return json.Unmarshal(trimmed, &v) == nil
	default:
		return false
	}
}

// NewRequest builds a well-formed request. Pass a nil id to build a
// notification.
func NewRequest(method string, params any, id any) (*Request, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	req := &Request{JSONRPC: Version, Method: method, Params: raw}
	if id != nil {
		req.ID = NewID(id)
	}
	return req, nil
}

// NewNotification builds a request with no id.
func NewNotification(method string, params any) (*Request, error) {
	return NewRequest(method, params, nil)
}

// NewResponse builds a success response echoing id.
func NewResponse(result any, id json.RawMessage) (*Response, error) {
	var raw json.RawMessage
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Response{JSONRPC: Version, Result: raw, ID: copyID(id)}, nil
}

// NewErrorResponse builds an error response echoing id.
func NewErrorResponse(code int, message string, data any, id json.RawMessage) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      copyID(id),
	}
}

func copyID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return append(json.RawMessage(nil), NullID...)
	}
	return append(json.RawMessage(nil), id...)
}

// ParseRequest unmarshals a JSON-RPC request frame. It fails only when the
// frame is not valid JSON or does not fit Request's field types; envelope
// rules are checked by Validate.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks envelope invariants that are independent of method lookup:
// jsonrpc must be exactly "2.0", method must be non-empty, and id (if any)
// must be a number, string, or null.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("invalid jsonrpc version: %q", r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("missing method")
	}
	if !ValidIDShape(r.ID) {
		return fmt.Errorf("invalid id shape")
	}
	return nil
}

func (r *Request) String() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unmarshalable request: %v>", err)
	}
	return string(b)
}

func (r *Response) String() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unmarshalable response: %v>", err)
	}
	return string(b)
}
