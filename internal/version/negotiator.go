// Package version implements protocol version negotiation (spec.md §4.10).
package version

import (
	"fmt"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// Negotiator holds the immutable list of versions this server supports and
// picks one given what a client asked for.
type Negotiator struct {
	supported      []protocol.ProtocolVersion
	supportedRaw   []string
	current        protocol.ProtocolVersion
	allowBackcompat bool
}

// New builds a Negotiator. supported must be non-empty and must contain
// current.
func New(supported []string, current string, allowBackcompat bool) (*Negotiator, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("version: supported list must be non-empty")
	}
	parsed := make([]protocol.ProtocolVersion, 0, len(supported))
	var currentParsed protocol.ProtocolVersion
	var foundCurrent bool
	for _, s := range supported {
		v, err := protocol.ParseProtocolVersion(s)
		if err != nil {
			return nil, fmt.Errorf("version: %w", err)
		}
		parsed = append(parsed, v)
		if s == current {
			currentParsed = v
			foundCurrent = true
		}
	}
	if !foundCurrent {
		return nil, fmt.Errorf("version: current %q is not in supported list", current)
	}
	return &Negotiator{
		supported:       parsed,
		supportedRaw:    append([]string(nil), supported...),
		current:         currentParsed,
		allowBackcompat: allowBackcompat,
	}, nil
}

// Current returns the server's preferred version string.
func (n *Negotiator) Current() string { return n.current.String() }

// Supported returns the supported version strings in declaration order. The
// returned slice must not be mutated.
func (n *Negotiator) Supported() []string { return n.supportedRaw }

// Negotiate implements §4.10: an exact match in the supported list wins;
// otherwise, if backward compatibility is enabled and the client's major
// matches current's major and the client's minor is no newer than current's,
// the client's version is accepted as-is; otherwise negotiation fails.
func (n *Negotiator) Negotiate(clientVersion string) (string, error) {
	client, err := protocol.ParseProtocolVersion(clientVersion)
	if err != nil {
		return "", fmt.Errorf("version: malformed client version %q", clientVersion)
	}
	for _, v := range n.supported {
		if v == client {
			return clientVersion, nil
		}
	}
	if n.allowBackcompat && n.current.CompatibleWith(client) {
		return clientVersion, nil
	}
	return "", &NegotiationError{Requested: clientVersion, Supported: n.supportedRaw}
}

// NegotiationError reports a failed negotiation, carrying the supported list
// for the error response's data payload (spec.md §4.10).
type NegotiationError struct {
	Requested string
	Supported []string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("unsupported protocol version %q (supported: %v)", e.Requested, e.Supported)
}
