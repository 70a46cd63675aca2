// Package auth defines the one authentication port this core exposes
// (spec.md §6.2) and a demo JWT-backed implementation grounded on
// JamesPrial-mcp-oauth-2.1's use of golang-jwt/jwt/v5 - without importing
// that repo's full OAuth 2.1 discovery/JWKS machinery, out of scope per
// spec.md §1.
package auth

import "context"

// Principal is the authenticated identity behind a request.
type Principal struct {
	Subject string
	Scopes  []string
}

// HasScope reports whether the principal was granted scope.
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Authenticator verifies credentials presented under scheme (e.g. "Bearer")
// and returns the resulting Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, scheme, credentials string) (*Principal, error)
}

// NoopAuthenticator accepts every request as an anonymous principal. It is
// the default when no transport-level credential check is configured.
type NoopAuthenticator struct{}

func (NoopAuthenticator) Authenticate(ctx context.Context, scheme, credentials string) (*Principal, error) {
	return &Principal{Subject: "anonymous"}, nil
}
