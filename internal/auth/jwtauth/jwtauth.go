// Package jwtauth is a demo auth.Authenticator backed by HMAC-signed JWTs,
// grounded on JamesPrial-mcp-oauth-2.1/internal/oauth/internal/token's use
// of github.com/golang-jwt/jwt/v5 - scaled down to a single shared secret
// rather than that repo's JWKS/RS256 discovery flow, which is out of scope
// per spec.md §1's "concrete auth providers" non-goal.
package jwtauth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/richard-senior/mcp/internal/auth"
)

// Claims is this demo's JWT claim set: standard registered claims plus a
// flat scope list.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// Authenticator validates HMAC-signed bearer tokens against Secret.
type Authenticator struct {
	Secret []byte
}

// New builds an Authenticator using secret as the HMAC signing key.
func New(secret []byte) *Authenticator {
	return &Authenticator{Secret: secret}
}

// Authenticate implements auth.Authenticator for scheme "Bearer". Any other
// scheme is rejected.
func (a *Authenticator) Authenticate(ctx context.Context, scheme, credentials string) (*auth.Principal, error) {
	if scheme != "Bearer" {
		return nil, fmt.Errorf("jwtauth: unsupported scheme %q", scheme)
	}

	token, err := jwt.ParseWithClaims(credentials, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("jwtauth: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("jwtauth: token failed validation")
	}

	return &auth.Principal{Subject: claims.Subject, Scopes: claims.Scopes}, nil
}

// Issue mints a signed token for subject with the given scopes and ttl, used
// by tests and local demo clients; production deployments mint tokens from
// a real identity provider instead.
func (a *Authenticator) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}
