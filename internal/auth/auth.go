// Package auth authenticates operator access to the admin endpoints.
//
// Students authenticate with session tokens (see internal/session). Admin
// endpoints use static bearer tokens from configuration instead.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/student-auth/studentauth/internal/errors"
)

// RoleAdmin grants access to the student listing and audit summary.
const RoleAdmin = "admin"

// Principal is an authenticated operator.
type Principal struct {
	// ID is the unique identifier for this operator.
	ID string `json:"id"`

	// Roles are the roles assigned to this operator.
	Roles []string `json:"roles"`

	// ExpiresAt is when the token stops being accepted. Zero means never.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired checks if the principal's token has expired.
func (p *Principal) IsExpired() bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(p.ExpiresAt)
}

// HasRole checks if the principal has the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authenticator validates bearer tokens.
type Authenticator interface {
	// ValidateToken returns the principal for token.
	// Returns an error if the token is unknown or expired.
	ValidateToken(ctx context.Context, token string) (*Principal, error)
}

// StaticTokenAuthenticator implements Authenticator with tokens from
// configuration.
type StaticTokenAuthenticator struct {
	mu     sync.RWMutex
	tokens map[string]*Principal
}

// NewStaticTokenAuthenticator creates an authenticator with no tokens.
func NewStaticTokenAuthenticator() *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{
		tokens: make(map[string]*Principal),
	}
}

// RegisterToken adds a token-to-principal mapping. Empty tokens are ignored.
func (a *StaticTokenAuthenticator) RegisterToken(token string, p *Principal) {
	if token == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = p
}

// ValidateToken validates a static token.
func (a *StaticTokenAuthenticator) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, errors.NewAuthFailed("token required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var found *Principal
	for known, p := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			found = p
		}
	}
	if found == nil {
		return nil, errors.NewAuthFailed("invalid token")
	}
	if found.IsExpired() {
		return nil, errors.NewAuthExpired()
	}
	return found, nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is not a bearer credential.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type contextKey string

const principalContextKey contextKey = "studentauth_principal"

// ContextWithPrincipal returns a new context with the principal attached.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the principal from the context.
// Returns nil if none is attached.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}
