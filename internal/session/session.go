// Package session issues and verifies login tokens.
//
// Tokens are HS256 JWTs whose subject is the student id. Each token carries
// a unique id (jti) so a single token can be revoked on logout without
// affecting the student's other sessions.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/student-auth/studentauth/internal/errors"
)

const issuer = "studentauth"

// Claims are the registered claims carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// StudentID returns the subject as a student id.
func (c *Claims) StudentID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Token is an issued session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Manager issues, verifies and revokes session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewManager creates a session manager. A nil revoker disables logout.
func NewManager(secret string, ttl time.Duration, revoker Revoker) (*Manager, error) {
	if secret == "" {
		return nil, errors.NewInvalidConfig("session.secret", "must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.NewInvalidConfig("session.ttl", "must be positive")
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Manager{secret: []byte(secret), ttl: ttl, revoker: revoker, now: time.Now}, nil
}

// Issue creates a token for the given student.
func (m *Manager) Issue(studentID int64) (Token, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	id := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(studentID, 10),
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return Token{Value: signed, ID: id, ExpiresAt: exp}, nil
}

// Verify parses the token and checks its signature, expiry and revocation.
func (m *Manager) Verify(ctx context.Context, value string) (*Claims, error) {
	if value == "" {
		return nil, errors.NewAuthFailed("missing session token")
	}

	parsed, err := jwt.ParseWithClaims(value, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAuthExpired()
		}
		return nil, errors.NewAuthFailed("invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, errors.NewAuthFailed("invalid session token")
	}
	if _, err := claims.StudentID(); err != nil {
		return nil, errors.NewAuthFailed("invalid session subject")
	}

	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, errors.NewAuthFailed("session has been logged out")
	}
	return claims, nil
}

// Revoke verifies the token and revokes it until it would have expired.
func (m *Manager) Revoke(ctx context.Context, value string) error {
	claims, err := m.Verify(ctx, value)
	if err != nil {
		return err
	}
	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	return m.revoker.Revoke(ctx, claims.ID, remaining)
}
