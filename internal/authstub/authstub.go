// Package authstub is a reference external identity provider: it mints
// opaque session tokens and JWTs the way a real login service would, and
// the gameplay core treats the result as opaque (spec §6.2 loadSession
// only ever sees a token string). It is not part of the core's trust
// boundary — a production deployment would swap this package out for a
// call to an external auth service, not delete the core's storage.Session
// contract it feeds.
package authstub

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"dungeoncrawler/internal/storage"
)

// Issuer mints session tokens for users that have already authenticated
// against some external system not modeled here.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

// NewIssuer builds an Issuer. signingKey must be non-empty; ttl is how long
// a minted token remains valid.
func NewIssuer(signingKey []byte, ttl time.Duration) *Issuer {
	return &Issuer{signingKey: signingKey, ttl: ttl}
}

// claims is the JWT payload: a user id and standard expiry claim.
type claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Mint issues a new session token for userID, returning both the signed
// JWT string (the opaque token clients send back in `auth`) and the
// storage.Session record the session store should hold for it.
func (iss *Issuer) Mint(userID string, nowMs int64) (string, storage.Session, error) {
	now := time.UnixMilli(nowMs)
	expiresAt := now.Add(iss.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(iss.signingKey)
	if err != nil {
		return "", storage.Session{}, fmt.Errorf("authstub: sign token: %w", err)
	}

	return signed, storage.Session{UserID: userID, ExpiresAt: expiresAt.UnixMilli()}, nil
}

// Verify checks a token's signature and expiry, returning the embedded user
// id. It does not consult any store: callers that need session-revocation
// semantics use storage.SessionStore.LoadSession instead, which this
// package's Mint output is meant to seed.
func (iss *Issuer) Verify(tokenString string, nowMs int64) (string, error) {
	// The parser's own claims validation would compare the expiry against
	// the wall clock; expiry is checked below against nowMs instead.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("authstub: unexpected signing method %v", t.Header["alg"])
		}
		return iss.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("authstub: parse token: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("authstub: invalid token")
	}
	if c.ExpiresAt != nil && nowMs > c.ExpiresAt.UnixMilli() {
		return "", fmt.Errorf("authstub: token expired")
	}
	return c.UserID, nil
}

// NewWorldID generates a fresh opaque world identifier.
func NewWorldID() string {
	return uuid.NewString()
}

// NewCharacterID generates a fresh opaque character identifier.
func NewCharacterID() string {
	return uuid.NewString()
}
