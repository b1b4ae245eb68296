// Package session tracks the signed-in user on the client side. The gate is
// consulted at the moment of every authorization-gated action, never cached,
// so logouts and token expiry take effect immediately.
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrSignInRequired is reported when an authorization-gated action is invoked
// without a signed-in user.
var ErrSignInRequired = errors.New("sign in required")

// ErrBadToken is returned by SignIn when the provided credential cannot be
// parsed as a JWT or carries no usable subject.
var ErrBadToken = errors.New("malformed session token")

// Identity is the authenticated user as seen by the client.
type Identity struct {
	UserID int64
}

// Gate exposes the current authenticated identity. Implementations must be
// safe for concurrent use.
type Gate interface {
	// Identity returns the current identity and whether one is signed in.
	Identity() (Identity, bool)
}

// TokenGate is a Gate backed by a server-issued JWT bearer token. The client
// holds no verification key, so claims are read unverified; the server remains
// the authority and rejects tampered tokens on use.
type TokenGate struct {
	mu        sync.RWMutex
	raw       string
	userID    int64
	expiresAt time.Time

	now func() time.Time
}

// NewTokenGate returns a signed-out TokenGate.
func NewTokenGate() *TokenGate {
	return &TokenGate{now: time.Now}
}

// SignIn stores the bearer token and derives the identity from its claims.
// The subject claim must hold the numeric user ID.
func (g *TokenGate) SignIn(rawToken string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return errors.Wrap(ErrBadToken, err.Error())
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ErrBadToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return ErrBadToken
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.raw = rawToken
	g.userID = userID
	g.expiresAt = expiresAt
	return nil
}

// SignOut clears the stored credential.
func (g *TokenGate) SignOut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.raw = ""
	g.userID = 0
	g.expiresAt = time.Time{}
}

// Identity implements Gate. An expired token reads as signed out.
func (g *TokenGate) Identity() (Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.live() {
		return Identity{}, false
	}
	return Identity{UserID: g.userID}, true
}

// Token implements the bearer credential source for outbound requests.
func (g *TokenGate) Token() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.live() {
		return "", false
	}
	return g.raw, true
}

// live reports whether a non-expired token is held. Callers hold g.mu.
func (g *TokenGate) live() bool {
	if g.raw == "" {
		return false
	}
	if !g.expiresAt.IsZero() && g.now().After(g.expiresAt) {
		return false
	}
	return true
}
