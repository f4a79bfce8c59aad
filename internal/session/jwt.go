package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/types"
)

// Claims represents JWT claims with the owning user ID.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenAuth is an AuthClient backed by an HMAC-signed JWT. The identity is
// the user_id claim of the current token; replacing or clearing the token is
// what drives identity-change notifications.
type TokenAuth struct {
	secret []byte

	mu    sync.Mutex
	token string
	subs  []func(types.Identity)
}

// NewTokenAuth creates a token-backed auth client. token may be empty, which
// means signed out.
func NewTokenAuth(secret, token string) *TokenAuth {
	return &TokenAuth{secret: []byte(secret), token: token}
}

// CurrentIdentity parses the current token and returns the identity it
// carries. An empty token is a signed-out session, not an error.
func (a *TokenAuth) CurrentIdentity(ctx context.Context) (types.Identity, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	return a.parse(token)
}

// OnIdentityChange registers fn to be called whenever the token changes.
func (a *TokenAuth) OnIdentityChange(fn func(types.Identity)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
}

// EndSession clears the token and notifies subscribers.
func (a *TokenAuth) EndSession(ctx context.Context) error {
	a.SetToken("")
	return nil
}

// SetToken replaces the current token and pushes the resulting identity to
// subscribers. A token that fails to parse is treated as signed out.
func (a *TokenAuth) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	subs := append([]func(types.Identity){}, a.subs...)
	a.mu.Unlock()

	id, err := a.parse(token)
	if err != nil {
		id = types.NoIdentity
	}
	for _, fn := range subs {
		fn(id)
	}
}

func (a *TokenAuth) parse(tokenString string) (types.Identity, error) {
	if tokenString == "" {
		return types.NoIdentity, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return types.NoIdentity, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return types.NoIdentity, fmt.Errorf("token is invalid")
	}

	return types.Identity(claims.UserID), nil
}

// SignToken produces a signed token for the given user ID, valid for ttl.
// Used by tooling and tests to mint sessions.
func SignToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
