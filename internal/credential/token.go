package credential

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/nhle/taskmaster/internal/api"
)

// ExpiresAt returns the exp claim of a JWT access token. The signature is
// not checked; the server remains the authority. Opaque or malformed tokens
// and tokens without exp yield the zero time.
func ExpiresAt(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Expired reports whether token carries an exp claim that is not after now.
func Expired(token string, now time.Time) bool {
	exp := ExpiresAt(token)
	return !exp.IsZero() && !exp.After(now)
}

// TokenSource exposes the stored access token as an oauth2.TokenSource so
// the API client's transport can attach it as a bearer credential.
type TokenSource struct {
	store *Store
	now   func() time.Time
}

// NewTokenSource returns a token source reading from store.
func NewTokenSource(store *Store) *TokenSource {
	return &TokenSource{store: store, now: time.Now}
}

// Token implements oauth2.TokenSource. A missing or already expired access
// token is reported as api.ErrNoCredentials without contacting the server.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	tokens, err := ts.store.Tokens()
	if err != nil {
		return nil, err
	}
	if tokens.Empty() {
		return nil, api.ErrNoCredentials
	}

	exp := ExpiresAt(tokens.AccessToken)
	if !exp.IsZero() && !exp.After(ts.now()) {
		return nil, fmt.Errorf("access token expired at %s: %w", exp.Format(time.RFC3339), api.ErrNoCredentials)
	}

	return &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       exp,
	}, nil
}
