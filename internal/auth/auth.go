// Package auth maps bearer tokens to the user identity that owns tasks.
package auth

import (
	"context"
	"crypto/subtle"
)

// Provider resolves a presented token to a user id.
type Provider interface {
	Authenticate(token string) (userID string, ok bool)
}

// StaticTokens is a fixed token table loaded at startup.
type StaticTokens struct {
	tokens []tokenEntry
}

type tokenEntry struct {
	token []byte
	user  string
}

// NewStaticTokens builds a provider from a token → user map.
func NewStaticTokens(tokens map[string]string) *StaticTokens {
	s := &StaticTokens{tokens: make([]tokenEntry, 0, len(tokens))}
	for tok, user := range tokens {
		s.tokens = append(s.tokens, tokenEntry{token: []byte(tok), user: user})
	}
	return s
}

// Authenticate compares against every entry so timing does not reveal which
// token matched.
func (s *StaticTokens) Authenticate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	provided := []byte(token)
	user := ""
	for _, e := range s.tokens {
		if subtle.ConstantTimeCompare(provided, e.token) == 1 {
			user = e.user
		}
	}
	return user, user != ""
}

// Len returns the number of configured tokens.
func (s *StaticTokens) Len() int { return len(s.tokens) }

type ctxKey struct{}

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFromContext returns the authenticated user id, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(ctxKey{}).(string)
	return u, ok && u != ""
}
