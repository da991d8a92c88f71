package session

import (
	"context"

	"github.com/google/uuid"
)

// User is the identity attached to a session. Image and Username travel
// with the token so handlers never need a user lookup for the caller.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Image    string    `json:"image"`
}

// Session is the authenticated context of one request or connection.
// A nil Session (or nil Session.User) means unauthenticated.
type Session struct {
	User *User
}

// Authenticated reports whether the session carries a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

type ctxKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
