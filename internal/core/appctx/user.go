// Package appctx provides request-scoped values extraction.
package appctx

import (
	"context"
)

// UserContext contains authenticated user information.
// Email is the identity stamped into movedBy/createdBy audit fields.
type UserContext struct {
	UserID   string
	Email    string
	Username string
	IsAdmin  bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// Identity returns the audit identity for the caller: email when present,
// falling back to username.
func Identity(ctx context.Context) string {
	u := GetUser(ctx)
	if u == nil {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	return u.Username
}
