// Package identity threads the authenticated actor through request contexts
// so audit attribution never depends on ambient session state.
package identity

import "context"

type contextKey struct{}

// WithActor returns a context carrying the authenticated actor identity.
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, actor)
}

// Actor returns the authenticated actor from the context, or "" when no
// caller identity is attached.
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(contextKey{}).(string); ok {
		return actor
	}
	return ""
}
