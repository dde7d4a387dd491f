// ABOUTME: Request context plumbing for the authenticated principal

package auth

import (
	"context"

	"github.com/bootgate/bootgate/internal/store"
)

type contextKey struct{}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *store.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*store.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*store.Principal)
	return p, ok
}
