package auth

import (
	"context"

	"github.com/hongminglow/taskql/internal/models"
)

// RequestContext is the request-scoped result of a successful authentication.
// Only the auth middleware constructs one.
type RequestContext struct {
	Identity models.User
}

type requestContextKey struct{}

// WithRequestContext returns ctx carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext attached to ctx, if any.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok && rc.Identity.ID != ""
}

// RequireIdentity returns the authenticated user or ErrUnauthorized.
// Protected operations call it before doing any work.
func RequireIdentity(ctx context.Context) (models.User, error) {
	rc, ok := FromContext(ctx)
	if !ok {
		return models.User{}, ErrUnauthorized
	}
	return rc.Identity, nil
}
