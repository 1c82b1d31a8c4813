package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/http/respond"
	"github.com/hongminglow/taskql/internal/models"
)

// Authenticator resolves a bearer token to a user; auth.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// NewAuthMiddleware resolves an optional Authorization: Bearer <JWT> header.
//
// A missing header, an invalid token or a token for a user that no longer
// exists all leave the request anonymous; protected resolvers reject it via
// auth.RequireIdentity. A store failure while loading the user is a 500.
func NewAuthMiddleware(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), raw)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					logger.DebugContext(r.Context(), "bearer token rejected", slog.String("error", err.Error()))
					next.ServeHTTP(w, r)
					return
				}
				logger.ErrorContext(r.Context(), "resolve bearer identity", slog.String("error", err.Error()))
				respond.Error(w, http.StatusInternalServerError, "failed to resolve identity")
				return
			}

			ctx := auth.WithRequestContext(r.Context(), auth.RequestContext{Identity: user})
			if rec, ok := w.(*statusRecorder); ok {
				rec.userID = user.ID
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
