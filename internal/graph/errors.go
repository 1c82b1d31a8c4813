package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/hongminglow/taskql/internal/tasks"
)

// Codes reported in a GraphQL error's extensions.code.
const (
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeBadCredentials  = "BAD_CREDENTIALS"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeDuplicateEmail  = "DUPLICATE_EMAIL"
	CodeDuplicateTitle  = "DUPLICATE_TITLE"
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeInternal        = "INTERNAL"
)

// Error is a resolver failure with a stable code. graphql-go copies
// Extensions() into the response.
type Error struct {
	Code    string
	Message string
	Field   string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.Code}
	if e.Field != "" {
		ext["field"] = e.Field
	}
	return ext
}

// toGraphQLError maps service errors to typed GraphQL errors. Anything
// unrecognised is logged and reported as INTERNAL without detail.
func toGraphQLError(ctx context.Context, logger *slog.Logger, err error) error {
	var validation *auth.ValidationError
	switch {
	case errors.As(err, &validation):
		return &Error{Code: CodeBadUserInput, Message: validation.Error(), Field: validation.Field}
	case errors.Is(err, auth.ErrBadCredentials):
		return &Error{Code: CodeBadCredentials, Message: "invalid credentials"}
	case errors.Is(err, auth.ErrUnauthorized):
		return &Error{Code: CodeUnauthenticated, Message: "authentication required"}
	case errors.Is(err, auth.ErrDuplicateEmail):
		return &Error{Code: CodeDuplicateEmail, Message: "email already registered"}
	case errors.Is(err, tasks.ErrDuplicateTitle):
		return &Error{Code: CodeDuplicateTitle, Message: "task title already exists"}
	case errors.Is(err, tasks.ErrForbidden):
		return &Error{Code: CodeForbidden, Message: "task belongs to another user"}
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "task not found"}
	default:
		logger.ErrorContext(ctx, "graphql resolver failed", slog.String("error", err.Error()))
		return &Error{Code: CodeInternal, Message: "internal error"}
	}
}
