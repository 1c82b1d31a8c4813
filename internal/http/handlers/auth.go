package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/http/respond"
	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/models/dto"
)

// AuthService is the part of auth.Service the REST endpoints need.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (models.User, error)
	Login(ctx context.Context, email, password string) (dto.LoginResponse, error)
}

// AuthHandler exposes register/login as plain JSON endpoints for clients
// that do not speak GraphQL. Both delegate to the same service as the
// addUser and login mutations.
type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{svc: svc, logger: logger}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	created, err := h.svc.Register(r.Context(), req)
	if err != nil {
		var validation *auth.ValidationError
		switch {
		case errors.As(err, &validation):
			respond.Error(w, http.StatusBadRequest, validation.Error())
		case errors.Is(err, auth.ErrDuplicateEmail):
			respond.Error(w, http.StatusConflict, "email already registered")
		default:
			h.logger.ErrorContext(r.Context(), "register failed", slog.String("error", err.Error()))
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, "User created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	resp, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var validation *auth.ValidationError
		switch {
		case errors.As(err, &validation):
			respond.Error(w, http.StatusBadRequest, validation.Error())
		case errors.Is(err, auth.ErrBadCredentials):
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		default:
			h.logger.ErrorContext(r.Context(), "login failed", slog.String("error", err.Error()))
			respond.Error(w, http.StatusInternalServerError, "failed to log in")
		}
		return
	}
	respond.JSON(w, http.StatusOK, resp.Message, resp)
}
