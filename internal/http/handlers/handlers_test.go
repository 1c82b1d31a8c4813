package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/http/respond"
	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/models/dto"
)

type fakeAuthService struct {
	registerFn func(ctx context.Context, req dto.RegisterRequest) (models.User, error)
	loginFn    func(ctx context.Context, email, password string) (dto.LoginResponse, error)
}

func (f fakeAuthService) Register(ctx context.Context, req dto.RegisterRequest) (models.User, error) {
	return f.registerFn(ctx, req)
}

func (f fakeAuthService) Login(ctx context.Context, email, password string) (dto.LoginResponse, error) {
	return f.loginFn(ctx, email, password)
}

func authRouter(svc AuthService) http.Handler {
	r := chi.NewRouter()
	NewAuthHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, respond.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	var env respond.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return rec, env
}

func TestAuthHandler_RegisterStatuses(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "created", body: `{"email":"a@x.com"}`, status: http.StatusCreated},
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
		{name: "validation", body: `{}`, err: &auth.ValidationError{Field: "email", Message: "is required"}, status: http.StatusBadRequest},
		{name: "duplicate", body: `{}`, err: auth.ErrDuplicateEmail, status: http.StatusConflict},
		{name: "store down", body: `{}`, err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := fakeAuthService{registerFn: func(_ context.Context, req dto.RegisterRequest) (models.User, error) {
				if tt.err != nil {
					return models.User{}, tt.err
				}
				return models.User{ID: "u1", Email: req.Email, PasswordHash: "secret-hash"}, nil
			}}
			rec, env := post(t, authRouter(svc), "/auth/register", tt.body)
			if rec.Code != tt.status || env.Code != tt.status {
				t.Fatalf("status = %d / %d, want %d", rec.Code, env.Code, tt.status)
			}
			if strings.Contains(rec.Body.String(), "secret-hash") {
				t.Fatal("password hash leaked")
			}
		})
	}
}

func TestAuthHandler_LoginStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "ok", status: http.StatusOK},
		{name: "bad credentials", err: auth.ErrBadCredentials, status: http.StatusUnauthorized},
		{name: "validation", err: &auth.ValidationError{Field: "password", Message: "is required"}, status: http.StatusBadRequest},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := fakeAuthService{loginFn: func(_ context.Context, email, password string) (dto.LoginResponse, error) {
				if email != "a@x.com" || password != "pw123456" {
					t.Errorf("got credentials %q/%q", email, password)
				}
				if tt.err != nil {
					return dto.LoginResponse{}, tt.err
				}
				return dto.LoginResponse{Token: "tok", Message: auth.LoginMessage}, nil
			}}
			rec, env := post(t, authRouter(svc), "/auth/login", `{"email":"a@x.com","password":"pw123456"}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.err == nil && env.Message != auth.LoginMessage {
				t.Fatalf("message = %q", env.Message)
			}
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	for name, tc := range map[string]struct {
		err    error
		status int
		store  string
	}{
		"healthy":  {status: http.StatusOK, store: "ok"},
		"degraded": {err: errors.New("no route to host"), status: http.StatusServiceUnavailable, store: "unreachable"},
	} {
		t.Run(name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			r := chi.NewRouter()
			NewHealthHandler(time.Now().Add(-time.Minute), fakePinger{err: tc.err}, logger).Register(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body struct {
				Data healthStatus `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.Store != tc.store {
				t.Fatalf("store = %q, want %q", body.Data.Store, tc.store)
			}
			logged := strings.Contains(logs.String(), "store ping failed")
			if logged != (tc.err != nil) {
				t.Fatalf("ping failure logged = %v, want %v (logs %q)", logged, tc.err != nil, logs.String())
			}
		})
	}
}

func TestGraphQLHandler_RejectsOtherMethods(t *testing.T) {
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"ping": &graphql.Field{
					Type:    graphql.String,
					Resolve: func(graphql.ResolveParams) (interface{}, error) { return "pong", nil },
				},
			},
		}),
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	h := NewGraphQLHandler(&schema, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/graphql", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ ping }"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"pong"`) {
		t.Fatalf("POST status = %d body = %s", rec.Code, rec.Body.String())
	}
}
