package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/models"
)

type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, token string) (models.User, error)
	calls          int
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (models.User, error) {
	m.calls++
	return m.authenticateFn(ctx, token)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// identityProbe records what the downstream handler saw.
type identityProbe struct {
	called bool
	rc     auth.RequestContext
	ok     bool
}

func (p *identityProbe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.called = true
	p.rc, p.ok = auth.FromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(t *testing.T, a Authenticator, header string) (*httptest.ResponseRecorder, *identityProbe) {
	t.Helper()
	probe := &identityProbe{}
	h := NewAuthMiddleware(a, quietLogger)(probe)

	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, probe
}

func TestAuthMiddleware_NoHeaderIsAnonymous(t *testing.T) {
	m := &mockAuthenticator{}
	rec, probe := serve(t, m, "")

	if rec.Code != http.StatusOK || !probe.called || probe.ok {
		t.Fatalf("status=%d called=%v authenticated=%v", rec.Code, probe.called, probe.ok)
	}
	if m.calls != 0 {
		t.Fatal("authenticator should not run without a header")
	}
}

func TestAuthMiddleware_NonBearerSchemeIsAnonymous(t *testing.T) {
	m := &mockAuthenticator{}
	for _, h := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer   ", "Token abc"} {
		_, probe := serve(t, m, h)
		if !probe.called || probe.ok {
			t.Fatalf("%q: called=%v authenticated=%v", h, probe.called, probe.ok)
		}
	}
	if m.calls != 0 {
		t.Fatalf("authenticator called %d times", m.calls)
	}
}

func TestAuthMiddleware_ValidTokenInjectsIdentity(t *testing.T) {
	m := &mockAuthenticator{authenticateFn: func(_ context.Context, token string) (models.User, error) {
		if token != "good-token" {
			t.Fatalf("token = %q", token)
		}
		return models.User{ID: "user-1", Email: "a@x.com"}, nil
	}}

	for _, h := range []string{"Bearer good-token", "bearer good-token", "  BEARER   good-token "} {
		rec, probe := serve(t, m, h)
		if rec.Code != http.StatusOK || !probe.ok || probe.rc.Identity.ID != "user-1" {
			t.Fatalf("%q: status=%d rc=%+v ok=%v", h, rec.Code, probe.rc, probe.ok)
		}
	}
}

func TestAuthMiddleware_RejectedTokenIsAnonymous(t *testing.T) {
	for _, cause := range []error{auth.ErrTokenExpired, auth.ErrBadSignature, auth.ErrMalformedToken, errors.New("identity gone")} {
		m := &mockAuthenticator{authenticateFn: func(context.Context, string) (models.User, error) {
			return models.User{}, fmt.Errorf("%w: %w", auth.ErrUnauthorized, cause)
		}}
		rec, probe := serve(t, m, "Bearer whatever")
		if rec.Code != http.StatusOK || !probe.called || probe.ok {
			t.Fatalf("%v: status=%d called=%v authenticated=%v", cause, rec.Code, probe.called, probe.ok)
		}
	}
}

func TestAuthMiddleware_StoreFailureIs500(t *testing.T) {
	m := &mockAuthenticator{authenticateFn: func(context.Context, string) (models.User, error) {
		return models.User{}, errors.New("connection refused")
	}}
	rec, probe := serve(t, m, "Bearer whatever")
	if rec.Code != http.StatusInternalServerError || probe.called {
		t.Fatalf("status=%d called=%v", rec.Code, probe.called)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"Bearer abc.def.ghi": {"abc.def.ghi", true},
		"bearer x":           {"x", true},
		"Bearer ":            {"", false},
		"Bearerabc":          {"", false},
		"":                   {"", false},
	}
	for in, tc := range cases {
		got, ok := bearerToken(in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", in, got, ok, tc.want, tc.ok)
		}
	}
}
