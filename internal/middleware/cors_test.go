package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	cases := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "https://app.example", http.MethodPost, "*", http.StatusTeapot},
		{"listed", []string{"https://App.example"}, "https://app.example", http.MethodPost, "https://app.example", http.StatusTeapot},
		{"unlisted", []string{"https://app.example"}, "https://evil.example", http.MethodPost, "", http.StatusTeapot},
		{"preflight", []string{"*"}, "https://app.example", http.MethodOptions, "*", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/graphql", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			NewCORSMiddleware(tc.allowed)(next).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tc.wantOrigin)
			}
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
