package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name       string
		tokens     []string
		authHeader string
		wantStatus int
	}{
		{
			name:       "no tokens configured passes through",
			tokens:     nil,
			authHeader: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid token",
			tokens:     []string{"tok1", "tok2"},
			authHeader: "Bearer tok2",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			tokens:     []string{"tok1"},
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			tokens:     []string{"tok1"},
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			tokens:     []string{"tok1"},
			authHeader: "Bearer nope",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthMiddleware(tc.tokens, next)
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusUnauthorized {
				if !strings.Contains(rec.Body.String(), `"jsonrpc"`) {
					t.Fatalf("rejection body is not a jsonrpc error: %s", rec.Body.String())
				}
			}
		})
	}
}
