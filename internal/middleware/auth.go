package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strings"
)

// AuthMiddleware validates Bearer tokens on the HTTP transport. With no
// tokens configured it passes every request through.
func AuthMiddleware(validTokens []string, next http.Handler) http.Handler {
	tokenSet := make(map[string]struct{}, len(validTokens))
	for _, token := range validTokens {
		tokenSet[token] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(tokenSet) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			reject(w, r, "Authorization header required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			reject(w, r, "Bearer token required")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if _, valid := tokenSet[token]; !valid {
			reject(w, r, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func reject(w http.ResponseWriter, r *http.Request, message string) {
	log.Printf("Auth failed: %s from %s", message, r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, fmt.Sprintf(`{"jsonrpc":"2.0","error":{"code":-32001,"message":%q}}`, message), http.StatusUnauthorized)
}
