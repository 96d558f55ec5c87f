package auth

import (
	"net/http"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/response"
)

const apiPrefix = "/api/"

// HTTPMiddleware authenticates every request under /api/. Health and
// metrics endpoints pass through untouched.
func HTTPMiddleware(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			response.Fail(w, r, err, "")
			return
		}

		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			response.Fail(w, r, e.Unauthorized("Invalid or expired token"), "")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", e.Unauthorized("Access token required")
	}

	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return "", e.Unauthorized("Invalid authorization format")
	}
	return tokenString, nil
}
