// This is a **mock authentication service**, designed to provide JWT tokens
// for the directory service, simulating user authentication.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gartstein/directory/internal/directory/auth"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"
	defaultSecret = "jwt_secret_for_local_development_only"
	defaultUser   = "emp_12345"
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	CompanyID string `json:"companyId,omitempty"`
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenHandler issues a token for the user, role and company named in the
// query, e.g. /token?userId=emp_23456&role=employee&companyId=company_12345.
func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		resp := TokenResponse{
			UserID:    q.Get("userId"),
			Role:      q.Get("role"),
			CompanyID: q.Get("companyId"),
		}
		if resp.UserID == "" {
			resp.UserID = defaultUser
		}
		switch resp.Role {
		case "":
			resp.Role = auth.RoleHRAdmin
		case auth.RoleEmployee, auth.RoleManager, auth.RoleTeamLead, auth.RoleHRAdmin:
		default:
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		token, err := auth.GenerateToken(resp.UserID, resp.Role, resp.CompanyID, secret)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}
		resp.Token = token

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	port := env("AUTH_PORT", defaultPort)
	secret := env("JWT_SECRET", defaultSecret)

	http.HandleFunc("/token", tokenHandler(secret, logger))

	logger.Info("Authentication service running", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Fatal("Authentication service stopped", zap.Error(err))
	}
}
