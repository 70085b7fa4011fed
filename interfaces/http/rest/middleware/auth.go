package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"carelog-backend/domain/entities"
	"carelog-backend/pkg/auth"
)

// Authenticate validates the bearer token on every request and attaches the
// claims to the request context. Requests without a valid token never reach
// the handlers.
func Authenticate(tokens *auth.TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondUnauthorized(w, "Missing authorization header")
				return
			}

			claims, err := tokens.Validate(header)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					respondUnauthorized(w, "Token has expired")
				case errors.Is(err, auth.ErrMissingToken):
					respondUnauthorized(w, "Missing authentication token")
				default:
					respondUnauthorized(w, "Invalid token")
				}
				return
			}

			ctx := auth.SetClaimsInContext(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not in the
// allowed set.
func RequireRole(roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.GetClaimsFromContext(r.Context())
			if err != nil {
				respondUnauthorized(w, "Unauthorized")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondWithError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithError(w, http.StatusUnauthorized, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    code,
	})
}
