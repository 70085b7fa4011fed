package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/pkg/auth"
	apperrors "carelog-backend/pkg/errors"
)

// AuthHandler handles login and session introspection.
type AuthHandler struct {
	users  ports.UserRepository
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users ports.UserRepository, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the authenticated profile.
type LoginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// Login handles POST /auth/login. A wrong email and a wrong password are
// indistinguishable to the caller.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondBadRequest(h.logger, w, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			respondAppError(h.logger, w, apperrors.NewUnauthorizedError("invalid credentials"))
			return
		}
		respondAppError(h.logger, w, err)
		return
	}

	if !user.Active || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.logger.Warn("Login rejected", zap.String("email", req.Email))
		respondAppError(h.logger, w, apperrors.NewUnauthorizedError("invalid credentials"))
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		respondAppError(h.logger, w, apperrors.NewInternalError("failed to issue token").WithCause(err))
		return
	}

	h.logger.Info("User logged in",
		zap.String("userID", user.ID),
		zap.String("role", string(user.Role)),
	)

	respondJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Me handles GET /auth/me, returning the profile behind the current token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		respondAppError(h.logger, w, apperrors.NewUnauthorizedError("unauthorized"))
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
