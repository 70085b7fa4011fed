package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	"carelog-backend/pkg/auth"
	apperrors "carelog-backend/pkg/errors"
)

// UserHandler handles account administration. The router restricts every
// route here to sysadmins.
type UserHandler struct {
	users  ports.UserRepository
	audit  ports.AuditRecorder
	logger *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users ports.UserRepository, audit ports.AuditRecorder, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, audit: audit, logger: logger}
}

// CreateUserRequest is the request body for creating an account. The
// plaintext password is hashed before it reaches storage.
type CreateUserRequest struct {
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	Role      entities.Role `json:"role,omitempty"`
	FirstName string        `json:"firstName,omitempty"`
	LastName  string        `json:"lastName,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Locale    string        `json:"locale,omitempty"`
	Timezone  string        `json:"timezone,omitempty"`
}

// UpdateUserRequest is the request body for patching an account.
type UpdateUserRequest struct {
	Email     *string        `json:"email,omitempty"`
	Password  *string        `json:"password,omitempty"`
	Role      *entities.Role `json:"role,omitempty"`
	Active    *bool          `json:"active,omitempty"`
	FirstName *string        `json:"firstName,omitempty"`
	LastName  *string        `json:"lastName,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	Locale    *string        `json:"locale,omitempty"`
	Timezone  *string        `json:"timezone,omitempty"`
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	if users == nil {
		users = []entities.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

// GetUser handles GET /users/{userID}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondBadRequest(h.logger, w, "email and password are required")
		return
	}
	if req.Role != "" && !req.Role.Valid() {
		respondBadRequest(h.logger, w, "unknown role: "+string(req.Role))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondAppError(h.logger, w, apperrors.NewInternalError("failed to hash password").WithCause(err))
		return
	}

	user, err := h.users.Create(r.Context(), entities.NewUser{
		Email:        req.Email,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Locale:       req.Locale,
		Timezone:     req.Timezone,
		PasswordHash: hash,
	})
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	claims, _ := auth.GetClaimsFromContext(r.Context())
	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionCreated, claims.UserID,
		"user:"+user.ID, map[string]string{"role": string(user.Role)})

	respondJSON(w, http.StatusCreated, user)
}

// UpdateUser handles PATCH /users/{userID}.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		respondBadRequest(h.logger, w, "unknown role: "+string(*req.Role))
		return
	}

	patch := entities.UserPatch{
		Email:     req.Email,
		Role:      req.Role,
		Active:    req.Active,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Locale:    req.Locale,
		Timezone:  req.Timezone,
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			respondAppError(h.logger, w, apperrors.NewInternalError("failed to hash password").WithCause(err))
			return
		}
		patch.PasswordHash = &hash
	}

	user, err := h.users.Update(r.Context(), userID, patch)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	claims, _ := auth.GetClaimsFromContext(r.Context())
	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionUpdated, claims.UserID,
		"user:"+userID, nil)

	respondJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{userID}. Deleting your own account is
// rejected; deactivate instead.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	claims, _ := auth.GetClaimsFromContext(r.Context())

	if claims != nil && claims.UserID == userID {
		respondAppError(h.logger, w, apperrors.NewValidationError("cannot delete your own account"))
		return
	}

	user, err := h.users.Remove(r.Context(), userID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionDeleted, claims.UserID,
		"user:"+userID, map[string]string{"email": user.Email})

	respondJSON(w, http.StatusOK, user)
}
