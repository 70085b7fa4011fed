package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/application/services"
	"carelog-backend/domain/entities"
	"carelog-backend/pkg/auth"
	apperrors "carelog-backend/pkg/errors"
)

// EpisodeHandler handles episode requests. Teachers only ever see their own
// submissions; clinicians and sysadmins see everything.
type EpisodeHandler struct {
	episodes  ports.EpisodeRepository
	validator *services.EpisodeValidator
	audit     ports.AuditRecorder
	logger    *zap.Logger
}

// NewEpisodeHandler creates a new episode handler.
func NewEpisodeHandler(episodes ports.EpisodeRepository, validator *services.EpisodeValidator, audit ports.AuditRecorder, logger *zap.Logger) *EpisodeHandler {
	return &EpisodeHandler{episodes: episodes, validator: validator, audit: audit, logger: logger}
}

// CreateEpisodeRequest is the request body for creating an episode.
type CreateEpisodeRequest struct {
	FormID    string         `json:"formId"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Context   string         `json:"context,omitempty"`
	Data      map[string]any `json:"data"`
}

// UpdateEpisodeRequest is the request body for patching an episode.
type UpdateEpisodeRequest struct {
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Context   *string         `json:"context,omitempty"`
	Data      *map[string]any `json:"data,omitempty"`
}

// ListEpisodes handles GET /episodes. Optional formId and submittedBy query
// parameters narrow the listing; formId wins when both are given. from/to
// bound the episode timestamp (RFC 3339 or a bare date) and context matches
// exactly. Teachers are always pinned to their own submissions regardless of
// the query.
func (h *EpisodeHandler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		respondAppError(h.logger, w, apperrors.NewUnauthorizedError("unauthorized"))
		return
	}

	filter := ports.EpisodeFilter{
		FormID:      r.URL.Query().Get("formId"),
		SubmittedBy: r.URL.Query().Get("submittedBy"),
		Context:     r.URL.Query().Get("context"),
	}
	if !claims.Role.SeesAllEpisodes() {
		filter.FormID = ""
		filter.SubmittedBy = claims.UserID
	}

	if filter.From, err = parseTimeBound(r.URL.Query().Get("from"), false); err != nil {
		respondBadRequest(h.logger, w, "Invalid from parameter, want RFC 3339 or YYYY-MM-DD")
		return
	}
	if filter.To, err = parseTimeBound(r.URL.Query().Get("to"), true); err != nil {
		respondBadRequest(h.logger, w, "Invalid to parameter, want RFC 3339 or YYYY-MM-DD")
		return
	}

	episodes, err := h.episodes.List(r.Context(), filter)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	// A teacher's form-scoped view still runs through the submitter filter
	// above, so narrow by form here.
	if !claims.Role.SeesAllEpisodes() {
		if formID := r.URL.Query().Get("formId"); formID != "" {
			narrowed := episodes[:0]
			for _, ep := range episodes {
				if ep.FormID == formID {
					narrowed = append(narrowed, ep)
				}
			}
			episodes = narrowed
		}
	}

	if episodes == nil {
		episodes = []entities.Episode{}
	}
	respondJSON(w, http.StatusOK, episodes)
}

// GetEpisode handles GET /episodes/{episodeID}.
func (h *EpisodeHandler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaimsFromContext(r.Context())
	episodeID := chi.URLParam(r, "episodeID")

	ep, err := h.episodes.Get(r.Context(), episodeID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	if !h.canSee(claims, ep) {
		// Hidden, not forbidden: existence of another teacher's episode is
		// itself private.
		respondAppError(h.logger, w, apperrors.NewNotFoundError("episode"))
		return
	}
	respondJSON(w, http.StatusOK, ep)
}

// CreateEpisode handles POST /episodes. The submitted data is validated
// against the form's field definitions before anything is written.
func (h *EpisodeHandler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaimsFromContext(r.Context())

	var req CreateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.FormID == "" {
		respondBadRequest(h.logger, w, "formId is required")
		return
	}

	if err := h.validator.ValidateData(r.Context(), req.FormID, req.Data); err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	input := entities.NewEpisode{
		FormID:    req.FormID,
		Context:   req.Context,
		CreatedBy: claims.UserID,
		Data:      req.Data,
	}
	if req.Timestamp != nil {
		input.Timestamp = *req.Timestamp
	}

	ep, err := h.episodes.Create(r.Context(), input)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ep)
}

// UpdateEpisode handles PUT/PATCH /episodes/{episodeID}. Only the original
// submitter or a sysadmin may edit an episode.
func (h *EpisodeHandler) UpdateEpisode(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaimsFromContext(r.Context())
	episodeID := chi.URLParam(r, "episodeID")

	var req UpdateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	current, err := h.episodes.Get(r.Context(), episodeID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	if !h.canSee(claims, current) {
		respondAppError(h.logger, w, apperrors.NewNotFoundError("episode"))
		return
	}
	if !h.canMutate(claims, current) {
		respondAppError(h.logger, w, apperrors.NewForbiddenError("only the submitter or a sysadmin may edit an episode"))
		return
	}

	if req.Data != nil {
		if err := h.validator.ValidateData(r.Context(), current.FormID, *req.Data); err != nil {
			respondAppError(h.logger, w, err)
			return
		}
	}

	ep, err := h.episodes.Update(r.Context(), episodeID, entities.EpisodePatch{
		Timestamp: req.Timestamp,
		Context:   req.Context,
		Data:      req.Data,
	})
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, ep)
}

// DeleteEpisode handles DELETE /episodes/{episodeID}. The same ownership rule
// as editing applies; every deletion lands in the audit trail.
func (h *EpisodeHandler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaimsFromContext(r.Context())
	episodeID := chi.URLParam(r, "episodeID")

	current, err := h.episodes.Get(r.Context(), episodeID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	if !h.canSee(claims, current) {
		respondAppError(h.logger, w, apperrors.NewNotFoundError("episode"))
		return
	}
	if !h.canMutate(claims, current) {
		respondAppError(h.logger, w, apperrors.NewForbiddenError("only the submitter or a sysadmin may delete an episode"))
		return
	}

	ep, err := h.episodes.Remove(r.Context(), episodeID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionDeleted, claims.UserID,
		"episode:"+episodeID, map[string]string{"formId": ep.FormID})

	respondJSON(w, http.StatusOK, ep)
}

func (h *EpisodeHandler) canSee(claims *auth.Claims, ep *entities.Episode) bool {
	if claims == nil {
		return false
	}
	return claims.Role.SeesAllEpisodes() || ep.CreatedBy == claims.UserID
}

// canMutate is stricter than canSee: only the original submitter or a
// sysadmin may change or delete an episode. Clinicians read everything but do
// not edit other people's submissions.
func (h *EpisodeHandler) canMutate(claims *auth.Claims, ep *entities.Episode) bool {
	if claims == nil {
		return false
	}
	return claims.Role == entities.RoleSysadmin || ep.CreatedBy == claims.UserID
}

// parseTimeBound parses a from/to query value. A bare date means the start of
// that day, or its end when the value is an upper bound.
func parseTimeBound(value string, upper bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts, nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if upper {
		day = day.Add(24*time.Hour - time.Second)
	}
	return &day, nil
}
