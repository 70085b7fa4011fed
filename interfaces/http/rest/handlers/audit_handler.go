package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
)

// AuditHandler exposes the read side of the audit trail to sysadmins.
type AuditHandler struct {
	audit  ports.AuditRecorder
	logger *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit ports.AuditRecorder, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// ListByDate handles GET /audit/{date} for one calendar day.
func (h *AuditHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondBadRequest(h.logger, w, "date must be YYYY-MM-DD")
		return
	}

	records, err := h.audit.ListByDate(r.Context(), date)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	if records == nil {
		records = []entities.AuditRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}
