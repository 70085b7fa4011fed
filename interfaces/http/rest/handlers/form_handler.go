package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	"carelog-backend/pkg/auth"
)

// FormHandler handles form and field requests. Reads are open to every
// authenticated role; mutations are restricted to form managers by the
// router's role middleware.
type FormHandler struct {
	forms  ports.FormRepository
	audit  ports.AuditRecorder
	logger *zap.Logger
}

// NewFormHandler creates a new form handler.
func NewFormHandler(forms ports.FormRepository, audit ports.AuditRecorder, logger *zap.Logger) *FormHandler {
	return &FormHandler{forms: forms, audit: audit, logger: logger}
}

// CreateFormRequest is the request body for creating a form. Fields may be
// supplied inline and are stored as the form's initial field set.
type CreateFormRequest struct {
	Title  string                  `json:"title"`
	Status entities.FormStatus     `json:"status,omitempty"`
	Fields []entities.NewFormField `json:"fields,omitempty"`
}

// UpdateFormRequest is the request body for patching form metadata.
type UpdateFormRequest struct {
	Title  *string              `json:"title,omitempty"`
	Status *entities.FormStatus `json:"status,omitempty"`
}

// FormResponse is a form together with its field definitions.
type FormResponse struct {
	entities.Form
	Fields []entities.FormField `json:"fields"`
}

// ListForms handles GET /forms.
func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.forms.List(r.Context())
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	if forms == nil {
		forms = []entities.Form{}
	}
	respondJSON(w, http.StatusOK, forms)
}

// GetForm handles GET /forms/{formID}, returning metadata and fields.
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	form, err := h.forms.Get(r.Context(), formID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	fields, err := h.forms.ListFields(r.Context(), formID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(w, http.StatusOK, FormResponse{Form: *form, Fields: fields})
}

// CreateForm handles POST /forms.
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req CreateFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondBadRequest(h.logger, w, "title is required")
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		respondBadRequest(h.logger, w, "unknown status: "+string(req.Status))
		return
	}
	if msg := validateFieldInputs(req.Fields); msg != "" {
		respondBadRequest(h.logger, w, msg)
		return
	}

	claims, _ := auth.GetClaimsFromContext(r.Context())

	form, err := h.forms.Create(r.Context(), entities.NewForm{
		Title:     req.Title,
		Status:    req.Status,
		CreatedBy: claims.UserID,
	})
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	fields := []entities.FormField{}
	if len(req.Fields) > 0 {
		fields, err = h.forms.ReplaceFields(r.Context(), form.ID, req.Fields)
		if err != nil {
			respondAppError(h.logger, w, err)
			return
		}
		// The field write bumped the version; return the current shape.
		if form, err = h.forms.Get(r.Context(), form.ID); err != nil {
			respondAppError(h.logger, w, err)
			return
		}
	}

	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionCreated, claims.UserID,
		"form:"+form.ID, map[string]string{"title": form.Title})

	respondJSON(w, http.StatusCreated, FormResponse{Form: *form, Fields: fields})
}

// UpdateForm handles PATCH /forms/{formID}.
func (h *FormHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	var req UpdateFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		respondBadRequest(h.logger, w, "unknown status: "+string(*req.Status))
		return
	}
	if req.Title != nil && *req.Title == "" {
		respondBadRequest(h.logger, w, "title cannot be empty")
		return
	}

	form, err := h.forms.Update(r.Context(), formID, entities.FormPatch{
		Title:  req.Title,
		Status: req.Status,
	})
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	claims, _ := auth.GetClaimsFromContext(r.Context())
	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionUpdated, claims.UserID,
		"form:"+formID, nil)

	respondJSON(w, http.StatusOK, form)
}

// DeleteForm handles DELETE /forms/{formID}.
func (h *FormHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	form, err := h.forms.Remove(r.Context(), formID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	claims, _ := auth.GetClaimsFromContext(r.Context())
	recordAudit(r.Context(), h.audit, h.logger, entities.AuditActionDeleted, claims.UserID,
		"form:"+formID, map[string]string{"title": form.Title})

	respondJSON(w, http.StatusOK, form)
}

// ListFields handles GET /forms/{formID}/fields.
func (h *FormHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	if _, err := h.forms.Get(r.Context(), formID); err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	fields, err := h.forms.ListFields(r.Context(), formID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, fields)
}

// CreateField handles POST /forms/{formID}/fields.
func (h *FormHandler) CreateField(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	var req entities.NewFormField
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if msg := validateFieldInputs([]entities.NewFormField{req}); msg != "" {
		respondBadRequest(h.logger, w, msg)
		return
	}

	field, err := h.forms.CreateField(r.Context(), formID, req)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, field)
}

// UpdateField handles PATCH /forms/{formID}/fields/{fieldID}.
func (h *FormHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	fieldID := chi.URLParam(r, "fieldID")

	var req entities.FormFieldPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if req.Type != nil && !req.Type.Valid() {
		respondBadRequest(h.logger, w, "unknown field type: "+string(*req.Type))
		return
	}

	field, err := h.forms.UpdateField(r.Context(), formID, fieldID, req)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, field)
}

// DeleteField handles DELETE /forms/{formID}/fields/{fieldID}.
func (h *FormHandler) DeleteField(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	fieldID := chi.URLParam(r, "fieldID")

	field, err := h.forms.RemoveField(r.Context(), formID, fieldID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, field)
}

// ReplaceFields handles PUT /forms/{formID}/fields, swapping the whole set.
func (h *FormHandler) ReplaceFields(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	var req []entities.NewFormField
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if msg := validateFieldInputs(req); msg != "" {
		respondBadRequest(h.logger, w, msg)
		return
	}

	fields, err := h.forms.ReplaceFields(r.Context(), formID, req)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}
	respondJSON(w, http.StatusOK, fields)
}

// validateFieldInputs checks the structural parts of incoming field
// definitions that the repositories do not enforce.
func validateFieldInputs(inputs []entities.NewFormField) string {
	for _, in := range inputs {
		if in.Label == "" {
			return "field label is required"
		}
		if !in.Type.Valid() {
			return "unknown field type: " + string(in.Type)
		}
		if in.Type.HasOptions() && len(in.Options) == 0 {
			return "field type " + string(in.Type) + " requires options"
		}
	}
	return ""
}
