// Package handlers implements the HTTP request handlers. Handlers stay thin:
// decode, authorize, call the repositories, encode.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "carelog-backend/pkg/errors"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondAppError maps an application error onto its HTTP status. Internal
// details stay in the log; the client sees the message and type only.
func respondAppError(logger *zap.Logger, w http.ResponseWriter, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.NewInternalError("unexpected error").WithCause(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("type", string(appErr.Type)),
			zap.Error(err),
		)
	}

	body := map[string]interface{}{
		"error":   true,
		"type":    string(appErr.Type),
		"message": appErr.Message,
		"code":    appErr.HTTPStatus,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	respondJSON(w, appErr.HTTPStatus, body)
}

// respondBadRequest reports a malformed request body.
func respondBadRequest(logger *zap.Logger, w http.ResponseWriter, msg string) {
	respondAppError(logger, w, apperrors.NewValidationError(msg))
}
