package handlers

import (
	"context"

	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
)

// recordAudit appends one record to the audit trail. The trail is best
// effort from the request's point of view: a failed write is logged but
// never fails the mutation it describes.
func recordAudit(ctx context.Context, audit ports.AuditRecorder, logger *zap.Logger, action, actor, entity string, details map[string]string) {
	rec := entities.AuditRecord{
		Action:  action,
		Actor:   actor,
		Entity:  entity,
		Details: details,
	}
	if err := audit.Record(ctx, rec); err != nil {
		logger.Warn("Audit record write failed",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.Error(err),
		)
	}
}
