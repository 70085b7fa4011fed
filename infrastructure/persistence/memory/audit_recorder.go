package memory

import (
	"context"

	"carelog-backend/domain/entities"
)

// AuditRecorder keeps audit records in the store. Production audit retention
// belongs to the durable backend; this implementation exists so tests can
// assert that privileged actions were recorded.
type AuditRecorder struct {
	store *Store
}

// NewAuditRecorder creates an audit recorder over the given store.
func NewAuditRecorder(store *Store) *AuditRecorder {
	return &AuditRecorder{store: store}
}

// Record appends an audit record. Records are write-only.
func (r *AuditRecorder) Record(ctx context.Context, rec entities.AuditRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.audits = append(r.store.audits, rec.Normalize(r.store.now()))
	return nil
}

// ListByDate returns the records of one calendar date in write order.
func (r *AuditRecorder) ListByDate(ctx context.Context, date string) ([]entities.AuditRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []entities.AuditRecord
	for _, rec := range r.store.audits {
		if rec.Date == date {
			out = append(out, rec)
		}
	}
	return out, nil
}
