package entities

import "time"

// Audit actions recorded for privileged operations.
const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
	AuditActionExport  = "exported"
)

// AuditRecord traces a privileged action. Records are write-only and
// partitioned by calendar date; they are never updated and never expire.
type AuditRecord struct {
	Date      string            `json:"date"` // YYYY-MM-DD, derived from Timestamp when empty
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Actor     string            `json:"actor"`
	Entity    string            `json:"entity"` // e.g. "form:FORM_ID"
	Details   map[string]string `json:"details,omitempty"`
}

// Normalize fills the derivable parts of the record: a zero Timestamp becomes
// now and an empty Date is derived from the timestamp's UTC calendar date.
func (r AuditRecord) Normalize(now time.Time) AuditRecord {
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	if r.Date == "" {
		r.Date = r.Timestamp.UTC().Format("2006-01-02")
	}
	return r
}
