// Package keys defines the composite-key layout of the single table.
//
// Every entity type lives in one logical table behind a partition key and a
// sort key; two global secondary indexes project episodes by form and by
// submitter. Identifiers are system-generated UUIDs, so the reserved prefix
// tags below can never collide with identifier content.
package keys

import (
	"strings"
	"time"
)

// Reserved prefix tags. These must never appear inside identifiers.
const (
	UserPrefix      = "USER#"
	FormPrefix      = "FORM#"
	FieldPrefix     = "FIELD#"
	EpisodePrefix   = "EPISODE#"
	AuditPrefix     = "AUDIT#"
	TimestampPrefix = "TS#"
	SubmitterPrefix = "TEACHER#"

	ProfileSK  = "PROFILE"
	MetadataSK = "METADATA"
)

// Key is a primary-table composite key.
type Key struct {
	PK string
	SK string
}

// IndexKey is a GSI composite key. SK is empty when no timestamp bound is
// supplied, meaning "the whole partition".
type IndexKey struct {
	PK string
	SK string
}

// User returns the key of a user profile item. One item per user.
func User(userID string) Key {
	return Key{PK: UserPrefix + userID, SK: ProfileSK}
}

// Form returns the key of a form metadata item.
func Form(formID string) Key {
	return Key{PK: FormPrefix + formID, SK: MetadataSK}
}

// FormField returns the key of a field item. Fields share the owning form's
// partition so a form and all its fields come back in one partition query.
func FormField(formID, fieldID string) Key {
	return Key{PK: FormPrefix + formID, SK: FieldPrefix + fieldID}
}

// Episode returns the key of an episode metadata item.
func Episode(episodeID string) Key {
	return Key{PK: EpisodePrefix + episodeID, SK: MetadataSK}
}

// Audit returns the key of an audit record. Records partition by calendar
// date; the sort key orders them by time and disambiguates by action and
// actor.
func Audit(date string, ts time.Time, action, actor string) Key {
	return Key{
		PK: AuditPrefix + date,
		SK: ts.UTC().Format(time.RFC3339Nano) + "#" + action + "#" + actor,
	}
}

// Timestamp renders a point in time as a GSI sort-key value. RFC 3339 in UTC
// sorts lexicographically in time order.
func Timestamp(ts time.Time) string {
	return TimestampPrefix + ts.UTC().Format(time.RFC3339)
}

// EpisodesByForm returns the GSI1 key addressing the episodes of a form,
// optionally bounded to a single timestamp.
func EpisodesByForm(formID string, ts *time.Time) IndexKey {
	k := IndexKey{PK: FormPrefix + formID}
	if ts != nil {
		k.SK = Timestamp(*ts)
	}
	return k
}

// EpisodesBySubmitter returns the GSI2 key addressing the episodes submitted
// by a user, optionally bounded to a single timestamp.
func EpisodesBySubmitter(submitterID string, ts *time.Time) IndexKey {
	k := IndexKey{PK: SubmitterPrefix + submitterID}
	if ts != nil {
		k.SK = Timestamp(*ts)
	}
	return k
}

// TrimPrefix strips a prefix tag from a key component, recovering the raw
// identifier.
func TrimPrefix(s, prefix string) string {
	return strings.TrimPrefix(s, prefix)
}
