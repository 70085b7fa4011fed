package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryKeys(t *testing.T) {
	assert.Equal(t, Key{PK: "USER#u-1", SK: "PROFILE"}, User("u-1"))
	assert.Equal(t, Key{PK: "FORM#f-1", SK: "METADATA"}, Form("f-1"))
	assert.Equal(t, Key{PK: "FORM#f-1", SK: "FIELD#fld-1"}, FormField("f-1", "fld-1"))
	assert.Equal(t, Key{PK: "EPISODE#e-1", SK: "METADATA"}, Episode("e-1"))
}

func TestAuditKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)
	k := Audit("2024-01-02", ts, "deleted", "sys@example.com")
	assert.Equal(t, "AUDIT#2024-01-02", k.PK)
	assert.Equal(t, "2024-01-02T10:30:00Z#deleted#sys@example.com", k.SK)
}

func TestIndexKeys(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	k := EpisodesByForm("f-1", nil)
	assert.Equal(t, "FORM#f-1", k.PK)
	assert.Empty(t, k.SK)

	k = EpisodesByForm("f-1", &ts)
	assert.Equal(t, "TS#2024-01-01T10:00:00Z", k.SK)

	k = EpisodesBySubmitter("u-1", &ts)
	assert.Equal(t, "TEACHER#u-1", k.PK)
	assert.Equal(t, "TS#2024-01-01T10:00:00Z", k.SK)
}

func TestTimestampSortsLexicographically(t *testing.T) {
	earlier := Timestamp(time.Date(2024, 1, 1, 9, 59, 59, 0, time.UTC))
	later := Timestamp(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	assert.Less(t, earlier, later)
}

func TestTimestampNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	local := time.Date(2024, 1, 1, 11, 0, 0, 0, loc)
	assert.Equal(t, "TS#2024-01-01T10:00:00Z", Timestamp(local))
}

func TestTrimPrefix(t *testing.T) {
	assert.Equal(t, "f-1", TrimPrefix("FORM#f-1", FormPrefix))
	assert.Equal(t, "plain", TrimPrefix("plain", FormPrefix))
}
