package dynamodb

import (
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"carelog-backend/infrastructure/persistence/keys"
)

// timeNow is swappable for tests.
var timeNow = time.Now

// errUnprocessedItems reports a batch write that never drained.
var errUnprocessedItems = errors.New("batch write left unprocessed items after retries")

// Entity type discriminators stored on every item.
const (
	entityTypeUser    = "USER"
	entityTypeForm    = "FORM"
	entityTypeField   = "FIELD"
	entityTypeEpisode = "EPISODE"
	entityTypeAudit   = "AUDIT"
)

// keyAttrs renders a composite key as DynamoDB key attributes.
func keyAttrs(k keys.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: k.PK},
		"SK": &types.AttributeValueMemberS{Value: k.SK},
	}
}

// formatTime renders a timestamp for storage. All stored times are RFC 3339
// in UTC so index sort keys order chronologically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads a stored timestamp. Unparseable values come back zero
// rather than failing the whole item.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
