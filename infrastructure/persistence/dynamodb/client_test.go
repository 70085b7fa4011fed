package dynamodb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	apperrors "carelog-backend/pkg/errors"
)

func testClient() *Client {
	return &Client{
		table:  "app_core",
		gsi1:   "GSI1",
		gsi2:   "GSI2",
		logger: zap.NewNop(),
	}
}

func TestMapError_ConditionalCheckBecomesConflict(t *testing.T) {
	c := testClient()

	err := c.mapError("UpdateItem", &types.ConditionalCheckFailedException{})
	assert.True(t, apperrors.IsConflict(err))
}

func TestMapError_UnavailableCases(t *testing.T) {
	c := testClient()

	cases := []error{
		gobreaker.ErrOpenState,
		gobreaker.ErrTooManyRequests,
		&types.ProvisionedThroughputExceededException{},
		&types.RequestLimitExceeded{},
		&types.ResourceNotFoundException{},
		errors.New("dial tcp: connection refused"),
		fmt.Errorf("request: %w", &types.ResourceNotFoundException{}),
	}
	for _, cause := range cases {
		err := c.mapError("GetItem", cause)
		assert.True(t, apperrors.IsUnavailable(err), "expected unavailable for %v", cause)
	}
}

func TestMapError_NilPassesThrough(t *testing.T) {
	assert.NoError(t, testClient().mapError("GetItem", nil))
}

func TestChunkWriteRequests(t *testing.T) {
	build := func(n int) []types.WriteRequest {
		reqs := make([]types.WriteRequest, n)
		return reqs
	}

	assert.Nil(t, chunkWriteRequests(nil))

	chunks := chunkWriteRequests(build(10))
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 10)

	chunks = chunkWriteRequests(build(25))
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 25)

	chunks = chunkWriteRequests(build(60))
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 25)
	assert.Len(t, chunks[1], 25)
	assert.Len(t, chunks[2], 10)
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))

	stored := formatTime(ts)
	assert.Equal(t, "2025-03-14T08:26:53Z", stored)
	assert.True(t, parseTime(stored).Equal(ts))

	assert.True(t, parseTime("not a timestamp").IsZero())
	assert.True(t, parseTime("").IsZero())
}

func TestFormItemRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := formItem{
		PK:         "FORM#f-9",
		SK:         "METADATA",
		EntityType: entityTypeForm,
		FormID:     "f-9",
		Title:      "Sensory Check-In",
		Status:     "draft",
		Version:    3,
		CreatedBy:  "u-clin",
		CreatedAt:  formatTime(now),
		UpdatedAt:  formatTime(now),
	}

	form := item.toEntity()
	assert.Equal(t, "f-9", form.ID)
	assert.Equal(t, entities.FormStatusDraft, form.Status)
	assert.Equal(t, 3, form.Version)
	assert.True(t, form.CreatedAt.Equal(now))
}

func TestFieldItemRoundTrip(t *testing.T) {
	maxLen := 500
	field := entities.FormField{
		FieldID:  "fld-notes",
		Label:    "Notes",
		Type:     entities.FieldTypeTextarea,
		Required: false,
		Order:    2,
		Validation: &entities.FieldValidation{
			MaxLength: &maxLen,
		},
	}

	item := newFieldItem("f-1", field)
	assert.Equal(t, "FORM#f-1", item.PK)
	assert.Equal(t, "FIELD#fld-notes", item.SK)
	assert.Equal(t, entityTypeField, item.EntityType)

	back := item.toEntity()
	assert.Equal(t, field, back)
}

func TestEpisodeItemCarriesBothIndexKeys(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ep := entities.Episode{
		ID:        "e-1",
		FormID:    "f-1",
		Timestamp: ts,
		CreatedBy: "u-teach",
		Data:      map[string]any{"fld-ctx": "home"},
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	item := newEpisodeItem(ep)
	assert.Equal(t, "EPISODE#e-1", item.PK)
	assert.Equal(t, "METADATA", item.SK)
	assert.Equal(t, "FORM#f-1", item.GSI1PK)
	assert.Equal(t, "TS#2025-06-01T12:00:00Z", item.GSI1SK)
	assert.Equal(t, "TEACHER#u-teach", item.GSI2PK)
	assert.Equal(t, item.GSI1SK, item.GSI2SK)

	back := item.toEntity()
	assert.Equal(t, ep, back)
}

func TestTimestampKeyConditionBoundsThePartition(t *testing.T) {
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC)

	cases := []struct {
		name   string
		filter ports.EpisodeFilter
		want   []string
	}{
		{"both bounds", ports.EpisodeFilter{From: &from, To: &to},
			[]string{"TS#2025-05-01T00:00:00Z", "TS#2025-05-31T23:59:59Z"}},
		{"lower only", ports.EpisodeFilter{From: &from}, []string{"TS#2025-05-01T00:00:00Z"}},
		{"upper only", ports.EpisodeFilter{To: &to}, []string{"TS#2025-05-31T23:59:59Z"}},
		{"unbounded", ports.EpisodeFilter{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cond := timestampKeyCondition(
				expression.Key("GSI1PK").Equal(expression.Value("FORM#f-1")), "GSI1SK", tc.filter)
			expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
			require.NoError(t, err)

			var bounds []string
			for _, av := range expr.Values() {
				if s, ok := av.(*types.AttributeValueMemberS); ok && strings.HasPrefix(s.Value, "TS#") {
					bounds = append(bounds, s.Value)
				}
			}
			sort.Strings(bounds)
			assert.Equal(t, tc.want, bounds)
		})
	}
}

func TestUserItemOmitsNothingRequired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := entities.User{
		ID:           "u-1",
		Email:        "teacher@example.org",
		Role:         entities.RoleTeacher,
		Active:       true,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	item := newUserItem(u)
	assert.Equal(t, "USER#u-1", item.PK)
	assert.Equal(t, "PROFILE", item.SK)

	back := item.toEntity()
	assert.Equal(t, u, back)
}
