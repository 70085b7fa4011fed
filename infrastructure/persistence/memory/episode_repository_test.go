package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	"carelog-backend/pkg/errors"
)

func TestEpisodeCreateGetRoundTrip(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	ctx := context.Background()

	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, entities.NewEpisode{
		FormID:    "f-1",
		Timestamp: ts,
		Context:   "class",
		CreatedBy: "t@x.com",
		Data:      map[string]any{"fld-ctx": "class"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "t@x.com", got.CreatedBy)
	assert.Equal(t, ts, got.Timestamp)
	assert.Equal(t, map[string]any{"fld-ctx": "class"}, got.Data)
}

func TestEpisodeCreateDefaultsTimestampToNow(t *testing.T) {
	store := NewStore()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })
	repo := NewEpisodeRepository(store)

	created, err := repo.Create(context.Background(), entities.NewEpisode{FormID: "f-1", CreatedBy: "t@x.com"})
	require.NoError(t, err)
	assert.Equal(t, fixed, created.Timestamp)
}

func seedEpisodes(t *testing.T, repo *EpisodeRepository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, e := range []entities.NewEpisode{
		{FormID: "f-1", CreatedBy: "t1@x.com", Timestamp: base.Add(2 * time.Hour)},
		{FormID: "f-1", CreatedBy: "t2@x.com", Timestamp: base},
		{FormID: "f-2", CreatedBy: "t1@x.com", Timestamp: base.Add(time.Hour)},
	} {
		_, err := repo.Create(ctx, e)
		require.NoError(t, err)
	}
}

func TestEpisodeListByForm(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	seedEpisodes(t, repo)

	got, err := repo.List(context.Background(), ports.EpisodeFilter{FormID: "f-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ascending by event time, matching the index order.
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	for _, e := range got {
		assert.Equal(t, "f-1", e.FormID)
	}
}

func TestEpisodeListBySubmitter(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	seedEpisodes(t, repo)

	got, err := repo.List(context.Background(), ports.EpisodeFilter{SubmittedBy: "t1@x.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, "t1@x.com", e.CreatedBy)
	}
}

func TestEpisodeListByDateRange(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	seedEpisodes(t, repo)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	from := base.Add(30 * time.Minute)
	got, err := repo.List(ctx, ports.EpisodeFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	to := base.Add(90 * time.Minute)
	got, err = repo.List(ctx, ports.EpisodeFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f-2", got[0].FormID)

	// Bounds are inclusive.
	got, err = repo.List(ctx, ports.EpisodeFilter{From: &base, To: &base})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, base, got[0].Timestamp)
}

func TestEpisodeListByFormWithinRange(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	seedEpisodes(t, repo)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	to := base.Add(time.Hour)
	got, err := repo.List(context.Background(), ports.EpisodeFilter{FormID: "f-1", To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, base, got[0].Timestamp)
}

func TestEpisodeListByContext(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	ctx := context.Background()
	for _, c := range []string{"classroom", "playground", "classroom"} {
		_, err := repo.Create(ctx, entities.NewEpisode{FormID: "f-1", CreatedBy: "t@x.com", Context: c})
		require.NoError(t, err)
	}

	got, err := repo.List(ctx, ports.EpisodeFilter{Context: "classroom"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, "classroom", e.Context)
	}
}

func TestEpisodeSubmitterFilterReturnsSubsetOfUnfilteredList(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	seedEpisodes(t, repo)
	ctx := context.Background()

	all, err := repo.List(ctx, ports.EpisodeFilter{})
	require.NoError(t, err)
	filtered, err := repo.List(ctx, ports.EpisodeFilter{SubmittedBy: "t2@x.com"})
	require.NoError(t, err)

	assert.Less(t, len(filtered), len(all))
	for _, e := range filtered {
		assert.Equal(t, "t2@x.com", e.CreatedBy)
	}
}

func TestEpisodeUpdateMergesOnlyPresentFields(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	ctx := context.Background()

	created, err := repo.Create(ctx, entities.NewEpisode{
		FormID:    "f-1",
		Context:   "class",
		CreatedBy: "t@x.com",
		Data:      map[string]any{"fld-ctx": "class"},
	})
	require.NoError(t, err)

	newCtx := "recess"
	updated, err := repo.Update(ctx, created.ID, entities.EpisodePatch{Context: &newCtx})
	require.NoError(t, err)
	assert.Equal(t, "recess", updated.Context)
	assert.Equal(t, created.Data, updated.Data)
	assert.Equal(t, created.Timestamp, updated.Timestamp)
}

func TestEpisodeRemoveThenRemoveReportsNotFound(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	ctx := context.Background()

	created, err := repo.Create(ctx, entities.NewEpisode{FormID: "f-1", CreatedBy: "t@x.com"})
	require.NoError(t, err)

	removed, err := repo.Remove(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)

	_, err = repo.Remove(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestEpisodeDataIsCopiedNotShared(t *testing.T) {
	repo := NewEpisodeRepository(NewStore())
	ctx := context.Background()

	data := map[string]any{"fld-ctx": "class"}
	created, err := repo.Create(ctx, entities.NewEpisode{FormID: "f-1", CreatedBy: "t@x.com", Data: data})
	require.NoError(t, err)

	data["fld-ctx"] = "mutated"
	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "class", got.Data["fld-ctx"])
}
