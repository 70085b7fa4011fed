package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	"carelog-backend/pkg/errors"
)

// EpisodeRepository is the in-memory EpisodeRepository implementation.
type EpisodeRepository struct {
	store *Store
}

// NewEpisodeRepository creates an episode repository over the given store.
func NewEpisodeRepository(store *Store) *EpisodeRepository {
	return &EpisodeRepository{store: store}
}

// List returns episodes matching the filter. Unfiltered listings come back in
// insertion order; filtered listings are sorted ascending by event timestamp,
// matching the durable backend's index order.
func (r *EpisodeRepository) List(ctx context.Context, filter ports.EpisodeFilter) ([]entities.Episode, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]entities.Episode, 0, len(r.store.episodes))
	for _, e := range r.store.episodes {
		switch {
		case filter.FormID != "":
			if e.FormID != filter.FormID {
				continue
			}
		case filter.SubmittedBy != "":
			if e.CreatedBy != filter.SubmittedBy {
				continue
			}
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		if filter.Context != "" && e.Context != filter.Context {
			continue
		}
		out = append(out, cloneEpisode(e))
	}

	if filter.FormID != "" || filter.SubmittedBy != "" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	}
	return out, nil
}

// Get returns the episode with the given ID.
func (r *EpisodeRepository) Get(ctx context.Context, id string) (*entities.Episode, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.episodes {
		if e.ID == id {
			out := cloneEpisode(e)
			return &out, nil
		}
	}
	return nil, errors.NewNotFoundError("episode")
}

// Create persists a new episode. A zero timestamp defaults to now.
func (r *EpisodeRepository) Create(ctx context.Context, input entities.NewEpisode) (*entities.Episode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	ts := input.Timestamp
	if ts.IsZero() {
		ts = now
	}
	episode := entities.Episode{
		ID:        uuid.NewString(),
		FormID:    input.FormID,
		Timestamp: ts,
		Context:   input.Context,
		CreatedBy: input.CreatedBy,
		Data:      cloneData(input.Data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store.episodes = append(r.store.episodes, episode)

	out := cloneEpisode(episode)
	return &out, nil
}

// Update merges the patch. Episodes are not versioned.
func (r *EpisodeRepository) Update(ctx context.Context, id string, patch entities.EpisodePatch) (*entities.Episode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.episodes {
		if r.store.episodes[i].ID != id {
			continue
		}
		e := &r.store.episodes[i]
		if patch.Timestamp != nil {
			e.Timestamp = *patch.Timestamp
		}
		if patch.Context != nil {
			e.Context = *patch.Context
		}
		if patch.Data != nil {
			e.Data = cloneData(*patch.Data)
		}
		e.UpdatedAt = r.store.now()
		out := cloneEpisode(*e)
		return &out, nil
	}
	return nil, errors.NewNotFoundError("episode")
}

// Remove deletes the episode and returns the pre-deletion snapshot.
func (r *EpisodeRepository) Remove(ctx context.Context, id string) (*entities.Episode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.episodes {
		if r.store.episodes[i].ID == id {
			removed := cloneEpisode(r.store.episodes[i])
			r.store.episodes = append(r.store.episodes[:i], r.store.episodes[i+1:]...)
			return &removed, nil
		}
	}
	return nil, errors.NewNotFoundError("episode")
}
