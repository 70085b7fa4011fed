package entities

import "time"

// Episode is one submitted record against a form. Data maps field IDs of the
// referenced form to submitted values; the shape is validated against the
// form's field set at write time and is not re-validated if the form changes
// later.
type Episode struct {
	ID        string         `json:"id"`
	FormID    string         `json:"formId"`
	Timestamp time.Time      `json:"timestamp"`
	Context   string         `json:"context,omitempty"`
	CreatedBy string         `json:"createdBy"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewEpisode carries the attributes accepted when creating an episode.
// Timestamp is the event time, distinct from creation time; a zero value
// defaults to now.
type NewEpisode struct {
	FormID    string
	Timestamp time.Time
	Context   string
	CreatedBy string
	Data      map[string]any
}

// EpisodePatch is a partial update. Nil fields are left untouched. Episodes
// carry no version counter; updates are last-write-wins.
type EpisodePatch struct {
	Timestamp *time.Time
	Context   *string
	Data      *map[string]any
}
