// Package memory implements the repository contracts with a process-local
// store. It exists for development and tests: state resets on restart, and
// Reset restores the seed fixture between test cases. Semantics mirror the
// DynamoDB backend so the two are interchangeable behind the ports.
package memory

import (
	"sync"
	"time"

	"carelog-backend/domain/entities"
	"carelog-backend/pkg/auth"
)

// Store is the process-wide mutable collection backing the in-memory
// repositories. All access goes through the repository methods; the mutex
// serializes every operation, so read-modify-write sequences (version
// increments included) are atomic here.
type Store struct {
	mu       sync.RWMutex
	users    []entities.User
	forms    []entities.Form
	episodes []entities.Episode
	fields   map[string][]entities.FormField
	audits   []entities.AuditRecord

	now func() time.Time
}

// NewStore creates a store populated with the development seed fixture.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.seed()
	return s
}

// Reset restores the seed fixture. Test setup calls this between cases.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed()
}

// SetClock replaces the store's time source. Tests use it to make
// server-assigned timestamps deterministic.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SeedContextOptions is the option list of the fixture form's context field.
// The seed command shares it so both backends start from the same form.
var SeedContextOptions = []string{"classroom", "playground", "home", "transport", "other"}

var seedPasswordHash = func() string {
	// Dev-only credential for the seeded accounts.
	hash, err := auth.HashPassword("changeme")
	if err != nil {
		panic(err)
	}
	return hash
}()

func (s *Store) seed() {
	now := s.now()
	s.users = []entities.User{
		{ID: "u-sys", Email: "sys@example.com", Role: entities.RoleSysadmin, Active: true, PasswordHash: seedPasswordHash, CreatedAt: now, UpdatedAt: now},
		{ID: "u-clin", Email: "clin@example.com", Role: entities.RoleClinician, Active: true, PasswordHash: seedPasswordHash, CreatedAt: now, UpdatedAt: now},
		{ID: "u-teach", Email: "teach@example.com", Role: entities.RoleTeacher, Active: true, PasswordHash: seedPasswordHash, CreatedAt: now, UpdatedAt: now},
	}
	s.forms = []entities.Form{
		{ID: "f-1", Title: "Baseline Episode", Status: entities.FormStatusActive, Version: 1, CreatedBy: "u-clin", CreatedAt: now, UpdatedAt: now},
	}
	s.episodes = nil
	s.fields = map[string][]entities.FormField{
		"f-1": {
			{FieldID: "fld-ctx", Label: "Context", Type: entities.FieldTypeSelect, Required: true, Options: cloneStrings(SeedContextOptions), Order: 1},
			{FieldID: "fld-notes", Label: "Notes", Type: entities.FieldTypeTextarea, Required: false, Order: 2},
		},
	}
	s.audits = nil
}

// findForm returns a pointer into the forms slice, valid only while the lock
// is held.
func (s *Store) findForm(id string) *entities.Form {
	for i := range s.forms {
		if s.forms[i].ID == id {
			return &s.forms[i]
		}
	}
	return nil
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneField(f entities.FormField) entities.FormField {
	f.Options = cloneStrings(f.Options)
	if f.Validation != nil {
		v := *f.Validation
		f.Validation = &v
	}
	return f
}

func cloneEpisode(e entities.Episode) entities.Episode {
	e.Data = cloneData(e.Data)
	return e
}
