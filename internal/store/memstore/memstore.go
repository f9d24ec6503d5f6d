// Package memstore is an in-process store used for local development and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	profiles map[string]profiles.Profile
	notes    map[string]notes.Note
	now      func() time.Time
}

var (
	_ store.Profiles = (*Store)(nil)
	_ store.Notes    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		profiles: map[string]profiles.Profile{},
		notes:    map[string]notes.Note{},
		now:      time.Now,
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateProfile(_ context.Context, p *profiles.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := s.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s: %w", p.ID, store.ErrConflict)
	}
	for _, existing := range s.profiles {
		if p.Email != "" && strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("email %s: %w", p.Email, store.ErrConflict)
		}
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Normalize()
	s.profiles[p.ID] = *p
	return nil
}

func (s *Store) GetProfile(_ context.Context, id string) (*profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetProfileByEmail(_ context.Context, email string) (*profiles.Profile, error) {
	return s.findProfile(func(p profiles.Profile) bool { return strings.EqualFold(p.Email, email) })
}

func (s *Store) GetProfileByGoogleSub(_ context.Context, sub string) (*profiles.Profile, error) {
	return s.findProfile(func(p profiles.Profile) bool { return p.GoogleSub != nil && *p.GoogleSub == sub })
}

func (s *Store) findProfile(match func(profiles.Profile) bool) (*profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if match(p) {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateDetails(_ context.Context, id string, d profiles.Details) error {
	return s.update(id, func(p *profiles.Profile) { p.ApplyDetails(d) })
}

func (s *Store) SetPasswordHash(_ context.Context, id, hash string) error {
	return s.update(id, func(p *profiles.Profile) { p.PasswordHash = &hash })
}

func (s *Store) SetStripeCustomerID(_ context.Context, id, customerID string) error {
	return s.update(id, func(p *profiles.Profile) { p.StripeCustomerID = &customerID })
}

func (s *Store) SetGoogleSub(_ context.Context, id, sub string) error {
	return s.update(id, func(p *profiles.Profile) { p.GoogleSub = &sub })
}

func (s *Store) SetPlan(_ context.Context, id string, plan plans.Plan) error {
	return s.update(id, func(p *profiles.Profile) { p.Plan = plan })
}

func (s *Store) SetRole(_ context.Context, id string, role profiles.Role) error {
	return s.update(id, func(p *profiles.Profile) { p.Role = role })
}

func (s *Store) update(id string, fn func(*profiles.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	fn(&p)
	p.UpdatedAt = s.now()
	s.profiles[id] = p
	return nil
}

func (s *Store) ListProfiles(_ context.Context) ([]profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]profiles.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) CreateNote(_ context.Context, n *notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := s.now()
	n.CreatedAt, n.UpdatedAt = now, now
	s.notes[n.ID] = *n
	return nil
}

func (s *Store) GetNote(_ context.Context, id string) (*notes.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	return &n, nil
}

func (s *Store) UpdateNote(_ context.Context, n *notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[n.ID]
	if !ok {
		return fmt.Errorf("note %s: %w", n.ID, store.ErrNotFound)
	}
	n.OwnerID = existing.OwnerID
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = s.now()
	s.notes[n.ID] = *n
	return nil
}

func (s *Store) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	delete(s.notes, id)
	return nil
}

func (s *Store) ListNotes(_ context.Context, ownerID string) ([]notes.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []notes.Note{}
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountNotes(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}
