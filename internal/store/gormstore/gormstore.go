// Package gormstore persists profiles and notes in Postgres through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

// Postgres keeps microseconds; truncating keeps returned values equal to stored ones.
var timeNow = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

type Store struct {
	db *gorm.DB
}

var (
	_ store.Profiles = (*Store)(nil)
	_ store.Notes    = (*Store)(nil)
)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func wrap(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) CreateProfile(ctx context.Context, p *profiles.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Normalize()
	q := s.db.WithContext(ctx).Model(&profiles.Profile{})
	if p.Email == "" {
		q = q.Where("id = ?", p.ID)
	} else {
		q = q.Where("id = ? OR lower(email) = ?", p.ID, strings.ToLower(p.Email))
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return wrap(err, "check profile")
	}
	if count > 0 {
		return fmt.Errorf("profile %s: %w", p.ID, store.ErrConflict)
	}
	return wrap(s.db.WithContext(ctx).Create(p).Error, "create profile")
}

func (s *Store) GetProfile(ctx context.Context, id string) (*profiles.Profile, error) {
	return s.firstProfile(ctx, "id = ?", id)
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*profiles.Profile, error) {
	return s.firstProfile(ctx, "lower(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetProfileByGoogleSub(ctx context.Context, sub string) (*profiles.Profile, error) {
	return s.firstProfile(ctx, "google_sub = ?", sub)
}

func (s *Store) firstProfile(ctx context.Context, query string, arg any) (*profiles.Profile, error) {
	var p profiles.Profile
	if err := s.db.WithContext(ctx).Where(query, arg).First(&p).Error; err != nil {
		return nil, wrap(err, "get profile")
	}
	p.Normalize()
	return &p, nil
}

func (s *Store) UpdateDetails(ctx context.Context, id string, d profiles.Details) error {
	return s.updateColumns(ctx, id, "details", map[string]interface{}{
		"occupation":     d.Occupation,
		"first_name":     d.FirstName,
		"last_name":      d.LastName,
		"preferred_name": d.PreferredName,
		"address1":       d.Address1,
		"address2":       d.Address2,
		"city":           d.City,
		"state":          d.State,
		"zip_code":       d.ZipCode,
	})
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	return s.updateColumn(ctx, id, "password_hash", hash)
}

func (s *Store) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return s.updateColumn(ctx, id, "stripe_customer_id", customerID)
}

func (s *Store) SetGoogleSub(ctx context.Context, id, sub string) error {
	return s.updateColumn(ctx, id, "google_sub", sub)
}

func (s *Store) SetPlan(ctx context.Context, id string, plan plans.Plan) error {
	return s.updateColumn(ctx, id, "plan", string(plan))
}

func (s *Store) SetRole(ctx context.Context, id string, role profiles.Role) error {
	return s.updateColumn(ctx, id, "role", string(role))
}

func (s *Store) updateColumn(ctx context.Context, id, column string, value any) error {
	return s.updateColumns(ctx, id, column, map[string]interface{}{column: value})
}

func (s *Store) updateColumns(ctx context.Context, id, what string, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&profiles.Profile{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return wrap(res.Error, "update "+what)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]profiles.Profile, error) {
	var list []profiles.Profile
	if err := s.db.WithContext(ctx).Order("email ASC").Find(&list).Error; err != nil {
		return nil, wrap(err, "list profiles")
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

func (s *Store) CreateNote(ctx context.Context, n *notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return wrap(s.db.WithContext(ctx).Create(n).Error, "create note")
}

func (s *Store) GetNote(ctx context.Context, id string) (*notes.Note, error) {
	var n notes.Note
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, wrap(err, "get note")
	}
	return &n, nil
}

func (s *Store) UpdateNote(ctx context.Context, n *notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	now := timeNow()
	res := s.db.WithContext(ctx).Model(&notes.Note{}).
		Where("id = ?", n.ID).
		Updates(map[string]interface{}{
			"title":          n.Title,
			"note_type":      string(n.NoteType),
			"raw_note":       n.RawNote,
			"formatted_note": n.FormattedNote,
			"updated_at":     now,
		})
	if res.Error != nil {
		return wrap(res.Error, "update note")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("note %s: %w", n.ID, store.ErrNotFound)
	}
	n.UpdatedAt = now
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&notes.Note{})
	if res.Error != nil {
		return wrap(res.Error, "delete note")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListNotes(ctx context.Context, ownerID string) ([]notes.Note, error) {
	list := []notes.Note{}
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, wrap(err, "list notes")
	}
	return list, nil
}

func (s *Store) CountNotes(ctx context.Context, ownerID string) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&notes.Note{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return 0, wrap(err, "count notes")
	}
	return int(count), nil
}
