// Package store defines the persistence contracts for profiles and notes.
// Backends live in subpackages and are constructed once at startup.
package store

import (
	"context"
	"errors"

	"soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document already exists")
)

type Profiles interface {
	CreateProfile(ctx context.Context, p *profiles.Profile) error
	GetProfile(ctx context.Context, id string) (*profiles.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*profiles.Profile, error)
	GetProfileByGoogleSub(ctx context.Context, sub string) (*profiles.Profile, error)
	// Writes below touch only the named fields, so concurrent writers of
	// other fields (the billing webhook, admins) are never overwritten.
	UpdateDetails(ctx context.Context, id string, d profiles.Details) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
	SetGoogleSub(ctx context.Context, id, sub string) error
	SetPlan(ctx context.Context, id string, plan plans.Plan) error
	SetRole(ctx context.Context, id string, role profiles.Role) error
	ListProfiles(ctx context.Context) ([]profiles.Profile, error)
}

type Notes interface {
	CreateNote(ctx context.Context, n *notes.Note) error
	GetNote(ctx context.Context, id string) (*notes.Note, error)
	UpdateNote(ctx context.Context, n *notes.Note) error
	DeleteNote(ctx context.Context, id string) error
	// ListNotes returns every note of the owner, newest first.
	ListNotes(ctx context.Context, ownerID string) ([]notes.Note, error)
	CountNotes(ctx context.Context, ownerID string) (int, error)
}
