// Package firestore persists profiles in the "users" collection (document
// id = user id) and notes in the top-level "notes" collection, tagged with
// the owner's id in the "userId" field.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

var timeNow = func() time.Time { return time.Now().UTC() }

const (
	usersCollection = "users"
	notesCollection = "notes"
)

type Store struct {
	client *firestore.Client
}

var (
	_ store.Profiles = (*Store)(nil)
	_ store.Notes    = (*Store)(nil)
)

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func wrap(err error, what string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) users() *firestore.CollectionRef { return s.client.Collection(usersCollection) }

func (s *Store) notes() *firestore.CollectionRef { return s.client.Collection(notesCollection) }

func (s *Store) CreateProfile(ctx context.Context, p *profiles.Profile) error {
	if p.ID == "" {
		return errors.New("profile id cannot be empty")
	}
	if p.Email != "" {
		if _, err := s.GetProfileByEmail(ctx, p.Email); err == nil {
			return fmt.Errorf("email %s: %w", p.Email, store.ErrConflict)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	p.Normalize()
	now := timeNow()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := s.users().Doc(p.ID).Create(ctx, p); err != nil {
		return wrap(err, "create profile "+p.ID)
	}
	return nil
}

// profileDoc shadows the timestamps so that documents written with ISO
// strings instead of Firestore timestamps still decode.
type profileDoc struct {
	profiles.Profile
	CreatedAt any `firestore:"createdAt"`
	UpdatedAt any `firestore:"updatedAt"`
}

func decodeProfile(snap *firestore.DocumentSnapshot) (*profiles.Profile, error) {
	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", snap.Ref.ID, err)
	}
	p := doc.Profile
	p.ID = snap.Ref.ID
	p.CreatedAt = parseStamp(doc.CreatedAt)
	p.UpdatedAt = parseStamp(doc.UpdatedAt)
	p.Normalize()
	return &p, nil
}

// parseStamp accepts a Firestore timestamp or an RFC 3339 string; anything
// else yields the zero time.
func parseStamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func (s *Store) GetProfile(ctx context.Context, id string) (*profiles.Profile, error) {
	if id == "" {
		return nil, store.ErrNotFound
	}
	snap, err := s.users().Doc(id).Get(ctx)
	if err != nil {
		return nil, wrap(err, "get profile "+id)
	}
	return decodeProfile(snap)
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*profiles.Profile, error) {
	return s.queryProfile(ctx, s.users().Where("email", "==", strings.TrimSpace(email)))
}

func (s *Store) GetProfileByGoogleSub(ctx context.Context, sub string) (*profiles.Profile, error) {
	return s.queryProfile(ctx, s.users().Where("googleSub", "==", sub))
}

func (s *Store) queryProfile(ctx context.Context, q firestore.Query) (*profiles.Profile, error) {
	it := q.Limit(1).Documents(ctx)
	defer it.Stop()
	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrap(err, "query profile")
	}
	return decodeProfile(snap)
}

func (s *Store) UpdateDetails(ctx context.Context, id string, d profiles.Details) error {
	return s.updateFields(ctx, id, "details", []firestore.Update{
		{Path: "occupation", Value: d.Occupation},
		{Path: "firstName", Value: d.FirstName},
		{Path: "lastName", Value: d.LastName},
		{Path: "preferredName", Value: d.PreferredName},
		{Path: "address1", Value: d.Address1},
		{Path: "address2", Value: d.Address2},
		{Path: "city", Value: d.City},
		{Path: "state", Value: d.State},
		{Path: "zipCode", Value: d.ZipCode},
	})
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	return s.updateField(ctx, id, "passwordHash", hash)
}

func (s *Store) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return s.updateField(ctx, id, "stripeCustomerId", customerID)
}

func (s *Store) SetGoogleSub(ctx context.Context, id, sub string) error {
	return s.updateField(ctx, id, "googleSub", sub)
}

func (s *Store) SetPlan(ctx context.Context, id string, plan plans.Plan) error {
	return s.updateField(ctx, id, "plan", string(plan))
}

func (s *Store) SetRole(ctx context.Context, id string, role profiles.Role) error {
	return s.updateField(ctx, id, "role", string(role))
}

func (s *Store) updateField(ctx context.Context, id, path string, value any) error {
	return s.updateFields(ctx, id, path, []firestore.Update{{Path: path, Value: value}})
}

// Update fails with NotFound when the document is missing, unlike Set.
func (s *Store) updateFields(ctx context.Context, id, what string, updates []firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
	_, err := s.users().Doc(id).Update(ctx, updates)
	return wrap(err, "update "+what+" of "+id)
}

func (s *Store) ListProfiles(ctx context.Context) ([]profiles.Profile, error) {
	snaps, err := s.users().Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err, "list profiles")
	}
	out := make([]profiles.Profile, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decodeProfile(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) CreateNote(ctx context.Context, n *notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	ref := s.notes().NewDoc()
	now := timeNow()
	n.CreatedAt, n.UpdatedAt = now, now
	if _, err := ref.Create(ctx, n); err != nil {
		return wrap(err, "create note")
	}
	n.ID = ref.ID
	return nil
}

func decodeNote(snap *firestore.DocumentSnapshot) (*notes.Note, error) {
	var n notes.Note
	if err := snap.DataTo(&n); err != nil {
		return nil, fmt.Errorf("decode note %s: %w", snap.Ref.ID, err)
	}
	n.ID = snap.Ref.ID
	return &n, nil
}

func (s *Store) GetNote(ctx context.Context, id string) (*notes.Note, error) {
	if id == "" {
		return nil, store.ErrNotFound
	}
	snap, err := s.notes().Doc(id).Get(ctx)
	if err != nil {
		return nil, wrap(err, "get note "+id)
	}
	return decodeNote(snap)
}

func (s *Store) UpdateNote(ctx context.Context, n *notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	now := timeNow()
	_, err := s.notes().Doc(n.ID).Update(ctx, []firestore.Update{
		{Path: "title", Value: n.Title},
		{Path: "noteType", Value: string(n.NoteType)},
		{Path: "rawNote", Value: n.RawNote},
		{Path: "formattedNote", Value: n.FormattedNote},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		return wrap(err, "update note "+n.ID)
	}
	n.UpdatedAt = now
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	ref := s.notes().Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		return wrap(err, "delete note "+id)
	}
	_, err := ref.Delete(ctx)
	return wrap(err, "delete note "+id)
}

func (s *Store) ListNotes(ctx context.Context, ownerID string) ([]notes.Note, error) {
	snaps, err := s.notes().
		Where("userId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err, "list notes")
	}
	out := make([]notes.Note, 0, len(snaps))
	for _, snap := range snaps {
		n, err := decodeNote(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *Store) CountNotes(ctx context.Context, ownerID string) (int, error) {
	q := s.notes().Where("userId", "==", ownerID)
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, wrap(err, "count notes")
	}
	v, ok := res["all"]
	if !ok {
		return 0, errors.New("count notes: missing aggregation result")
	}
	pv, ok := v.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count notes: unexpected aggregation type %T", v)
	}
	return int(pv.GetIntegerValue()), nil
}
