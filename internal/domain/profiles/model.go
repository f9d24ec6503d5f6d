package profiles

import (
	"strings"
	"time"

	"soapnotes-app/internal/domain/plans"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole resolves stored role strings. Older profiles used "free" and
// "premium" as roles; those carry no privileges and map to RoleUser.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFirebase = "firebase"
)

type Profile struct {
	ID           string  `gorm:"primaryKey;type:varchar(128)" firestore:"-"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email,where:email <> ''" firestore:"email"`
	PasswordHash *string `gorm:"column:password_hash" firestore:"passwordHash,omitempty"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'" firestore:"authProvider"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub" firestore:"googleSub,omitempty"`

	Role Role       `gorm:"type:varchar(20);not null;default:'user'" firestore:"role"`
	Plan plans.Plan `gorm:"type:varchar(32);not null;default:'free'" firestore:"plan"`

	// Older documents carry the plan under this name instead of "plan".
	LegacyTier string `gorm:"-" firestore:"subscriptionTier,omitempty"`

	Occupation    string `firestore:"occupation"`
	FirstName     string `firestore:"firstName"`
	LastName      string `firestore:"lastName"`
	PreferredName string `firestore:"preferredName"`
	Address1      string `firestore:"address1"`
	Address2      string `firestore:"address2"`
	City          string `firestore:"city"`
	State         string `firestore:"state"`
	ZipCode       string `firestore:"zipCode"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id" firestore:"stripeCustomerId,omitempty"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (Profile) TableName() string { return "users" }

// New returns a profile with the signup defaults applied.
func New(id, email, provider string) Profile {
	if provider == "" {
		provider = ProviderLocal
	}
	return Profile{
		ID:           id,
		Email:        strings.TrimSpace(email),
		AuthProvider: provider,
		Role:         RoleUser,
		Plan:         plans.PlanFree,
	}
}

// Normalize applies the defaulting rules to a profile read from a store.
func (p *Profile) Normalize() {
	raw := string(p.Plan)
	if strings.TrimSpace(raw) == "" {
		raw = p.LegacyTier
	}
	p.Plan = plans.ParseOrFree(raw)
	p.LegacyTier = ""
	p.Role = ParseRole(string(p.Role))
	if p.AuthProvider == "" {
		p.AuthProvider = ProviderLocal
	}
}

// Details holds the fields a user may edit on their own profile.
type Details struct {
	Occupation    string
	FirstName     string
	LastName      string
	PreferredName string
	Address1      string
	Address2      string
	City          string
	State         string
	ZipCode       string
}

func (p Profile) Details() Details {
	return Details{
		Occupation:    p.Occupation,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PreferredName: p.PreferredName,
		Address1:      p.Address1,
		Address2:      p.Address2,
		City:          p.City,
		State:         p.State,
		ZipCode:       p.ZipCode,
	}
}

func (p *Profile) ApplyDetails(d Details) {
	p.Occupation = d.Occupation
	p.FirstName = d.FirstName
	p.LastName = d.LastName
	p.PreferredName = d.PreferredName
	p.Address1 = d.Address1
	p.Address2 = d.Address2
	p.City = d.City
	p.State = d.State
	p.ZipCode = d.ZipCode
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// IsComplete reports whether onboarding is done: a first name and an occupation.
func (p Profile) IsComplete() bool {
	return strings.TrimSpace(p.FirstName) != "" && strings.TrimSpace(p.Occupation) != ""
}

func (p Profile) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}
