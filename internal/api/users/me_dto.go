package users

import (
	"time"

	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/domain/quota"
)

type MeResponse struct {
	User      UserDTO      `json:"user"`
	Allowance AllowanceDTO `json:"allowance"`
	Complete  bool         `json:"profile_complete"`
}

type UserDTO struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	AuthProvider  string    `json:"auth_provider"`
	Role          string    `json:"role"`
	Plan          string    `json:"plan"`
	Occupation    string    `json:"occupation"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PreferredName string    `json:"preferred_name"`
	Address1      string    `json:"address1"`
	Address2      string    `json:"address2"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZipCode       string    `json:"zip_code"`
	HasBilling    bool      `json:"has_billing"`
	CreatedAt     time.Time `json:"created_at"`
}

// AllowanceDTO reports remaining as null for unlimited plans.
type AllowanceDTO struct {
	Plan      string `json:"plan"`
	Unlimited bool   `json:"unlimited"`
	Used      int    `json:"used"`
	Limit     *int   `json:"limit"`
	Remaining *int   `json:"remaining"`
	Warning   bool   `json:"warning"`
}

func BuildUserDTO(p profiles.Profile) UserDTO {
	return UserDTO{
		ID:            p.ID,
		Email:         p.Email,
		AuthProvider:  p.AuthProvider,
		Role:          string(p.Role),
		Plan:          string(p.Plan),
		Occupation:    p.Occupation,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PreferredName: p.PreferredName,
		Address1:      p.Address1,
		Address2:      p.Address2,
		City:          p.City,
		State:         p.State,
		ZipCode:       p.ZipCode,
		HasBilling:    p.StripeCustomerID != nil && *p.StripeCustomerID != "",
		CreatedAt:     p.CreatedAt,
	}
}

func BuildAllowanceDTO(a quota.Allowance) AllowanceDTO {
	dto := AllowanceDTO{
		Plan:      string(a.Plan),
		Unlimited: a.Unlimited,
		Used:      a.Used,
		Warning:   a.Warning,
	}
	if !a.Unlimited {
		limit, remaining := a.Limit, a.Remaining
		dto.Limit = &limit
		dto.Remaining = &remaining
	}
	return dto
}
