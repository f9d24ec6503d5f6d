package profiles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"soapnotes-app/internal/domain/plans"
)

func TestNewAppliesSignupDefaults(t *testing.T) {
	p := New("id", " a@b.co ", "")
	assert.Equal(t, "a@b.co", p.Email)
	assert.Equal(t, ProviderLocal, p.AuthProvider)
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, plans.PlanFree, p.Plan)
	assert.False(t, p.HasPassword())
}

func TestNormalizeLegacyValues(t *testing.T) {
	p := Profile{Role: "premium", LegacyTier: "Group"}
	p.Normalize()
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, plans.PlanPaidTeam, p.Plan)
	assert.Empty(t, p.LegacyTier)
	assert.Equal(t, ProviderLocal, p.AuthProvider)

	p = Profile{Role: "ADMIN", Plan: "pro", LegacyTier: "free"}
	p.Normalize()
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, plans.PlanPaidIndividual, p.Plan)

	p = Profile{Plan: "mystery"}
	p.Normalize()
	assert.Equal(t, plans.PlanFree, p.Plan)
}

func TestIsComplete(t *testing.T) {
	p := Profile{FirstName: "Ana"}
	assert.False(t, p.IsComplete())
	p.Occupation = "  "
	assert.False(t, p.IsComplete())
	p.Occupation = "SLP"
	assert.True(t, p.IsComplete())
}
