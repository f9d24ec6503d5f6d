package plans

import (
	"fmt"
	"strings"
)

type Plan string

// Canonical plan values (single source of truth)
const (
	PlanFree           Plan = "free"
	PlanPaidIndividual Plan = "paid_individual"
	PlanPaidTeam       Plan = "paid_team"
)

// IsPaid reports whether the plan is exempt from the free note quota.
func (p Plan) IsPaid() bool {
	return p == PlanPaidIndividual || p == PlanPaidTeam
}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPaidIndividual, PlanPaidTeam:
		return true
	}
	return false
}

// Parse maps any historical spelling of a plan onto the canonical enum.
// Older profiles carry "pro"/"premium" for the individual plan and
// "group"/"team" for the team plan, in mixed case.
func Parse(s string) (Plan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return PlanFree, nil
	case "paid_individual", "pro", "premium", "individual":
		return PlanPaidIndividual, nil
	case "paid_team", "team", "group":
		return PlanPaidTeam, nil
	}
	return "", fmt.Errorf("unknown plan %q", s)
}

// ParseOrFree is Parse with the signup default applied to blank or unknown values.
func ParseOrFree(s string) Plan {
	p, err := Parse(s)
	if err != nil {
		return PlanFree
	}
	return p
}
