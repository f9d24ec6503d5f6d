// Package quota implements the free-tier note allowance.
package quota

import (
	"fmt"

	"soapnotes-app/internal/domain/plans"
)

const (
	DefaultFreeLimit = 15
	// WarningThreshold is the remaining count at or below which free users are warned.
	WarningThreshold = 3
)

// ExhaustedError is returned when a free user has used the whole allowance.
type ExhaustedError struct {
	Limit int
	Used  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("free note limit reached (%d of %d used)", e.Used, e.Limit)
}

// Remaining is the number of notes a free user may still create.
func Remaining(used, limit int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

type Allowance struct {
	Plan      plans.Plan
	Unlimited bool
	Used      int
	Limit     int
	Remaining int
	Warning   bool
}

// For computes the allowance of a user on the given plan who owns used notes.
// Paid plans are unlimited; Remaining and Limit are meaningless for them.
func For(plan plans.Plan, used, limit int) Allowance {
	if limit <= 0 {
		limit = DefaultFreeLimit
	}
	if plan.IsPaid() {
		return Allowance{Plan: plan, Unlimited: true, Used: used}
	}
	rem := Remaining(used, limit)
	return Allowance{
		Plan:      plan,
		Used:      used,
		Limit:     limit,
		Remaining: rem,
		Warning:   rem <= WarningThreshold,
	}
}

func (a Allowance) CanCreate() bool {
	return a.Unlimited || a.Used < a.Limit
}

// Check returns an *ExhaustedError when note creation must be blocked.
func (a Allowance) Check() error {
	if a.CanCreate() {
		return nil
	}
	return &ExhaustedError{Limit: a.Limit, Used: a.Used}
}
