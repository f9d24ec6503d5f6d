package quota

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soapnotes-app/internal/domain/plans"
)

func TestRemaining(t *testing.T) {
	assert.Equal(t, 15, Remaining(0, 15))
	assert.Equal(t, 3, Remaining(12, 15))
	assert.Equal(t, 0, Remaining(15, 15))
	assert.Equal(t, 0, Remaining(40, 15))
}

func TestFreeAllowance(t *testing.T) {
	tests := []struct {
		used      int
		remaining int
		warning   bool
		canCreate bool
	}{
		{0, 15, false, true},
		{11, 4, false, true},
		{12, 3, true, true},
		{14, 1, true, true},
		{15, 0, true, false},
		{20, 0, true, false},
	}
	for _, tt := range tests {
		a := For(plans.PlanFree, tt.used, DefaultFreeLimit)
		assert.False(t, a.Unlimited)
		assert.Equal(t, tt.remaining, a.Remaining, "used=%d", tt.used)
		assert.Equal(t, tt.warning, a.Warning, "used=%d", tt.used)
		assert.Equal(t, tt.canCreate, a.CanCreate(), "used=%d", tt.used)
	}
}

func TestPaidPlansAreUnlimited(t *testing.T) {
	for _, p := range []plans.Plan{plans.PlanPaidIndividual, plans.PlanPaidTeam} {
		a := For(p, 1000, DefaultFreeLimit)
		assert.True(t, a.Unlimited)
		assert.False(t, a.Warning)
		assert.NoError(t, a.Check())
	}
}

func TestCheckReturnsExhaustedError(t *testing.T) {
	err := For(plans.PlanFree, 15, 15).Check()
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 15, exhausted.Limit)
	assert.Equal(t, 15, exhausted.Used)
	assert.Contains(t, err.Error(), "15 of 15")

	assert.NoError(t, For(plans.PlanFree, 14, 15).Check())
}

func TestNonPositiveLimitFallsBackToDefault(t *testing.T) {
	a := For(plans.PlanFree, 0, 0)
	assert.Equal(t, DefaultFreeLimit, a.Limit)
	assert.Equal(t, DefaultFreeLimit, a.Remaining)
}

func TestCustomLimit(t *testing.T) {
	a := For(plans.PlanFree, 2, 5)
	assert.Equal(t, 3, a.Remaining)
	assert.True(t, a.Warning)
}
