package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func statusRecord(goalKcal, cumulative string) BudgetRecord {
	return BudgetRecord{
		UserID: "user-1",
		Day:    NewDay(2026, 3, 10),
		BudgetFields: BudgetFields{
			GoalKcal: decimal.RequireFromString(goalKcal),
		},
		CumulativeEffectiveKcal: decimal.RequireFromString(cumulative),
	}
}

func TestProjectStatus_WithinLimit(t *testing.T) {
	st := ProjectStatus(DefaultConfig(), statusRecord("135", "27"))

	assert.Equal(t, StatusWithinLimit, st.Status)
	assert.True(t, st.RemainingKcal.Equal(decimal.RequireFromString("108")), "remaining = %s", st.RemainingKcal)
	assert.True(t, st.Overage.IsZero())
	assert.True(t, st.FillPercent.Equal(decimal.RequireFromString("20")), "fill = %s", st.FillPercent)

	// remaining ml = 108 / 9 / 0.9 = 13.333... -> 13.3
	assert.True(t, st.RemainingMl.Equal(decimal.RequireFromString("13.3")), "remaining ml = %s", st.RemainingMl)
}

func TestProjectStatus_ExactlyAtGoal_StillWithinLimit(t *testing.T) {
	// The boundary is inclusive: cumulative == goal is not over.
	st := ProjectStatus(DefaultConfig(), statusRecord("135", "135"))

	assert.Equal(t, StatusWithinLimit, st.Status)
	assert.True(t, st.RemainingKcal.IsZero())
	assert.True(t, st.Overage.IsZero())
	assert.True(t, st.FillPercent.Equal(decimal.RequireFromString("100")))
}

func TestProjectStatus_OverLimit(t *testing.T) {
	st := ProjectStatus(DefaultConfig(), statusRecord("135", "150.5"))

	assert.Equal(t, StatusOverLimit, st.Status)
	assert.True(t, st.RemainingKcal.IsZero(), "remaining floors at zero, got %s", st.RemainingKcal)
	assert.True(t, st.Overage.Equal(decimal.RequireFromString("15.5")), "overage = %s", st.Overage)
	assert.True(t, st.FillPercent.GreaterThan(decimal.RequireFromString("100")))
}

func TestProjectStatus_ZeroGoalGuard(t *testing.T) {
	st := ProjectStatus(DefaultConfig(), statusRecord("0", "10"))

	assert.True(t, st.FillPercent.IsZero())
	assert.Equal(t, StatusOverLimit, st.Status)
}
