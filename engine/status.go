/*
status.go - Goal status projector

PURPOSE:
  Pure read-side projection from a BudgetRecord to the numbers a client
  displays: remaining budget, fill percentage, overage, and an over/under
  flag. No persistence; callers may project any record at any time.

SEE ALSO:
  - engine.go: GetStatus combines get-or-create with this projection
*/
package engine

import "github.com/shopspring/decimal"

type LimitStatus string

const (
	StatusWithinLimit LimitStatus = "within_limit"
	StatusOverLimit   LimitStatus = "over_limit"
)

// GoalStatus is the read-side projection of a day's budget record.
type GoalStatus struct {
	RemainingKcal decimal.Decimal // max(0, goal - cumulative), 2 decimals
	RemainingMl   decimal.Decimal // remaining converted to ml, 1 decimal
	FillPercent   decimal.Decimal // cumulative / goal * 100, 1 decimal
	Overage       decimal.Decimal // max(0, cumulative - goal), 2 decimals
	Status        LimitStatus
}

// ProjectStatus derives the goal status from a budget record. cfg supplies
// the unit conversions so remaining ml matches the record's goalMl scale.
func ProjectStatus(cfg Config, rec BudgetRecord) GoalStatus {
	goal := rec.GoalKcal
	cum := rec.CumulativeEffectiveKcal

	remaining := decimal.Max(decimal.Zero, goal.Sub(cum)).Round(2)
	remainingMl := remaining.
		Div(decimal.NewFromFloat(cfg.KcalPerGram)).
		Div(decimal.NewFromFloat(cfg.OilDensity)).
		Round(1)
	overage := decimal.Max(decimal.Zero, cum.Sub(goal)).Round(2)

	// GoalKcal is clamped to VMin*tdee > 0 at creation, but a zero guard
	// keeps the projection total for hand-built records.
	fill := decimal.Zero
	if goal.IsPositive() {
		fill = cum.Div(goal).Mul(dHundred).Round(1)
	}

	status := StatusWithinLimit
	if cum.GreaterThan(goal) {
		status = StatusOverLimit
	}

	return GoalStatus{
		RemainingKcal: remaining,
		RemainingMl:   remainingMl,
		FillPercent:   fill,
		Overage:       overage,
		Status:        status,
	}
}
