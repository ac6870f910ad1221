/*
budget.go - Daily budget calculator

PURPOSE:
  Pure function turning (BMR, activity factor, rolling averages) into a
  bounded daily oil-calorie budget. Deterministic, no I/O; every constant
  comes from Config.

FORMULA:
  tdee   = bmr * activityFactor
  vBase  = RFat * RVisible * tdee
  ha     = clamp((100 - hRoll)/100, HAMin, HAMax)
  vAdj   = vBase * (AlphaS * sRoll/100 + AlphaH * ha)
  goal   = clamp(vAdj, VMin*tdee, VMax*tdee)
  grams  = goal / KcalPerGram, ml = grams / OilDensity

  The two alpha weights intentionally do not sum to 1: vAdj may exceed
  vBase for users with strong recent scores. The VMin/VMax clamp is an
  absolute floor/ceiling independent of score quality.

ROUNDING:
  tdee, vBase, vAdj -> 1 decimal; ha -> 2; goalKcal -> 2; grams, ml -> 1.
  Downstream displays and regression tests assert on these rounded values,
  so the roundings are applied at each step, not once at the end.

SEE ALSO:
  - rolling.go: Produces sRoll/hRoll
  - engine.go: Invokes this at first budget creation for a day
*/
package engine

import "github.com/shopspring/decimal"

var (
	dOne     = decimal.NewFromInt(1)
	dHundred = decimal.NewFromInt(100)
)

// ComputeBudget derives the day's budget fields from physiology and rolling
// score averages. sRoll and hRoll are expected in [0,100] as produced by the
// aggregator.
func ComputeBudget(cfg Config, bmr, activityFactor float64, sRoll, hRoll decimal.Decimal) BudgetFields {
	tdee := decimal.NewFromFloat(bmr).Mul(decimal.NewFromFloat(activityFactor)).Round(1)

	vBase := decimal.NewFromFloat(cfg.RFat).
		Mul(decimal.NewFromFloat(cfg.RVisible)).
		Mul(tdee).
		Round(1)

	// Higher historical harm depresses the factor, bounded away from zero
	// and from runaway growth.
	ha := clamp(
		dHundred.Sub(hRoll).Div(dHundred),
		decimal.NewFromFloat(cfg.HAMin),
		decimal.NewFromFloat(cfg.HAMax),
	).Round(2)

	vAdj := vBase.Mul(
		decimal.NewFromFloat(cfg.AlphaS).Mul(sRoll.Div(dHundred)).
			Add(decimal.NewFromFloat(cfg.AlphaH).Mul(ha)),
	).Round(1)

	goalKcal := clamp(
		vAdj,
		decimal.NewFromFloat(cfg.VMin).Mul(tdee),
		decimal.NewFromFloat(cfg.VMax).Mul(tdee),
	).Round(2)

	goalGrams := goalKcal.Div(decimal.NewFromFloat(cfg.KcalPerGram)).Round(1)
	goalMl := goalGrams.Div(decimal.NewFromFloat(cfg.OilDensity)).Round(1)

	return BudgetFields{
		TDEE:      tdee,
		SRoll:     sRoll,
		HRoll:     hRoll,
		VBase:     vBase,
		HA:        ha,
		VAdj:      vAdj,
		GoalKcal:  goalKcal,
		GoalGrams: goalGrams,
		GoalMl:    goalMl,
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
