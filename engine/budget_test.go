package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// REFERENCE CALCULATION TESTS
// =============================================================================

func TestComputeBudget_ReferenceCase(t *testing.T) {
	// GIVEN: bmr=1500, activityFactor=1.5, default rolling averages
	// WHEN: Computing the budget
	// THEN: Every intermediate matches the hand-computed reference

	cfg := DefaultConfig()
	f := ComputeBudget(cfg, 1500, 1.5, decimal.NewFromInt(70), decimal.NewFromInt(40))

	assert.True(t, f.TDEE.Equal(decimal.RequireFromString("2250")), "tdee = %s", f.TDEE)
	assert.True(t, f.VBase.Equal(decimal.RequireFromString("140.6")), "vBase = %s", f.VBase)
	assert.True(t, f.HA.Equal(decimal.RequireFromString("0.6")), "ha = %s", f.HA)
	assert.True(t, f.VAdj.Equal(decimal.RequireFromString("135")), "vAdj = %s", f.VAdj)
	assert.True(t, f.GoalKcal.Equal(decimal.RequireFromString("135")), "goalKcal = %s", f.GoalKcal)
	assert.True(t, f.GoalGrams.Equal(decimal.RequireFromString("15")), "goalGrams = %s", f.GoalGrams)
	assert.True(t, f.GoalMl.Equal(decimal.RequireFromString("16.7")), "goalMl = %s", f.GoalMl)
}

func TestComputeBudget_FloorClamp(t *testing.T) {
	// Terrible history: sRoll=0, hRoll=100 drives vAdj to the HAMin floor,
	// and the goal must still be at least VMin*tdee.

	cfg := DefaultConfig()
	f := ComputeBudget(cfg, 1500, 1.5, decimal.Zero, decimal.NewFromInt(100))

	assert.True(t, f.HA.Equal(decimal.RequireFromString("0.5")), "ha clamps to HAMin, got %s", f.HA)

	// vAdj = 140.6 * (0 + 0.9*0.5) = 63.27 -> 63.3, above the 45 floor
	assert.True(t, f.VAdj.Equal(decimal.RequireFromString("63.3")), "vAdj = %s", f.VAdj)
	assert.True(t, f.GoalKcal.GreaterThanOrEqual(decimal.RequireFromString("45")),
		"goal below VMin*tdee: %s", f.GoalKcal)
}

func TestComputeBudget_CeilingClamp(t *testing.T) {
	// Perfect history: sRoll=100, hRoll=0 gives ha=1.0 and
	// vAdj = vBase*(0.6 + 0.9) = 1.5*vBase. The goal may still never
	// exceed VMax*tdee.

	cfg := DefaultConfig()
	f := ComputeBudget(cfg, 2000, 2.0, decimal.NewFromInt(100), decimal.Zero)

	// tdee=4000, vBase=250, vAdj=375, ceiling=0.12*4000=480: not clamped
	assert.True(t, f.VAdj.Equal(decimal.RequireFromString("375")), "vAdj = %s", f.VAdj)
	assert.True(t, f.GoalKcal.LessThanOrEqual(decimal.NewFromFloat(cfg.VMax).Mul(f.TDEE)),
		"goal above VMax*tdee: %s", f.GoalKcal)
}

func TestComputeBudget_GoalAlwaysWithinBounds(t *testing.T) {
	// The clamp invariant must hold for any score combination.
	cfg := DefaultConfig()

	for s := 0; s <= 100; s += 20 {
		for h := 0; h <= 100; h += 20 {
			f := ComputeBudget(cfg, 1600, 1.4,
				decimal.NewFromInt(int64(s)), decimal.NewFromInt(int64(h)))

			lo := decimal.NewFromFloat(cfg.VMin).Mul(f.TDEE)
			hi := decimal.NewFromFloat(cfg.VMax).Mul(f.TDEE)

			if f.GoalKcal.LessThan(lo.Round(2)) || f.GoalKcal.GreaterThan(hi.Round(2)) {
				t.Errorf("sRoll=%d hRoll=%d: goal %s outside [%s, %s]",
					s, h, f.GoalKcal, lo, hi)
			}
			if f.HA.LessThan(decimal.NewFromFloat(cfg.HAMin)) ||
				f.HA.GreaterThan(decimal.NewFromFloat(cfg.HAMax)) {
				t.Errorf("sRoll=%d hRoll=%d: ha %s outside [%v, %v]",
					s, h, f.HA, cfg.HAMin, cfg.HAMax)
			}
		}
	}
}

func TestComputeBudget_UnitConversions(t *testing.T) {
	// grams = kcal/9, ml = grams/0.9
	cfg := DefaultConfig()
	f := ComputeBudget(cfg, 1500, 1.5, decimal.NewFromInt(70), decimal.NewFromInt(40))

	wantGrams := f.GoalKcal.Div(decimal.NewFromInt(9)).Round(1)
	wantMl := wantGrams.Div(decimal.RequireFromString("0.9")).Round(1)
	assert.True(t, f.GoalGrams.Equal(wantGrams))
	assert.True(t, f.GoalMl.Equal(wantMl))
}

// =============================================================================
// EVENT CONVERSION TESTS
// =============================================================================

func TestConvertEvent_ReferenceCase(t *testing.T) {
	// GIVEN: 12g of an oil with harm score 80
	// THEN: raw=6.75, multiplier=1.192, effective=8.05

	cfg := DefaultConfig()
	raw, mult, eff := ConvertEvent(cfg, 12, 80)

	assert.True(t, raw.Equal(decimal.RequireFromString("6.75")), "raw = %s", raw)
	assert.True(t, mult.Equal(decimal.RequireFromString("1.192")), "multiplier = %s", mult)
	assert.True(t, eff.Equal(decimal.RequireFromString("8.05")), "effective = %s", eff)
}

func TestConvertEvent_MultiplierBounds(t *testing.T) {
	cfg := DefaultConfig()

	// harm 0: multiplier exactly 1, effective == raw
	raw, mult, eff := ConvertEvent(cfg, 10, 0)
	assert.True(t, mult.Equal(dOne), "harm 0 multiplier = %s", mult)
	assert.True(t, eff.Equal(raw))

	// harm 100: 1 + 0.3 = 1.3, under the 1.5 cap
	_, mult, _ = ConvertEvent(cfg, 10, 100)
	assert.True(t, mult.Equal(decimal.RequireFromString("1.3")), "harm 100 multiplier = %s", mult)
	assert.True(t, mult.LessThanOrEqual(decimal.NewFromFloat(cfg.MaxMultiplier)))
}

func TestConvertEvent_EffectiveNeverBelowRaw(t *testing.T) {
	cfg := DefaultConfig()
	for h := 0; h <= 100; h += 10 {
		raw, _, eff := ConvertEvent(cfg, 15, h)
		if eff.LessThan(raw) {
			t.Errorf("harm=%d: effective %s below raw %s", h, eff, raw)
		}
	}
}

func TestConvertEvent_ZeroGrams(t *testing.T) {
	cfg := DefaultConfig()
	raw, _, eff := ConvertEvent(cfg, 0, 50)
	assert.True(t, raw.IsZero())
	assert.True(t, eff.IsZero())
}
