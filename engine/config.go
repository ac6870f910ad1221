/*
config.go - Formula constants for the budget and penalty formulas

PURPOSE:
  Every constant in the budget and effective-calorie formulas lives in this
  one injectable struct. Nothing in the engine reads a module-level constant,
  so tests can exercise boundary configurations without global mutation and
  deployments can tune the formula without a rebuild.

REFERENCE CONFIGURATION:
  DefaultConfig() returns the reference values. The visible-oil fraction is
  RFat * RVisible = 0.0625: visible oil is modeled as 6.25% of total energy
  expenditure, and the same fraction is applied to raw calories of logged
  events so both sides of the ledger use the same units.

SEE ALSO:
  - budget.go: Uses the budget-side constants
  - engine.go: Uses the penalty-side constants
  - rolling.go: Uses the window size and bootstrap defaults
*/
package engine

import "fmt"

// Config holds every tunable constant of the engine.
type Config struct {
	// Budget formula
	RFat     float64 // fat share of TDEE
	RVisible float64 // visible-oil share of fat calories
	HAMin    float64 // lower clamp for the harm-adjustment factor
	HAMax    float64 // upper clamp for the harm-adjustment factor
	AlphaS   float64 // weight of the diet-quality contribution
	AlphaH   float64 // weight of the harm-adjustment contribution
	VMin     float64 // absolute budget floor, as a fraction of TDEE
	VMax     float64 // absolute budget ceiling, as a fraction of TDEE

	// Effective-calorie penalty
	KPenalty      float64 // quadratic penalty coefficient
	MaxMultiplier float64 // multiplier cap

	// Physical constants
	KcalPerGram float64 // fat energy density, kcal per gram
	OilDensity  float64 // grams per ml

	// Rolling aggregation
	RollingWindowDays  int     // how many recent score records to average
	DefaultSwasthaRoll float64 // bootstrap sRoll when no history exists
	DefaultHarmRoll    float64 // bootstrap hRoll when no history exists

	// Harm table
	DefaultHarmScore int // resolved for unknown oil types
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		RFat:     0.25,
		RVisible: 0.25,
		HAMin:    0.5,
		HAMax:    1.8,
		AlphaS:   0.6,
		AlphaH:   0.9,
		VMin:     0.02,
		VMax:     0.12,

		KPenalty:      0.3,
		MaxMultiplier: 1.5,

		KcalPerGram: 9.0,
		OilDensity:  0.9,

		RollingWindowDays:  7,
		DefaultSwasthaRoll: 70,
		DefaultHarmRoll:    40,

		DefaultHarmScore: 50,
	}
}

// VisibleFraction is the share of total energy expenditure modeled as
// visible oil. Applied both in the budget formula and to raw event calories.
func (c Config) VisibleFraction() float64 {
	return c.RFat * c.RVisible
}

// Validate rejects configurations that would produce degenerate budgets.
func (c Config) Validate() error {
	switch {
	case c.RFat <= 0 || c.RVisible <= 0:
		return fmt.Errorf("visible-oil fractions must be positive (RFat=%v, RVisible=%v)", c.RFat, c.RVisible)
	case c.HAMin <= 0 || c.HAMax < c.HAMin:
		return fmt.Errorf("harm-adjustment clamps invalid (HAMin=%v, HAMax=%v)", c.HAMin, c.HAMax)
	case c.VMin <= 0 || c.VMax < c.VMin:
		return fmt.Errorf("budget clamps invalid (VMin=%v, VMax=%v)", c.VMin, c.VMax)
	case c.KPenalty < 0 || c.MaxMultiplier < 1:
		return fmt.Errorf("penalty constants invalid (KPenalty=%v, MaxMultiplier=%v)", c.KPenalty, c.MaxMultiplier)
	case c.KcalPerGram <= 0 || c.OilDensity <= 0:
		return fmt.Errorf("physical constants must be positive (KcalPerGram=%v, OilDensity=%v)", c.KcalPerGram, c.OilDensity)
	case c.RollingWindowDays < 1:
		return fmt.Errorf("rolling window must be at least 1 day, got %d", c.RollingWindowDays)
	case c.DefaultHarmScore < 0 || c.DefaultHarmScore > 100:
		return fmt.Errorf("default harm score must be in [0,100], got %d", c.DefaultHarmScore)
	}
	return nil
}
