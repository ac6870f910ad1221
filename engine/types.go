/*
Package engine provides the adaptive oil budget and scoring core.

PURPOSE:
  This package contains the domain types and algorithms that turn a user's
  physiology and recent behavior into a personalized daily calorie budget
  for visible cooking oil, convert each logged consumption event into a
  harm-weighted "effective calorie" value, and keep a running cumulative
  status against that budget.

KEY CONCEPTS IN THIS FILE (types.go):
  - ScoreRecord:       Per-user, per-day diet-quality and oil-harm scores,
                       written by the external scoring collaborator
  - UserProfile:       BMR and activity factor, supplied by the profile
                       collaborator
  - BudgetRecord:      One record per (user, day); goal fields are locked at
                       first creation, only the cumulative counter grows
  - ConsumptionEvent:  A single logged oil usage with derived calorie fields
  - BudgetFields:      Output of the budget calculator

DESIGN PRINCIPLES:
  1. Immutability: BudgetRecord goal fields never change after creation
  2. Precision: Uses decimal.Decimal so displayed roundings are exact
  3. Commutativity: The cumulative counter only ever moves by addition, so
     concurrent writers cannot lose updates given an atomic increment
  4. Type Safety: Strong typing for user/event/oil identifiers

SEE ALSO:
  - budget.go: Daily budget calculator
  - rolling.go: Rolling score aggregator
  - engine.go: Consumption event processor and get-or-create semantics
  - status.go: Goal status projector
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type EventID string
type OilTypeID string
type GroupID string

// =============================================================================
// SCORE RECORD - External scoring collaborator output (read-only here)
// =============================================================================

// ScoreRecord holds the externally computed scores for one user-day.
// The engine never writes these; it only reads them for rolling averages.
// Later writes for the same day overwrite the day's values, never delete
// history.
type ScoreRecord struct {
	UserID         UserID
	Day            Day
	SwasthaScore   decimal.Decimal // overall diet quality, 0-100
	HarmIndex      decimal.Decimal // oil harm for the day, 0-100
	MealsCount     int
	OilEventsCount int
}

// =============================================================================
// USER PROFILE - Physiology inputs from the profile collaborator
// =============================================================================

type UserProfile struct {
	UserID         UserID
	BMR            float64 // basal metabolic rate, kcal/day
	ActivityFactor float64 // TDEE multiplier, e.g. 1.2-1.9
}

// =============================================================================
// BUDGET RECORD - One per (user, day), goal locked at first use
// =============================================================================

// BudgetFields is the output of the daily budget calculator. All values
// carry the rounding the calculator applied; they are displayed verbatim.
type BudgetFields struct {
	TDEE      decimal.Decimal // bmr * activityFactor, 1 decimal
	SRoll     decimal.Decimal // rolling Swastha average at creation, 2 decimals
	HRoll     decimal.Decimal // rolling harm average at creation, 2 decimals
	VBase     decimal.Decimal // uncapped base budget, 1 decimal
	HA        decimal.Decimal // harm-adjustment factor, 2 decimals
	VAdj      decimal.Decimal // adjusted budget before capping, 1 decimal
	GoalKcal  decimal.Decimal // final capped budget, 2 decimals
	GoalGrams decimal.Decimal // goalKcal / kcal-per-gram, 1 decimal
	GoalMl    decimal.Decimal // goalGrams / oil density, 1 decimal
}

// BudgetRecord is the persisted daily budget. Identity is (UserID, Day),
// unique. Once created, everything except CumulativeEffectiveKcal and
// EventsCount is immutable; those two only ever change by addition.
type BudgetRecord struct {
	UserID UserID
	Day    Day

	BudgetFields

	// CumulativeEffectiveKcal is the sum of EffectiveKcal over all currently
	// existing events for this day. Mutated only via atomic increments.
	CumulativeEffectiveKcal decimal.Decimal
	EventsCount             int

	CreatedAt time.Time
}

// =============================================================================
// CONSUMPTION EVENT - Single logged oil usage
// =============================================================================

type ConsumptionEvent struct {
	ID     EventID
	UserID UserID
	Day    Day // calendar day of ConsumedAt; parent budget key

	OilTypeID OilTypeID
	Grams     float64 // grams per serving
	Quantity  int     // servings, >= 1

	HarmScore     int             // resolved from OilTypeID at creation, 0-100
	RawKcal       decimal.Decimal // visible-oil calories, 2 decimals
	Multiplier    decimal.Decimal // harm penalty, in [1.0, 1.5], 3 decimals
	EffectiveKcal decimal.Decimal // RawKcal * Multiplier, 2 decimals

	MealType   string
	ConsumedAt time.Time

	// Proxy-logged entries: set when someone logs on behalf of a group member.
	GroupID  GroupID
	LoggedBy UserID

	CreatedAt time.Time
}

// TotalGrams is the grams actually consumed (per-serving grams times servings).
func (e ConsumptionEvent) TotalGrams() float64 {
	return e.Grams * float64(e.Quantity)
}
