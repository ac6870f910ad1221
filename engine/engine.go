/*
engine.go - Consumption event processor and budget orchestration

PURPOSE:
  The Engine is the single entry point request handlers call into. It
  validates and converts logged consumption events, lazily creates the
  day's budget record on first use, and keeps the cumulative counter in
  lock-step with the set of surviving events.

REQUEST FLOW (LogConsumption):
  1. Validate input - reject before any persistence or budget mutation
  2. Get-or-create the day's BudgetRecord (rolling averages + calculator,
     locked in at first use; uniqueness conflicts are recovered internally)
  3. Resolve the harm score and compute raw/effective calories
  4. Persist the event AND apply (+effectiveKcal, +1) in one transaction

AMENDMENT / DELETION:
  Edits recompute the event's derived fields and apply the SIGNED DIFFERENCE
  versus the previously stored effectiveKcal - never the new absolute value.
  Deletes apply the full negative delta. Either way the cumulative total
  stays equal to the sum over all currently existing events for the day.

CONCURRENCY:
  No in-process locks are held across storage calls. Budget creation races
  are resolved by the store's uniqueness constraint (first writer wins, the
  loser re-reads); counter updates are commutative atomic increments.

SEE ALSO:
  - store.go: Guarantees required from the storage layer
  - budget.go, rolling.go, status.go: The pure pieces this orchestrates
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine wires the harm table, formula configuration, and storage together.
type Engine struct {
	store Store
	harm  *HarmTable
	cfg   Config
	agg   Aggregator
}

// New creates an engine. The harm table and config are injected once at
// startup and treated as immutable.
func New(store Store, harm *HarmTable, cfg Config) *Engine {
	return &Engine{
		store: store,
		harm:  harm,
		cfg:   cfg,
		agg:   Aggregator{Scores: store, Config: cfg},
	}
}

// Config returns the engine's formula configuration.
func (e *Engine) Config() Config { return e.cfg }

// HarmTable returns the engine's oil harm-score table.
func (e *Engine) HarmTable() *HarmTable { return e.harm }

// =============================================================================
// REQUEST / RESULT TYPES
// =============================================================================

// LogRequest describes one consumption event to record.
type LogRequest struct {
	UserID     UserID
	OilTypeID  OilTypeID
	Grams      float64 // grams per serving
	Quantity   int     // servings; 0 defaults to 1
	MealType   string
	ConsumedAt time.Time

	// Optional: set when logging on behalf of a group member.
	GroupID  GroupID
	LoggedBy UserID
}

// UpdateRequest carries the amendable fields of an event. Nil means "leave
// unchanged". ConsumedAt is deliberately absent: moving an event across
// days would detach it from its budget record.
type UpdateRequest struct {
	OilTypeID *OilTypeID
	Grams     *float64
	Quantity  *int
	MealType  *string
}

// LogResult is returned from event writes: the (new or updated) event plus
// the day's budget after the delta was applied.
type LogResult struct {
	Event  ConsumptionEvent
	Budget BudgetRecord
	Status GoalStatus
}

// StatusResult pairs a budget record with its projection.
type StatusResult struct {
	Budget BudgetRecord
	Status GoalStatus
}

// =============================================================================
// EFFECTIVE-CALORIE CONVERSION (pure)
// =============================================================================

// ConvertEvent turns consumed grams and a harm score into raw calories, the
// harm multiplier, and effective calories.
//
// rawKcal applies the same visible-oil fraction as the budget formula so
// both sides of the ledger use the same units. The multiplier grows
// quadratically with the harm score and is capped: 1 <= multiplier <= MaxMultiplier.
func ConvertEvent(cfg Config, totalGrams float64, harmScore int) (rawKcal, multiplier, effectiveKcal decimal.Decimal) {
	rawKcal = decimal.NewFromFloat(totalGrams).
		Mul(decimal.NewFromFloat(cfg.KcalPerGram)).
		Mul(decimal.NewFromFloat(cfg.VisibleFraction())).
		Round(2)

	h := decimal.NewFromInt(int64(harmScore)).Div(dHundred)
	multiplier = decimal.Min(
		dOne.Add(decimal.NewFromFloat(cfg.KPenalty).Mul(h).Mul(h)),
		decimal.NewFromFloat(cfg.MaxMultiplier),
	).Round(3)

	effectiveKcal = rawKcal.Mul(multiplier).Round(2)
	return rawKcal, multiplier, effectiveKcal
}

// =============================================================================
// EVENT PROCESSING
// =============================================================================

// LogConsumption validates, converts, and persists one consumption event,
// atomically incrementing the day's budget counter.
func (e *Engine) LogConsumption(ctx context.Context, req LogRequest) (*LogResult, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	day := DayOf(req.ConsumedAt)

	// First event of the day creates the budget with current rolling scores.
	if _, err := e.getOrCreateBudget(ctx, req.UserID, day); err != nil {
		return nil, err
	}

	harmScore, _ := e.harm.Lookup(req.OilTypeID)
	raw, mult, eff := ConvertEvent(e.cfg, req.Grams*float64(req.Quantity), harmScore)

	ev := ConsumptionEvent{
		ID:            EventID(uuid.NewString()),
		UserID:        req.UserID,
		Day:           day,
		OilTypeID:     req.OilTypeID,
		Grams:         req.Grams,
		Quantity:      req.Quantity,
		HarmScore:     harmScore,
		RawKcal:       raw,
		Multiplier:    mult,
		EffectiveKcal: eff,
		MealType:      req.MealType,
		ConsumedAt:    req.ConsumedAt.UTC(),
		GroupID:       req.GroupID,
		LoggedBy:      req.LoggedBy,
		CreatedAt:     time.Now().UTC(),
	}

	var updated *BudgetRecord
	err := e.store.WithTx(ctx, func(s Store) error {
		if err := s.InsertEvent(ctx, ev); err != nil {
			return fmt.Errorf("persist event: %w", err)
		}
		rec, err := s.ApplyDelta(ctx, req.UserID, day, eff, 1)
		if err != nil {
			return fmt.Errorf("apply budget delta: %w", err)
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &LogResult{Event: ev, Budget: *updated, Status: ProjectStatus(e.cfg, *updated)}, nil
}

// UpdateConsumption amends an event's inputs, recomputes its derived fields,
// and applies the signed difference to the day's counter.
func (e *Engine) UpdateConsumption(ctx context.Context, eventID EventID, userID UserID, upd UpdateRequest) (*LogResult, error) {
	var result *LogResult
	err := e.store.WithTx(ctx, func(s Store) error {
		ev, err := s.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		// Not-owned is reported as not-found: no information leak, no side effects.
		if ev == nil || ev.UserID != userID {
			return &NotFoundError{EventID: eventID}
		}

		oldEffective := ev.EffectiveKcal

		if upd.OilTypeID != nil {
			ev.OilTypeID = *upd.OilTypeID
		}
		if upd.Grams != nil {
			ev.Grams = *upd.Grams
		}
		if upd.Quantity != nil {
			ev.Quantity = *upd.Quantity
		}
		if upd.MealType != nil {
			ev.MealType = *upd.MealType
		}
		if err := validateEventInputs(ev.OilTypeID, ev.Grams, ev.Quantity, ev.MealType); err != nil {
			return err
		}

		harmScore, _ := e.harm.Lookup(ev.OilTypeID)
		ev.HarmScore = harmScore
		ev.RawKcal, ev.Multiplier, ev.EffectiveKcal = ConvertEvent(e.cfg, ev.TotalGrams(), harmScore)

		if err := s.UpdateEvent(ctx, *ev); err != nil {
			return fmt.Errorf("persist amended event: %w", err)
		}

		delta := ev.EffectiveKcal.Sub(oldEffective)
		rec, err := s.ApplyDelta(ctx, userID, ev.Day, delta, 0)
		if err != nil {
			return fmt.Errorf("apply budget delta: %w", err)
		}

		result = &LogResult{Event: *ev, Budget: *rec, Status: ProjectStatus(e.cfg, *rec)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteConsumption removes an event and applies the full negative delta,
// returning the counter to its pre-log value.
func (e *Engine) DeleteConsumption(ctx context.Context, eventID EventID, userID UserID) (*StatusResult, error) {
	var result *StatusResult
	err := e.store.WithTx(ctx, func(s Store) error {
		ev, err := s.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev == nil || ev.UserID != userID {
			return &NotFoundError{EventID: eventID}
		}

		if err := s.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		rec, err := s.ApplyDelta(ctx, userID, ev.Day, ev.EffectiveKcal.Neg(), -1)
		if err != nil {
			return fmt.Errorf("apply budget delta: %w", err)
		}

		result = &StatusResult{Budget: *rec, Status: ProjectStatus(e.cfg, *rec)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListConsumption returns the day's events, oldest first.
func (e *Engine) ListConsumption(ctx context.Context, userID UserID, day Day) ([]ConsumptionEvent, error) {
	return e.store.EventsForDay(ctx, userID, day)
}

// =============================================================================
// STATUS AND GOAL QUERIES
// =============================================================================

// GetStatus returns the day's status projection, creating the budget record
// if this is the first touch of the day.
func (e *Engine) GetStatus(ctx context.Context, userID UserID, day Day) (*StatusResult, error) {
	rec, err := e.getOrCreateBudget(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Budget: *rec, Status: ProjectStatus(e.cfg, *rec)}, nil
}

// ComputeGoal returns the day's budget record with the same get-or-create
// semantics as event logging.
func (e *Engine) ComputeGoal(ctx context.Context, userID UserID, day Day) (*BudgetRecord, error) {
	return e.getOrCreateBudget(ctx, userID, day)
}

// getOrCreateBudget implements the once-per-(user,day) critical section.
// The goal is locked at first creation: an existing record is returned
// unchanged even if the profile or rolling scores have since drifted.
func (e *Engine) getOrCreateBudget(ctx context.Context, userID UserID, day Day) (*BudgetRecord, error) {
	if userID == "" {
		return nil, &ValidationError{Violations: []FieldViolation{{Field: "user_id", Message: "is required"}}}
	}

	rec, err := e.store.GetBudget(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	if rec != nil {
		return rec, nil
	}

	profile, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("create budget for user %s: %w", userID, ErrProfileNotFound)
	}
	if profile.BMR <= 0 || profile.ActivityFactor <= 0 {
		return nil, &ValidationError{Violations: []FieldViolation{
			{Field: "profile", Message: "bmr and activity_factor must be positive"},
		}}
	}

	sRoll, hRoll, _, err := e.agg.RollingAverages(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	fresh := BudgetRecord{
		UserID:                  userID,
		Day:                     day,
		BudgetFields:            ComputeBudget(e.cfg, profile.BMR, profile.ActivityFactor, sRoll, hRoll),
		CumulativeEffectiveKcal: decimal.Zero,
		EventsCount:             0,
		CreatedAt:               time.Now().UTC(),
	}

	err = e.store.InsertBudget(ctx, fresh)
	if errors.Is(err, ErrDuplicateBudget) {
		// Lost the creation race. Discard the computed values and adopt the
		// winner's record so both callers observe the same goal.
		winner, gerr := e.store.GetBudget(ctx, userID, day)
		if gerr != nil {
			return nil, fmt.Errorf("re-read budget after conflict: %w", gerr)
		}
		if winner == nil {
			return nil, fmt.Errorf("budget conflict but no record found: %w", err)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}
	return &fresh, nil
}

// =============================================================================
// COUNTER AUDIT - Compensating re-apply for partial-write drift
// =============================================================================

// AuditResult describes one budget record whose counter disagreed with its
// surviving events.
type AuditResult struct {
	UserID       UserID
	Day          Day
	StoredKcal   decimal.Decimal
	ActualKcal   decimal.Decimal
	StoredEvents int
	ActualEvents int
	Repaired     bool
}

// AuditBudgets recomputes the sum of effectiveKcal over surviving events for
// every budget record since the given day and repairs any counter drift via
// a corrective delta. Returns only the records that drifted.
//
// The transactional coupling in LogConsumption and friends should make this
// a no-op; the audit exists so an interrupted process cannot leave the
// cumulative invariant silently corrupted forever.
func (e *Engine) AuditBudgets(ctx context.Context, since Day) ([]AuditResult, error) {
	budgets, err := e.store.BudgetsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}

	var drifted []AuditResult
	for _, b := range budgets {
		b := b
		err := e.store.WithTx(ctx, func(s Store) error {
			// Re-read inside the transaction: the listing above may be stale
			// against writers that logged since.
			rec, err := s.GetBudget(ctx, b.UserID, b.Day)
			if err != nil {
				return err
			}
			if rec == nil {
				return nil
			}

			events, err := s.EventsForDay(ctx, rec.UserID, rec.Day)
			if err != nil {
				return err
			}

			actual := decimal.Zero
			for _, ev := range events {
				actual = actual.Add(ev.EffectiveKcal)
			}

			if actual.Equal(rec.CumulativeEffectiveKcal) && len(events) == rec.EventsCount {
				return nil
			}

			res := AuditResult{
				UserID:       rec.UserID,
				Day:          rec.Day,
				StoredKcal:   rec.CumulativeEffectiveKcal,
				ActualKcal:   actual,
				StoredEvents: rec.EventsCount,
				ActualEvents: len(events),
			}
			_, err = s.ApplyDelta(ctx, rec.UserID, rec.Day,
				actual.Sub(rec.CumulativeEffectiveKcal), len(events)-rec.EventsCount)
			if err != nil {
				return fmt.Errorf("repair counter: %w", err)
			}
			res.Repaired = true
			drifted = append(drifted, res)
			return nil
		})
		if err != nil {
			return drifted, err
		}
	}
	return drifted, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func (r LogRequest) validate() error {
	var violations []FieldViolation
	if r.UserID == "" {
		violations = append(violations, FieldViolation{Field: "user_id", Message: "is required"})
	}
	if r.OilTypeID == "" {
		violations = append(violations, FieldViolation{Field: "oil_type", Message: "is required"})
	}
	if r.Grams < 0 {
		violations = append(violations, FieldViolation{Field: "grams", Message: "must not be negative"})
	}
	if r.Quantity < 1 {
		violations = append(violations, FieldViolation{Field: "quantity", Message: "must be at least 1"})
	}
	if r.MealType == "" {
		violations = append(violations, FieldViolation{Field: "meal_type", Message: "is required"})
	}
	if r.ConsumedAt.IsZero() {
		violations = append(violations, FieldViolation{Field: "consumed_at", Message: "is required"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func validateEventInputs(oilType OilTypeID, grams float64, quantity int, mealType string) error {
	var violations []FieldViolation
	if oilType == "" {
		violations = append(violations, FieldViolation{Field: "oil_type", Message: "is required"})
	}
	if grams < 0 {
		violations = append(violations, FieldViolation{Field: "grams", Message: "must not be negative"})
	}
	if quantity < 1 {
		violations = append(violations, FieldViolation{Field: "quantity", Message: "must be at least 1"})
	}
	if mealType == "" {
		violations = append(violations, FieldViolation{Field: "meal_type", Message: "is required"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
