/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Profiles:
    ProfileDTO, SaveProfileRequest

  Scores:
    UpsertScoreRequest

  Consumption:
    EventDTO, LogConsumptionRequest, UpdateConsumptionRequest,
    LogResultDTO

  Budget / status:
    BudgetDTO, StatusDTO, StatusResultDTO

  Admin:
    AuditRequest, AuditResultDTO

DECIMAL FIELDS:
  All derived quantities (calories, multipliers, goals) are serialized as
  JSON strings so clients never see float artifacts. shopspring/decimal's
  String() output is used verbatim.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain model these map from
*/
package api

import (
	"github.com/swasthyam/oil-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

// FieldErrorDTO names one invalid input field.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ProfileDTO represents a user's physiology inputs in API responses.
type ProfileDTO struct {
	UserID         string  `json:"user_id"`
	BMR            float64 `json:"bmr"`
	ActivityFactor float64 `json:"activity_factor"`
}

// SaveProfileRequest is the request to create or replace a profile.
type SaveProfileRequest struct {
	BMR            float64 `json:"bmr"`
	ActivityFactor float64 `json:"activity_factor"`
}

// UpsertScoreRequest carries one day's external scores.
type UpsertScoreRequest struct {
	SwasthaScore   string `json:"swastha_score"`
	HarmIndex      string `json:"harm_index"`
	MealsCount     int    `json:"meals_count"`
	OilEventsCount int    `json:"oil_events_count"`
}

// LogConsumptionRequest is the request body for logging an oil event.
type LogConsumptionRequest struct {
	OilType    string  `json:"oil_type"`
	Grams      float64 `json:"grams"`
	Quantity   int     `json:"quantity,omitempty"` // servings; defaults to 1
	MealType   string  `json:"meal_type"`
	ConsumedAt string  `json:"consumed_at"` // RFC 3339; empty means now

	GroupID  string `json:"group_id,omitempty"`
	LoggedBy string `json:"logged_by,omitempty"`
}

// UpdateConsumptionRequest amends an event. Omitted (null) fields are left
// unchanged. UserID identifies the owner making the change.
type UpdateConsumptionRequest struct {
	UserID   string   `json:"user_id"`
	OilType  *string  `json:"oil_type,omitempty"`
	Grams    *float64 `json:"grams,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	MealType *string  `json:"meal_type,omitempty"`
}

// EventDTO represents a consumption event in API responses.
type EventDTO struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Day           string  `json:"day"`
	OilType       string  `json:"oil_type"`
	Grams         float64 `json:"grams"`
	Quantity      int     `json:"quantity"`
	HarmScore     int     `json:"harm_score"`
	RawKcal       string  `json:"raw_kcal"`
	Multiplier    string  `json:"multiplier"`
	EffectiveKcal string  `json:"effective_kcal"`
	MealType      string  `json:"meal_type"`
	ConsumedAt    string  `json:"consumed_at"`
	GroupID       string  `json:"group_id,omitempty"`
	LoggedBy      string  `json:"logged_by,omitempty"`
}

// BudgetDTO represents a day's locked-in budget and live counters.
type BudgetDTO struct {
	UserID                  string `json:"user_id"`
	Day                     string `json:"day"`
	TDEE                    string `json:"tdee"`
	SwasthaRoll             string `json:"swastha_roll"`
	HarmRoll                string `json:"harm_roll"`
	GoalKcal                string `json:"goal_kcal"`
	GoalGrams               string `json:"goal_grams"`
	GoalMl                  string `json:"goal_ml"`
	CumulativeEffectiveKcal string `json:"cumulative_effective_kcal"`
	EventsCount             int    `json:"events_count"`
}

// StatusDTO is the consumer-facing projection of a budget.
type StatusDTO struct {
	RemainingKcal string `json:"remaining_kcal"`
	RemainingMl   string `json:"remaining_ml"`
	FillPercent   string `json:"fill_percent"`
	Overage       string `json:"overage"`
	Status        string `json:"status"`
}

// LogResultDTO is returned from event writes.
type LogResultDTO struct {
	Event  EventDTO  `json:"event"`
	Budget BudgetDTO `json:"budget"`
	Status StatusDTO `json:"status"`
}

// StatusResultDTO pairs a budget with its projection.
type StatusResultDTO struct {
	Budget BudgetDTO `json:"budget"`
	Status StatusDTO `json:"status"`
}

// OilDTO lists one oil type and its harm score.
type OilDTO struct {
	ID        string `json:"id"`
	HarmScore int    `json:"harm_score"`
}

// AuditRequest triggers a counter audit.
type AuditRequest struct {
	LookbackDays int `json:"lookback_days,omitempty"` // 0 uses the server default
}

// AuditResultDTO reports one repaired budget record.
type AuditResultDTO struct {
	UserID       string `json:"user_id"`
	Day          string `json:"day"`
	StoredKcal   string `json:"stored_kcal"`
	ActualKcal   string `json:"actual_kcal"`
	StoredEvents int    `json:"stored_events"`
	ActualEvents int    `json:"actual_events"`
	Repaired     bool   `json:"repaired"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toEventDTO(ev engine.ConsumptionEvent) EventDTO {
	return EventDTO{
		ID:            string(ev.ID),
		UserID:        string(ev.UserID),
		Day:           ev.Day.String(),
		OilType:       string(ev.OilTypeID),
		Grams:         ev.Grams,
		Quantity:      ev.Quantity,
		HarmScore:     ev.HarmScore,
		RawKcal:       ev.RawKcal.String(),
		Multiplier:    ev.Multiplier.String(),
		EffectiveKcal: ev.EffectiveKcal.String(),
		MealType:      ev.MealType,
		ConsumedAt:    ev.ConsumedAt.Format(timeFormat),
		GroupID:       string(ev.GroupID),
		LoggedBy:      string(ev.LoggedBy),
	}
}

func toBudgetDTO(rec engine.BudgetRecord) BudgetDTO {
	return BudgetDTO{
		UserID:                  string(rec.UserID),
		Day:                     rec.Day.String(),
		TDEE:                    rec.TDEE.String(),
		SwasthaRoll:             rec.SRoll.String(),
		HarmRoll:                rec.HRoll.String(),
		GoalKcal:                rec.GoalKcal.String(),
		GoalGrams:               rec.GoalGrams.String(),
		GoalMl:                  rec.GoalMl.String(),
		CumulativeEffectiveKcal: rec.CumulativeEffectiveKcal.String(),
		EventsCount:             rec.EventsCount,
	}
}

func toStatusDTO(st engine.GoalStatus) StatusDTO {
	return StatusDTO{
		RemainingKcal: st.RemainingKcal.String(),
		RemainingMl:   st.RemainingMl.String(),
		FillPercent:   st.FillPercent.String(),
		Overage:       st.Overage.String(),
		Status:        string(st.Status),
	}
}

func toLogResultDTO(res *engine.LogResult) LogResultDTO {
	return LogResultDTO{
		Event:  toEventDTO(res.Event),
		Budget: toBudgetDTO(res.Budget),
		Status: toStatusDTO(res.Status),
	}
}

func toStatusResultDTO(res *engine.StatusResult) StatusResultDTO {
	return StatusResultDTO{
		Budget: toBudgetDTO(res.Budget),
		Status: toStatusDTO(res.Status),
	}
}
