/*
collaborators.go - Inbound surfaces for the external collaborators

PURPOSE:
  The profile collaborator supplies (BMR, activity factor); the scoring
  collaborator supplies daily Swastha/harm scores. Both write through the
  engine so their inputs are validated once, here, instead of in every
  transport handler.

  Neither write touches budget records: a day's goal is locked at first use
  and is deliberately NOT recomputed when history changes afterwards.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// SaveProfile stores the physiology inputs used at budget creation.
func (e *Engine) SaveProfile(ctx context.Context, p UserProfile) error {
	var violations []FieldViolation
	if p.UserID == "" {
		violations = append(violations, FieldViolation{Field: "user_id", Message: "is required"})
	}
	if p.BMR <= 0 {
		violations = append(violations, FieldViolation{Field: "bmr", Message: "must be positive"})
	}
	if p.ActivityFactor <= 0 {
		violations = append(violations, FieldViolation{Field: "activity_factor", Message: "must be positive"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return e.store.SaveProfile(ctx, p)
}

// GetProfile returns the stored profile, or ErrProfileNotFound.
func (e *Engine) GetProfile(ctx context.Context, userID UserID) (*UserProfile, error) {
	p, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	}
	return p, nil
}

// RecordScore upserts one day's scores from the external scoring
// collaborator. Later writes for the same day overwrite the day's values;
// history is never deleted.
func (e *Engine) RecordScore(ctx context.Context, rec ScoreRecord) error {
	var violations []FieldViolation
	if rec.UserID == "" {
		violations = append(violations, FieldViolation{Field: "user_id", Message: "is required"})
	}
	if rec.Day.IsZero() {
		violations = append(violations, FieldViolation{Field: "day", Message: "is required"})
	}
	if !inScoreRange(rec.SwasthaScore) {
		violations = append(violations, FieldViolation{Field: "swastha_score", Message: "must be in [0,100]"})
	}
	if !inScoreRange(rec.HarmIndex) {
		violations = append(violations, FieldViolation{Field: "harm_index", Message: "must be in [0,100]"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return e.store.UpsertScore(ctx, rec)
}

func inScoreRange(v decimal.Decimal) bool {
	return !v.IsNegative() && !v.GreaterThan(dHundred)
}
