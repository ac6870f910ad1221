/*
store.go - Persistence interfaces for scores, profiles, budgets, and events

PURPOSE:
  Defines the interface between the engine and the database. Correctness
  under concurrency is achieved entirely through the guarantees these
  interfaces demand from implementations, not through application-level
  mutexes, so the engine stays correct across multiple process instances.

STORAGE-LEVEL GUARANTEES REQUIRED:
  InsertBudget: must enforce a uniqueness constraint on (user, day) and
                fail with ErrDuplicateBudget on conflict. This is how the
                once-per-day critical section is resolved without
                serializing all requests for the key.
  ApplyDelta:   must be an atomic increment against the stored value,
                never a read-modify-write of an in-memory copy. Additive,
                commutative mutation is what makes this sufficient.
  WithTx:       couples an event write with its budget delta so the two
                cannot be partially applied. An event without its delta
                (or vice versa) silently corrupts the cumulative invariant
                and is the primary failure mode to guard against.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite (same SQL applies to Postgres)
  - engine/store/memory.go: In-memory for testing

SEE ALSO:
  - engine.go: Orchestrates these interfaces
*/
package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCORE STORE - Read side of the external scorer's history
// =============================================================================

// ScoreStore persists per-user, per-day score records. UpsertScore is called
// by the external scoring collaborator; the engine only reads.
type ScoreStore interface {
	// UpsertScore writes or overwrites the record for (rec.UserID, rec.Day).
	UpsertScore(ctx context.Context, rec ScoreRecord) error

	// RecentScores returns up to limit most recent records with day <= asOf,
	// ordered ascending by day.
	RecentScores(ctx context.Context, userID UserID, asOf Day, limit int) ([]ScoreRecord, error)
}

// =============================================================================
// PROFILE STORE
// =============================================================================

type ProfileStore interface {
	SaveProfile(ctx context.Context, p UserProfile) error

	// GetProfile returns nil when the user has no stored profile.
	GetProfile(ctx context.Context, userID UserID) (*UserProfile, error)
}

// =============================================================================
// BUDGET STORE - Idempotent creation and atomic increments
// =============================================================================

type BudgetStore interface {
	// GetBudget returns nil when no record exists for (userID, day).
	GetBudget(ctx context.Context, userID UserID, day Day) (*BudgetRecord, error)

	// InsertBudget persists a new record. Fails with ErrDuplicateBudget if
	// one already exists for (rec.UserID, rec.Day); the caller must then
	// discard its computed values and re-read.
	InsertBudget(ctx context.Context, rec BudgetRecord) error

	// ApplyDelta atomically adds deltaKcal to CumulativeEffectiveKcal and
	// deltaEvents to EventsCount, returning the record after the update.
	// Fails with ErrBudgetNotFound if the record does not exist.
	ApplyDelta(ctx context.Context, userID UserID, day Day, deltaKcal decimal.Decimal, deltaEvents int) (*BudgetRecord, error)

	// BudgetsSince returns all records with day >= since, for counter audits.
	BudgetsSince(ctx context.Context, since Day) ([]BudgetRecord, error)
}

// =============================================================================
// EVENT STORE
// =============================================================================

type EventStore interface {
	InsertEvent(ctx context.Context, ev ConsumptionEvent) error

	// GetEvent returns nil when no event with this id exists.
	GetEvent(ctx context.Context, id EventID) (*ConsumptionEvent, error)

	// UpdateEvent overwrites an existing event's mutable and derived fields.
	UpdateEvent(ctx context.Context, ev ConsumptionEvent) error

	DeleteEvent(ctx context.Context, id EventID) error

	// EventsForDay returns all events for (userID, day), ordered by
	// ConsumedAt ascending.
	EventsForDay(ctx context.Context, userID UserID, day Day) ([]ConsumptionEvent, error)
}

// =============================================================================
// STORE - Full persistence surface with transactional coupling
// =============================================================================

// Store is the full persistence surface the engine operates against.
type Store interface {
	ScoreStore
	ProfileStore
	BudgetStore
	EventStore

	// WithTx executes fn atomically: if fn returns an error, every write it
	// performed is rolled back. Used to couple event writes with their
	// budget deltas.
	WithTx(ctx context.Context, fn func(Store) error) error
}
