/*
Package sqlite provides a SQLite-backed implementation of engine.Store.

PURPOSE:
  Implements the full persistence surface (scores, profiles, budgets,
  events) using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

CORRECTNESS GUARANTEES:
  Budget creation:  the (user_id, day) PRIMARY KEY turns a concurrent
                    create into a uniqueness conflict the engine recovers
                    from, instead of a lock.
  Counter updates:  the cumulative counter is an INTEGER centi-kcal column
                    incremented with
                      UPDATE ... SET cumulative_centikcal = cumulative_centikcal + ?
                    so concurrent writers can never lose an update and
                    integer addition keeps the 2-decimal values exact.
  Event coupling:   WithTx wraps an event write and its budget delta in one
                    database transaction; either both commit or neither.

KEY TABLES:
  score_records:       Per-user, per-day external scores (upserted)
  user_profiles:       BMR and activity factor
  budget_records:      Daily budgets; goal columns immutable after insert
  consumption_events:  Logged oil usage with derived calorie fields

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery. The connection
  pool is capped at one connection so ":memory:" databases behave.

USAGE:
  st, err := sqlite.New("./data/swasthyam.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  eng := engine.New(st, engine.DefaultHarmTable(50), engine.DefaultConfig())

SEE ALSO:
  - engine/store.go: Interface definitions and required guarantees
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/swasthyam/oil-engine/engine"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// queryer abstracts *sql.DB and *sql.Tx so every statement can run either
// standalone or inside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent across the
	// pool and serializes writers the way SQLite wants anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- External scores, one row per (user, day), overwritten on re-score
	CREATE TABLE IF NOT EXISTS score_records (
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		swastha_score TEXT NOT NULL,
		harm_index TEXT NOT NULL,
		meals_count INTEGER NOT NULL DEFAULT 0,
		oil_events_count INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_scores_user_day
		ON score_records(user_id, day DESC);

	-- Physiology inputs from the profile collaborator
	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id TEXT PRIMARY KEY,
		bmr REAL NOT NULL,
		activity_factor REAL NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Daily budgets. The PRIMARY KEY is the uniqueness constraint that
	-- resolves concurrent creation; goal columns are never updated.
	-- cumulative_centikcal holds kcal*100 so increments are exact integers.
	CREATE TABLE IF NOT EXISTS budget_records (
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		tdee TEXT NOT NULL,
		s_roll TEXT NOT NULL,
		h_roll TEXT NOT NULL,
		v_base TEXT NOT NULL,
		ha TEXT NOT NULL,
		v_adj TEXT NOT NULL,
		goal_kcal TEXT NOT NULL,
		goal_grams TEXT NOT NULL,
		goal_ml TEXT NOT NULL,
		cumulative_centikcal INTEGER NOT NULL DEFAULT 0,
		events_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_budgets_day
		ON budget_records(day);

	-- Logged consumption events
	CREATE TABLE IF NOT EXISTS consumption_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		oil_type TEXT NOT NULL,
		grams REAL NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		harm_score INTEGER NOT NULL,
		raw_kcal TEXT NOT NULL,
		multiplier TEXT NOT NULL,
		effective_kcal TEXT NOT NULL,
		meal_type TEXT NOT NULL,
		consumed_at TEXT NOT NULL,
		group_id TEXT,
		logged_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_user_day
		ON consumption_events(user_id, day);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCORE STORE
// =============================================================================

// UpsertScore writes or overwrites the score record for (user, day).
func (s *Store) UpsertScore(ctx context.Context, rec engine.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertScore(ctx, s.db, rec)
}

func (s *Store) upsertScore(ctx context.Context, q queryer, rec engine.ScoreRecord) error {
	query := `
		INSERT INTO score_records
		(user_id, day, swastha_score, harm_index, meals_count, oil_events_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			swastha_score = excluded.swastha_score,
			harm_index = excluded.harm_index,
			meals_count = excluded.meals_count,
			oil_events_count = excluded.oil_events_count,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		rec.UserID,
		rec.Day.String(),
		rec.SwasthaScore.String(),
		rec.HarmIndex.String(),
		rec.MealsCount,
		rec.OilEventsCount,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

// RecentScores returns up to limit most recent records with day <= asOf,
// ordered ascending by day.
func (s *Store) RecentScores(ctx context.Context, userID engine.UserID, asOf engine.Day, limit int) ([]engine.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentScores(ctx, s.db, userID, asOf, limit)
}

func (s *Store) recentScores(ctx context.Context, q queryer, userID engine.UserID, asOf engine.Day, limit int) ([]engine.ScoreRecord, error) {
	query := `
		SELECT user_id, day, swastha_score, harm_index, meals_count, oil_events_count
		FROM score_records
		WHERE user_id = ? AND day <= ?
		ORDER BY day DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, userID, asOf.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var records []engine.ScoreRecord
	for rows.Next() {
		var (
			rec           engine.ScoreRecord
			day           string
			swastha, harm string
		)
		if err := rows.Scan(&rec.UserID, &day, &swastha, &harm, &rec.MealsCount, &rec.OilEventsCount); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		rec.Day, _ = engine.ParseDay(day)
		rec.SwasthaScore = parseDecimal(swastha)
		rec.HarmIndex = parseDecimal(harm)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DESC + LIMIT picked the window; flip to ascending for the caller.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (s *Store) SaveProfile(ctx context.Context, p engine.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProfile(ctx, s.db, p)
}

func (s *Store) saveProfile(ctx context.Context, q queryer, p engine.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, bmr, activity_factor, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			bmr = excluded.bmr,
			activity_factor = excluded.activity_factor,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		p.UserID, p.BMR, p.ActivityFactor,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID engine.UserID) (*engine.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProfile(ctx, s.db, userID)
}

func (s *Store) getProfile(ctx context.Context, q queryer, userID engine.UserID) (*engine.UserProfile, error) {
	var p engine.UserProfile
	err := q.QueryRowContext(ctx,
		"SELECT user_id, bmr, activity_factor FROM user_profiles WHERE user_id = ?",
		userID,
	).Scan(&p.UserID, &p.BMR, &p.ActivityFactor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}

// =============================================================================
// BUDGET STORE
// =============================================================================

const budgetColumns = `user_id, day, tdee, s_roll, h_roll, v_base, ha, v_adj,
	goal_kcal, goal_grams, goal_ml, cumulative_centikcal, events_count, created_at`

func (s *Store) GetBudget(ctx context.Context, userID engine.UserID, day engine.Day) (*engine.BudgetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBudget(ctx, s.db, userID, day)
}

func (s *Store) getBudget(ctx context.Context, q queryer, userID engine.UserID, day engine.Day) (*engine.BudgetRecord, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budget_records WHERE user_id = ? AND day = ?",
		userID, day.String(),
	)
	rec, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}
	return rec, nil
}

// InsertBudget persists a new record. The (user_id, day) primary key turns
// a creation race into engine.ErrDuplicateBudget.
func (s *Store) InsertBudget(ctx context.Context, rec engine.BudgetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBudget(ctx, s.db, rec)
}

func (s *Store) insertBudget(ctx context.Context, q queryer, rec engine.BudgetRecord) error {
	query := `
		INSERT INTO budget_records (` + budgetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		rec.UserID,
		rec.Day.String(),
		rec.TDEE.String(),
		rec.SRoll.String(),
		rec.HRoll.String(),
		rec.VBase.String(),
		rec.HA.String(),
		rec.VAdj.String(),
		rec.GoalKcal.String(),
		rec.GoalGrams.String(),
		rec.GoalMl.String(),
		toCentikcal(rec.CumulativeEffectiveKcal),
		rec.EventsCount,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateBudget
		}
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// ApplyDelta increments the counter in SQL, never via read-modify-write.
func (s *Store) ApplyDelta(ctx context.Context, userID engine.UserID, day engine.Day, deltaKcal decimal.Decimal, deltaEvents int) (*engine.BudgetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyDelta(ctx, s.db, userID, day, deltaKcal, deltaEvents)
}

func (s *Store) applyDelta(ctx context.Context, q queryer, userID engine.UserID, day engine.Day, deltaKcal decimal.Decimal, deltaEvents int) (*engine.BudgetRecord, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE budget_records
		SET cumulative_centikcal = cumulative_centikcal + ?,
		    events_count = events_count + ?
		WHERE user_id = ? AND day = ?
	`, toCentikcal(deltaKcal), deltaEvents, userID, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to apply delta: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, engine.ErrBudgetNotFound
	}
	return s.getBudget(ctx, q, userID, day)
}

func (s *Store) BudgetsSince(ctx context.Context, since engine.Day) ([]engine.BudgetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgetsSince(ctx, s.db, since)
}

func (s *Store) budgetsSince(ctx context.Context, q queryer, since engine.Day) ([]engine.BudgetRecord, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+budgetColumns+" FROM budget_records WHERE day >= ? ORDER BY day ASC, user_id ASC",
		since.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var records []engine.BudgetRecord
	for rows.Next() {
		rec, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (*engine.BudgetRecord, error) {
	var (
		rec                                                     engine.BudgetRecord
		day, createdAt                                          string
		tdee, sRoll, hRoll, vBase, ha, vAdj, gKcal, gGrams, gMl string
		centikcal                                               int64
	)
	err := row.Scan(
		&rec.UserID, &day, &tdee, &sRoll, &hRoll, &vBase, &ha, &vAdj,
		&gKcal, &gGrams, &gMl, &centikcal, &rec.EventsCount, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Day, _ = engine.ParseDay(day)
	rec.TDEE = parseDecimal(tdee)
	rec.SRoll = parseDecimal(sRoll)
	rec.HRoll = parseDecimal(hRoll)
	rec.VBase = parseDecimal(vBase)
	rec.HA = parseDecimal(ha)
	rec.VAdj = parseDecimal(vAdj)
	rec.GoalKcal = parseDecimal(gKcal)
	rec.GoalGrams = parseDecimal(gGrams)
	rec.GoalMl = parseDecimal(gMl)
	rec.CumulativeEffectiveKcal = fromCentikcal(centikcal)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

// =============================================================================
// EVENT STORE
// =============================================================================

const eventColumns = `id, user_id, day, oil_type, grams, quantity, harm_score,
	raw_kcal, multiplier, effective_kcal, meal_type, consumed_at, group_id, logged_by, created_at`

func (s *Store) InsertEvent(ctx context.Context, ev engine.ConsumptionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEvent(ctx, s.db, ev)
}

func (s *Store) insertEvent(ctx context.Context, q queryer, ev engine.ConsumptionEvent) error {
	query := `
		INSERT INTO consumption_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		ev.ID,
		ev.UserID,
		ev.Day.String(),
		ev.OilTypeID,
		ev.Grams,
		ev.Quantity,
		ev.HarmScore,
		ev.RawKcal.String(),
		ev.Multiplier.String(),
		ev.EffectiveKcal.String(),
		ev.MealType,
		ev.ConsumedAt.UTC().Format(time.RFC3339),
		nullString(string(ev.GroupID)),
		nullString(string(ev.LoggedBy)),
		ev.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id engine.EventID) (*engine.ConsumptionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEvent(ctx, s.db, id)
}

func (s *Store) getEvent(ctx context.Context, q queryer, id engine.EventID) (*engine.ConsumptionEvent, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM consumption_events WHERE id = ?", id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return ev, nil
}

func (s *Store) UpdateEvent(ctx context.Context, ev engine.ConsumptionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateEvent(ctx, s.db, ev)
}

func (s *Store) updateEvent(ctx context.Context, q queryer, ev engine.ConsumptionEvent) error {
	res, err := q.ExecContext(ctx, `
		UPDATE consumption_events
		SET oil_type = ?, grams = ?, quantity = ?, harm_score = ?,
		    raw_kcal = ?, multiplier = ?, effective_kcal = ?, meal_type = ?
		WHERE id = ?
	`,
		ev.OilTypeID, ev.Grams, ev.Quantity, ev.HarmScore,
		ev.RawKcal.String(), ev.Multiplier.String(), ev.EffectiveKcal.String(), ev.MealType,
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrEventNotFound
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id engine.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEvent(ctx, s.db, id)
}

func (s *Store) deleteEvent(ctx context.Context, q queryer, id engine.EventID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM consumption_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrEventNotFound
	}
	return nil
}

func (s *Store) EventsForDay(ctx context.Context, userID engine.UserID, day engine.Day) ([]engine.ConsumptionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsForDay(ctx, s.db, userID, day)
}

func (s *Store) eventsForDay(ctx context.Context, q queryer, userID engine.UserID, day engine.Day) ([]engine.ConsumptionEvent, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM consumption_events WHERE user_id = ? AND day = ? ORDER BY consumed_at ASC, created_at ASC",
		userID, day.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []engine.ConsumptionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*engine.ConsumptionEvent, error) {
	var (
		ev                       engine.ConsumptionEvent
		day, consumedAt, created string
		rawKcal, mult, effKcal   string
		groupID, loggedBy        sql.NullString
	)
	err := row.Scan(
		&ev.ID, &ev.UserID, &day, &ev.OilTypeID, &ev.Grams, &ev.Quantity, &ev.HarmScore,
		&rawKcal, &mult, &effKcal, &ev.MealType, &consumedAt, &groupID, &loggedBy, &created,
	)
	if err != nil {
		return nil, err
	}

	ev.Day, _ = engine.ParseDay(day)
	ev.RawKcal = parseDecimal(rawKcal)
	ev.Multiplier = parseDecimal(mult)
	ev.EffectiveKcal = parseDecimal(effKcal)
	ev.ConsumedAt, _ = time.Parse(time.RFC3339, consumedAt)
	ev.CreatedAt, _ = time.Parse(time.RFC3339, created)
	ev.GroupID = engine.GroupID(groupID.String)
	ev.LoggedBy = engine.UserID(loggedBy.String)
	return &ev, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. Used to couple an event
// write with its budget delta.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every statement through the open transaction. The parent's
// mutex is already held by WithTx, so these methods must not re-lock.
type txStore struct {
	q      *sql.Tx
	parent *Store
}

func (ts *txStore) UpsertScore(ctx context.Context, rec engine.ScoreRecord) error {
	return ts.parent.upsertScore(ctx, ts.q, rec)
}

func (ts *txStore) RecentScores(ctx context.Context, userID engine.UserID, asOf engine.Day, limit int) ([]engine.ScoreRecord, error) {
	return ts.parent.recentScores(ctx, ts.q, userID, asOf, limit)
}

func (ts *txStore) SaveProfile(ctx context.Context, p engine.UserProfile) error {
	return ts.parent.saveProfile(ctx, ts.q, p)
}

func (ts *txStore) GetProfile(ctx context.Context, userID engine.UserID) (*engine.UserProfile, error) {
	return ts.parent.getProfile(ctx, ts.q, userID)
}

func (ts *txStore) GetBudget(ctx context.Context, userID engine.UserID, day engine.Day) (*engine.BudgetRecord, error) {
	return ts.parent.getBudget(ctx, ts.q, userID, day)
}

func (ts *txStore) InsertBudget(ctx context.Context, rec engine.BudgetRecord) error {
	return ts.parent.insertBudget(ctx, ts.q, rec)
}

func (ts *txStore) ApplyDelta(ctx context.Context, userID engine.UserID, day engine.Day, deltaKcal decimal.Decimal, deltaEvents int) (*engine.BudgetRecord, error) {
	return ts.parent.applyDelta(ctx, ts.q, userID, day, deltaKcal, deltaEvents)
}

func (ts *txStore) BudgetsSince(ctx context.Context, since engine.Day) ([]engine.BudgetRecord, error) {
	return ts.parent.budgetsSince(ctx, ts.q, since)
}

func (ts *txStore) InsertEvent(ctx context.Context, ev engine.ConsumptionEvent) error {
	return ts.parent.insertEvent(ctx, ts.q, ev)
}

func (ts *txStore) GetEvent(ctx context.Context, id engine.EventID) (*engine.ConsumptionEvent, error) {
	return ts.parent.getEvent(ctx, ts.q, id)
}

func (ts *txStore) UpdateEvent(ctx context.Context, ev engine.ConsumptionEvent) error {
	return ts.parent.updateEvent(ctx, ts.q, ev)
}

func (ts *txStore) DeleteEvent(ctx context.Context, id engine.EventID) error {
	return ts.parent.deleteEvent(ctx, ts.q, id)
}

func (ts *txStore) EventsForDay(ctx context.Context, userID engine.UserID, day engine.Day) ([]engine.ConsumptionEvent, error) {
	return ts.parent.eventsForDay(ctx, ts.q, userID, day)
}

// WithTx on a txStore joins the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(engine.Store) error) error {
	return fn(ts)
}

// =============================================================================
// HELPERS
// =============================================================================

// toCentikcal converts a 2-decimal kcal value to an exact integer column value.
func toCentikcal(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCentikcal(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
