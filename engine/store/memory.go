// Package store provides an in-memory engine.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/swasthyam/oil-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements engine.Store with a single mutex standing in for the
// database's atomicity guarantees: inserts check uniqueness and deltas are
// applied under the same lock, mirroring the unique-index and atomic-update
// behavior of the SQLite store.
type Memory struct {
	mu       sync.RWMutex
	scores   map[userDay]engine.ScoreRecord
	profiles map[engine.UserID]engine.UserProfile
	budgets  map[userDay]engine.BudgetRecord
	events   map[engine.EventID]engine.ConsumptionEvent
}

type userDay struct {
	User engine.UserID
	Day  string
}

func NewMemory() *Memory {
	return &Memory{
		scores:   make(map[userDay]engine.ScoreRecord),
		profiles: make(map[engine.UserID]engine.UserProfile),
		budgets:  make(map[userDay]engine.BudgetRecord),
		events:   make(map[engine.EventID]engine.ConsumptionEvent),
	}
}

func budgetKey(userID engine.UserID, day engine.Day) userDay {
	return userDay{User: userID, Day: day.String()}
}

// =============================================================================
// SCORE STORE
// =============================================================================

func (m *Memory) UpsertScore(_ context.Context, rec engine.ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[budgetKey(rec.UserID, rec.Day)] = rec
	return nil
}

func (m *Memory) RecentScores(_ context.Context, userID engine.UserID, asOf engine.Day, limit int) ([]engine.ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recentScoresLocked(userID, asOf, limit), nil
}

func (m *Memory) recentScoresLocked(userID engine.UserID, asOf engine.Day, limit int) []engine.ScoreRecord {
	var records []engine.ScoreRecord
	for _, rec := range m.scores {
		if rec.UserID == userID && !rec.Day.After(asOf) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Day.Before(records[j].Day) })
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (m *Memory) SaveProfile(_ context.Context, p engine.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, userID engine.UserID) (*engine.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[userID]; ok {
		return &p, nil
	}
	return nil, nil
}

// =============================================================================
// BUDGET STORE
// =============================================================================

func (m *Memory) GetBudget(_ context.Context, userID engine.UserID, day engine.Day) (*engine.BudgetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.budgets[budgetKey(userID, day)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) InsertBudget(_ context.Context, rec engine.BudgetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBudgetLocked(rec)
}

func (m *Memory) insertBudgetLocked(rec engine.BudgetRecord) error {
	k := budgetKey(rec.UserID, rec.Day)
	if _, exists := m.budgets[k]; exists {
		return engine.ErrDuplicateBudget
	}
	m.budgets[k] = rec
	return nil
}

func (m *Memory) ApplyDelta(_ context.Context, userID engine.UserID, day engine.Day, deltaKcal decimal.Decimal, deltaEvents int) (*engine.BudgetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyDeltaLocked(userID, day, deltaKcal, deltaEvents)
}

func (m *Memory) applyDeltaLocked(userID engine.UserID, day engine.Day, deltaKcal decimal.Decimal, deltaEvents int) (*engine.BudgetRecord, error) {
	k := budgetKey(userID, day)
	rec, ok := m.budgets[k]
	if !ok {
		return nil, engine.ErrBudgetNotFound
	}
	rec.CumulativeEffectiveKcal = rec.CumulativeEffectiveKcal.Add(deltaKcal)
	rec.EventsCount += deltaEvents
	m.budgets[k] = rec
	return &rec, nil
}

func (m *Memory) BudgetsSince(_ context.Context, since engine.Day) ([]engine.BudgetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []engine.BudgetRecord
	for _, rec := range m.budgets {
		if !rec.Day.Before(since) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Day.Equal(records[j].Day) {
			return records[i].Day.Before(records[j].Day)
		}
		return records[i].UserID < records[j].UserID
	})
	return records, nil
}

// =============================================================================
// EVENT STORE
// =============================================================================

func (m *Memory) InsertEvent(_ context.Context, ev engine.ConsumptionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id engine.EventID) (*engine.ConsumptionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEventLocked(id), nil
}

func (m *Memory) getEventLocked(id engine.EventID) *engine.ConsumptionEvent {
	if ev, ok := m.events[id]; ok {
		return &ev
	}
	return nil
}

func (m *Memory) UpdateEvent(_ context.Context, ev engine.ConsumptionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateEventLocked(ev)
}

func (m *Memory) updateEventLocked(ev engine.ConsumptionEvent) error {
	if _, ok := m.events[ev.ID]; !ok {
		return engine.ErrEventNotFound
	}
	m.events[ev.ID] = ev
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id engine.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEventLocked(id)
}

func (m *Memory) deleteEventLocked(id engine.EventID) error {
	if _, ok := m.events[id]; !ok {
		return engine.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) EventsForDay(_ context.Context, userID engine.UserID, day engine.Day) ([]engine.ConsumptionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventsForDayLocked(userID, day), nil
}

func (m *Memory) eventsForDayLocked(userID engine.UserID, day engine.Day) []engine.ConsumptionEvent {
	var events []engine.ConsumptionEvent
	for _, ev := range m.events {
		if ev.UserID == userID && ev.Day.Equal(day) {
			events = append(events, ev)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ConsumedAt.Before(events[j].ConsumedAt) })
	return events
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore on error
// =============================================================================

// WithTx executes fn under the store lock. For the memory store this is
// simulated with a snapshot that is restored if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(engine.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	scores   map[userDay]engine.ScoreRecord
	profiles map[engine.UserID]engine.UserProfile
	budgets  map[userDay]engine.BudgetRecord
	events   map[engine.EventID]engine.ConsumptionEvent
}

func (m *Memory) snapshot() memorySnapshot {
	snap := memorySnapshot{
		scores:   make(map[userDay]engine.ScoreRecord, len(m.scores)),
		profiles: make(map[engine.UserID]engine.UserProfile, len(m.profiles)),
		budgets:  make(map[userDay]engine.BudgetRecord, len(m.budgets)),
		events:   make(map[engine.EventID]engine.ConsumptionEvent, len(m.events)),
	}
	for k, v := range m.scores {
		snap.scores[k] = v
	}
	for k, v := range m.profiles {
		snap.profiles[k] = v
	}
	for k, v := range m.budgets {
		snap.budgets[k] = v
	}
	for k, v := range m.events {
		snap.events[k] = v
	}
	return snap
}

func (m *Memory) restore(snap memorySnapshot) {
	m.scores = snap.scores
	m.profiles = snap.profiles
	m.budgets = snap.budgets
	m.events = snap.events
}

// txView runs against the already-locked parent; its methods must not
// re-acquire the parent's mutex.
type txView struct {
	parent *Memory
}

func (tv *txView) UpsertScore(_ context.Context, rec engine.ScoreRecord) error {
	tv.parent.scores[budgetKey(rec.UserID, rec.Day)] = rec
	return nil
}

func (tv *txView) RecentScores(_ context.Context, userID engine.UserID, asOf engine.Day, limit int) ([]engine.ScoreRecord, error) {
	return tv.parent.recentScoresLocked(userID, asOf, limit), nil
}

func (tv *txView) SaveProfile(_ context.Context, p engine.UserProfile) error {
	tv.parent.profiles[p.UserID] = p
	return nil
}

func (tv *txView) GetProfile(_ context.Context, userID engine.UserID) (*engine.UserProfile, error) {
	if p, ok := tv.parent.profiles[userID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (tv *txView) GetBudget(_ context.Context, userID engine.UserID, day engine.Day) (*engine.BudgetRecord, error) {
	if rec, ok := tv.parent.budgets[budgetKey(userID, day)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (tv *txView) InsertBudget(_ context.Context, rec engine.BudgetRecord) error {
	return tv.parent.insertBudgetLocked(rec)
}

func (tv *txView) ApplyDelta(_ context.Context, userID engine.UserID, day engine.Day, deltaKcal decimal.Decimal, deltaEvents int) (*engine.BudgetRecord, error) {
	return tv.parent.applyDeltaLocked(userID, day, deltaKcal, deltaEvents)
}

func (tv *txView) BudgetsSince(ctx context.Context, since engine.Day) ([]engine.BudgetRecord, error) {
	var records []engine.BudgetRecord
	for _, rec := range tv.parent.budgets {
		if !rec.Day.Before(since) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (tv *txView) InsertEvent(_ context.Context, ev engine.ConsumptionEvent) error {
	tv.parent.events[ev.ID] = ev
	return nil
}

func (tv *txView) GetEvent(_ context.Context, id engine.EventID) (*engine.ConsumptionEvent, error) {
	return tv.parent.getEventLocked(id), nil
}

func (tv *txView) UpdateEvent(_ context.Context, ev engine.ConsumptionEvent) error {
	return tv.parent.updateEventLocked(ev)
}

func (tv *txView) DeleteEvent(_ context.Context, id engine.EventID) error {
	return tv.parent.deleteEventLocked(id)
}

func (tv *txView) EventsForDay(_ context.Context, userID engine.UserID, day engine.Day) ([]engine.ConsumptionEvent, error) {
	return tv.parent.eventsForDayLocked(userID, day), nil
}

// WithTx on a view joins the enclosing transaction.
func (tv *txView) WithTx(_ context.Context, fn func(engine.Store) error) error {
	return fn(tv)
}
