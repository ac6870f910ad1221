package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swasthyam/oil-engine/engine"
	"github.com/swasthyam/oil-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testBudget(user string, day engine.Day) engine.BudgetRecord {
	return engine.BudgetRecord{
		UserID: engine.UserID(user),
		Day:    day,
		BudgetFields: engine.BudgetFields{
			TDEE:      decimal.RequireFromString("2250"),
			SRoll:     decimal.RequireFromString("70"),
			HRoll:     decimal.RequireFromString("40"),
			VBase:     decimal.RequireFromString("140.6"),
			HA:        decimal.RequireFromString("0.6"),
			VAdj:      decimal.RequireFromString("135"),
			GoalKcal:  decimal.RequireFromString("135"),
			GoalGrams: decimal.RequireFromString("15"),
			GoalMl:    decimal.RequireFromString("16.7"),
		},
		CumulativeEffectiveKcal: decimal.Zero,
		CreatedAt:               time.Now().UTC(),
	}
}

func testEvent(id, user string, day engine.Day) engine.ConsumptionEvent {
	return engine.ConsumptionEvent{
		ID:            engine.EventID(id),
		UserID:        engine.UserID(user),
		Day:           day,
		OilTypeID:     "olive",
		Grams:         12,
		Quantity:      1,
		HarmScore:     15,
		RawKcal:       decimal.RequireFromString("6.75"),
		Multiplier:    decimal.RequireFromString("1.007"),
		EffectiveKcal: decimal.RequireFromString("6.8"),
		MealType:      "lunch",
		ConsumedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		CreatedAt:     time.Now().UTC(),
	}
}

var day1 = engine.NewDay(2026, 3, 10)

// =============================================================================
// BUDGET TESTS
// =============================================================================

func TestBudget_InsertAndGetRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := testBudget("user-1", day1)
	require.NoError(t, st.InsertBudget(ctx, rec))

	got, err := st.GetBudget(ctx, "user-1", day1)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, rec.UserID, got.UserID)
	assert.True(t, got.Day.Equal(day1))
	assert.True(t, got.GoalKcal.Equal(rec.GoalKcal), "goalKcal = %s", got.GoalKcal)
	assert.True(t, got.GoalMl.Equal(rec.GoalMl))
	assert.True(t, got.CumulativeEffectiveKcal.IsZero())
	assert.Equal(t, 0, got.EventsCount)
}

func TestBudget_GetMissing_ReturnsNil(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetBudget(context.Background(), "nobody", day1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBudget_DuplicateInsert_ReturnsSentinel(t *testing.T) {
	// The (user_id, day) primary key is the creation-race arbiter.
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1)))

	err := st.InsertBudget(ctx, testBudget("user-1", day1))
	assert.ErrorIs(t, err, engine.ErrDuplicateBudget)

	// Different day or user is fine
	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1.AddDays(1))))
	require.NoError(t, st.InsertBudget(ctx, testBudget("user-2", day1)))
}

func TestBudget_ApplyDelta(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1)))

	rec, err := st.ApplyDelta(ctx, "user-1", day1, decimal.RequireFromString("8.05"), 1)
	require.NoError(t, err)
	assert.True(t, rec.CumulativeEffectiveKcal.Equal(decimal.RequireFromString("8.05")))
	assert.Equal(t, 1, rec.EventsCount)

	// Negative delta returns to zero exactly
	rec, err = st.ApplyDelta(ctx, "user-1", day1, decimal.RequireFromString("-8.05"), -1)
	require.NoError(t, err)
	assert.True(t, rec.CumulativeEffectiveKcal.IsZero(), "counter = %s", rec.CumulativeEffectiveKcal)
	assert.Equal(t, 0, rec.EventsCount)
}

func TestBudget_ApplyDelta_MissingRecord(t *testing.T) {
	st := newTestStore(t)

	_, err := st.ApplyDelta(context.Background(), "nobody", day1, decimal.NewFromInt(1), 1)
	assert.ErrorIs(t, err, engine.ErrBudgetNotFound)
}

func TestBudget_ApplyDelta_ConcurrentIncrementsAllLand(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1)))

	const n = 25
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.ApplyDelta(ctx, "user-1", day1, decimal.RequireFromString("2.5"), 1)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "goroutine %d", i)
	}

	rec, err := st.GetBudget(ctx, "user-1", day1)
	require.NoError(t, err)
	assert.Equal(t, n, rec.EventsCount)
	assert.True(t, rec.CumulativeEffectiveKcal.Equal(decimal.RequireFromString("62.5")),
		"counter = %s", rec.CumulativeEffectiveKcal)
}

func TestBudget_BudgetsSince(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1.AddDays(-10))))
	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1.AddDays(-2))))
	require.NoError(t, st.InsertBudget(ctx, testBudget("user-2", day1)))

	records, err := st.BudgetsSince(ctx, day1.AddDays(-7))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Day.Before(records[1].Day) || records[0].Day.Equal(records[1].Day))
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestEvent_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ev := testEvent("ev-1", "user-1", day1)
	ev.GroupID = "family-7"
	ev.LoggedBy = "user-2"
	require.NoError(t, st.InsertEvent(ctx, ev))

	got, err := st.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, ev.OilTypeID, got.OilTypeID)
	assert.Equal(t, ev.HarmScore, got.HarmScore)
	assert.True(t, got.EffectiveKcal.Equal(ev.EffectiveKcal))
	assert.Equal(t, engine.GroupID("family-7"), got.GroupID)
	assert.Equal(t, engine.UserID("user-2"), got.LoggedBy)
	assert.True(t, got.ConsumedAt.Equal(ev.ConsumedAt))
}

func TestEvent_OptionalFieldsStayEmpty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertEvent(ctx, testEvent("ev-1", "user-1", day1)))

	got, err := st.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Empty(t, got.GroupID)
	assert.Empty(t, got.LoggedBy)
}

func TestEvent_UpdateAndDelete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ev := testEvent("ev-1", "user-1", day1)
	require.NoError(t, st.InsertEvent(ctx, ev))

	ev.Grams = 20
	ev.EffectiveKcal = decimal.RequireFromString("11.33")
	require.NoError(t, st.UpdateEvent(ctx, ev))

	got, err := st.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Grams)
	assert.True(t, got.EffectiveKcal.Equal(ev.EffectiveKcal))

	require.NoError(t, st.DeleteEvent(ctx, "ev-1"))

	got, err = st.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, st.DeleteEvent(ctx, "ev-1"), engine.ErrEventNotFound)
	assert.ErrorIs(t, st.UpdateEvent(ctx, ev), engine.ErrEventNotFound)
}

func TestEvent_EventsForDay_FiltersAndOrders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	late := testEvent("ev-late", "user-1", day1)
	late.ConsumedAt = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	early := testEvent("ev-early", "user-1", day1)
	early.ConsumedAt = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	otherDay := testEvent("ev-other", "user-1", day1.AddDays(1))
	otherUser := testEvent("ev-user2", "user-2", day1)

	for _, ev := range []engine.ConsumptionEvent{late, early, otherDay, otherUser} {
		require.NoError(t, st.InsertEvent(ctx, ev))
	}

	events, err := st.EventsForDay(ctx, "user-1", day1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, engine.EventID("ev-early"), events[0].ID)
	assert.Equal(t, engine.EventID("ev-late"), events[1].ID)
}

// =============================================================================
// SCORE / PROFILE TESTS
// =============================================================================

func TestScores_UpsertOverwrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := engine.ScoreRecord{
		UserID:       "user-1",
		Day:          day1,
		SwasthaScore: decimal.NewFromInt(60),
		HarmIndex:    decimal.NewFromInt(50),
	}
	require.NoError(t, st.UpsertScore(ctx, rec))

	rec.SwasthaScore = decimal.NewFromInt(85)
	require.NoError(t, st.UpsertScore(ctx, rec))

	scores, err := st.RecentScores(ctx, "user-1", day1, 7)
	require.NoError(t, err)
	require.Len(t, scores, 1, "upsert must not create a second row")
	assert.True(t, scores[0].SwasthaScore.Equal(decimal.NewFromInt(85)))
}

func TestScores_RecentScores_WindowAndOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		require.NoError(t, st.UpsertScore(ctx, engine.ScoreRecord{
			UserID:       "user-1",
			Day:          day1.AddDays(-i),
			SwasthaScore: decimal.NewFromInt(int64(i)),
			HarmIndex:    decimal.NewFromInt(40),
		}))
	}

	scores, err := st.RecentScores(ctx, "user-1", day1, 7)
	require.NoError(t, err)
	require.Len(t, scores, 7)

	// Ascending by day: oldest of the window first
	assert.True(t, scores[0].Day.Before(scores[6].Day))
	// The 7 most recent are days -1..-7, so swastha values 7..1
	assert.True(t, scores[0].SwasthaScore.Equal(decimal.NewFromInt(7)))
	assert.True(t, scores[6].SwasthaScore.Equal(decimal.NewFromInt(1)))
}

func TestProfile_SaveAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := engine.UserProfile{UserID: "user-1", BMR: 1500, ActivityFactor: 1.5}
	require.NoError(t, st.SaveProfile(ctx, p))

	got, err := st.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1500.0, got.BMR)

	// Replace
	p.BMR = 1600
	require.NoError(t, st.SaveProfile(ctx, p))
	got, err = st.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1600.0, got.BMR)

	// Missing is nil, not an error
	got, err = st.GetProfile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_CommitCouplesEventAndDelta(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1)))

	err := st.WithTx(ctx, func(s engine.Store) error {
		if err := s.InsertEvent(ctx, testEvent("ev-1", "user-1", day1)); err != nil {
			return err
		}
		_, err := s.ApplyDelta(ctx, "user-1", day1, decimal.RequireFromString("6.8"), 1)
		return err
	})
	require.NoError(t, err)

	rec, err := st.GetBudget(ctx, "user-1", day1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.EventsCount)

	ev, err := st.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.NotNil(t, ev)
}

func TestWithTx_ErrorRollsBackBothWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1)))

	err := st.WithTx(ctx, func(s engine.Store) error {
		if err := s.InsertEvent(ctx, testEvent("ev-1", "user-1", day1)); err != nil {
			return err
		}
		if _, err := s.ApplyDelta(ctx, "user-1", day1, decimal.RequireFromString("6.8"), 1); err != nil {
			return err
		}
		// Missing budget for another user aborts the whole transaction
		_, err := s.ApplyDelta(ctx, "ghost", day1, decimal.NewFromInt(1), 1)
		return err
	})
	require.ErrorIs(t, err, engine.ErrBudgetNotFound)

	// Neither the event nor the delta survived
	ev, err := st.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Nil(t, ev)

	rec, err := st.GetBudget(ctx, "user-1", day1)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.EventsCount)
	assert.True(t, rec.CumulativeEffectiveKcal.IsZero())
}

func TestWithTx_DuplicateBudgetInsideTx(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudget(ctx, testBudget("user-1", day1)))

	err := st.WithTx(ctx, func(s engine.Store) error {
		return s.InsertBudget(ctx, testBudget("user-1", day1))
	})
	assert.ErrorIs(t, err, engine.ErrDuplicateBudget)
}
