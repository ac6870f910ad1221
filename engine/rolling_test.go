package engine_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swasthyam/oil-engine/engine"
	"github.com/swasthyam/oil-engine/engine/store"
)

func newAggregator() (*engine.Aggregator, *store.Memory) {
	mem := store.NewMemory()
	return &engine.Aggregator{Scores: mem, Config: engine.DefaultConfig()}, mem
}

func scoreOn(t *testing.T, mem *store.Memory, user string, day engine.Day, swastha, harm string) {
	t.Helper()
	err := mem.UpsertScore(context.Background(), engine.ScoreRecord{
		UserID:       engine.UserID(user),
		Day:          day,
		SwasthaScore: decimal.RequireFromString(swastha),
		HarmIndex:    decimal.RequireFromString(harm),
	})
	require.NoError(t, err)
}

func TestRollingAverages_NoHistory_UsesDefaults(t *testing.T) {
	// A brand-new user gets the neutral defaults, not zeros.
	agg, _ := newAggregator()

	sRoll, hRoll, days, err := agg.RollingAverages(context.Background(), "user-1", engine.NewDay(2026, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, 0, days)
	assert.True(t, sRoll.Equal(decimal.NewFromInt(70)), "sRoll = %s", sRoll)
	assert.True(t, hRoll.Equal(decimal.NewFromInt(40)), "hRoll = %s", hRoll)
}

func TestRollingAverages_PartialHistory_AveragesWhatExists(t *testing.T) {
	// Three days of history: the mean is over three, not padded to seven.
	agg, mem := newAggregator()
	asOf := engine.NewDay(2026, 3, 10)

	scoreOn(t, mem, "user-1", asOf.AddDays(-1), "80", "30")
	scoreOn(t, mem, "user-1", asOf.AddDays(-2), "70", "40")
	scoreOn(t, mem, "user-1", asOf.AddDays(-3), "60", "50")

	sRoll, hRoll, days, err := agg.RollingAverages(context.Background(), "user-1", asOf)
	require.NoError(t, err)

	assert.Equal(t, 3, days)
	assert.True(t, sRoll.Equal(decimal.NewFromInt(70)), "sRoll = %s", sRoll)
	assert.True(t, hRoll.Equal(decimal.NewFromInt(40)), "hRoll = %s", hRoll)
}

func TestRollingAverages_WindowCapsAtSevenDays(t *testing.T) {
	// Ten days of history; only the seven most recent count. Days 1..7
	// before asOf score 100, days 8..10 score 0 and must be ignored.
	agg, mem := newAggregator()
	asOf := engine.NewDay(2026, 3, 20)

	for i := 1; i <= 7; i++ {
		scoreOn(t, mem, "user-1", asOf.AddDays(-i), "100", "20")
	}
	for i := 8; i <= 10; i++ {
		scoreOn(t, mem, "user-1", asOf.AddDays(-i), "0", "100")
	}

	sRoll, hRoll, days, err := agg.RollingAverages(context.Background(), "user-1", asOf)
	require.NoError(t, err)

	assert.Equal(t, 7, days)
	assert.True(t, sRoll.Equal(decimal.NewFromInt(100)), "sRoll = %s", sRoll)
	assert.True(t, hRoll.Equal(decimal.NewFromInt(20)), "hRoll = %s", hRoll)
}

func TestRollingAverages_FutureScoresExcluded(t *testing.T) {
	// A score recorded after asOf must not leak into the window.
	agg, mem := newAggregator()
	asOf := engine.NewDay(2026, 3, 10)

	scoreOn(t, mem, "user-1", asOf.AddDays(-1), "50", "50")
	scoreOn(t, mem, "user-1", asOf.AddDays(3), "100", "0")

	sRoll, hRoll, days, err := agg.RollingAverages(context.Background(), "user-1", asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, days)
	assert.True(t, sRoll.Equal(decimal.NewFromInt(50)), "sRoll = %s", sRoll)
	assert.True(t, hRoll.Equal(decimal.NewFromInt(50)), "hRoll = %s", hRoll)
}

func TestRollingAverages_MeanRoundsToTwoDecimals(t *testing.T) {
	agg, mem := newAggregator()
	asOf := engine.NewDay(2026, 3, 10)

	// (70 + 71 + 71) / 3 = 70.666... -> 70.67
	scoreOn(t, mem, "user-1", asOf.AddDays(-1), "70", "10")
	scoreOn(t, mem, "user-1", asOf.AddDays(-2), "71", "20")
	scoreOn(t, mem, "user-1", asOf.AddDays(-3), "71", "30")

	sRoll, hRoll, _, err := agg.RollingAverages(context.Background(), "user-1", asOf)
	require.NoError(t, err)

	assert.True(t, sRoll.Equal(decimal.RequireFromString("70.67")), "sRoll = %s", sRoll)
	assert.True(t, hRoll.Equal(decimal.NewFromInt(20)), "hRoll = %s", hRoll)
}

func TestRollingAverages_IsolatedPerUser(t *testing.T) {
	agg, mem := newAggregator()
	asOf := engine.NewDay(2026, 3, 10)

	scoreOn(t, mem, "user-1", asOf.AddDays(-1), "90", "10")

	// user-2 has no history and falls back to defaults
	sRoll, hRoll, days, err := agg.RollingAverages(context.Background(), "user-2", asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
	assert.True(t, sRoll.Equal(decimal.NewFromInt(70)))
	assert.True(t, hRoll.Equal(decimal.NewFromInt(40)))
}
