/*
rolling.go - Rolling score aggregator

PURPOSE:
  Computes trailing averages of the Swastha score and harm index over up to
  the last RollingWindowDays available score records. A simple moving
  average, not exponentially weighted.

DEFAULTS:
  With zero records the aggregator returns the configured bootstrap values
  (reference: sRoll=70, hRoll=40). New users start from neutral history
  instead of being penalized for having none.

WINDOW:
  Reads up to RollingWindowDays most recent records with day <= asOf. The
  budget for a day is created before that day's own consumption has produced
  a score, so in practice asOf's record is absent at creation time; sparse
  history simply averages over fewer days (1..window).

SEE ALSO:
  - budget.go: Consumes the averages
  - store.go: ScoreStore.RecentScores contract
*/
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregator computes rolling score averages from stored history.
type Aggregator struct {
	Scores ScoreStore
	Config Config
}

// RollingAverages returns the trailing means of the Swastha score and harm
// index as of the given day, rounded to 2 decimals, plus how many days of
// history contributed. Zero history returns the configured defaults with
// daysAvailable=0.
func (a *Aggregator) RollingAverages(ctx context.Context, userID UserID, asOf Day) (sRoll, hRoll decimal.Decimal, daysAvailable int, err error) {
	records, err := a.Scores.RecentScores(ctx, userID, asOf, a.Config.RollingWindowDays)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, fmt.Errorf("load score history: %w", err)
	}

	if len(records) == 0 {
		return decimal.NewFromFloat(a.Config.DefaultSwasthaRoll),
			decimal.NewFromFloat(a.Config.DefaultHarmRoll),
			0, nil
	}

	var sSum, hSum decimal.Decimal
	for _, rec := range records {
		sSum = sSum.Add(rec.SwasthaScore)
		hSum = hSum.Add(rec.HarmIndex)
	}

	n := decimal.NewFromInt(int64(len(records)))
	return sSum.Div(n).Round(2), hSum.Div(n).Round(2), len(records), nil
}
