/*
harm.go - Static oil-type to harm-score lookup

PURPOSE:
  Maps an oil-type identifier to a harm score in [0,100]. This is the single
  source of truth for harm scores: every component that needs one goes
  through HarmTable.Lookup, never through a scattered literal.

LOOKUP CONTRACT:
  Unknown identifiers resolve to a configured default rather than failing.
  Consumption logging must never be blocked by an unrecognized product name;
  the second return value tells callers whether the id was known.

LOADING:
  The built-in reference table covers common cooking oils. Deployments can
  replace it with a JSON file ({"oil_type": score, ...}) loaded once at
  process start. Out-of-range scores in a file are rejected at load time.

SEE ALSO:
  - engine.go: Resolves harm scores during event processing
  - api/handlers.go: Exposes the table for UI lookups
*/
package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// HarmTable is an immutable oil-type to harm-score mapping, loaded once at
// process start and passed by injection.
type HarmTable struct {
	scores       map[OilTypeID]int
	defaultScore int
}

// NewHarmTable builds a table from an explicit mapping. Scores outside
// [0,100] are rejected.
func NewHarmTable(scores map[OilTypeID]int, defaultScore int) (*HarmTable, error) {
	normalized := make(map[OilTypeID]int, len(scores))
	for id, score := range scores {
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("harm score for %q out of range [0,100]: %d", id, score)
		}
		normalized[normalizeOilType(id)] = score
	}
	return &HarmTable{scores: normalized, defaultScore: defaultScore}, nil
}

// LoadHarmTable reads a JSON file of the form {"mustard": 25, ...}.
func LoadHarmTable(path string, defaultScore int) (*HarmTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read harm table: %w", err)
	}
	var raw map[OilTypeID]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse harm table %s: %w", path, err)
	}
	return NewHarmTable(raw, defaultScore)
}

// DefaultHarmTable returns the built-in reference table.
func DefaultHarmTable(defaultScore int) *HarmTable {
	t, err := NewHarmTable(map[OilTypeID]int{
		"olive":       15,
		"mustard":     25,
		"canola":      30,
		"sesame":      30,
		"rice_bran":   30,
		"groundnut":   35,
		"sunflower":   40,
		"safflower":   40,
		"soybean":     45,
		"corn":        45,
		"coconut":     50,
		"cottonseed":  55,
		"ghee":        60,
		"palm":        65,
		"butter":      70,
		"lard":        75,
		"margarine":   85,
		"vanaspati":   90,
	}, defaultScore)
	if err != nil {
		panic(err) // built-in table is validated by tests
	}
	return t
}

// Lookup resolves an oil type to its harm score. Unknown ids return the
// default score with known=false; logging proceeds either way.
func (t *HarmTable) Lookup(id OilTypeID) (score int, known bool) {
	if s, ok := t.scores[normalizeOilType(id)]; ok {
		return s, true
	}
	return t.defaultScore, false
}

// DefaultScore is the score resolved for unknown oil types.
func (t *HarmTable) DefaultScore() int { return t.defaultScore }

// Oils returns the known oil types in sorted order, for display.
func (t *HarmTable) Oils() []OilTypeID {
	ids := make([]OilTypeID, 0, len(t.scores))
	for id := range t.scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// normalizeOilType makes lookups tolerant of product-name casing and
// spacing ("Rice Bran" matches "rice_bran").
func normalizeOilType(id OilTypeID) OilTypeID {
	s := strings.ToLower(strings.TrimSpace(string(id)))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return OilTypeID(s)
}
