// Package cycles aggregates parsed statement periods into the set of
// accounting cycles a batch needs, and creates confirmed cycles lazily and
// idempotently.
package cycles

import (
	"context"
	"fmt"
	"sort"

	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
)

// Store is the cycle persistence boundary. Create must treat a
// duplicate-key outcome as "already exists".
type Store interface {
	Find(ctx context.Context, monthYear string) (*models.StatementCycle, error)
	Create(ctx context.Context, monthYear string) (*models.StatementCycle, error)
}

// Resolution partitions the needed cycle keys by whether they already
// exist. Both lists are presented to the user with per-cycle inclusion
// toggles, all included by default.
type Resolution struct {
	Existing []string `json:"existing"`
	ToCreate []string `json:"to_create"`
}

// Needed returns all keys in the resolution, sorted.
func (r Resolution) Needed() []string {
	keys := append(append([]string{}, r.Existing...), r.ToCreate...)
	sort.Strings(keys)
	return keys
}

// NeededKeys unions the expanded months of every successfully parsed
// period into a sorted "YYYY-MM" key set. An empty union falls back to the
// caller-supplied target month/year.
func NeededKeys(ranges []period.Range, fallback period.MonthYear) []string {
	set := make(map[string]bool)
	for _, r := range ranges {
		for _, my := range period.Expand(r) {
			set[my.Key()] = true
		}
	}
	if len(set) == 0 {
		if months := period.Expand(period.Range{
			StartMonth: fallback.Month, StartYear: fallback.Year,
			EndMonth: fallback.Month, EndYear: fallback.Year,
		}); len(months) > 0 {
			set[fallback.Key()] = true
		}
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve partitions the needed keys into existing and to-create.
func Resolve(ctx context.Context, store Store, needed []string) (Resolution, error) {
	var res Resolution
	for _, key := range needed {
		cycle, err := store.Find(ctx, key)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolve cycle %q: %w", key, err)
		}
		if cycle != nil {
			res.Existing = append(res.Existing, key)
		} else {
			res.ToCreate = append(res.ToCreate, key)
		}
	}
	return res, nil
}

// Confirm creates the confirmed cycles that are still missing and returns
// the full confirmed key→cycle mapping. Deselected keys are simply not in
// the input: deselection is a hard exclusion, and documents covered only
// by deselected cycles are later skipped at persistence.
func Confirm(ctx context.Context, store Store, confirmed []string) (map[string]*models.StatementCycle, error) {
	out := make(map[string]*models.StatementCycle, len(confirmed))
	for _, key := range confirmed {
		cycle, err := store.Find(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("confirm cycle %q: %w", key, err)
		}
		if cycle == nil {
			cycle, err = store.Create(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("create cycle %q: %w", key, err)
			}
		}
		out[key] = cycle
	}
	return out, nil
}
