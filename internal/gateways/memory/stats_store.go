package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
)

func (s *MaterialStore) StatusCounts(_ context.Context, holder string) (map[materials.Status]int64, error) {
	counts := map[materials.Status]int64{
		materials.StatusIdle:  0,
		materials.StatusInUse: 0,
	}
	for _, m := range s.all() {
		if holder != "" && m.Holder != holder {
			continue
		}
		counts[m.Status]++
	}
	return counts, nil
}

func (s *MaterialStore) CategoryCounts(_ context.Context, status materials.Status, holder string, limit int) ([]materials.CategoryCount, error) {
	counts := make(map[string]int64)
	for _, m := range s.all() {
		if status != "" && m.Status != status {
			continue
		}
		if holder != "" && m.Holder != holder {
			continue
		}
		counts[m.Category]++
	}

	out := make([]materials.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, materials.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DailyUsage buckets claims by UTC date.
func (s *MaterialStore) DailyUsage(_ context.Context, holder string, from, to time.Time) ([]materials.DailyCount, error) {
	counts := make(map[string]int64)
	for _, m := range s.all() {
		if m.Status != materials.StatusInUse || !inRange(m.ClaimedAt, from, to) {
			continue
		}
		if holder != "" && m.Holder != holder {
			continue
		}
		counts[m.ClaimedAt.UTC().Format(time.DateOnly)]++
	}

	out := make([]materials.DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, materials.DailyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MaterialStore) TopHolders(_ context.Context, from, to time.Time, limit int) ([]materials.HolderCount, error) {
	counts := make(map[string]int64)
	for _, m := range s.all() {
		if m.Status != materials.StatusInUse || !inRange(m.ClaimedAt, from, to) {
			continue
		}
		counts[m.Holder]++
	}

	out := make([]materials.HolderCount, 0, len(counts))
	for h, n := range counts {
		out = append(out, materials.HolderCount{Holder: h, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Holder < out[j].Holder
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	if t.IsZero() {
		return false
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
