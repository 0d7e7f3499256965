package app

import (
	"sort"

	"toyoko_watch/internal/domain"
)

// Aggregate reduces one target's per-hotel query results into a verdict.
// One open room anywhere in the target is enough: the overall availability
// is a logical OR over successful results. A hotel failure never counts as
// "unavailable"; it is carried separately so an all-failed target can be
// told apart from a target with no open rooms.
func Aggregate(target domain.SearchTarget, results []domain.QueryResult) domain.TargetVerdict {
	v := domain.TargetVerdict{Target: target, Checked: len(results)}
	for _, r := range results {
		if r.Err != nil {
			v.Failed = append(v.Failed, domain.HotelFailure{Hotel: r.Hotel, Err: r.Err})
			continue
		}
		if r.Available {
			v.Available = append(v.Available, r.Hotel)
		}
	}
	sort.Slice(v.Available, func(i, j int) bool { return v.Available[i].Code < v.Available[j].Code })
	return v
}
