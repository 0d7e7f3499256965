package app_test

import (
	"testing"

	"toyoko_watch/internal/app"
	"toyoko_watch/internal/domain"
)

func stdWindow(t *testing.T) domain.StayWindow {
	t.Helper()
	w, err := domain.ParseStayWindow("2026-04-04", "")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func verdictFor(target domain.SearchTarget, codes ...string) domain.TargetVerdict {
	v := domain.TargetVerdict{Target: target, Checked: len(codes)}
	for _, c := range codes {
		v.Available = append(v.Available, domain.Hotel{Code: c})
	}
	return v
}

func TestStateTracker_DedupSequence(t *testing.T) {
	target := domain.SearchTarget{Kind: domain.TargetArea, Value: "463"}
	tr := app.NewStateTracker(stdWindow(t), domain.Occupancy{People: 2, Rooms: 1, Smoking: "all"}, nil)

	v1 := verdictFor(target, "A")
	v2 := verdictFor(target, "A")
	v3 := verdictFor(target, "A", "B")

	steps := []struct {
		v    domain.TargetVerdict
		want bool
	}{
		{v1, true},  // first observation differs from no record
		{v2, false}, // identical set, suppressed
		{v3, true},  // set grew, counts as a change
	}
	for i, s := range steps {
		if got := tr.ShouldNotify(target, s.v, false); got != s.want {
			t.Fatalf("step %d: shouldNotify=%v want %v", i+1, got, s.want)
		}
		tr.Record(target, s.v)
	}
}

func TestStateTracker_AlwaysMode(t *testing.T) {
	target := domain.SearchTarget{Kind: domain.TargetArea, Value: "463"}
	tr := app.NewStateTracker(stdWindow(t), domain.Occupancy{People: 2, Rooms: 1, Smoking: "all"}, nil)

	v := verdictFor(target, "A")
	for i := 0; i < 5; i++ {
		if !tr.ShouldNotify(target, v, true) {
			t.Fatalf("cycle %d: always mode must notify while available", i+1)
		}
		tr.Record(target, v)
	}

	// but never for an unavailable verdict
	if tr.ShouldNotify(target, verdictFor(target), true) {
		t.Fatalf("always mode must not notify without availability")
	}
}

func TestStateTracker_BecameUnavailableIsAChange(t *testing.T) {
	target := domain.SearchTarget{Kind: domain.TargetPrefecture, Value: "13-all"}
	tr := app.NewStateTracker(stdWindow(t), domain.Occupancy{People: 2, Rooms: 1, Smoking: "all"}, nil)

	tr.Record(target, verdictFor(target, "A"))
	if !tr.ShouldNotify(target, verdictFor(target), false) {
		t.Fatalf("available -> unavailable must count as a state change")
	}
}

func TestStateTracker_RecordIdempotent(t *testing.T) {
	target := domain.SearchTarget{Kind: domain.TargetArea, Value: "463"}
	tr := app.NewStateTracker(stdWindow(t), domain.Occupancy{People: 2, Rooms: 1, Smoking: "all"}, nil)

	v := verdictFor(target, "A")
	tr.Record(target, v)
	tr.Record(target, v)
	if tr.ShouldNotify(target, v, false) {
		t.Fatalf("stored signature must be last-write, unchanged by a duplicate record")
	}
}

func TestStateTracker_KeyIncludesQueryParams(t *testing.T) {
	target := domain.SearchTarget{Kind: domain.TargetArea, Value: "463"}
	occ := domain.Occupancy{People: 2, Rooms: 1, Smoking: "all"}

	a := app.NewStateTracker(stdWindow(t), occ, nil)
	a.Record(target, verdictFor(target, "A"))
	if !a.Seen(target) {
		t.Fatalf("record must mark target as seen")
	}

	// a tracker for different occupancy starts clean
	b := app.NewStateTracker(stdWindow(t), domain.Occupancy{People: 4, Rooms: 2, Smoking: "all"}, nil)
	if b.Seen(target) {
		t.Fatalf("fresh tracker must not inherit state")
	}
}
