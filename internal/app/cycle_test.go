package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"toyoko_watch/internal/app"
	"toyoko_watch/internal/domain"
)

// ---- fakes ----

type fakeClient struct {
	hotels    map[string][]domain.Hotel // keyed by target.Key()
	labels    map[string]string
	searchErr map[string]error
	available map[string]bool  // keyed by hotel code
	queryErr  map[string]error // keyed by hotel code
	queried   []string
}

func (f *fakeClient) SearchHotels(ctx context.Context, t domain.SearchTarget, w domain.StayWindow, occ domain.Occupancy) ([]domain.Hotel, string, error) {
	if err := f.searchErr[t.Key()]; err != nil {
		return nil, "", err
	}
	return f.hotels[t.Key()], f.labels[t.Key()], nil
}

func (f *fakeClient) Availability(ctx context.Context, h domain.Hotel, w domain.StayWindow, occ domain.Occupancy) (domain.QueryResult, error) {
	f.queried = append(f.queried, h.Code)
	if err := f.queryErr[h.Code]; err != nil {
		return domain.QueryResult{}, err
	}
	return domain.QueryResult{Hotel: h, Available: f.available[h.Code]}, nil
}

type fakeChannel struct {
	name string
	err  error
	sent []string
}

func (c *fakeChannel) Name() string    { return c.name }
func (c *fakeChannel) IsEnabled() bool { return true }
func (c *fakeChannel) Send(ctx context.Context, text string) error {
	c.sent = append(c.sent, text)
	return c.err
}

func area(v string) domain.SearchTarget {
	return domain.SearchTarget{Kind: domain.TargetArea, Value: v}
}

func newOrchestrator(t *testing.T, client *fakeClient, ch *fakeChannel, targets []domain.SearchTarget, allow []string, policy app.Policy) *app.Orchestrator {
	t.Helper()
	w := stdWindow(t)
	occ := domain.Occupancy{People: 2, Rooms: 1, Smoking: "all"}
	o := app.NewOrchestrator(
		client,
		app.NewResolver(client, allow),
		app.NewStateTracker(w, occ, allow),
		app.NewDispatcher([]domain.Channel{ch}),
		targets, w, occ, policy,
	)
	o.SetSleep(func(context.Context, time.Duration) {})
	return o
}

// ---- tests ----

func TestRunCycle_OneOpenHotelIsEnough(t *testing.T) {
	client := &fakeClient{
		hotels: map[string][]domain.Hotel{
			"area:463": {{Code: "H1"}, {Code: "H2", Name: "Tokyo Nihombashi"}, {Code: "H3"}},
		},
		available: map[string]bool{"H2": true},
		queryErr:  map[string]error{"H3": errors.New("boom")},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil, app.Policy{AlwaysNotify: true})

	sums := o.RunCycle(context.Background())
	if len(sums) != 1 {
		t.Fatalf("summaries: %d", len(sums))
	}
	s := sums[0]
	if s.Checked != 3 || len(s.Available) != 1 || s.Failed != 1 || !s.Notified {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0], "Tokyo Nihombashi (H2)") {
		t.Fatalf("unexpected notifications: %v", ch.sent)
	}
	if !strings.Contains(ch.sent[0], "2026-04-04") {
		t.Fatalf("notification must show the local check-in date: %s", ch.sent[0])
	}
}

func TestRunCycle_AllQueriesFailedNotifiesError(t *testing.T) {
	client := &fakeClient{
		hotels: map[string][]domain.Hotel{"area:463": {{Code: "H1"}, {Code: "H2"}}},
		queryErr: map[string]error{
			"H1": errors.New("remote 503"),
			"H2": errors.New("remote 503"),
		},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil, app.Policy{AlwaysNotify: true})

	sums := o.RunCycle(context.Background())
	if sums[0].Error == "" || sums[0].Failed != 2 {
		t.Fatalf("expected all-failed summary, got %+v", sums[0])
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0], "[ERROR]") {
		t.Fatalf("expected one error notification, got %v", ch.sent)
	}
}

func TestRunCycle_PartialFailureIsolation(t *testing.T) {
	client := &fakeClient{
		hotels: map[string][]domain.Hotel{
			"area:1": {{Code: "A1"}},
			"area:3": {{Code: "C1"}},
		},
		searchErr: map[string]error{"area:2": errors.New("listing down")},
		available: map[string]bool{"A1": true, "C1": true},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch,
		[]domain.SearchTarget{area("1"), area("2"), area("3")}, nil, app.Policy{AlwaysNotify: true})

	sums := o.RunCycle(context.Background())
	if len(sums) != 3 {
		t.Fatalf("all targets must be processed, got %d", len(sums))
	}
	if sums[1].Error == "" {
		t.Fatalf("target 2 must carry its resolution error")
	}
	if sums[0].Checked != 1 || sums[2].Checked != 1 {
		t.Fatalf("targets 1 and 3 must still be queried: %+v", sums)
	}
	// one availability alert each for targets 1 and 3, one error for target 2
	if len(ch.sent) != 3 {
		t.Fatalf("expected 3 notifications, got %d: %v", len(ch.sent), ch.sent)
	}
}

func TestRunCycle_AllowListRestrictsQueries(t *testing.T) {
	client := &fakeClient{
		hotels:    map[string][]domain.Hotel{"area:463": {{Code: "H1"}, {Code: "H2"}, {Code: "H3"}}},
		available: map[string]bool{"H2": true},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, []string{"H2"}, app.Policy{AlwaysNotify: true})

	sums := o.RunCycle(context.Background())
	if len(client.queried) != 1 || client.queried[0] != "H2" {
		t.Fatalf("only the allow-listed hotel may be queried, got %v", client.queried)
	}
	if sums[0].Checked != 1 || len(sums[0].Available) != 1 {
		t.Fatalf("verdict must reflect only H2: %+v", sums[0])
	}
}

func TestRunCycle_AlwaysModeRepeats(t *testing.T) {
	client := &fakeClient{
		hotels:    map[string][]domain.Hotel{"area:463": {{Code: "H1"}}},
		available: map[string]bool{"H1": true},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil, app.Policy{AlwaysNotify: true})

	for i := 0; i < 5; i++ {
		o.RunCycle(context.Background())
	}
	if len(ch.sent) != 5 {
		t.Fatalf("always mode must notify every cycle, got %d", len(ch.sent))
	}
}

func TestRunCycle_DedupMode(t *testing.T) {
	client := &fakeClient{
		hotels:    map[string][]domain.Hotel{"area:463": {{Code: "A"}, {Code: "B"}}},
		available: map[string]bool{"A": true},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil,
		app.Policy{NotifyOnFirstRun: true, NotifyOnEmpty: true})

	o.RunCycle(context.Background()) // {A}: first observation, notifies
	o.RunCycle(context.Background()) // {A}: unchanged, silent
	client.available["B"] = true
	o.RunCycle(context.Background()) // {A,B}: set changed, notifies

	if len(ch.sent) != 2 {
		t.Fatalf("dedup mode: want 2 notifications, got %d: %v", len(ch.sent), ch.sent)
	}
}

func TestRunCycle_FirstRunSeedsSilently(t *testing.T) {
	client := &fakeClient{
		hotels:    map[string][]domain.Hotel{"area:463": {{Code: "A"}}},
		available: map[string]bool{"A": true},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil,
		app.Policy{NotifyOnEmpty: true}) // NotifyOnFirstRun off

	o.RunCycle(context.Background())
	if len(ch.sent) != 0 {
		t.Fatalf("first run must only seed state, got %v", ch.sent)
	}

	client.available["A"] = false
	o.RunCycle(context.Background()) // became unavailable: a change
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0], "目前無空房") {
		t.Fatalf("expected one no-rooms alert, got %v", ch.sent)
	}
}

func TestRunCycle_NotifyOnEmptyDisabled(t *testing.T) {
	client := &fakeClient{
		hotels:    map[string][]domain.Hotel{"area:463": {{Code: "A"}}},
		available: map[string]bool{"A": true},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil,
		app.Policy{NotifyOnFirstRun: true}) // NotifyOnEmpty off

	o.RunCycle(context.Background()) // {A}: notifies
	client.available["A"] = false
	o.RunCycle(context.Background()) // became empty: suppressed

	if len(ch.sent) != 1 {
		t.Fatalf("empty transition must be suppressed, got %v", ch.sent)
	}
}

func TestRunCycle_InterTargetDelay(t *testing.T) {
	client := &fakeClient{
		hotels: map[string][]domain.Hotel{
			"area:1": {{Code: "A1"}},
			"area:2": {{Code: "B1"}},
		},
	}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch,
		[]domain.SearchTarget{area("1"), area("2")}, nil,
		app.Policy{AlwaysNotify: true, TargetDelay: 2 * time.Second})

	var slept []time.Duration
	o.SetSleep(func(_ context.Context, d time.Duration) { slept = append(slept, d) })

	o.RunCycle(context.Background())
	// one delay between two targets, none after the last
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("unexpected inter-target delays: %v", slept)
	}
}

func TestRunCycle_ChannelFailureDoesNotAbort(t *testing.T) {
	client := &fakeClient{
		hotels: map[string][]domain.Hotel{
			"area:1": {{Code: "A1"}},
			"area:2": {{Code: "B1"}},
		},
		available: map[string]bool{"A1": true, "B1": true},
	}
	ch := &fakeChannel{name: "test", err: errors.New("telegram down")}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("1"), area("2")}, nil, app.Policy{AlwaysNotify: true})

	sums := o.RunCycle(context.Background())
	if len(sums) != 2 || sums[0].Checked != 1 || sums[1].Checked != 1 {
		t.Fatalf("dispatch errors must not stop the cycle: %+v", sums)
	}
	if len(ch.sent) != 2 {
		t.Fatalf("both dispatch attempts must happen, got %d", len(ch.sent))
	}
}

func TestLastSummaries_Snapshot(t *testing.T) {
	client := &fakeClient{hotels: map[string][]domain.Hotel{"area:463": {{Code: "A"}}}}
	ch := &fakeChannel{name: "test"}
	o := newOrchestrator(t, client, ch, []domain.SearchTarget{area("463")}, nil, app.Policy{AlwaysNotify: true})

	if got := o.LastSummaries(); len(got) != 0 {
		t.Fatalf("no cycle ran yet, got %v", got)
	}
	o.RunCycle(context.Background())
	if got := o.LastSummaries(); len(got) != 1 {
		t.Fatalf("want last cycle snapshot, got %v", got)
	}
}
