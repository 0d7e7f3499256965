package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"toyoko_watch/internal/adapters/observability"
	"toyoko_watch/internal/domain"
)

// Policy holds the notification decisions that belong to the orchestrator
// rather than to any single component.
type Policy struct {
	// AlwaysNotify repeats the availability alert every cycle while rooms
	// stay open, instead of deduplicating on state change.
	AlwaysNotify bool
	// NotifyOnFirstRun lets the very first observation of a target notify.
	// Off by default: the first cycle seeds dedup state silently.
	NotifyOnFirstRun bool
	// NotifyOnEmpty controls the available→unavailable direction in dedup
	// mode: whether "no longer available" is worth a message.
	NotifyOnEmpty bool
	// TargetDelay spreads consecutive targets apart, on top of the
	// per-request throttling inside the query client.
	TargetDelay time.Duration
}

// TargetSummary is the per-target outcome of one cycle, kept for logging
// and the ops status endpoint.
type TargetSummary struct {
	Target    string    `json:"target"`
	Checked   int       `json:"checked"`
	Available []string  `json:"available,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Notified  bool      `json:"notified"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Orchestrator runs one full monitoring pass over all targets. It owns the
// notification state; queries are strictly sequential, by design, to keep
// the request-rate fingerprint low.
type Orchestrator struct {
	client     domain.AvailabilityClient
	resolver   *Resolver
	tracker    *StateTracker
	dispatcher *Dispatcher

	targets []domain.SearchTarget
	window  domain.StayWindow
	occ     domain.Occupancy
	policy  Policy

	sleep func(context.Context, time.Duration)

	mu   sync.Mutex
	last []TargetSummary
}

func NewOrchestrator(
	client domain.AvailabilityClient,
	resolver *Resolver,
	tracker *StateTracker,
	dispatcher *Dispatcher,
	targets []domain.SearchTarget,
	window domain.StayWindow,
	occ domain.Occupancy,
	policy Policy,
) *Orchestrator {
	return &Orchestrator{
		client:     client,
		resolver:   resolver,
		tracker:    tracker,
		dispatcher: dispatcher,
		targets:    targets,
		window:     window,
		occ:        occ,
		policy:     policy,
		sleep:      sleepCtx,
	}
}

// SetSleep replaces the inter-target delay function. Tests install a
// virtual clock here.
func (o *Orchestrator) SetSleep(fn func(context.Context, time.Duration)) { o.sleep = fn }

// RunCycle processes every target, independently: a failed target is
// reported and the loop moves on to the next one.
func (o *Orchestrator) RunCycle(ctx context.Context) []TargetSummary {
	start := time.Now()
	resolved := o.resolver.Resolve(ctx, o.targets, o.window, o.occ)

	summaries := make([]TargetSummary, 0, len(resolved))
	for i, rt := range resolved {
		summaries = append(summaries, o.processTarget(ctx, rt))
		if i < len(resolved)-1 && o.policy.TargetDelay > 0 {
			o.sleep(ctx, o.policy.TargetDelay)
		}
	}

	o.mu.Lock()
	o.last = summaries
	o.mu.Unlock()

	observability.ObserveCycle(time.Since(start))
	log.Info().Int("targets", len(summaries)).Dur("took", time.Since(start)).Msg("cycle done")
	return summaries
}

// LastSummaries returns the outcome of the most recent cycle. Safe to call
// from the ops server goroutine.
func (o *Orchestrator) LastSummaries() []TargetSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TargetSummary, len(o.last))
	copy(out, o.last)
	return out
}

func (o *Orchestrator) processTarget(ctx context.Context, rt ResolvedTarget) TargetSummary {
	sum := TargetSummary{Target: rt.Target.Label(), At: time.Now().UTC()}

	if rt.Err != nil {
		log.Error().Str("target", rt.Target.Label()).Err(rt.Err).Msg("target resolution failed")
		o.dispatcher.Dispatch(ctx, domain.Event{
			Kind:      domain.EventResolutionFailure,
			Target:    rt.Target,
			Window:    o.window,
			Occupancy: o.occ,
			Err:       rt.Err,
		})
		sum.Error = rt.Err.Error()
		sum.Notified = true
		return sum
	}

	results := make([]domain.QueryResult, 0, len(rt.Hotels))
	for _, h := range rt.Hotels {
		res, err := o.client.Availability(ctx, h, o.window, o.occ)
		if err != nil {
			res = domain.QueryResult{Hotel: h, Err: err}
			log.Warn().Str("target", rt.Target.Label()).Str("hotel", h.Label()).Err(err).Msg("availability query failed")
		}
		results = append(results, res)
	}

	verdict := Aggregate(rt.Target, results)
	sum.Checked = verdict.Checked
	sum.Failed = len(verdict.Failed)
	for _, h := range verdict.Available {
		sum.Available = append(sum.Available, h.Label())
	}
	observability.ObserveVerdict(string(rt.Target.Kind), verdict.HasAvailability())

	seen := o.tracker.Seen(rt.Target)
	notify := o.tracker.ShouldNotify(rt.Target, verdict, o.policy.AlwaysNotify)
	o.tracker.Record(rt.Target, verdict)

	// All hotels failing means "could not check", not "no rooms": surface it
	// as an error instead of an availability update.
	if verdict.AllFailed() {
		log.Error().Str("target", rt.Target.Label()).Int("failed", len(verdict.Failed)).Msg("all availability queries failed")
		o.dispatcher.Dispatch(ctx, domain.Event{
			Kind:      domain.EventQueryFailure,
			Target:    rt.Target,
			Window:    o.window,
			Occupancy: o.occ,
			Verdict:   &verdict,
			Err:       verdict.Failed[0].Err,
		})
		sum.Error = verdict.Failed[0].Err.Error()
		sum.Notified = true
		return sum
	}

	if !o.policy.AlwaysNotify {
		if !seen && !o.policy.NotifyOnFirstRun {
			notify = false
		}
		if !verdict.HasAvailability() && !o.policy.NotifyOnEmpty {
			notify = false
		}
	}

	if notify {
		o.dispatcher.Dispatch(ctx, domain.Event{
			Kind:      domain.EventAvailability,
			Target:    rt.Target,
			Window:    o.window,
			Occupancy: o.occ,
			Verdict:   &verdict,
		})
		sum.Notified = true
	}

	log.Info().
		Str("target", rt.Target.Label()).
		Int("checked", verdict.Checked).
		Int("available", len(verdict.Available)).
		Int("failed", len(verdict.Failed)).
		Bool("notified", sum.Notified).
		Msg("target done")
	return sum
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
