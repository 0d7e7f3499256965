package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"toyoko_watch/internal/domain"
)

var (
	ErrNoHotels      = errors.New("target resolved to zero hotels")
	ErrAllowListMiss = errors.New("hotel allow-list matches no hotel in target")
)

// ResolvedTarget is one target annotated with its member hotels for this
// cycle. A failed resolution keeps the target in the sequence with Err set
// so downstream surfaces it instead of treating it as "no hotels".
type ResolvedTarget struct {
	Target domain.SearchTarget
	Hotels []domain.Hotel
	Err    error
}

// Resolver turns configured search targets into concrete hotel lists by
// querying the directory endpoint, applying the optional hotel-code
// allow-list as a set intersection.
type Resolver struct {
	client domain.AvailabilityClient
	allow  map[string]bool // empty means no filtering
}

func NewResolver(client domain.AvailabilityClient, allowCodes []string) *Resolver {
	allow := make(map[string]bool, len(allowCodes))
	for _, c := range allowCodes {
		allow[c] = true
	}
	return &Resolver{client: client, allow: allow}
}

// Resolve produces an ordered, deduplicated sequence of resolved targets.
// Hotel listings change, so targets are re-resolved on every call rather
// than cached.
func (r *Resolver) Resolve(ctx context.Context, targets []domain.SearchTarget, w domain.StayWindow, occ domain.Occupancy) []ResolvedTarget {
	seen := make(map[string]bool, len(targets))
	out := make([]ResolvedTarget, 0, len(targets))

	for _, t := range targets {
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		out = append(out, r.resolveOne(ctx, t, w, occ))
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, t domain.SearchTarget, w domain.StayWindow, occ domain.Occupancy) ResolvedTarget {
	hotels, label, err := r.client.SearchHotels(ctx, t, w, occ)
	if err != nil {
		return ResolvedTarget{Target: t, Err: err}
	}
	if label != "" {
		t.Display = label
	}
	if len(hotels) == 0 {
		return ResolvedTarget{Target: t, Err: fmt.Errorf("%w: %s=%s", ErrNoHotels, t.Kind, t.Value)}
	}

	listed := len(hotels)
	if len(r.allow) > 0 {
		kept := hotels[:0]
		for _, h := range hotels {
			if r.allow[h.Code] {
				kept = append(kept, h)
			}
		}
		hotels = kept
		if len(hotels) == 0 {
			return ResolvedTarget{Target: t, Err: fmt.Errorf("%w: %s=%s", ErrAllowListMiss, t.Kind, t.Value)}
		}
	}
	sort.Slice(hotels, func(i, j int) bool { return hotels[i].Code < hotels[j].Code })

	log.Info().
		Str("target", t.Label()).
		Int("listed", listed).
		Int("to_check", len(hotels)).
		Msg("target resolved")

	return ResolvedTarget{Target: t, Hotels: hotels}
}
