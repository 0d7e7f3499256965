package domain

import "context"

// AvailabilityClient is the outbound boundary to the hotel chain's API.
// Implementations own transport concerns: throttling, jitter, retries,
// timeouts. Callers only decide when a call is made.
type AvailabilityClient interface {
	// SearchHotels lists the hotels under a target, plus a display label for
	// the target (areas get a name from the response, prefectures keep the code).
	SearchHotels(ctx context.Context, t SearchTarget, w StayWindow, occ Occupancy) ([]Hotel, string, error)

	// Availability queries open rooms for a single hotel.
	Availability(ctx context.Context, h Hotel, w StayWindow, occ Occupancy) (QueryResult, error)
}

// Channel is one notification delivery mechanism (Telegram, LINE, ...).
// Send failures are best-effort: callers log and move on.
type Channel interface {
	Name() string
	IsEnabled() bool
	Send(ctx context.Context, text string) error
}
