package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"toyoko_watch/internal/domain"
)

// StateTracker remembers the last recorded verdict signature per target,
// in memory for the lifetime of the process. A restart may repeat one
// notification; that is an accepted tradeoff.
//
// It is touched only by the single cycle worker, so it needs no locking.
type StateTracker struct {
	keyPrefix string
	last      map[string]string
}

// NewStateTracker derives a key prefix from the query parameters so that a
// changed stay window or occupancy starts from a clean slate instead of
// inheriting dedup state from a different search.
func NewStateTracker(w domain.StayWindow, occ domain.Occupancy, allowCodes []string) *StateTracker {
	codes := append([]string(nil), allowCodes...)
	sort.Strings(codes)
	raw := fmt.Sprintf("%s|%s|%d|%d|%s|%s",
		w.WireCheckIn(), w.WireCheckOut(), occ.People, occ.Rooms, occ.Smoking,
		strings.Join(codes, ","))
	sum := sha256.Sum256([]byte(raw))
	return &StateTracker{
		keyPrefix: hex.EncodeToString(sum[:8]),
		last:      map[string]string{},
	}
}

func (s *StateTracker) key(t domain.SearchTarget) string {
	return s.keyPrefix + "|" + t.Key()
}

// Seen reports whether a verdict was ever recorded for the target.
func (s *StateTracker) Seen(t domain.SearchTarget) bool {
	_, ok := s.last[s.key(t)]
	return ok
}

// ShouldNotify decides whether a verdict warrants a notification.
// In always mode any available verdict notifies, every cycle, with no
// deduplication. Otherwise it notifies exactly when the available-hotel-set
// signature differs from the last recorded one, which covers becoming
// available, becoming unavailable, and a different set of open hotels.
func (s *StateTracker) ShouldNotify(t domain.SearchTarget, v domain.TargetVerdict, alwaysMode bool) bool {
	if alwaysMode {
		return v.HasAvailability()
	}
	return s.last[s.key(t)] != v.Signature()
}

// Record stores the verdict signature. Last write wins; recording the same
// verdict twice is a no-op on the second call.
func (s *StateTracker) Record(t domain.SearchTarget, v domain.TargetVerdict) {
	s.last[s.key(t)] = v.Signature()
}
