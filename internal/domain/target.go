package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

type TargetKind string

const (
	TargetArea       TargetKind = "area"
	TargetPrefecture TargetKind = "prefecture"
)

// SearchTarget is one unit of monitoring work: an area ID (e.g. "463") or a
// prefecture spec (e.g. "13-all" for every area in the prefecture).
type SearchTarget struct {
	Kind    TargetKind
	Value   string
	Display string // human label; enriched from the directory response for areas
}

func (t SearchTarget) Key() string { return string(t.Kind) + ":" + t.Value }

func (t SearchTarget) Label() string {
	if t.Display != "" {
		return t.Display
	}
	return t.Value
}

type Hotel struct {
	Code string
	Name string
}

// Label renders "Name (code)", or just the code when the name is unknown.
func (h Hotel) Label() string {
	if h.Name != "" && h.Name != h.Code {
		return h.Name + " (" + h.Code + ")"
	}
	return h.Code
}

type Occupancy struct {
	People  int
	Rooms   int
	Smoking string // all|smoking|no_smoking
}

// QueryResult is the outcome of one availability query for one hotel.
// Either Available/LowestPrice are meaningful, or Err is set.
type QueryResult struct {
	Hotel       Hotel
	Available   bool
	LowestPrice int
	Err         error
}

type HotelFailure struct {
	Hotel Hotel
	Err   error
}

// TargetVerdict aggregates one target's per-hotel results for one cycle.
type TargetVerdict struct {
	Target    SearchTarget
	Checked   int
	Available []Hotel // hotels with open rooms, ordered by code
	Failed    []HotelFailure
}

func (v TargetVerdict) HasAvailability() bool { return len(v.Available) > 0 }

// AllFailed reports whether every queried hotel failed ("could not check",
// as opposed to "checked and nothing open").
func (v TargetVerdict) AllFailed() bool {
	return v.Checked > 0 && len(v.Failed) == v.Checked
}

// Signature identifies the available-hotel set. Two verdicts with the same set
// of open hotels produce the same signature, so a change in which hotels are
// open counts as a state change even while the boolean stays true.
func (v TargetVerdict) Signature() string {
	codes := make([]string, 0, len(v.Available))
	for _, h := range v.Available {
		codes = append(codes, h.Code)
	}
	sort.Strings(codes)
	sum := sha256.Sum256([]byte(strings.Join(codes, ",")))
	return hex.EncodeToString(sum[:])
}

type EventKind string

const (
	EventAvailability      EventKind = "availability"
	EventResolutionFailure EventKind = "resolution_failure"
	EventQueryFailure      EventKind = "query_failure"
)

// Event is the single notification variant consumed by the dispatcher.
// Availability events carry a verdict; failure events carry Err.
type Event struct {
	Kind      EventKind
	Target    SearchTarget
	Window    StayWindow
	Occupancy Occupancy
	Verdict   *TargetVerdict
	Err       error
}
