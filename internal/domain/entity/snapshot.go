package entity

import "time"

// Snapshot kinds.
const (
	SnapshotFlights  = "flights"
	SnapshotPairings = "pairings"
)

// ScheduleSnapshot is the latest full fetch for one entity kind, kept so the
// read API can answer without re-hitting Merlot. It is explicitly not
// authoritative: the sync core never reads it, and consumers must treat
// anything older than the staleness window as expired.
type ScheduleSnapshot struct {
	Kind      string          `bson:"kind"`
	From      time.Time       `bson:"from"`
	To        time.Time       `bson:"to"`
	FetchedAt time.Time       `bson:"fetchedAt"`
	Flights   []MerlotFlight  `bson:"flights,omitempty"`
	Pairings  []MerlotPairing `bson:"pairings,omitempty"`
}

// Stale reports whether the snapshot is older than the given window.
func (s *ScheduleSnapshot) Stale(window time.Duration) bool {
	return s == nil || time.Now().UTC().Sub(s.FetchedAt) > window
}

// SyncRun is the journal entry written after every sync cycle.
type SyncRun struct {
	ID         string        `bson:"_id,omitempty"`
	Kind       string        `bson:"kind"`
	StartedAt  time.Time     `bson:"startedAt"`
	Duration   time.Duration `bson:"durationNs"`
	Fetched    int           `bson:"fetched"`
	Created    int           `bson:"created"`
	Updated    int           `bson:"updated"`
	Skipped    int           `bson:"skipped"`
	Error      string        `bson:"error,omitempty"`
	FinishedOK bool          `bson:"finishedOk"`
}
