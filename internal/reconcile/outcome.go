package reconcile

// Outcome is the result of applying one event.
type Outcome string

const (
	// OutcomeApplied means the event's derived writes were committed.
	OutcomeApplied Outcome = "applied"
	// OutcomeOrphaned means the event referenced a pool that does not exist.
	OutcomeOrphaned Outcome = "orphaned"
	// OutcomeIgnored means the event targets an entity that is not tracked.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means a creation event was seen for an existing key.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeObserved means the event kind is accepted but mutates nothing.
	OutcomeObserved Outcome = "observed"
	// OutcomeSkipped means the event is at or before the stored cursor.
	OutcomeSkipped Outcome = "skipped"
)
