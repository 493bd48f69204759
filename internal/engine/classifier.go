package engine

import (
	"pq-sarfi/internal/domain"
)

// ClassificationOutcome the per-event classifier verdict, also used for
// drill-down tables
type ClassificationOutcome struct {
	EventID          string    `json:"event_id"`
	Skipped          bool      `json:"skipped"`
	SkipReason       string    `json:"skip_reason,omitempty"`
	RemainingVoltage float64   `json:"remaining_voltage"`
	DurationS        float64   `json:"duration_s"`
	// Tripped bucket labels (the threshold min_voltage values), deepest first.
	// Buckets are cumulative: a deep, long dip trips every shallower bucket
	// it qualifies for.
	Buckets []float64 `json:"buckets"`
}

// Trips reports whether the outcome includes the given bucket
func (o *ClassificationOutcome) Trips(bucket float64) bool {
	for _, b := range o.Buckets {
		if b == bucket {
			return true
		}
	}
	return false
}

// ClassifiedEvent pairs an event with its outcome
type ClassifiedEvent struct {
	Event   domain.Event
	Outcome ClassificationOutcome
}

// Classify decides which severity buckets one filtered event contributes to.
// Selection rule: a threshold is considered only when its duration is >= the
// event's duration in seconds (the dip must persist at least as long as the
// threshold's duration to trip it). Among selected thresholds the event trips
// bucket X iff remaining_voltage <= X, inclusive.
func Classify(ev domain.Event, curve *Curve) ClassificationOutcome {
	outcome := ClassificationOutcome{EventID: ev.EventID}

	remaining, ok := ev.RemainingVoltage()
	if !ok {
		outcome.Skipped = true
		outcome.SkipReason = domain.ErrClassificationSkipped.Error()
		return outcome
	}

	durationS := ev.DurationSeconds()
	outcome.RemainingVoltage = remaining
	outcome.DurationS = durationS

	if curve == nil || curve.Empty() {
		return outcome
	}

	seen := make(map[float64]bool)
	for p := range curve.Points(SortByMinVoltage, OrderAsc) {
		if p.Duration < durationS {
			continue
		}
		if remaining <= p.MinVoltage && !seen[p.MinVoltage] {
			seen[p.MinVoltage] = true
			outcome.Buckets = append(outcome.Buckets, p.MinVoltage)
		}
	}

	return outcome
}

// ClassifyAll classifies every filtered event. Skipped events stay in the
// result so callers can count them.
func ClassifyAll(events []domain.Event, curve *Curve) []ClassifiedEvent {
	out := make([]ClassifiedEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, ClassifiedEvent{Event: ev, Outcome: Classify(ev, curve)})
	}
	return out
}

// Contribution the per-event contribution value for one bucket. Events carry
// a precomputed sarfi_70 value from the collection system when present; it is
// honored for the 70 bucket, all other contributions count 1.
func Contribution(ev *domain.Event, bucket float64) float64 {
	if bucket == 70 && ev.Sarfi70 != nil {
		return *ev.Sarfi70
	}
	return 1.0
}

// CountSkipped counts ClassificationSkipped outcomes for auditability
func CountSkipped(classified []ClassifiedEvent) int {
	n := 0
	for _, c := range classified {
		if c.Outcome.Skipped {
			n++
		}
	}
	return n
}
