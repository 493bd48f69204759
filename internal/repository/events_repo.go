package repository

import (
	"context"
	"time"

	"pq-sarfi/internal/domain"
)

// EventFilters coarse storage-side bounds for event loading. Fine-grained
// inclusion policy (mother/child, false/special, voltage level) is applied
// by the engine's filter pipeline, not pushed into SQL, so results stay
// reproducible across backends.
type EventFilters struct {
	StartTime *time.Time // event_time >= StartTime
	EndTime   *time.Time // event_time <= EndTime
	EventType string     // exact match when set
	MeterIDs  []string   // IN query when non-empty
}

// EventsRepository read access to voltage-dip events plus the insert used by
// the collection-side feed. The engine itself only reads.
type EventsRepository interface {
	ListEvents(ctx context.Context, filters EventFilters) ([]domain.Event, error)
	InsertEvent(ctx context.Context, event *domain.Event) error
}

// MetersRepository read access to the PQ meter roster plus the upsert used
// by the registry sync loop
type MetersRepository interface {
	ListMeters(ctx context.Context) ([]domain.PQMeter, error)
	UpsertMeter(ctx context.Context, meter *domain.PQMeter) error
}
