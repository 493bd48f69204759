package repository

import (
	"context"
	"sort"
	"sync"

	"pq-sarfi/internal/domain"
)

// MemoryEventsRepo in-memory EventsRepository for tests and DB-less runs
type MemoryEventsRepo struct {
	mu     sync.RWMutex
	events map[string]domain.Event
}

func NewMemoryEventsRepo() *MemoryEventsRepo {
	return &MemoryEventsRepo{events: map[string]domain.Event{}}
}

var _ EventsRepository = (*MemoryEventsRepo)(nil)

func (r *MemoryEventsRepo) ListEvents(_ context.Context, filters EventFilters) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meterSet := map[string]bool{}
	for _, id := range filters.MeterIDs {
		meterSet[id] = true
	}

	var out []domain.Event
	for _, ev := range r.events {
		if filters.StartTime != nil && ev.Timestamp.Before(*filters.StartTime) {
			continue
		}
		if filters.EndTime != nil && ev.Timestamp.After(*filters.EndTime) {
			continue
		}
		if filters.EventType != "" && ev.EventType != filters.EventType {
			continue
		}
		if len(meterSet) > 0 && !meterSet[ev.MeterID] {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryEventsRepo) InsertEvent(_ context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// matches the Postgres ON CONFLICT DO NOTHING behavior
	if _, ok := r.events[event.EventID]; ok {
		return nil
	}
	r.events[event.EventID] = *event
	return nil
}

// MemoryMetersRepo in-memory MetersRepository for tests and DB-less runs
type MemoryMetersRepo struct {
	mu     sync.RWMutex
	meters map[string]domain.PQMeter // keyed by meter_id
}

func NewMemoryMetersRepo() *MemoryMetersRepo {
	return &MemoryMetersRepo{meters: map[string]domain.PQMeter{}}
}

var _ MetersRepository = (*MemoryMetersRepo)(nil)

func (r *MemoryMetersRepo) ListMeters(_ context.Context) ([]domain.PQMeter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PQMeter, 0, len(r.meters))
	for _, m := range r.meters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeterID < out[j].MeterID })
	return out, nil
}

func (r *MemoryMetersRepo) UpsertMeter(_ context.Context, meter *domain.PQMeter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meters[meter.MeterID] = *meter
	return nil
}
