package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pq-sarfi/internal/domain"
)

// MemoryStandardsRepo in-memory StandardsRepository for tests and for running
// the service without a database. Mirrors the Postgres semantics, including
// listing order and cascade on standard deletion.
type MemoryStandardsRepo struct {
	mu         sync.RWMutex
	standards  map[string]domain.BenchmarkStandard
	thresholds map[string]domain.Threshold
}

func NewMemoryStandardsRepo() *MemoryStandardsRepo {
	return &MemoryStandardsRepo{
		standards:  map[string]domain.BenchmarkStandard{},
		thresholds: map[string]domain.Threshold{},
	}
}

var _ StandardsRepository = (*MemoryStandardsRepo)(nil)

func (r *MemoryStandardsRepo) ListStandards(_ context.Context) ([]*domain.BenchmarkStandard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.BenchmarkStandard, 0, len(r.standards))
	for _, s := range r.standards {
		c := s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryStandardsRepo) GetStandard(_ context.Context, standardID string) (*domain.BenchmarkStandard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.standards[standardID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "standard", ID: standardID}
	}
	c := s
	return &c, nil
}

func (r *MemoryStandardsRepo) CreateStandard(_ context.Context, standard *domain.BenchmarkStandard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.standards[standard.StandardID] = *standard
	return nil
}

func (r *MemoryStandardsRepo) UpdateStandard(_ context.Context, standard *domain.BenchmarkStandard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.standards[standard.StandardID]; !ok {
		return &domain.NotFoundError{Entity: "standard", ID: standard.StandardID}
	}
	r.standards[standard.StandardID] = *standard
	return nil
}

func (r *MemoryStandardsRepo) DeleteStandard(_ context.Context, standardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.standards, standardID)
	for id, t := range r.thresholds {
		if t.StandardID == standardID {
			delete(r.thresholds, id)
		}
	}
	return nil
}

func (r *MemoryStandardsRepo) StandardNameExists(_ context.Context, name string, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.standards {
		if s.StandardID != excludeID && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryStandardsRepo) ListThresholds(_ context.Context, standardID string, s ThresholdSort) ([]*domain.Threshold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Threshold
	for _, t := range r.thresholds {
		if t.StandardID == standardID {
			c := t
			out = append(out, &c)
		}
	}

	desc := s.Order == "desc"
	byDuration := s.Field == "duration"
	sort.SliceStable(out, func(i, j int) bool {
		var a, b float64
		if byDuration {
			a, b = out[i].Duration, out[j].Duration
		} else {
			a, b = out[i].MinVoltage, out[j].MinVoltage
		}
		if a != b {
			if desc {
				return a > b
			}
			return a < b
		}
		return out[i].SortOrder < out[j].SortOrder
	})

	return out, nil
}

func (r *MemoryStandardsRepo) GetThreshold(_ context.Context, thresholdID string) (*domain.Threshold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.thresholds[thresholdID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "threshold", ID: thresholdID}
	}
	c := t
	return &c, nil
}

func (r *MemoryStandardsRepo) ThresholdExists(_ context.Context, standardID string, minVoltage, duration float64, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.thresholds {
		if t.ThresholdID == excludeID {
			continue
		}
		if t.StandardID == standardID && t.MinVoltage == minVoltage && t.Duration == duration {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryStandardsRepo) NextSortOrder(_ context.Context, standardID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	max := 0
	for _, t := range r.thresholds {
		if t.StandardID == standardID && t.SortOrder > max {
			max = t.SortOrder
		}
	}
	return max + 1, nil
}

func (r *MemoryStandardsRepo) CreateThreshold(_ context.Context, threshold *domain.Threshold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.thresholds[threshold.ThresholdID] = *threshold
	return nil
}

func (r *MemoryStandardsRepo) UpdateThreshold(_ context.Context, thresholdID string, minVoltage, duration float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.thresholds[thresholdID]
	if !ok {
		return &domain.NotFoundError{Entity: "threshold", ID: thresholdID}
	}
	t.MinVoltage = minVoltage
	t.Duration = duration
	r.thresholds[thresholdID] = t
	return nil
}

func (r *MemoryStandardsRepo) DeleteThreshold(_ context.Context, thresholdID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.thresholds, thresholdID)
	return nil
}
