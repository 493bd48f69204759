package repository

import (
	"context"

	"pq-sarfi/internal/domain"
)

// ThresholdSort listing order for thresholds. Field is "min_voltage" or
// "duration"; Order is "asc" or "desc". Ties are always broken by sort_order
// ascending.
type ThresholdSort struct {
	Field string
	Order string
}

// StandardsRepository benchmarking standards and their threshold curves.
// Engine-owned configuration entities with their own CRUD lifecycle.
type StandardsRepository interface {
	ListStandards(ctx context.Context) ([]*domain.BenchmarkStandard, error)
	GetStandard(ctx context.Context, standardID string) (*domain.BenchmarkStandard, error)
	CreateStandard(ctx context.Context, standard *domain.BenchmarkStandard) error
	UpdateStandard(ctx context.Context, standard *domain.BenchmarkStandard) error
	// DeleteStandard cascades to the standard's thresholds
	DeleteStandard(ctx context.Context, standardID string) error
	StandardNameExists(ctx context.Context, name string, excludeID string) (bool, error)

	ListThresholds(ctx context.Context, standardID string, sort ThresholdSort) ([]*domain.Threshold, error)
	GetThreshold(ctx context.Context, thresholdID string) (*domain.Threshold, error)
	// ThresholdExists checks the (standard_id, min_voltage, duration)
	// uniqueness key at stored precision, excluding excludeID (for updates)
	ThresholdExists(ctx context.Context, standardID string, minVoltage, duration float64, excludeID string) (bool, error)
	NextSortOrder(ctx context.Context, standardID string) (int, error)
	CreateThreshold(ctx context.Context, threshold *domain.Threshold) error
	UpdateThreshold(ctx context.Context, thresholdID string, minVoltage, duration float64) error
	// DeleteThreshold is unconditional and does not renumber siblings
	DeleteThreshold(ctx context.Context, thresholdID string) error
}
