package engine

import (
	"pq-sarfi/internal/domain"
)

// WeightRegistry an immutable per-query snapshot of one profile's meter
// weights. Built explicitly from stored rows and passed by reference to the
// components that need it — never implicit global state.
type WeightRegistry struct {
	profileID string
	weights   map[string]float64
}

// NewWeightRegistry builds a registry snapshot from stored weight rows
func NewWeightRegistry(profileID string, rows []*domain.ProfileWeight) *WeightRegistry {
	weights := make(map[string]float64, len(rows))
	for _, row := range rows {
		weights[row.MeterID] = row.WeightFactor
	}
	return &WeightRegistry{profileID: profileID, weights: weights}
}

// EmptyWeightRegistry returns a registry where every meter weighs 1.0
// (unweighted index)
func EmptyWeightRegistry() *WeightRegistry {
	return &WeightRegistry{weights: map[string]float64{}}
}

// ProfileID returns the owning profile id ("" for the unweighted registry)
func (r *WeightRegistry) ProfileID() string {
	return r.profileID
}

// Weight returns the stored weight factor for a meter, or 1.0 when no row
// exists. Default-weight policy: absence is not an error.
func (r *WeightRegistry) Weight(meterID string) float64 {
	if w, ok := r.weights[meterID]; ok {
		return w
	}
	return domain.DefaultWeightFactor
}

// Len returns the number of explicit weight rows
func (r *WeightRegistry) Len() int {
	return len(r.weights)
}
