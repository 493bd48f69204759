package repository

import (
	"context"
	"sort"
	"sync"

	"pq-sarfi/internal/domain"
)

// MemoryProfilesRepo in-memory ProfilesRepository for tests and DB-less runs
type MemoryProfilesRepo struct {
	mu       sync.RWMutex
	profiles map[string]domain.SARFIProfile
	weights  map[string]map[string]domain.ProfileWeight // profileID -> meterID -> weight
}

func NewMemoryProfilesRepo() *MemoryProfilesRepo {
	return &MemoryProfilesRepo{
		profiles: map[string]domain.SARFIProfile{},
		weights:  map[string]map[string]domain.ProfileWeight{},
	}
}

var _ ProfilesRepository = (*MemoryProfilesRepo)(nil)

func (r *MemoryProfilesRepo) ListProfiles(_ context.Context) ([]*domain.SARFIProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.SARFIProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		c := p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryProfilesRepo) GetProfile(_ context.Context, profileID string) (*domain.SARFIProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "profile", ID: profileID}
	}
	c := p
	return &c, nil
}

func (r *MemoryProfilesRepo) CreateProfile(_ context.Context, profile *domain.SARFIProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.ProfileID] = *profile
	return nil
}

func (r *MemoryProfilesRepo) UpdateProfile(_ context.Context, profile *domain.SARFIProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profile.ProfileID]; !ok {
		return &domain.NotFoundError{Entity: "profile", ID: profile.ProfileID}
	}
	r.profiles[profile.ProfileID] = *profile
	return nil
}

func (r *MemoryProfilesRepo) DeleteProfile(_ context.Context, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles, profileID)
	delete(r.weights, profileID)
	return nil
}

func (r *MemoryProfilesRepo) GetWeights(_ context.Context, profileID string) ([]*domain.ProfileWeight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.ProfileWeight
	for _, w := range r.weights[profileID] {
		c := w
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeterID < out[j].MeterID })
	return out, nil
}

func (r *MemoryProfilesRepo) GetWeight(_ context.Context, profileID, meterID string) (*domain.ProfileWeight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.weights[profileID][meterID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "profile weight", ID: profileID + "/" + meterID}
	}
	c := w
	return &c, nil
}

func (r *MemoryProfilesRepo) UpsertWeight(_ context.Context, weight *domain.ProfileWeight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.weights[weight.ProfileID] == nil {
		r.weights[weight.ProfileID] = map[string]domain.ProfileWeight{}
	}
	r.weights[weight.ProfileID][weight.MeterID] = *weight
	return nil
}

func (r *MemoryProfilesRepo) DeleteWeight(_ context.Context, profileID, meterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.weights[profileID], meterID)
	return nil
}
