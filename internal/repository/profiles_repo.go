package repository

import (
	"context"

	"pq-sarfi/internal/domain"
)

// ProfilesRepository SARFI weighting profiles and their per-meter weights
type ProfilesRepository interface {
	ListProfiles(ctx context.Context) ([]*domain.SARFIProfile, error)
	GetProfile(ctx context.Context, profileID string) (*domain.SARFIProfile, error)
	CreateProfile(ctx context.Context, profile *domain.SARFIProfile) error
	UpdateProfile(ctx context.Context, profile *domain.SARFIProfile) error
	DeleteProfile(ctx context.Context, profileID string) error

	// GetWeights returns all explicit weight rows of one profile; meters
	// without a row fall back to the default weight 1.0
	GetWeights(ctx context.Context, profileID string) ([]*domain.ProfileWeight, error)
	// GetWeight returns NotFoundError when no row exists for the pair; the
	// default-weight policy lives in the service, not here
	GetWeight(ctx context.Context, profileID, meterID string) (*domain.ProfileWeight, error)
	// UpsertWeight is an idempotent create-or-replace on (profile_id, meter_id)
	UpsertWeight(ctx context.Context, weight *domain.ProfileWeight) error
	DeleteWeight(ctx context.Context, profileID, meterID string) error
}
