package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/engine"
	"pq-sarfi/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WeightUpdate one item of a batch weight update
type WeightUpdate struct {
	MeterID      string  `json:"meter_id"`
	WeightFactor float64 `json:"weight_factor"`
	Notes        string  `json:"notes,omitempty"`
}

// ProfileService owns SARFI weighting profiles and their per-meter weights
type ProfileService struct {
	profiles repository.ProfilesRepository
	logger   *zap.Logger
}

// NewProfileService creates the service
func NewProfileService(profiles repository.ProfilesRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// CreateProfile creates a weighting profile for one year
func (s *ProfileService) CreateProfile(ctx context.Context, name string, year int, isActive bool) (*domain.SARFIProfile, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}
	if year < 1990 || year > 2100 {
		return nil, &domain.ValidationError{Field: "year", Message: "is out of range"}
	}

	profile := &domain.SARFIProfile{
		ProfileID: uuid.NewString(),
		Name:      name,
		Year:      year,
		IsActive:  isActive,
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("Created SARFI profile",
		zap.String("profile_id", profile.ProfileID),
		zap.Int("year", year),
	)

	return profile, nil
}

// ListProfiles lists all profiles
func (s *ProfileService) ListProfiles(ctx context.Context) ([]*domain.SARFIProfile, error) {
	return s.profiles.ListProfiles(ctx)
}

// GetProfile loads one profile
func (s *ProfileService) GetProfile(ctx context.Context, profileID string) (*domain.SARFIProfile, error) {
	return s.profiles.GetProfile(ctx, profileID)
}

// DeleteProfile removes a profile and its weights
func (s *ProfileService) DeleteProfile(ctx context.Context, profileID string) error {
	return s.profiles.DeleteProfile(ctx, profileID)
}

// GetWeight returns the stored weight factor, or exactly 1.0 when no row
// exists for the pair. Absence is not an error.
func (s *ProfileService) GetWeight(ctx context.Context, profileID, meterID string) (float64, error) {
	w, err := s.profiles.GetWeight(ctx, profileID, meterID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return domain.DefaultWeightFactor, nil
		}
		return 0, err
	}
	return w.WeightFactor, nil
}

// ListWeights lists a profile's explicit weight rows
func (s *ProfileService) ListWeights(ctx context.Context, profileID string) ([]*domain.ProfileWeight, error) {
	if _, err := s.profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	return s.profiles.GetWeights(ctx, profileID)
}

// UpsertWeight idempotent create-or-replace keyed by (profile_id, meter_id)
func (s *ProfileService) UpsertWeight(ctx context.Context, profileID, meterID string, weightFactor float64, notes string) error {
	if meterID == "" {
		return &domain.ValidationError{Field: "meter_id", Message: "is required"}
	}
	if weightFactor < 0 {
		return &domain.ValidationError{Field: "weight_factor", Message: "must not be negative"}
	}

	if _, err := s.profiles.GetProfile(ctx, profileID); err != nil {
		return err
	}

	weight := &domain.ProfileWeight{
		ProfileID:    profileID,
		MeterID:      meterID,
		WeightFactor: weightFactor,
	}
	if notes != "" {
		weight.Notes = sql.NullString{String: notes, Valid: true}
	}

	return s.profiles.UpsertWeight(ctx, weight)
}

// BatchUpdateWeights applies each update independently. When any item fails
// the call reports failure, but previously applied updates are NOT rolled
// back — at-least-partial-success semantics, not a transaction.
func (s *ProfileService) BatchUpdateWeights(ctx context.Context, profileID string, updates []WeightUpdate) (*domain.ImportResult, error) {
	if _, err := s.profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	for i, u := range updates {
		if err := s.UpsertWeight(ctx, profileID, u.MeterID, u.WeightFactor, u.Notes); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, domain.RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		result.Success++
	}

	if result.Failed > 0 {
		return result, fmt.Errorf("batch weight update applied %d of %d items", result.Success, len(updates))
	}

	return result, nil
}

// LoadRegistry builds the immutable per-query weight snapshot the engine
// consumes
func (s *ProfileService) LoadRegistry(ctx context.Context, profileID string) (*engine.WeightRegistry, error) {
	if profileID == "" {
		return engine.EmptyWeightRegistry(), nil
	}
	if _, err := s.profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	rows, err := s.profiles.GetWeights(ctx, profileID)
	if err != nil {
		return nil, err
	}

	return engine.NewWeightRegistry(profileID, rows), nil
}
