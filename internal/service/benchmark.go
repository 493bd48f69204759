package service

import (
	"context"
	"fmt"
	"math"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ThresholdRow one candidate threshold for creation or bulk import
type ThresholdRow struct {
	MinVoltage float64 `json:"min_voltage"`
	Duration   float64 `json:"duration"`
}

// BenchmarkService owns the benchmarking standards and their threshold
// curves: validation, uniqueness, ordering, bulk import.
type BenchmarkService struct {
	standards repository.StandardsRepository
	logger    *zap.Logger
}

// NewBenchmarkService creates the service
func NewBenchmarkService(standards repository.StandardsRepository, logger *zap.Logger) *BenchmarkService {
	return &BenchmarkService{standards: standards, logger: logger}
}

// round3 normalizes a value to the stored 3-decimal precision
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func validateThresholdValues(minVoltage, duration float64) error {
	if math.IsNaN(minVoltage) || math.IsNaN(duration) {
		return &domain.ValidationError{Field: "threshold", Message: "values must be numeric"}
	}
	if minVoltage < 0 || minVoltage > 100 {
		return &domain.ValidationError{Field: "min_voltage", Message: "must be between 0 and 100"}
	}
	if duration < 0 || duration > 1 {
		return &domain.ValidationError{Field: "duration", Message: "must be between 0 and 1"}
	}
	return nil
}

// CreateStandard creates a standard with a unique display name
func (s *BenchmarkService) CreateStandard(ctx context.Context, name, description string) (*domain.BenchmarkStandard, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}

	exists, err := s.standards.StandardNameExists(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.DuplicateError{Entity: "standard", Key: name}
	}

	standard := &domain.BenchmarkStandard{
		StandardID:  uuid.NewString(),
		Name:        name,
		Description: description,
	}
	if err := s.standards.CreateStandard(ctx, standard); err != nil {
		return nil, err
	}

	s.logger.Info("Created benchmark standard",
		zap.String("standard_id", standard.StandardID),
		zap.String("name", name),
	)

	return standard, nil
}

// UpdateStandard renames or re-describes a standard
func (s *BenchmarkService) UpdateStandard(ctx context.Context, standardID, name, description string) (*domain.BenchmarkStandard, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}

	if _, err := s.standards.GetStandard(ctx, standardID); err != nil {
		return nil, err
	}

	exists, err := s.standards.StandardNameExists(ctx, name, standardID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.DuplicateError{Entity: "standard", Key: name}
	}

	standard := &domain.BenchmarkStandard{
		StandardID:  standardID,
		Name:        name,
		Description: description,
	}
	if err := s.standards.UpdateStandard(ctx, standard); err != nil {
		return nil, err
	}

	return standard, nil
}

// ListStandards lists all standards
func (s *BenchmarkService) ListStandards(ctx context.Context) ([]*domain.BenchmarkStandard, error) {
	return s.standards.ListStandards(ctx)
}

// GetStandard loads one standard
func (s *BenchmarkService) GetStandard(ctx context.Context, standardID string) (*domain.BenchmarkStandard, error) {
	return s.standards.GetStandard(ctx, standardID)
}

// DeleteStandard deletes a standard and cascades to its thresholds
func (s *BenchmarkService) DeleteStandard(ctx context.Context, standardID string) error {
	if err := s.standards.DeleteStandard(ctx, standardID); err != nil {
		return err
	}

	s.logger.Info("Deleted benchmark standard (thresholds cascaded)",
		zap.String("standard_id", standardID),
	)

	return nil
}

// AddThreshold validates and appends one threshold point. Fails with
// ValidationError on out-of-range values, DuplicateError when the
// (min_voltage, duration) pair already exists for the standard at stored
// precision. On success the point receives the next sort_order.
func (s *BenchmarkService) AddThreshold(ctx context.Context, standardID string, minVoltage, duration float64) (*domain.Threshold, error) {
	minVoltage = round3(minVoltage)
	duration = round3(duration)

	if err := validateThresholdValues(minVoltage, duration); err != nil {
		return nil, err
	}

	if _, err := s.standards.GetStandard(ctx, standardID); err != nil {
		return nil, err
	}

	exists, err := s.standards.ThresholdExists(ctx, standardID, minVoltage, duration, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.DuplicateError{
			Entity: "threshold",
			Key:    fmt.Sprintf("(%.3f, %.3f)", minVoltage, duration),
		}
	}

	sortOrder, err := s.standards.NextSortOrder(ctx, standardID)
	if err != nil {
		return nil, err
	}

	threshold := &domain.Threshold{
		ThresholdID: uuid.NewString(),
		StandardID:  standardID,
		MinVoltage:  minVoltage,
		Duration:    duration,
		SortOrder:   sortOrder,
	}
	if err := s.standards.CreateThreshold(ctx, threshold); err != nil {
		return nil, err
	}

	return threshold, nil
}

// UpdateThreshold changes one point's values. nil keeps the current value.
// Same validation and duplicate checks as AddThreshold, excluding the
// threshold's own id from the uniqueness check.
func (s *BenchmarkService) UpdateThreshold(ctx context.Context, thresholdID string, minVoltage, duration *float64) (*domain.Threshold, error) {
	current, err := s.standards.GetThreshold(ctx, thresholdID)
	if err != nil {
		return nil, err
	}

	newVoltage := current.MinVoltage
	if minVoltage != nil {
		newVoltage = round3(*minVoltage)
	}
	newDuration := current.Duration
	if duration != nil {
		newDuration = round3(*duration)
	}

	if err := validateThresholdValues(newVoltage, newDuration); err != nil {
		return nil, err
	}

	exists, err := s.standards.ThresholdExists(ctx, current.StandardID, newVoltage, newDuration, thresholdID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.DuplicateError{
			Entity: "threshold",
			Key:    fmt.Sprintf("(%.3f, %.3f)", newVoltage, newDuration),
		}
	}

	if err := s.standards.UpdateThreshold(ctx, thresholdID, newVoltage, newDuration); err != nil {
		return nil, err
	}

	current.MinVoltage = newVoltage
	current.Duration = newDuration
	return current, nil
}

// DeleteThreshold removes one point without renumbering siblings
func (s *BenchmarkService) DeleteThreshold(ctx context.Context, thresholdID string) error {
	return s.standards.DeleteThreshold(ctx, thresholdID)
}

// ListThresholds lists a standard's curve sorted by min_voltage or duration,
// ties broken by sort_order ascending
func (s *BenchmarkService) ListThresholds(ctx context.Context, standardID, sortBy, order string) ([]*domain.Threshold, error) {
	switch sortBy {
	case "", "min_voltage", "duration":
	default:
		return nil, &domain.ValidationError{Field: "sortBy", Message: "must be min_voltage or duration"}
	}
	switch order {
	case "", "asc", "desc":
	default:
		return nil, &domain.ValidationError{Field: "order", Message: "must be asc or desc"}
	}

	if _, err := s.standards.GetStandard(ctx, standardID); err != nil {
		return nil, err
	}

	return s.standards.ListThresholds(ctx, standardID, repository.ThresholdSort{Field: sortBy, Order: order})
}

// ImportThresholds bulk variant of AddThreshold. Rows are processed
// independently: a failure on one row never aborts the batch. Row numbers in
// the result are 1-based.
func (s *BenchmarkService) ImportThresholds(ctx context.Context, standardID string, rows []ThresholdRow) (*domain.ImportResult, error) {
	if _, err := s.standards.GetStandard(ctx, standardID); err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	for i, row := range rows {
		if _, err := s.AddThreshold(ctx, standardID, row.MinVoltage, row.Duration); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, domain.RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		result.Success++
	}

	s.logger.Info("Imported thresholds",
		zap.String("standard_id", standardID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}
