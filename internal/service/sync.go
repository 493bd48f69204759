package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/repository"
)

// MeterSource lists the current meter inventory from an upstream system
type MeterSource interface {
	ListMeters() ([]*domain.PQMeter, error)
}

// RegistrySyncService keeps the local meter table aligned with the asset registry
type RegistrySyncService struct {
	source   MeterSource
	meters   repository.MetersRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewRegistrySyncService creates a registry sync service
func NewRegistrySyncService(source MeterSource, meters repository.MetersRepository, interval time.Duration, logger *zap.Logger) *RegistrySyncService {
	return &RegistrySyncService{
		source:   source,
		meters:   meters,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the polling loop until the context is cancelled
func (s *RegistrySyncService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting meter registry sync",
		zap.Duration("interval", s.interval),
	)

	// Full sync once at startup
	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Error("Failed to sync meters on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Error("Failed to sync meters", zap.Error(err))
			}
		}
	}
}

// SyncOnce fetches the registry inventory and upserts every meter
func (s *RegistrySyncService) SyncOnce(ctx context.Context) error {
	meters, err := s.source.ListMeters()
	if err != nil {
		return fmt.Errorf("failed to list registry meters: %w", err)
	}

	successCount := 0
	errorCount := 0

	for _, m := range meters {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if m.MeterID == "" {
			errorCount++
			continue
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}

		if err := s.meters.UpsertMeter(ctx, m); err != nil {
			s.logger.Error("Failed to upsert meter",
				zap.String("meter_id", m.MeterID),
				zap.Error(err),
			)
			errorCount++
			continue
		}
		successCount++
	}

	s.logger.Info("Meter registry sync completed",
		zap.Int("success_count", successCount),
		zap.Int("error_count", errorCount),
	)

	return nil
}
