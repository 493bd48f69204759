package repository

import (
	"context"
	"database/sql"

	"pq-sarfi/internal/domain"

	"go.uber.org/zap"
)

// PostgresProfilesRepository ProfilesRepository backed by Postgres
type PostgresProfilesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresProfilesRepository creates the repository
func NewPostgresProfilesRepository(db *sql.DB, logger *zap.Logger) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db, logger: logger}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

func (r *PostgresProfilesRepository) ListProfiles(ctx context.Context) ([]*domain.SARFIProfile, error) {
	query := `
		SELECT profile_id, profile_name, profile_year, is_active
		FROM sarfi_profiles
		ORDER BY profile_year DESC, profile_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list profiles", Err: err}
	}
	defer rows.Close()

	var profiles []*domain.SARFIProfile
	for rows.Next() {
		var p domain.SARFIProfile
		if err := rows.Scan(&p.ProfileID, &p.Name, &p.Year, &p.IsActive); err != nil {
			return nil, &domain.StorageError{Op: "scan profile", Err: err}
		}
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list profiles", Err: err}
	}

	return profiles, nil
}

func (r *PostgresProfilesRepository) GetProfile(ctx context.Context, profileID string) (*domain.SARFIProfile, error) {
	query := `
		SELECT profile_id, profile_name, profile_year, is_active
		FROM sarfi_profiles
		WHERE profile_id = $1
	`

	var p domain.SARFIProfile
	err := r.db.QueryRowContext(ctx, query, profileID).Scan(&p.ProfileID, &p.Name, &p.Year, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "profile", ID: profileID}
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get profile", Err: err}
	}

	return &p, nil
}

func (r *PostgresProfilesRepository) CreateProfile(ctx context.Context, profile *domain.SARFIProfile) error {
	query := `
		INSERT INTO sarfi_profiles (profile_id, profile_name, profile_year, is_active)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, profile.ProfileID, profile.Name, profile.Year, profile.IsActive); err != nil {
		return &domain.StorageError{Op: "create profile", Err: err}
	}

	return nil
}

func (r *PostgresProfilesRepository) UpdateProfile(ctx context.Context, profile *domain.SARFIProfile) error {
	query := `
		UPDATE sarfi_profiles
		SET profile_name = $2, profile_year = $3, is_active = $4
		WHERE profile_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, profile.ProfileID, profile.Name, profile.Year, profile.IsActive)
	if err != nil {
		return &domain.StorageError{Op: "update profile", Err: err}
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Entity: "profile", ID: profile.ProfileID}
	}

	return nil
}

func (r *PostgresProfilesRepository) DeleteProfile(ctx context.Context, profileID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "delete profile", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sarfi_profile_weights WHERE profile_id = $1`, profileID); err != nil {
		return &domain.StorageError{Op: "delete profile weights", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sarfi_profiles WHERE profile_id = $1`, profileID); err != nil {
		return &domain.StorageError{Op: "delete profile", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "delete profile", Err: err}
	}

	return nil
}

func (r *PostgresProfilesRepository) GetWeights(ctx context.Context, profileID string) ([]*domain.ProfileWeight, error) {
	query := `
		SELECT profile_id, meter_id, weight_factor, notes
		FROM sarfi_profile_weights
		WHERE profile_id = $1
		ORDER BY meter_id
	`

	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, &domain.StorageError{Op: "get weights", Err: err}
	}
	defer rows.Close()

	var weights []*domain.ProfileWeight
	for rows.Next() {
		var w domain.ProfileWeight
		if err := rows.Scan(&w.ProfileID, &w.MeterID, &w.WeightFactor, &w.Notes); err != nil {
			return nil, &domain.StorageError{Op: "scan weight", Err: err}
		}
		weights = append(weights, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "get weights", Err: err}
	}

	return weights, nil
}

func (r *PostgresProfilesRepository) GetWeight(ctx context.Context, profileID, meterID string) (*domain.ProfileWeight, error) {
	query := `
		SELECT profile_id, meter_id, weight_factor, notes
		FROM sarfi_profile_weights
		WHERE profile_id = $1 AND meter_id = $2
	`

	var w domain.ProfileWeight
	err := r.db.QueryRowContext(ctx, query, profileID, meterID).Scan(&w.ProfileID, &w.MeterID, &w.WeightFactor, &w.Notes)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "profile weight", ID: profileID + "/" + meterID}
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get weight", Err: err}
	}

	return &w, nil
}

func (r *PostgresProfilesRepository) UpsertWeight(ctx context.Context, weight *domain.ProfileWeight) error {
	query := `
		INSERT INTO sarfi_profile_weights (profile_id, meter_id, weight_factor, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id, meter_id)
		DO UPDATE SET weight_factor = EXCLUDED.weight_factor,
		              notes = EXCLUDED.notes
	`

	if _, err := r.db.ExecContext(ctx, query, weight.ProfileID, weight.MeterID, weight.WeightFactor, weight.Notes); err != nil {
		return &domain.StorageError{Op: "upsert weight", Err: err}
	}

	return nil
}

func (r *PostgresProfilesRepository) DeleteWeight(ctx context.Context, profileID, meterID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sarfi_profile_weights WHERE profile_id = $1 AND meter_id = $2`, profileID, meterID); err != nil {
		return &domain.StorageError{Op: "delete weight", Err: err}
	}

	return nil
}
