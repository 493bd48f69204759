package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pq-sarfi/internal/domain"

	"go.uber.org/zap"
)

// PostgresStandardsRepository StandardsRepository backed by Postgres
type PostgresStandardsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStandardsRepository creates the repository
func NewPostgresStandardsRepository(db *sql.DB, logger *zap.Logger) *PostgresStandardsRepository {
	return &PostgresStandardsRepository{db: db, logger: logger}
}

var _ StandardsRepository = (*PostgresStandardsRepository)(nil)

func (r *PostgresStandardsRepository) ListStandards(ctx context.Context) ([]*domain.BenchmarkStandard, error) {
	query := `
		SELECT standard_id, standard_name, COALESCE(description, '')
		FROM pq_standards
		ORDER BY standard_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list standards", Err: err}
	}
	defer rows.Close()

	var standards []*domain.BenchmarkStandard
	for rows.Next() {
		var s domain.BenchmarkStandard
		if err := rows.Scan(&s.StandardID, &s.Name, &s.Description); err != nil {
			return nil, &domain.StorageError{Op: "scan standard", Err: err}
		}
		standards = append(standards, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list standards", Err: err}
	}

	return standards, nil
}

func (r *PostgresStandardsRepository) GetStandard(ctx context.Context, standardID string) (*domain.BenchmarkStandard, error) {
	query := `
		SELECT standard_id, standard_name, COALESCE(description, '')
		FROM pq_standards
		WHERE standard_id = $1
	`

	var s domain.BenchmarkStandard
	err := r.db.QueryRowContext(ctx, query, standardID).Scan(&s.StandardID, &s.Name, &s.Description)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "standard", ID: standardID}
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get standard", Err: err}
	}

	return &s, nil
}

func (r *PostgresStandardsRepository) CreateStandard(ctx context.Context, standard *domain.BenchmarkStandard) error {
	query := `
		INSERT INTO pq_standards (standard_id, standard_name, description)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, standard.StandardID, standard.Name, standard.Description); err != nil {
		return &domain.StorageError{Op: "create standard", Err: err}
	}

	return nil
}

func (r *PostgresStandardsRepository) UpdateStandard(ctx context.Context, standard *domain.BenchmarkStandard) error {
	query := `
		UPDATE pq_standards
		SET standard_name = $2, description = $3
		WHERE standard_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, standard.StandardID, standard.Name, standard.Description)
	if err != nil {
		return &domain.StorageError{Op: "update standard", Err: err}
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Entity: "standard", ID: standard.StandardID}
	}

	return nil
}

// DeleteStandard deletes the standard and all its thresholds. The thresholds
// table declares ON DELETE CASCADE, but the delete stays explicit so the
// cascade also holds on schemas restored without the constraint.
func (r *PostgresStandardsRepository) DeleteStandard(ctx context.Context, standardID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "delete standard", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pq_thresholds WHERE standard_id = $1`, standardID); err != nil {
		return &domain.StorageError{Op: "delete standard thresholds", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pq_standards WHERE standard_id = $1`, standardID); err != nil {
		return &domain.StorageError{Op: "delete standard", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "delete standard", Err: err}
	}

	return nil
}

func (r *PostgresStandardsRepository) StandardNameExists(ctx context.Context, name string, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pq_standards
			WHERE LOWER(standard_name) = LOWER($1) AND standard_id <> $2
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, &domain.StorageError{Op: "check standard name", Err: err}
	}

	return exists, nil
}

func (r *PostgresStandardsRepository) ListThresholds(ctx context.Context, standardID string, sort ThresholdSort) ([]*domain.Threshold, error) {
	sortField := "min_voltage"
	if sort.Field == "duration" {
		sortField = "duration"
	}
	direction := "ASC"
	if sort.Order == "desc" {
		direction = "DESC"
	}

	// sort column is whitelisted above, never caller input
	query := fmt.Sprintf(`
		SELECT threshold_id, standard_id, min_voltage, duration, sort_order
		FROM pq_thresholds
		WHERE standard_id = $1
		ORDER BY %s %s, sort_order ASC
	`, sortField, direction)

	rows, err := r.db.QueryContext(ctx, query, standardID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list thresholds", Err: err}
	}
	defer rows.Close()

	var thresholds []*domain.Threshold
	for rows.Next() {
		var t domain.Threshold
		if err := rows.Scan(&t.ThresholdID, &t.StandardID, &t.MinVoltage, &t.Duration, &t.SortOrder); err != nil {
			return nil, &domain.StorageError{Op: "scan threshold", Err: err}
		}
		thresholds = append(thresholds, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list thresholds", Err: err}
	}

	return thresholds, nil
}

func (r *PostgresStandardsRepository) GetThreshold(ctx context.Context, thresholdID string) (*domain.Threshold, error) {
	query := `
		SELECT threshold_id, standard_id, min_voltage, duration, sort_order
		FROM pq_thresholds
		WHERE threshold_id = $1
	`

	var t domain.Threshold
	err := r.db.QueryRowContext(ctx, query, thresholdID).Scan(&t.ThresholdID, &t.StandardID, &t.MinVoltage, &t.Duration, &t.SortOrder)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "threshold", ID: thresholdID}
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get threshold", Err: err}
	}

	return &t, nil
}

func (r *PostgresStandardsRepository) ThresholdExists(ctx context.Context, standardID string, minVoltage, duration float64, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pq_thresholds
			WHERE standard_id = $1 AND min_voltage = $2 AND duration = $3 AND threshold_id <> $4
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, standardID, minVoltage, duration, excludeID).Scan(&exists); err != nil {
		return false, &domain.StorageError{Op: "check threshold", Err: err}
	}

	return exists, nil
}

func (r *PostgresStandardsRepository) NextSortOrder(ctx context.Context, standardID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(sort_order), 0) + 1
		FROM pq_thresholds
		WHERE standard_id = $1
	`

	var next int
	if err := r.db.QueryRowContext(ctx, query, standardID).Scan(&next); err != nil {
		return 0, &domain.StorageError{Op: "next sort order", Err: err}
	}

	return next, nil
}

func (r *PostgresStandardsRepository) CreateThreshold(ctx context.Context, threshold *domain.Threshold) error {
	query := `
		INSERT INTO pq_thresholds (threshold_id, standard_id, min_voltage, duration, sort_order)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		threshold.ThresholdID,
		threshold.StandardID,
		threshold.MinVoltage,
		threshold.Duration,
		threshold.SortOrder,
	)
	if err != nil {
		return &domain.StorageError{Op: "create threshold", Err: err}
	}

	return nil
}

func (r *PostgresStandardsRepository) UpdateThreshold(ctx context.Context, thresholdID string, minVoltage, duration float64) error {
	query := `
		UPDATE pq_thresholds
		SET min_voltage = $2, duration = $3
		WHERE threshold_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, thresholdID, minVoltage, duration)
	if err != nil {
		return &domain.StorageError{Op: "update threshold", Err: err}
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Entity: "threshold", ID: thresholdID}
	}

	return nil
}

func (r *PostgresStandardsRepository) DeleteThreshold(ctx context.Context, thresholdID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pq_thresholds WHERE threshold_id = $1`, thresholdID); err != nil {
		return &domain.StorageError{Op: "delete threshold", Err: err}
	}

	return nil
}
