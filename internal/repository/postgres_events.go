package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pq-sarfi/internal/domain"

	"go.uber.org/zap"
)

// PostgresEventsRepository EventsRepository backed by Postgres
type PostgresEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresEventsRepository creates the repository
func NewPostgresEventsRepository(db *sql.DB, logger *zap.Logger) *PostgresEventsRepository {
	return &PostgresEventsRepository{db: db, logger: logger}
}

var _ EventsRepository = (*PostgresEventsRepository)(nil)

func (r *PostgresEventsRepository) ListEvents(ctx context.Context, filters EventFilters) ([]domain.Event, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	argN := 1

	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("event_time >= $%d", argN))
		args = append(args, *filters.StartTime)
		argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("event_time <= $%d", argN))
		args = append(args, *filters.EndTime)
		argN++
	}
	if filters.EventType != "" {
		where = append(where, fmt.Sprintf("event_type = $%d", argN))
		args = append(args, filters.EventType)
		argN++
	}
	if len(filters.MeterIDs) > 0 {
		placeholders := make([]string, len(filters.MeterIDs))
		for i := range filters.MeterIDs {
			placeholders[i] = fmt.Sprintf("$%d", argN)
			args = append(args, filters.MeterIDs[i])
			argN++
		}
		where = append(where, fmt.Sprintf("meter_id IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := fmt.Sprintf(`
		SELECT event_id, event_type, event_time, v1, v2, v3, duration_ms,
		       meter_id, COALESCE(substation_id, ''), COALESCE(circuit_id, ''),
		       is_mother_event, is_child_event, false_event, is_special_event, sarfi_70
		FROM pq_events
		WHERE %s
		ORDER BY event_time
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list events", Err: err}
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var v1, v2, v3, sarfi70 sql.NullFloat64

		if err := rows.Scan(
			&ev.EventID,
			&ev.EventType,
			&ev.Timestamp,
			&v1,
			&v2,
			&v3,
			&ev.DurationMS,
			&ev.MeterID,
			&ev.SubstationID,
			&ev.CircuitID,
			&ev.IsMotherEvent,
			&ev.IsChildEvent,
			&ev.FalseEvent,
			&ev.IsSpecialEvent,
			&sarfi70,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan event", Err: err}
		}

		if v1.Valid {
			ev.V1 = &v1.Float64
		}
		if v2.Valid {
			ev.V2 = &v2.Float64
		}
		if v3.Valid {
			ev.V3 = &v3.Float64
		}
		if sarfi70.Valid {
			ev.Sarfi70 = &sarfi70.Float64
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list events", Err: err}
	}

	return events, nil
}

func (r *PostgresEventsRepository) InsertEvent(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO pq_events (event_id, event_type, event_time, v1, v2, v3, duration_ms,
		                       meter_id, substation_id, circuit_id,
		                       is_mother_event, is_child_event, false_event, is_special_event, sarfi_70)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.EventType,
		event.Timestamp,
		nullableFloat(event.V1),
		nullableFloat(event.V2),
		nullableFloat(event.V3),
		event.DurationMS,
		event.MeterID,
		event.SubstationID,
		event.CircuitID,
		event.IsMotherEvent,
		event.IsChildEvent,
		event.FalseEvent,
		event.IsSpecialEvent,
		nullableFloat(event.Sarfi70),
	)
	if err != nil {
		return &domain.StorageError{Op: "insert event", Err: err}
	}

	return nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// PostgresMetersRepository MetersRepository backed by Postgres
type PostgresMetersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresMetersRepository creates the repository
func NewPostgresMetersRepository(db *sql.DB, logger *zap.Logger) *PostgresMetersRepository {
	return &PostgresMetersRepository{db: db, logger: logger}
}

var _ MetersRepository = (*PostgresMetersRepository)(nil)

func (r *PostgresMetersRepository) ListMeters(ctx context.Context) ([]domain.PQMeter, error) {
	query := `
		SELECT id, meter_id, COALESCE(oc, ''), COALESCE(location, ''),
		       COALESCE(substation_id, ''), COALESCE(voltage_level, '')
		FROM pq_meters
		ORDER BY meter_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list meters", Err: err}
	}
	defer rows.Close()

	var meters []domain.PQMeter
	for rows.Next() {
		var m domain.PQMeter
		if err := rows.Scan(&m.ID, &m.MeterID, &m.OC, &m.Location, &m.SubstationID, &m.VoltageLevel); err != nil {
			return nil, &domain.StorageError{Op: "scan meter", Err: err}
		}
		meters = append(meters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list meters", Err: err}
	}

	return meters, nil
}

func (r *PostgresMetersRepository) UpsertMeter(ctx context.Context, meter *domain.PQMeter) error {
	query := `
		INSERT INTO pq_meters (id, meter_id, oc, location, substation_id, voltage_level)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (meter_id)
		DO UPDATE SET oc = EXCLUDED.oc,
		              location = EXCLUDED.location,
		              substation_id = EXCLUDED.substation_id,
		              voltage_level = EXCLUDED.voltage_level
	`

	_, err := r.db.ExecContext(ctx, query,
		meter.ID,
		meter.MeterID,
		meter.OC,
		meter.Location,
		meter.SubstationID,
		meter.VoltageLevel,
	)
	if err != nil {
		return &domain.StorageError{Op: "upsert meter", Err: err}
	}

	return nil
}
