package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pq-sarfi/internal/domain"
)

func setupMockEventsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresEventsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresEventsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestListEvents_FiltersApplied(t *testing.T) {
	db, mock, repo := setupMockEventsDB(t)
	defer db.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"event_id", "event_type", "event_time", "v1", "v2", "v3", "duration_ms",
		"meter_id", "substation_id", "circuit_id",
		"is_mother_event", "is_child_event", "false_event", "is_special_event", "sarfi_70",
	}).AddRow(
		"EV-1", "voltage_dip", time.Date(2024, 5, 10, 8, 15, 0, 0, time.UTC),
		72.5, nil, nil, 120.0,
		"MTR-001", "SUB-01", "CCT-7",
		true, false, false, false, nil,
	)

	mock.ExpectQuery(`FROM pq_events`).
		WithArgs(start, end, "voltage_dip", "MTR-001").
		WillReturnRows(rows)

	events, err := repo.ListEvents(context.Background(), EventFilters{
		StartTime: &start,
		EndTime:   &end,
		EventType: "voltage_dip",
		MeterIDs:  []string{"MTR-001"},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.NotNil(t, ev.V1)
	assert.Equal(t, 72.5, *ev.V1)
	assert.Nil(t, ev.V2)
	assert.Nil(t, ev.V3)
	assert.Nil(t, ev.Sarfi70)
	assert.True(t, ev.IsMotherEvent)
}

func TestInsertEvent_NullPhases(t *testing.T) {
	db, mock, repo := setupMockEventsDB(t)
	defer db.Close()

	v1 := 60.0
	event := &domain.Event{
		EventID:       "EV-2",
		EventType:     domain.EventTypeVoltageDip,
		Timestamp:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		V1:            &v1,
		DurationMS:    250,
		MeterID:       "MTR-002",
		IsMotherEvent: true,
	}

	mock.ExpectExec(`ON CONFLICT \(event_id\) DO NOTHING`).
		WithArgs(
			event.EventID, event.EventType, event.Timestamp,
			sql.NullFloat64{Float64: 60.0, Valid: true},
			sql.NullFloat64{},
			sql.NullFloat64{},
			event.DurationMS, event.MeterID, "", "",
			true, false, false, false,
			sql.NullFloat64{},
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertEvent(context.Background(), event)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMeter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresMetersRepository(db, zap.NewNop())

	meter := &domain.PQMeter{
		ID:           "a6b1",
		MeterID:      "MTR-001",
		OC:           "North",
		Location:     "Alpha",
		SubstationID: "SUB-01",
		VoltageLevel: "11kV",
	}

	mock.ExpectExec(`ON CONFLICT \(meter_id\)`).
		WithArgs(meter.ID, meter.MeterID, meter.OC, meter.Location, meter.SubstationID, meter.VoltageLevel).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertMeter(context.Background(), meter))
	assert.NoError(t, mock.ExpectationsWereMet())
}
