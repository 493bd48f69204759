package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pq-sarfi/internal/repository"
)

func TestHandleMessage_ArrayPayload(t *testing.T) {
	events := repository.NewMemoryEventsRepo()
	feed := NewEventFeed(nil, events, "pq/events/dips", zap.NewNop())

	payload := []byte(`[
		{"event_id":"EV-1","event_type":"voltage_dip","timestamp":"2024-05-10T08:15:00Z","v1":72.5,"duration_ms":120,"meter_id":"MTR-001"},
		{"event_id":"EV-2","event_type":"voltage_dip","timestamp":"2024-05-10T09:30:00Z","v1":45.0,"v2":50.1,"duration_ms":300,"meter_id":"MTR-002"}
	]`)

	err := feed.HandleMessage(context.Background(), payload)
	require.NoError(t, err)

	stored, err := events.ListEvents(context.Background(), repository.EventFilters{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestHandleMessage_SingleObjectPayload(t *testing.T) {
	events := repository.NewMemoryEventsRepo()
	feed := NewEventFeed(nil, events, "pq/events/dips", zap.NewNop())

	payload := []byte(`{"event_id":"EV-3","event_type":"voltage_dip","timestamp":"2024-05-11T10:00:00Z","v3":88.0,"duration_ms":60,"meter_id":"MTR-001"}`)

	err := feed.HandleMessage(context.Background(), payload)
	require.NoError(t, err)

	stored, err := events.ListEvents(context.Background(), repository.EventFilters{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "EV-3", stored[0].EventID)
}

func TestHandleMessage_BadRecordDoesNotAbortBatch(t *testing.T) {
	events := repository.NewMemoryEventsRepo()
	feed := NewEventFeed(nil, events, "pq/events/dips", zap.NewNop())

	// second record is missing meter_id and must be skipped
	payload := []byte(`[
		{"event_id":"EV-4","event_type":"voltage_dip","timestamp":"2024-05-12T08:00:00Z","v1":60.0,"duration_ms":200,"meter_id":"MTR-001"},
		{"event_id":"EV-5","event_type":"voltage_dip","timestamp":"2024-05-12T08:05:00Z","v1":55.0,"duration_ms":150},
		{"event_id":"EV-6","event_type":"voltage_dip","timestamp":"2024-05-12T08:10:00Z","v1":30.0,"duration_ms":100,"meter_id":"MTR-002"}
	]`)

	err := feed.HandleMessage(context.Background(), payload)
	require.NoError(t, err)

	stored, err := events.ListEvents(context.Background(), repository.EventFilters{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestHandleMessage_MalformedPayload(t *testing.T) {
	events := repository.NewMemoryEventsRepo()
	feed := NewEventFeed(nil, events, "pq/events/dips", zap.NewNop())

	err := feed.HandleMessage(context.Background(), []byte(`not json`))
	require.Error(t, err)
}
