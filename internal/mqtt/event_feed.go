package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"pq-sarfi/internal/domain"
	"pq-sarfi/internal/repository"
	pkgmqtt "pq-sarfi/pkg/mqtt"
)

// EventFeed consumes summarized dip events published by the upstream
// collection system and stores them for later queries.
type EventFeed struct {
	client *pkgmqtt.Client
	events repository.EventsRepository
	topic  string
	logger *zap.Logger
}

// NewEventFeed creates an event feed consumer
func NewEventFeed(client *pkgmqtt.Client, events repository.EventsRepository, topic string, logger *zap.Logger) *EventFeed {
	return &EventFeed{
		client: client,
		events: events,
		topic:  topic,
		logger: logger,
	}
}

// Start subscribes to the feed topic
func (f *EventFeed) Start(ctx context.Context) error {
	handler := func(topic string, payload []byte) error {
		return f.HandleMessage(ctx, payload)
	}

	if err := f.client.Subscribe(f.topic, 1, handler); err != nil {
		return fmt.Errorf("failed to subscribe to event feed: %w", err)
	}

	f.logger.Info("Event feed started", zap.String("topic", f.topic))
	return nil
}

// Stop unsubscribes from the feed topic
func (f *EventFeed) Stop() error {
	return f.client.Unsubscribe(f.topic)
}

// HandleMessage parses one feed payload and stores its events. Payloads
// carry either a JSON array of events or a single event object. A bad
// record is logged and skipped so the rest of the batch still lands.
func (f *EventFeed) HandleMessage(ctx context.Context, payload []byte) error {
	events, err := parsePayload(payload)
	if err != nil {
		f.logger.Error("Failed to parse event feed payload", zap.Error(err))
		return err
	}

	successCount := 0
	errorCount := 0

	for _, ev := range events {
		if ev.EventID == "" || ev.MeterID == "" {
			f.logger.Warn("Skipping event with missing identity",
				zap.String("event_id", ev.EventID),
				zap.String("meter_id", ev.MeterID),
			)
			errorCount++
			continue
		}

		if err := f.events.InsertEvent(ctx, ev); err != nil {
			f.logger.Error("Failed to insert event",
				zap.String("event_id", ev.EventID),
				zap.Error(err),
			)
			errorCount++
			continue
		}
		successCount++
	}

	f.logger.Info("Event feed batch processed",
		zap.Int("success_count", successCount),
		zap.Int("error_count", errorCount),
	)

	return nil
}

func parsePayload(payload []byte) ([]*domain.Event, error) {
	var events []*domain.Event
	if err := json.Unmarshal(payload, &events); err == nil {
		return events, nil
	}

	var single domain.Event
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
	}
	return []*domain.Event{&single}, nil
}
