package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/registry"
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetried
	outcomeDeadLettered
)

type batchStats struct {
	claimed      int
	published    int
	retried      int
	deadLettered int
}

func (b *batchStats) record(o outcome) {
	switch o {
	case outcomePublished:
		b.published++
	case outcomeRetried:
		b.retried++
	case outcomeDeadLettered:
		b.deadLettered++
	}
}

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"claimed":       b.claimed,
		"published":     b.published,
		"retried":       b.retried,
		"dead_lettered": b.deadLettered,
	}
}

// processBatch publishes one locked batch inside a single transaction. Row
// bookkeeping errors abort the batch; publish failures are recorded per row.
func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.settings.batchSize, s.settings.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox batch: %w", err)
		}
		stats.claimed = len(events)
		for _, event := range events {
			result, err := s.dispatch(ctx, tx, event)
			if err != nil {
				return err
			}
			stats.record(result)
		}
		return nil
	})
	return stats, err
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, eventFields(event, ""))
	}

	fields := eventFields(event, resolved.Descriptor.Topic)
	publishErr := s.publish(ctx, event, resolved.Descriptor.Topic)
	switch {
	case publishErr == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	case registry.IsNonRetryable(publishErr):
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, publishErr, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.settings.maxAttempts {
		exhausted := fmt.Errorf("max publish attempts reached: %w", publishErr)
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, exhausted, fields)
	}

	fields["error"] = publishErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
	s.metrics.IncFailed(string(event.EventType))
	if err := s.repo.MarkFailedTx(tx, event.ID, publishErr); err != nil {
		return outcomeRetried, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetried, nil
}

// deadLetter copies the row to outbox_dlq and pins its attempt count at the
// maximum so it is never claimed again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event moved to dlq")

	if err := s.dlq.InsertTx(tx, event, reason, cause, s.now()); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.settings.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(event.EventType))
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, topic string) error {
	pub := s.publishers.get(topic)
	if pub == nil {
		return registry.NonRetryable("publisher not configured for topic %s", topic)
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.settings.publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, newMessage(event))
	if result == nil {
		return registry.NonRetryable("publisher returned nil for topic %s", topic)
	}
	_, err := result.Get(publishCtx)
	return err
}

// newMessage sends the stored envelope unchanged. Consumers dedupe on the
// event_id attribute, which is also the outbox row id.
func newMessage(event models.OutboxEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.OrderingKey,
		Attributes: map[string]string{
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"event_id":      event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"ordering_key":  event.OrderingKey,
		"attempt_count": event.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
