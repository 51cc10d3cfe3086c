package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// OutboxSource is the slice of PostgresStore the worker needs.
type OutboxSource interface {
	PendingOutbox(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

const (
	outboxBatchSize    = 100
	outboxPollInterval = 2 * time.Second
)

// OutboxWorker drains committed audit events from the outbox table to Kafka.
// Delivery is at-least-once: a row is only marked published after the produce
// is acknowledged, so a crash between produce and mark replays the event.
type OutboxWorker struct {
	source OutboxSource
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewOutboxWorker(source OutboxSource, client *kgo.Client, topic string, logger *slog.Logger) *OutboxWorker {
	return &OutboxWorker{source: source, client: client, topic: topic, logger: logger}
}

// Run polls the outbox until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *OutboxWorker) drainOnce(ctx context.Context) error {
	rows, err := w.source.PendingOutbox(ctx, outboxBatchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		record := &kgo.Record{
			Topic: w.topic,
			Key:   []byte(row.ID.String()),
			Value: row.Payload,
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			// Stop the batch; unpublished rows stay pending and retry next tick.
			w.logger.ErrorContext(ctx, "audit event produce failed",
				"event_id", row.ID.String(), "error", err)
			break
		}
		published = append(published, row.ID)
	}

	if err := w.source.MarkPublished(ctx, published); err != nil {
		return err
	}
	if len(published) > 0 {
		w.logger.InfoContext(ctx, "audit events published", "count", len(published))
	}
	return nil
}
