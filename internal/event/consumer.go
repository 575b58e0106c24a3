package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/riturajsingh8919/anti-romantic/pkg/kafka"
)

// AssetCleaner retries the deletion of one remote asset.
type AssetCleaner interface {
	RetryCleanup(ctx context.Context, req CleanupRequestedData) error
}

// Consumer processes media.cleanup_requested events.
type Consumer struct {
	cleaner AssetCleaner
	logger  *slog.Logger
}

// NewConsumer creates a new cleanup event consumer.
func NewConsumer(cleaner AssetCleaner, logger *slog.Logger) *Consumer {
	return &Consumer{
		cleaner: cleaner,
		logger:  logger,
	}
}

// HandleCleanupRequested deletes the asset named by the event. Returning
// an error makes the consumer retry and eventually dead-letter it.
func (c *Consumer) HandleCleanupRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data CleanupRequestedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal media.cleanup_requested data: %w", err)
	}
	if data.ExternalID == "" {
		c.logger.WarnContext(ctx, "dropping cleanup request without external id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "processing media.cleanup_requested event",
		slog.String("external_id", data.ExternalID),
		slog.String("resource_type", string(data.Kind)),
		slog.String("record_id", data.RecordID),
	)

	if err := c.cleaner.RetryCleanup(ctx, data); err != nil {
		return fmt.Errorf("clean up asset %s: %w", data.ExternalID, err)
	}
	return nil
}
