package service

import (
	"context"
	"log/slog"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/event"
	"github.com/riturajsingh8919/anti-romantic/internal/metrics"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
)

// Reasons attached to cleanup requests.
const (
	ReasonReplaced = "replaced"
	ReasonDeleted  = "deleted"
)

// AssetCleaner deletes remote assets that no record references any more.
// Failures never reach the caller: they are logged and, when Kafka is
// enabled, queued as media.cleanup_requested events for the cleanup
// worker.
type AssetCleaner struct {
	storage  storage.Storage
	producer *event.Producer
	logger   *slog.Logger
}

// NewAssetCleaner creates a new asset cleaner.
func NewAssetCleaner(store storage.Storage, producer *event.Producer, logger *slog.Logger) *AssetCleaner {
	return &AssetCleaner{
		storage:  store,
		producer: producer,
		logger:   logger,
	}
}

// Purge attempts to delete each asset in turn. One failure does not stop
// the others.
func (c *AssetCleaner) Purge(ctx context.Context, recordID string, refs []domain.AssetRef, reason string) {
	for _, ref := range refs {
		c.purgeOne(ctx, recordID, ref, reason)
	}
}

func (c *AssetCleaner) purgeOne(ctx context.Context, recordID string, ref domain.AssetRef, reason string) {
	log := c.logger.With(
		slog.String("record_id", recordID),
		slog.String("external_id", ref.Key()),
		slog.String("resource_type", string(ref.Kind)),
	)

	ok, err := c.storage.Destroy(ctx, ref.Key(), ref.Kind)
	switch {
	case err != nil:
		metrics.Cleanup.WithLabelValues(metrics.CleanupFailed).Inc()
		log.WarnContext(ctx, "failed to delete remote asset", slog.String("error", err.Error()))
		c.enqueue(ctx, event.CleanupRequestedData{
			RecordID:   recordID,
			ExternalID: ref.Key(),
			URL:        ref.URL,
			Kind:       ref.Kind,
			Reason:     reason,
			LastError:  err.Error(),
		})
	case !ok:
		metrics.Cleanup.WithLabelValues(metrics.CleanupMissing).Inc()
		log.DebugContext(ctx, "remote asset already gone")
	default:
		metrics.Cleanup.WithLabelValues(metrics.CleanupDeleted).Inc()
		log.DebugContext(ctx, "remote asset deleted")
	}
}

func (c *AssetCleaner) enqueue(ctx context.Context, req event.CleanupRequestedData) {
	if !c.producer.Enabled() {
		return
	}
	if err := c.producer.PublishCleanupRequested(ctx, req); err != nil {
		c.logger.ErrorContext(ctx, "failed to queue remote asset cleanup",
			slog.String("external_id", req.ExternalID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.Cleanup.WithLabelValues(metrics.CleanupQueued).Inc()
}

// RetryCleanup deletes the asset of a queued cleanup request. A missing
// asset counts as done; a failure is returned so the consumer retries.
func (c *AssetCleaner) RetryCleanup(ctx context.Context, req event.CleanupRequestedData) error {
	ok, err := c.storage.Destroy(ctx, req.ExternalID, req.Kind)
	if err != nil {
		metrics.Cleanup.WithLabelValues(metrics.CleanupFailed).Inc()
		return err
	}
	if !ok {
		metrics.Cleanup.WithLabelValues(metrics.CleanupMissing).Inc()
		c.logger.InfoContext(ctx, "queued asset already gone",
			slog.String("external_id", req.ExternalID),
			slog.String("resource_type", string(req.Kind)),
		)
		return nil
	}
	metrics.Cleanup.WithLabelValues(metrics.CleanupDeleted).Inc()
	c.logger.InfoContext(ctx, "queued asset deleted",
		slog.String("external_id", req.ExternalID),
		slog.String("resource_type", string(req.Kind)),
		slog.String("record_id", req.RecordID),
	)
	return nil
}
