package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	pkgkafka "github.com/riturajsingh8919/anti-romantic/pkg/kafka"
)

// Kafka topics for media domain events.
var (
	TopicMediaAssigned         = pkgkafka.Topic("media", "assigned")
	TopicMediaUpdated          = pkgkafka.Topic("media", "updated")
	TopicMediaRemoved          = pkgkafka.Topic("media", "removed")
	TopicMediaCleanupRequested = pkgkafka.Topic("media", "cleanup_requested")
)

// Aggregate type constant.
const AggregateTypeMediaRecord = "media_record"

// SourceMediaService identifies events published by this service.
const SourceMediaService = "media-service"

// MediaRecordData is the payload of media.assigned, media.updated and
// media.removed events.
type MediaRecordData struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"product_id"`
	DefaultKind domain.MediaKind `json:"default_kind,omitempty"`
	DefaultURL  string           `json:"default_url,omitempty"`
	HoverURL    string           `json:"hover_url,omitempty"`
	HasVideo    bool             `json:"has_video"`
	IsActive    bool             `json:"is_active"`
}

// CleanupRequestedData is the payload of a media.cleanup_requested event:
// one remote asset whose deletion failed after its record was written.
type CleanupRequestedData struct {
	RecordID   string           `json:"record_id,omitempty"`
	ExternalID string           `json:"external_id"`
	URL        string           `json:"url,omitempty"`
	Kind       domain.MediaKind `json:"kind"`
	Reason     string           `json:"reason"`
	LastError  string           `json:"last_error,omitempty"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes media domain events. A Producer without a publisher
// drops events, which is how the service runs with Kafka disabled.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the media service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

func recordData(rec *domain.MediaRecord) MediaRecordData {
	data := MediaRecordData{
		ID:        rec.ID,
		ProductID: rec.ProductID,
		HoverURL:  rec.Hover.URL,
		HasVideo:  rec.HasVideo(),
		IsActive:  rec.IsActive,
	}
	if rec.Default != nil {
		data.DefaultKind = rec.Default.Kind()
		data.DefaultURL = rec.Default.Ref().URL
	}
	return data
}

// PublishMediaAssigned publishes a media.assigned event.
func (p *Producer) PublishMediaAssigned(ctx context.Context, rec *domain.MediaRecord) error {
	return p.publish(ctx, TopicMediaAssigned, rec.ID, recordData(rec))
}

// PublishMediaUpdated publishes a media.updated event.
func (p *Producer) PublishMediaUpdated(ctx context.Context, rec *domain.MediaRecord) error {
	return p.publish(ctx, TopicMediaUpdated, rec.ID, recordData(rec))
}

// PublishMediaRemoved publishes a media.removed event.
func (p *Producer) PublishMediaRemoved(ctx context.Context, rec *domain.MediaRecord) error {
	return p.publish(ctx, TopicMediaRemoved, rec.ID, recordData(rec))
}

// PublishCleanupRequested queues a remote asset for asynchronous deletion.
// The event is keyed by the asset so retries of one asset stay ordered.
func (p *Producer) PublishCleanupRequested(ctx context.Context, data CleanupRequestedData) error {
	return p.publish(ctx, TopicMediaCleanupRequested, data.ExternalID, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(ctx, pkgkafka.Meta{
		Type:          topic,
		AggregateID:   aggregateID,
		AggregateType: AggregateTypeMediaRecord,
		Source:        SourceMediaService,
	}, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published media event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
