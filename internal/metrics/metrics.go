package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write operations recorded by RecordsWritten.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Cleanup outcomes recorded by Cleanup.
const (
	CleanupDeleted = "deleted"
	CleanupMissing = "missing"
	CleanupFailed  = "failed"
	CleanupQueued  = "queued"
)

// Media domain metrics.
var (
	// RecordsWritten counts successful media record writes by operation.
	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_records_written_total",
		Help: "Media records created, updated or deleted",
	}, []string{"op"})

	// Cleanup counts remote asset deletions by outcome.
	Cleanup = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_cleanup_total",
		Help: "Remote asset deletions attempted after record writes",
	}, []string{"result"})

	// VideoSlotConflicts counts writes rejected because another product
	// holds the video slot.
	VideoSlotConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_video_slot_conflicts_total",
		Help: "Writes rejected because the catalog video slot is taken",
	})

	// Uploads counts media uploads by resource type.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uploads_total",
		Help: "Files uploaded to the remote media service",
	}, []string{"resource_type"})
)
