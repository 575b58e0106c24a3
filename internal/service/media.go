package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/event"
	"github.com/riturajsingh8919/anti-romantic/internal/metrics"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
)

// MediaService assigns default and hover media to products. It keeps one
// record per product and lets at most one record hold the video slot.
type MediaService struct {
	repo     repository.MediaRecordRepository
	products repository.ProductRepository
	cleaner  *AssetCleaner
	producer *event.Producer
	logger   *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(
	repo repository.MediaRecordRepository,
	products repository.ProductRepository,
	cleaner *AssetCleaner,
	producer *event.Producer,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		repo:     repo,
		products: products,
		cleaner:  cleaner,
		producer: producer,
		logger:   logger,
	}
}

// MediaInput is the media pair supplied on create and update. Exactly one
// of DefaultVideo and DefaultImage must be present.
type MediaInput struct {
	DefaultVideo *domain.VideoAsset
	DefaultImage *domain.ImageAsset
	HoverImage   *domain.ImageAsset
	IsActive     *bool
}

// validate checks the media pair and returns the default media.
func (in *MediaInput) validate() (domain.DefaultMedia, error) {
	def, err := domain.NewDefaultMedia(in.DefaultVideo, in.DefaultImage)
	if err != nil {
		return nil, invalidMedia(err)
	}
	if !in.HoverImage.Present() {
		return nil, invalidMedia(domain.ErrHoverImageRequired)
	}
	return def, nil
}

// CreateMediaInput holds the parameters for creating a media record.
type CreateMediaInput struct {
	ProductID string
	MediaInput
}

// UpdateMediaInput holds the parameters for replacing a record's media.
type UpdateMediaInput struct {
	ID string
	MediaInput
}

// Create assigns media to a product that has none yet. Checks run in a
// fixed order and the first failure is returned.
func (s *MediaService) Create(ctx context.Context, input *CreateMediaInput) (*domain.MediaRecord, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, apperrors.MissingField("Product ID")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(msgProductNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if _, err := s.repo.GetByProductID(ctx, productID); err == nil {
		return nil, apperrors.Conflict(msgRecordExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("get media record by product: %w", err)
	}

	def, err := input.validate()
	if err != nil {
		return nil, err
	}

	if def.Kind() == domain.KindVideo {
		if err := s.checkVideoSlot(ctx, func(holder *domain.MediaRecord) bool {
			return holder.ProductID == productID
		}); err != nil {
			return nil, err
		}
	}

	rec := &domain.MediaRecord{
		ProductID: productID,
		Default:   def,
		Hover:     *input.HoverImage,
		IsActive:  input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, s.translateWrite(ctx, err, "create media record")
	}
	rec.Product = product.Ref()

	metrics.RecordsWritten.WithLabelValues(metrics.OpCreate).Inc()
	if err := s.producer.PublishMediaAssigned(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media.assigned event",
			slog.String("record_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "media assigned",
		slog.String("record_id", rec.ID),
		slog.String("product_id", rec.ProductID),
		slog.Bool("has_video", rec.HasVideo()),
	)
	return rec, nil
}

// Update replaces the default and hover media of an existing record. Remote
// assets the new media no longer references are removed after the record
// is saved; their failures are logged and queued, never returned.
func (s *MediaService) Update(ctx context.Context, input *UpdateMediaInput) (*domain.MediaRecord, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, apperrors.MissingField("Product image manager ID")
	}

	def, err := input.validate()
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(msgRecordNotFound)
		}
		return nil, fmt.Errorf("get media record: %w", err)
	}

	if def.Kind() == domain.KindVideo && !existing.HasVideo() {
		if err := s.checkVideoSlot(ctx, func(holder *domain.MediaRecord) bool {
			return holder.ID == existing.ID
		}); err != nil {
			return nil, err
		}
	}

	stale := staleAssets(existing, def, *input.HoverImage)

	rec := &domain.MediaRecord{
		ID:        existing.ID,
		ProductID: existing.ProductID,
		Default:   def,
		Hover:     *input.HoverImage,
		IsActive:  existing.IsActive,
		CreatedAt: existing.CreatedAt,
	}
	if input.IsActive != nil {
		rec.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(msgRecordNotFound)
		}
		return nil, s.translateWrite(ctx, err, "update media record")
	}

	s.cleaner.Purge(ctx, rec.ID, stale, ReasonReplaced)
	s.attachProduct(ctx, rec)

	metrics.RecordsWritten.WithLabelValues(metrics.OpUpdate).Inc()
	if err := s.producer.PublishMediaUpdated(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media.updated event",
			slog.String("record_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "media updated",
		slog.String("record_id", rec.ID),
		slog.String("product_id", rec.ProductID),
		slog.Bool("has_video", rec.HasVideo()),
		slog.Int("stale_assets", len(stale)),
	)
	return rec, nil
}

// Delete removes a record, then makes a best-effort attempt to remove each
// of its remote assets. The record goes first so that no stored record ever
// references an asset that is already gone; assets that fail to delete are
// handed to the cleanup queue.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.MissingField("Product image manager ID")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound(msgRecordNotFound)
		}
		return fmt.Errorf("get media record for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound(msgRecordNotFound)
		}
		return fmt.Errorf("delete media record: %w", err)
	}

	s.cleaner.Purge(ctx, id, existing.Assets(), ReasonDeleted)

	metrics.RecordsWritten.WithLabelValues(metrics.OpDelete).Inc()
	if err := s.producer.PublishMediaRemoved(ctx, existing); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media.removed event",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "media record deleted",
		slog.String("record_id", id),
		slog.String("product_id", existing.ProductID),
	)
	return nil
}

// DeleteRemoteAsset removes one remote asset by external id or URL. It is
// tried as an image first and, if that deletes nothing, as a video.
func (s *MediaService) DeleteRemoteAsset(ctx context.Context, idOrURL string) error {
	idOrURL = strings.TrimSpace(idOrURL)
	if idOrURL == "" {
		return apperrors.MissingField("Media ID")
	}

	var lastErr error
	for _, kind := range []domain.MediaKind{domain.KindImage, domain.KindVideo} {
		ok, err := s.cleaner.storage.Destroy(ctx, idOrURL, kind)
		if err != nil {
			lastErr = err
			s.logger.WarnContext(ctx, "remote asset delete attempt failed",
				slog.String("external_id", idOrURL),
				slog.String("resource_type", string(kind)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			s.logger.InfoContext(ctx, "remote asset deleted",
				slog.String("external_id", idOrURL),
				slog.String("resource_type", string(kind)),
			)
			return nil
		}
	}

	if lastErr != nil {
		return apperrors.UpstreamFailure(msgDeleteMediaFailed, lastErr)
	}
	return apperrors.InvalidInput(msgDeleteMediaFailed)
}

// checkVideoSlot fails with a conflict naming the current holder unless
// there is none or owns reports that the caller already holds it.
func (s *MediaService) checkVideoSlot(ctx context.Context, owns func(holder *domain.MediaRecord) bool) error {
	holder, err := s.repo.FindVideoHolder(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find video holder: %w", err)
	}
	if owns(holder) {
		return nil
	}
	return s.videoConflict(ctx, holder)
}

func (s *MediaService) videoConflict(ctx context.Context, holder *domain.MediaRecord) error {
	metrics.VideoSlotConflicts.Inc()
	name := holder.ProductID
	if names, err := s.products.GetNames(ctx, []string{holder.ProductID}); err == nil && names[holder.ProductID] != "" {
		name = names[holder.ProductID]
	}
	return videoSlotConflict(name)
}

// translateWrite maps store uniqueness violations, which can still occur
// when two writers pass the pre-checks concurrently.
func (s *MediaService) translateWrite(ctx context.Context, err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateProduct):
		return apperrors.Conflict(msgRecordExists)
	case errors.Is(err, repository.ErrVideoSlotTaken):
		holder, herr := s.repo.FindVideoHolder(ctx)
		if herr != nil {
			metrics.VideoSlotConflicts.Inc()
			return apperrors.Conflict("Only one product can have video.")
		}
		return s.videoConflict(ctx, holder)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *MediaService) attachProduct(ctx context.Context, rec *domain.MediaRecord) {
	names, err := s.products.GetNames(ctx, []string{rec.ProductID})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve product name",
			slog.String("product_id", rec.ProductID),
			slog.String("error", err.Error()),
		)
		names = nil
	}
	rec.Product = &domain.ProductRef{ID: rec.ProductID, Name: names[rec.ProductID]}
}

// staleAssets lists the assets of existing that the replacement no longer
// references: the previous default media when its kind or identity
// changes, and the previous hover image when its identity changes.
func staleAssets(existing *domain.MediaRecord, def domain.DefaultMedia, hover domain.ImageAsset) []domain.AssetRef {
	var stale []domain.AssetRef
	if existing.Default != nil {
		if old := existing.Default.Ref(); !domain.SameAsset(old, def.Ref()) {
			stale = append(stale, old)
		}
	}
	if existing.Hover.Present() {
		if old := existing.Hover.Ref(); !domain.SameAsset(old, hover.Ref()) {
			stale = append(stale, old)
		}
	}
	return stale
}
