package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/event"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	memrepo "github.com/riturajsingh8919/anti-romantic/internal/repository/memory"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
	memstorage "github.com/riturajsingh8919/anti-romantic/internal/storage/memory"
	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
	"github.com/riturajsingh8919/anti-romantic/pkg/pagination"
)

const testPlaceholder = "/store/product1.png"

// ============================================================================
// ListingService
// ============================================================================

func TestListingService_ClampsPageSize(t *testing.T) {
	repo := new(mockMediaRepository)
	products := new(mockProductRepository)
	svc := NewListingService(repo, products, newTestLogger())

	repo.On("List", mock.Anything, repository.MediaFilter{Offset: 0, Limit: 1000}).Return([]domain.MediaRecord{}, 0, nil)
	repo.On("List", mock.Anything, repository.MediaFilter{Offset: 0, Limit: 10}).Return([]domain.MediaRecord{}, 0, nil)

	_, meta, err := svc.List(context.Background(), pagination.Params{Page: 1, Limit: 5000}, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1000, meta.Limit)

	_, meta, err = svc.List(context.Background(), pagination.Params{Page: 0, Limit: 0}, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 10, meta.Limit)

	products.AssertNotCalled(t, "GetNames", mock.Anything, mock.Anything)
}

func TestListingService_PassesFilters(t *testing.T) {
	repo := new(mockMediaRepository)
	products := new(mockProductRepository)
	svc := NewListingService(repo, products, newTestLogger())

	pid, active := "p-1", true
	want := repository.MediaFilter{ProductID: &pid, IsActive: &active, Offset: 20, Limit: 10}
	repo.On("List", mock.Anything, want).Return([]domain.MediaRecord{{ID: "r-1", ProductID: "p-1"}}, 21, nil)
	products.On("GetNames", mock.Anything, []string{"p-1"}).Return(map[string]string{"p-1": "Tee"}, nil)

	recs, meta, err := svc.List(context.Background(), pagination.Params{Page: 3, Limit: 10}, ListFilter{ProductID: &pid, IsActive: &active})

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Tee", recs[0].ProductName())
	assert.Equal(t, 3, meta.TotalPages)
	assert.False(t, meta.HasNext)
}

func TestListingService_NameLookupFailureDegrades(t *testing.T) {
	repo := new(mockMediaRepository)
	products := new(mockProductRepository)
	svc := NewListingService(repo, products, newTestLogger())

	repo.On("List", mock.Anything, mock.Anything).Return([]domain.MediaRecord{{ID: "r-1", ProductID: "p-1"}}, 1, nil)
	products.On("GetNames", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	recs, _, err := svc.List(context.Background(), pagination.Params{}, ListFilter{})

	require.NoError(t, err)
	require.NotNil(t, recs[0].Product)
	assert.Equal(t, "p-1", recs[0].Product.ID)
	assert.Empty(t, recs[0].ProductName())
}

func TestListingService_ListFailure(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := NewListingService(repo, new(mockProductRepository), newTestLogger())
	repo.On("List", mock.Anything, mock.Anything).Return([]domain.MediaRecord(nil), 0, errors.New("db down"))

	_, _, err := svc.List(context.Background(), pagination.Params{}, ListFilter{})

	assert.Error(t, err)
}

func TestListingService_Console(t *testing.T) {
	repo := new(mockMediaRepository)
	products := new(mockProductRepository)
	svc := NewListingService(repo, products, newTestLogger())

	holder := domain.MediaRecord{ID: "r-2", ProductID: "p-2", Default: video("v.mp4", "")}
	repo.On("List", mock.Anything, mock.Anything).Return([]domain.MediaRecord{{ID: "r-1", ProductID: "p-1"}, holder}, 2, nil)
	repo.On("FindVideoHolder", mock.Anything).Return(&holder, nil)
	products.On("GetNames", mock.Anything, mock.Anything).Return(map[string]string{"p-1": "Tee", "p-2": "Coat"}, nil)

	view, err := svc.Console(context.Background(), pagination.Params{Page: 1, Limit: 10}, ListFilter{})

	require.NoError(t, err)
	assert.Len(t, view.Records, 2)
	assert.Equal(t, 2, view.Pagination.Total)
	require.NotNil(t, view.VideoHolder)
	assert.Equal(t, "Coat", view.VideoHolder.ProductName())
}

func TestListingService_NoVideoHolder(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := NewListingService(repo, new(mockProductRepository), newTestLogger())
	repo.On("FindVideoHolder", mock.Anything).Return(nil, repository.ErrNotFound)

	holder, err := svc.GetVideoHolder(context.Background())

	require.NoError(t, err)
	assert.Nil(t, holder)
}

// ============================================================================
// CatalogService
// ============================================================================

func storefront() (*CatalogService, *memrepo.MediaRecordRepository) {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	products := memrepo.NewProductRepository(
		domain.Product{ID: "p-1", Name: "Tee", Category: "shirts", Price: 900, Sizes: []string{"m"}, IsActive: true, CreatedAt: at,
			Images: []domain.ProductImage{{URL: "/store/tee.png", Alt: "White tee"}}},
		domain.Product{ID: "p-2", Name: "Coat", Category: "coats", Price: 9000, Sizes: []string{"l"}, IsActive: true, IsFeatured: true, CreatedAt: at.Add(time.Hour)},
		domain.Product{ID: "p-3", Name: "Scarf", Category: "accessories", Price: 1500, IsActive: true, CreatedAt: at.Add(2 * time.Hour)},
		domain.Product{ID: "p-4", Name: "Hidden", Category: "coats", Price: 50, IsActive: false, CreatedAt: at.Add(3 * time.Hour)},
	)
	media := memrepo.NewMediaRecordRepository()
	return NewCatalogService(products, media, testPlaceholder, newTestLogger()), media
}

func TestCatalogService_ListCards(t *testing.T) {
	ctx := context.Background()
	svc, media := storefront()
	require.NoError(t, media.Create(ctx, &domain.MediaRecord{
		ProductID: "p-2", Default: video("coat.mp4", ""), Hover: *image("coat-h.png", ""), IsActive: true,
	}))
	require.NoError(t, media.Create(ctx, &domain.MediaRecord{
		ProductID: "p-3", Default: image("scarf.png", ""), Hover: *image("scarf-h.png", ""), IsActive: false,
	}))

	cards, meta, err := svc.ListCards(ctx, pagination.Params{Page: 1, Limit: 20}, ProductQuery{Sort: domain.SortDateOldest})

	require.NoError(t, err)
	assert.Equal(t, 3, meta.Total)
	require.Len(t, cards, 3)

	assert.Equal(t, "/store/tee.png", cards[0].DefaultMedia.URL)
	assert.Equal(t, "White tee", cards[0].DefaultMedia.AltText)
	assert.Nil(t, cards[0].HoverMedia)

	assert.True(t, cards[1].HasVideo)
	assert.Equal(t, domain.KindVideo, cards[1].DefaultMedia.Type)
	require.NotNil(t, cards[1].HoverMedia)
	assert.Equal(t, "coat-h.png", cards[1].HoverMedia.URL)

	// Inactive records are ignored; no product image falls back to the placeholder.
	assert.Equal(t, testPlaceholder, cards[2].DefaultMedia.URL)
	assert.False(t, cards[2].HasVideo)
}

func TestCatalogService_ListCards_MediaFailureDegrades(t *testing.T) {
	products := memrepo.NewProductRepository(domain.Product{ID: "p-1", Name: "Tee", IsActive: true})
	media := new(mockMediaRepository)
	media.On("ListByProductIDs", mock.Anything, []string{"p-1"}, true).Return(nil, errors.New("redis and mongo down"))
	svc := NewCatalogService(products, media, testPlaceholder, newTestLogger())

	cards, _, err := svc.ListCards(context.Background(), pagination.Params{}, ProductQuery{})

	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, testPlaceholder, cards[0].DefaultMedia.URL)
	assert.Equal(t, "Tee", cards[0].DefaultMedia.AltText)
}

func TestCatalogService_ListProducts_Query(t *testing.T) {
	svc, _ := storefront()
	ctx := context.Background()
	lo, hi := 1000.0, 500.0

	tests := []struct {
		name    string
		query   ProductQuery
		want    []string
		wantErr string
	}{
		{name: "featured by default", query: ProductQuery{}, want: []string{"p-2", "p-3", "p-1"}},
		{name: "all category", query: ProductQuery{Category: "all", Sort: domain.SortPriceLowHigh}, want: []string{"p-1", "p-3", "p-2"}},
		{name: "category", query: ProductQuery{Category: "coats"}, want: []string{"p-2"}},
		{name: "size is case-insensitive", query: ProductQuery{Size: "M"}, want: []string{"p-1"}},
		{name: "unknown sort", query: ProductQuery{Sort: "random"}, wantErr: "sort must be one of"},
		{name: "unknown size", query: ProductQuery{Size: "xxxl"}, wantErr: "size must be one of"},
		{name: "inverted price range", query: ProductQuery{MinPrice: &lo, MaxPrice: &hi}, wantErr: "minPrice must not exceed maxPrice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, _, err := svc.ListProducts(ctx, pagination.Params{}, tt.query)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(products))
			for _, p := range products {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogService_Categories(t *testing.T) {
	svc, _ := storefront()

	cats, err := svc.Categories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryCount{
		{Key: "all", Label: "all", Count: 3},
		{Key: "accessories", Label: "accessories", Count: 1},
		{Key: "coats", Label: "coats", Count: 1},
		{Key: "shirts", Label: "shirts", Count: 1},
	}, cats)
}

func TestCatalogService_ProductPicker(t *testing.T) {
	products := new(mockProductRepository)
	svc := NewCatalogService(products, new(mockMediaRepository), testPlaceholder, newTestLogger())
	products.On("ListRefs", mock.Anything, DefaultPickerLimit).Return([]domain.ProductRef{{ID: "p-1", Name: "Tee"}}, nil)
	products.On("ListRefs", mock.Anything, 1000).Return([]domain.ProductRef{}, nil)

	refs, err := svc.ProductPicker(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.ProductRef{{ID: "p-1", Name: "Tee"}}, refs)

	_, err = svc.ProductPicker(context.Background(), 50000)
	require.NoError(t, err)
	products.AssertExpectations(t)
}

// ============================================================================
// UploadService
// ============================================================================

func TestUploadService_Upload(t *testing.T) {
	store := memstorage.New("https://media.test")
	svc := NewUploadService(store, newTestLogger())

	res, err := svc.Upload(context.Background(), &UploadInput{
		FileName:    "look.png",
		ContentType: "image/png",
		Size:        4,
		Data:        bytes.NewReader([]byte("abcd")),
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ExternalID, domain.DefaultUploadFolder+"/"))
	assert.Equal(t, domain.KindImage, res.ResourceType)
	assert.Equal(t, "png", res.Format)
	assert.True(t, store.Has(res.ExternalID))
}

func TestUploadService_Upload_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input UploadInput
		want  string
	}{
		{name: "content type", input: UploadInput{ContentType: "application/pdf", Size: 10}, want: "invalid file type"},
		{name: "empty", input: UploadInput{ContentType: "image/png", Size: 0}, want: "file is empty"},
		{name: "image too large", input: UploadInput{ContentType: "image/jpeg", Size: domain.MaxImageSize + 1}, want: "maximum size is 10MB"},
		{name: "video too large", input: UploadInput{ContentType: "video/mp4", Size: domain.MaxVideoSize + 1}, want: "maximum size is 50MB"},
		{name: "folder", input: UploadInput{ContentType: "image/png", Size: 10, Folder: "../etc"}, want: "folder contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStorage)
			svc := NewUploadService(store, newTestLogger())
			tt.input.Data = strings.NewReader("x")

			_, err := svc.Upload(context.Background(), &tt.input)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
			store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		})
	}
}

func TestUploadService_Upload_RemoteFailure(t *testing.T) {
	store := new(mockStorage)
	store.On("Upload", mock.Anything, mock.MatchedBy(func(in *storage.UploadInput) bool {
		return in.Folder == "lookbook/ss26" && in.Kind == domain.KindVideo
	})).Return(nil, errors.New("quota exceeded"))
	svc := NewUploadService(store, newTestLogger())

	_, err := svc.Upload(context.Background(), &UploadInput{
		Folder:      "/lookbook/ss26/",
		ContentType: "video/mp4",
		Size:        1024,
		Data:        strings.NewReader("x"),
	})

	requireAppError(t, err, http.StatusInternalServerError, "Failed to upload media")
}

// ============================================================================
// AssetCleaner
// ============================================================================

func TestAssetCleaner_RetryCleanup(t *testing.T) {
	store := memstorage.New("")
	store.Put("a", domain.KindImage)
	cleaner := NewAssetCleaner(store, disabledProducer(), newTestLogger())
	ctx := context.Background()

	require.NoError(t, cleaner.RetryCleanup(ctx, event.CleanupRequestedData{ExternalID: "a", Kind: domain.KindImage}))
	assert.False(t, store.Has("a"))

	// Already gone counts as done.
	assert.NoError(t, cleaner.RetryCleanup(ctx, event.CleanupRequestedData{ExternalID: "a", Kind: domain.KindImage}))

	store.Put("b", domain.KindVideo)
	store.FailDestroy("b", errors.New("503"))
	assert.Error(t, cleaner.RetryCleanup(ctx, event.CleanupRequestedData{ExternalID: "b", Kind: domain.KindVideo}))
	assert.True(t, store.Has("b"))
}

func TestAssetCleaner_PurgeDisabledQueueDropsFailures(t *testing.T) {
	store := new(mockStorage)
	store.On("Destroy", mock.Anything, "a", domain.KindImage).Return(false, errors.New("boom"))
	store.On("Destroy", mock.Anything, "b", domain.KindVideo).Return(true, nil)
	cleaner := NewAssetCleaner(store, disabledProducer(), newTestLogger())

	cleaner.Purge(context.Background(), "r-1", []domain.AssetRef{
		{ExternalID: "a", Kind: domain.KindImage},
		{URL: "b", Kind: domain.KindVideo},
	}, ReasonDeleted)

	store.AssertExpectations(t)
}
