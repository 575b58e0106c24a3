package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/event"
	"github.com/riturajsingh8919/anti-romantic/internal/repository"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
	pkgkafka "github.com/riturajsingh8919/anti-romantic/pkg/kafka"
)

// --- Mock Media Repository ---

type mockMediaRepository struct {
	mock.Mock
}

func (m *mockMediaRepository) Create(ctx context.Context, rec *domain.MediaRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockMediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *mockMediaRepository) GetByProductID(ctx context.Context, productID string) (*domain.MediaRecord, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *mockMediaRepository) FindVideoHolder(ctx context.Context) (*domain.MediaRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *mockMediaRepository) List(ctx context.Context, filter repository.MediaFilter) ([]domain.MediaRecord, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.MediaRecord), args.Int(1), args.Error(2)
}

func (m *mockMediaRepository) ListByProductIDs(ctx context.Context, ids []string, activeOnly bool) ([]domain.MediaRecord, error) {
	args := m.Called(ctx, ids, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MediaRecord), args.Error(1)
}

func (m *mockMediaRepository) Update(ctx context.Context, rec *domain.MediaRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockMediaRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockMediaRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetNames(ctx context.Context, ids []string) (map[string]string, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListRefs(ctx context.Context, limit int) ([]domain.ProductRef, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.ProductRef), args.Error(1)
}

func (m *mockProductRepository) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CategoryCount), args.Error(1)
}

// --- Mock Storage ---

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockStorage) Destroy(ctx context.Context, externalID string, kind domain.MediaKind) (bool, error) {
	args := m.Called(ctx, externalID, kind)
	return args.Bool(0), args.Error(1)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, evt *pkgkafka.Event) error {
	args := m.Called(ctx, topic, evt)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func disabledProducer() *event.Producer {
	return event.NewProducer(nil, newTestLogger())
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func image(url, externalID string) *domain.ImageAsset {
	return &domain.ImageAsset{URL: url, ExternalID: externalID}
}

func video(url, externalID string) *domain.VideoAsset {
	return &domain.VideoAsset{URL: url, ExternalID: externalID}
}
