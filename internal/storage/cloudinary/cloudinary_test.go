package cloudinary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
)

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	args := m.Called(ctx, file, params)
	if res := args.Get(0); res != nil {
		return res.(*uploader.UploadResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUploader) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	args := m.Called(ctx, params)
	if res := args.Get(0); res != nil {
		return res.(*uploader.DestroyResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestStorage(api uploaderAPI) *Storage {
	return &Storage{api: api, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, slog.Default())
	assert.Error(t, err)
}

func TestStorage_Upload(t *testing.T) {
	up := new(mockUploader)
	s := newTestStorage(up)
	body := strings.NewReader("mp4")

	up.On("Upload", mock.Anything, body, uploader.UploadParams{
		Folder:       domain.DefaultUploadFolder,
		ResourceType: "video",
	}).Return(&uploader.UploadResult{
		PublicID:     "product-image-manager/abc",
		SecureURL:    "https://res.cloudinary.com/demo/video/upload/abc.mp4",
		Format:       "mp4",
		Bytes:        2048,
		Width:        1080,
		Height:       1920,
		ResourceType: "video",
	}, nil)

	res, err := s.Upload(context.Background(), &storage.UploadInput{
		ContentType: "video/mp4",
		Kind:        domain.KindVideo,
		Data:        body,
	})
	require.NoError(t, err)
	assert.Equal(t, "product-image-manager/abc", res.ExternalID)
	assert.Equal(t, domain.KindVideo, res.ResourceType)
	assert.Equal(t, int64(2048), res.ByteSize)
	up.AssertExpectations(t)
}

func TestStorage_UploadAPIError(t *testing.T) {
	up := new(mockUploader)
	s := newTestStorage(up)
	up.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(&uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}, nil)

	_, err := s.Upload(context.Background(), &storage.UploadInput{Folder: "x", Kind: domain.KindImage, Data: strings.NewReader("")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid image file")
}

func TestStorage_Destroy(t *testing.T) {
	tests := []struct {
		name    string
		result  *uploader.DestroyResult
		err     error
		want    bool
		wantErr bool
	}{
		{name: "ok", result: &uploader.DestroyResult{Result: "ok"}, want: true},
		{name: "not found", result: &uploader.DestroyResult{Result: "not found"}, want: false},
		{name: "api error", result: &uploader.DestroyResult{Error: api.ErrorResp{Message: "bad"}}, wantErr: true},
		{name: "transport error", err: errors.New("dial tcp"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			up := new(mockUploader)
			s := newTestStorage(up)
			up.On("Destroy", mock.Anything, uploader.DestroyParams{PublicID: "pim/a", ResourceType: "image"}).
				Return(tc.result, tc.err)

			ok, err := s.Destroy(context.Background(), "pim/a", domain.KindImage)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestStorage_DestroyEmptyID(t *testing.T) {
	s := newTestStorage(new(mockUploader))
	_, err := s.Destroy(context.Background(), "", domain.KindImage)
	assert.ErrorIs(t, err, storage.ErrEmptyID)
}

func TestStorage_DestroyByURL(t *testing.T) {
	up := new(mockUploader)
	s := newTestStorage(up)
	up.On("Destroy", mock.Anything, uploader.DestroyParams{PublicID: "product-image-manager/clip", ResourceType: "video"}).
		Return(&uploader.DestroyResult{Result: "ok"}, nil)

	ok, err := s.Destroy(context.Background(), "https://res.cloudinary.com/demo/video/upload/v1712/product-image-manager/clip.mp4", domain.KindVideo)
	require.NoError(t, err)
	assert.True(t, ok)
	up.AssertExpectations(t)
}

func TestPublicID(t *testing.T) {
	tests := map[string]string{
		"product-image-manager/abc": "product-image-manager/abc",
		"https://res.cloudinary.com/demo/image/upload/v1712/product-image-manager/abc.jpg":               "product-image-manager/abc",
		"https://res.cloudinary.com/demo/image/upload/c_fill,w_300/v1712/product-image-manager/abc.webp": "product-image-manager/abc",
		"https://res.cloudinary.com/demo/image/upload/sample.png":                                        "sample",
		"https://res.cloudinary.com/demo/image/upload/v3/my%20folder/a%20b.png":                          "my folder/a b",
		"https://cdn.example.com/store/product1.png":                                                     "https://cdn.example.com/store/product1.png",
		"/store/product1.png": "/store/product1.png",
	}
	for in, want := range tests {
		assert.Equal(t, want, publicID(in), in)
	}
}
