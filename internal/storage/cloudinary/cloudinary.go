package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
)

// resultOK is the destroy result Cloudinary reports on success.
const resultOK = "ok"

// Config holds Cloudinary account credentials.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
}

// uploaderAPI is the subset of the Cloudinary upload API the adapter uses.
type uploaderAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Storage implements storage.Storage on Cloudinary.
type Storage struct {
	api    uploaderAPI
	logger *slog.Logger
}

// New creates a Cloudinary-backed storage.
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary: cloud name, api key and api secret are required")
	}
	client, err := cld.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	logger.Info("cloudinary storage initialized", slog.String("cloud_name", cfg.CloudName))
	return &Storage{api: &client.Upload, logger: logger}, nil
}

// Upload sends the file to Cloudinary under input.Folder.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	folder := input.Folder
	if folder == "" {
		folder = domain.DefaultUploadFolder
	}

	resp, err := s.api.Upload(ctx, input.Data, uploader.UploadParams{
		Folder:       folder,
		ResourceType: string(input.Kind),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}

	kind := domain.MediaKind(resp.ResourceType)
	if kind != domain.KindVideo {
		kind = domain.KindImage
	}
	return &storage.UploadResult{
		ExternalID:   resp.PublicID,
		URL:          resp.SecureURL,
		Format:       resp.Format,
		ByteSize:     int64(resp.Bytes),
		Width:        resp.Width,
		Height:       resp.Height,
		ResourceType: kind,
	}, nil
}

// Destroy deletes the asset with the given public id and resource type.
// A Cloudinary delivery URL is accepted in place of the public id.
func (s *Storage) Destroy(ctx context.Context, externalID string, kind domain.MediaKind) (bool, error) {
	externalID = publicID(externalID)
	if externalID == "" {
		return false, storage.ErrEmptyID
	}

	resp, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     externalID,
		ResourceType: string(kind),
	})
	if err != nil {
		return false, fmt.Errorf("cloudinary destroy %s: %w", externalID, err)
	}
	if resp.Error.Message != "" {
		return false, fmt.Errorf("cloudinary destroy %s: %s", externalID, resp.Error.Message)
	}

	if resp.Result != resultOK {
		s.logger.DebugContext(ctx, "cloudinary destroy reported no deletion",
			slog.String("external_id", externalID),
			slog.String("resource_type", string(kind)),
			slog.String("result", resp.Result),
		)
		return false, nil
	}
	return true, nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// publicID extracts the public id from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/c_fill,w_300/v1712/folder/name.jpg
// (public id "folder/name"). Anything that is not such a URL is returned
// unchanged.
func publicID(idOrURL string) string {
	u, err := url.Parse(idOrURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return idOrURL
	}
	_, rest, ok := strings.Cut(u.Path, "/upload/")
	if !ok {
		return idOrURL
	}

	segments := strings.Split(rest, "/")
	for i, seg := range segments {
		if versionSegment.MatchString(seg) {
			segments = segments[i+1:]
			break
		}
	}
	id := strings.Join(segments, "/")
	if ext := path.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}
	return id
}
