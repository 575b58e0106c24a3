package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
)

// Config holds S3-compatible storage configuration.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // e.g. a MinIO or R2 endpoint
	AccessKeyID     string
	SecretAccessKey string
	CDNURL          string
	ForcePathStyle  bool
}

// objectAPI is the subset of *s3.Client the adapter uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage implements storage.Storage on an S3-compatible bucket. Images and
// videos share one key space, so the kind passed to Destroy is ignored.
type Storage struct {
	client objectAPI
	bucket string
	cdnURL string
	logger *slog.Logger
}

// New creates an S3-backed storage. Static credentials are used when given,
// otherwise the default AWS credential chain.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	logger.Info("s3 storage initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("endpoint", cfg.Endpoint),
	)
	return newStorage(client, cfg, logger), nil
}

func newStorage(client objectAPI, cfg Config, logger *slog.Logger) *Storage {
	cdn := strings.TrimRight(cfg.CDNURL, "/")
	if cdn == "" {
		cdn = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &Storage{client: client, bucket: cfg.Bucket, cdnURL: cdn, logger: logger}
}

// Upload writes the file under folder/<uuid><ext>.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	folder := input.Folder
	if folder == "" {
		folder = domain.DefaultUploadFolder
	}
	ext := path.Ext(input.FileName)
	key := path.Join(folder, uuid.NewString()+ext)

	put := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        input.Data,
		ContentType: aws.String(input.ContentType),
	}
	if input.Size > 0 {
		put.ContentLength = aws.Int64(input.Size)
	}
	if _, err := s.client.PutObject(ctx, put); err != nil {
		return nil, fmt.Errorf("s3 upload %s: %w", key, err)
	}

	return &storage.UploadResult{
		ExternalID:   key,
		URL:          s.objectURL(key),
		Format:       strings.TrimPrefix(ext, "."),
		ByteSize:     input.Size,
		ResourceType: input.Kind,
	}, nil
}

// Destroy deletes the object under externalID, which may also be a URL
// under the CDN base. A missing object reports false.
func (s *Storage) Destroy(ctx context.Context, externalID string, _ domain.MediaKind) (bool, error) {
	externalID = s.objectKey(externalID)
	if externalID == "" {
		return false, storage.ErrEmptyID
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(externalID),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %s: %w", externalID, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(externalID),
	}); err != nil {
		return false, fmt.Errorf("s3 delete %s: %w", externalID, err)
	}
	return true, nil
}

func (s *Storage) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.cdnURL + "/" + strings.Join(segments, "/")
}

// objectKey maps a URL produced by objectURL back to its key.
func (s *Storage) objectKey(idOrURL string) string {
	rest, ok := strings.CutPrefix(idOrURL, s.cdnURL+"/")
	if !ok {
		return idOrURL
	}
	if key, err := url.PathUnescape(rest); err == nil {
		return key
	}
	return rest
}
