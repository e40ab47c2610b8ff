package storage

import (
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"darkroom/internal/config"
	"darkroom/internal/services"
)

// ObjectStore is the capability the storage stage needs from an object
// store: bucket provisioning, uploads, and time-limited share links.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, objectKey, filePath, contentType string) error
	PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// MinIOStore implements ObjectStore against a MinIO deployment. Uploads go
// through the internal endpoint; presigned links are signed against the
// public URL so recipients outside the deployment can resolve them.
type MinIOStore struct {
	internal *minio.Client
	public   *minio.Client
	bucket   string
}

// NewMinIOStore connects both clients from cfg. The public client shares
// credentials with the internal one but signs for the public host.
func NewMinIOStore(cfg config.MinIO) (*MinIOStore, error) {
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")

	internal, err := minio.New(cfg.Endpoint, &minio.Options{Creds: creds, Secure: cfg.UseSSL})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "storage", "connect", cfg.Endpoint, err)
	}

	publicURL, err := url.Parse(cfg.PublicURL)
	if err != nil || publicURL.Host == "" {
		return nil, services.Wrap(services.ErrTransient, "storage", "connect",
			"invalid public url "+cfg.PublicURL, err)
	}
	public, err := minio.New(publicURL.Host, &minio.Options{
		Creds:  creds,
		Secure: publicURL.Scheme == "https",
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "storage", "connect", cfg.PublicURL, err)
	}

	return &MinIOStore{internal: internal, public: public, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when absent. A concurrent creation by
// another service instance is not an error.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.internal.BucketExists(ctx, s.bucket)
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "ensure bucket", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.internal.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return services.Wrap(services.ErrTransient, "storage", "ensure bucket", s.bucket, err)
	}
	return nil
}

func (s *MinIOStore) Upload(ctx context.Context, objectKey, filePath, contentType string) error {
	_, err := s.internal.FPutObject(ctx, s.bucket, objectKey, filePath,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "upload", objectKey, err)
	}
	return nil
}

func (s *MinIOStore) PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	signed, err := s.public.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "presign", objectKey, err)
	}
	return signed.String(), nil
}
