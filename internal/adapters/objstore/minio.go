package objstore

import (
	"bytes"
	"context"
	"errors"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/zerr"
)

// MinioStore implements ports.ArtifactStore on an S3-compatible bucket,
// shared between build hosts.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the configured endpoint.
func NewMinioStore(cfg domain.ArtifactConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, zerr.Wrap(domain.ErrConfiguration, "artifact endpoint set without a bucket")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create object storage client"), "endpoint", cfg.Endpoint)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Exists reports whether the ref's manifest object is present.
func (s *MinioStore) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectKey(ref), minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to stat artifact object"), "ref", ref)
	}
	return true, nil
}

// Publish uploads the manifest object for the ref.
func (s *MinioStore) Publish(ctx context.Context, ref string, manifest []byte) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		objectKey(ref),
		bytes.NewReader(manifest),
		int64(len(manifest)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to upload artifact manifest"), "ref", ref)
	}
	return nil
}

func objectKey(ref string) string {
	return path.Join(ref, manifestName)
}
