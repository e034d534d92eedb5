// Package minio archives raw contract documents.  The OCR collaborator hands
// the pipeline plain text; the original is kept in object storage so a
// disputed assessment can always be traced back to the exact text it was
// derived from.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/leaselens/leaselens/internal/config"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/errors"
)

// objectAPI is the slice of the minio client the store uses; kept small so
// tests can fake it.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

// DocumentStore archives raw contract text in a single bucket.
type DocumentStore struct {
	client objectAPI
	bucket string
	logger logging.Logger
}

// NewDocumentStore connects to MinIO and ensures the configured bucket
// exists.
func NewDocumentStore(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create object-storage client")
	}

	s := &DocumentStore{client: client, bucket: cfg.Bucket, logger: logger.Named("documents")}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "object storage unreachable")
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable,
				fmt.Sprintf("failed to create bucket %q", cfg.Bucket))
		}
	}

	logger.Info("document store ready",
		logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket))
	return s, nil
}

// newDocumentStoreWithAPI is the test seam.
func newDocumentStoreWithAPI(api objectAPI, bucket string, logger logging.Logger) *DocumentStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentStore{client: api, bucket: bucket, logger: logger.Named("documents")}
}

// Archive stores rawText and returns the object key.  Keys are date-bucketed
// so lifecycle policies can expire old documents wholesale.
func (s *DocumentStore) Archive(ctx context.Context, rawText string) (string, error) {
	key := fmt.Sprintf("contracts/%s/%s.txt", time.Now().UTC().Format("2006/01/02"), uuid.NewString())

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader([]byte(rawText)), int64(len(rawText)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "document archive failed")
	}

	s.logger.Debug("document archived", logging.String("key", key), logging.Int("bytes", len(rawText)))
	return key, nil
}

// Fetch returns the archived text for key.
func (s *DocumentStore) Fetch(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "document fetch failed")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return "", errors.NotFound("document not found").WithDetail(key)
		}
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "document read failed")
	}
	return string(data), nil
}

// Delete removes the archived document for key.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "document delete failed")
	}
	return nil
}
