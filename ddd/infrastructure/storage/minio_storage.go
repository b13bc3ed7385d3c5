package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"signage-service/ddd/domain/port"
	"signage-service/pkg/logger"
)

// MinioStorage mirrors derivative files into an object bucket after a
// publish so other edges can pull them without touching this box.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage returns a gateway over the shared client; a nil client
// disables mirroring.
func NewMinioStorage(client *minio.Client, bucket string) *MinioStorage {
	return &MinioStorage{client: client, bucket: bucket}
}

func (s *MinioStorage) UploadObjects(ctx context.Context, objects []port.UploadObject) error {
	if s == nil || s.client == nil {
		return nil
	}
	for _, obj := range objects {
		_, err := s.client.FPutObject(ctx, s.bucket, obj.ObjectKey, obj.LocalPath, minio.PutObjectOptions{
			ContentType: obj.ContentType,
		})
		if err != nil {
			return fmt.Errorf("mirror %s: %w", obj.ObjectKey, err)
		}
		logger.Debugf("mirrored object key=%s", obj.ObjectKey)
	}
	return nil
}
