package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"signage-service/pkg/config"
	"signage-service/pkg/logger"
)

var (
	minioResourceOnce sync.Once
	minioSingleton    *MinioResource
)

// MinioResource manages the derivative-mirror bucket client.
type MinioResource struct {
	client     *minio.Client
	bucketName string
}

// DefaultMinioResource returns the global minio resource instance.
func DefaultMinioResource() *MinioResource {
	minioResourceOnce.Do(func() {
		minioSingleton = &MinioResource{}
	})
	return minioSingleton
}

// MustOpen initializes the minio client from global configuration.
func (r *MinioResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before minio resource")
	}

	minioCfg := cfg.Minio
	if minioCfg.Endpoint == "" {
		panic("minio endpoint is required")
	}
	if minioCfg.BucketName == "" {
		panic("minio bucket_name is required")
	}

	client, err := minio.New(minioCfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioCfg.AccessKeyID, minioCfg.SecretAccessKey, ""),
		Secure: minioCfg.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("create minio client: %v", err))
	}

	r.client = client
	r.bucketName = minioCfg.BucketName

	r.ensureBucket()

	logger.Infof("minio resource initialized endpoint=%s bucket=%s", minioCfg.Endpoint, r.bucketName)
}

func (r *MinioResource) ensureBucket() {
	ctx := context.Background()
	exists, err := r.client.BucketExists(ctx, r.bucketName)
	if err != nil {
		panic(fmt.Sprintf("check minio bucket: %v", err))
	}
	if exists {
		return
	}
	if err := r.client.MakeBucket(ctx, r.bucketName, minio.MakeBucketOptions{}); err != nil {
		panic(fmt.Sprintf("create minio bucket: %v", err))
	}
}

// Client returns the minio client, or nil when the mirror is disabled.
func (r *MinioResource) Client() *minio.Client {
	return r.client
}

// BucketName returns the mirror bucket name.
func (r *MinioResource) BucketName() string {
	return r.bucketName
}

// Close is a no-op; minio-go keeps no persistent connections.
func (r *MinioResource) Close() {}
