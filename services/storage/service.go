package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/orderstack/orderstack/config"
	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/interfaces"
	"github.com/orderstack/orderstack/services/storage/aws_client"
)

// ObjectStorageService keeps finished archives in an S3-compatible
// bucket so downloads survive instance restarts.
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
	cdnDomain  string
}

// NewR2ArchiveStorage builds a storage service backed by Cloudflare R2.
func NewR2ArchiveStorage(cfg config.R2StorageConfig) interfaces.StorageService {
	client := aws_client.NewS3Client(&aws.Config{
		Endpoint:         aws.String("https://" + cfg.AccountID + ".r2.cloudflarestorage.com"),
		Region:           aws.String("auto"),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	})

	return &ObjectStorageService{
		client:     client,
		bucketName: cfg.ArchiveBucket,
		cdnDomain:  cfg.CDNDomain,
	}
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.client.Upload(ctx, s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
}

func (s *ObjectStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.client.Download(ctx, s.bucketName, key)
}

func (s *ObjectStorageService) Delete(ctx context.Context, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.client.Delete(ctx, s.bucketName, key)
}

// GetPublicURL returns the CDN URL for an archive, or empty when no
// CDN domain is configured and callers should fall back to the local
// downloads route.
func (s *ObjectStorageService) GetPublicURL(key string) string {
	if s.cdnDomain != "" {
		return "https://" + s.cdnDomain + "/" + key
	}
	return ""
}
