// Package storage uploads verification documents and delivery photos to
// S3 compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3BlobStore handles object uploads for every bucket the app writes to.
type S3BlobStore struct {
	client  *s3.Client
	region  string
	baseURL string
}

// LoadAWSConfig builds the shared AWS config. Static credentials are only
// used when both halves are configured, which is what MinIO and friends need.
func LoadAWSConfig(ctx context.Context, config *types.Config) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(config.S3Region),
	}

	if config.S3AccessKey != "" && config.S3SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.S3AccessKey, config.S3SecretKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return cfg, nil
}

func NewS3BlobStore(awsConfig aws.Config, config *types.Config) *S3BlobStore {
	clientOpts := []func(*s3.Options){}
	if config.S3Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.S3Endpoint)
			o.UsePathStyle = true
		})
	}

	baseURL := strings.TrimRight(config.S3PublicURL, "/")
	if baseURL == "" && config.S3Endpoint != "" {
		baseURL = strings.TrimRight(config.S3Endpoint, "/")
	}

	return &S3BlobStore{
		client:  s3.NewFromConfig(awsConfig, clientOpts...),
		region:  config.S3Region,
		baseURL: baseURL,
	}
}

// Upload stores the object and returns its public URL.
func (b *S3BlobStore) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}

	return b.URL(bucket, key), nil
}

func (b *S3BlobStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return utils.ErrorWrapOrNil(err, fmt.Sprintf("failed to delete %s/%s", bucket, key))
}

// URL is path style when a public base URL or custom endpoint is set and
// virtual hosted AWS style otherwise.
func (b *S3BlobStore) URL(bucket, key string) string {
	return objectURL(b.baseURL, b.region, bucket, key)
}

func objectURL(baseURL, region, bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	if baseURL != "" {
		return fmt.Sprintf("%s/%s/%s", baseURL, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
