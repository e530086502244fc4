package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"telecrm/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads recordings to an S3-compatible bucket (AWS, R2, MinIO).
type S3Store struct {
	client    objectPutter
	bucket    string
	publicURL string
}

// New returns an S3Store, or Unconfigured when cfg lacks credentials.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	if !cfg.Enabled() {
		return Unconfigured{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg.Bucket, cfg.PublicURL), nil
}

func newS3Store(client objectPutter, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (s *S3Store) Configured() bool { return s != nil && s.client != nil }

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.publicURL, key), nil
}
