package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects to one bucket.
type S3Store struct {
	client  S3API
	bucket  string
	baseURL string
}

type S3Option func(*S3Store)

// WithPublicBaseURL serves objects from baseURL instead of the bucket's
// virtual-hosted address, e.g. a CDN or a LocalStack endpoint.
func WithPublicBaseURL(baseURL string) S3Option {
	return func(s *S3Store) {
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func NewS3Store(client S3API, bucket string, opts ...S3Option) *S3Store {
	s := &S3Store{
		client:  client,
		bucket:  bucket,
		baseURL: fmt.Sprintf("https://%s.s3.amazonaws.com", bucket),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}

	url := s.URL(key)
	slog.Info("Uploaded object", "bucket", s.bucket, "key", key, "url", url)
	return url, nil
}

// URL returns the public address of key.
func (s *S3Store) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
