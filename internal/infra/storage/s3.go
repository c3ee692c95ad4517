// Package storage uploads product images to the S3-compatible endpoint of
// Supabase Storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("storage")

// Config describes the bucket and how to reach it.
type Config struct {
	Endpoint  string // e.g. https://<project>.supabase.co/storage/v1/s3
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBaseURL prefixes object keys in returned URLs,
	// e.g. https://<project>.supabase.co/storage/v1/object/public/product-images
	PublicBaseURL string
	Timeout       time.Duration // per request; zero keeps the SDK default
}

// S3ImageStore implements port.ImageStore.
type S3ImageStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewS3ImageStore creates an image store with static credentials and
// path-style addressing.
func NewS3ImageStore(ctx context.Context, cfg Config, logger *zap.Logger) (*S3ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	// The SDK needs its buildable client to apply AWS_CA_BUNDLE.
	httpClient := awshttp.NewBuildableClient()
	if cfg.Timeout > 0 {
		httpClient = httpClient.WithTimeout(cfg.Timeout)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithHTTPClient(httpClient),
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})

	return &S3ImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		logger:    logger,
	}, nil
}

// PutImage uploads body under key and returns its public URL.
func (s *S3ImageStore) PutImage(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	ctx, span := tracer.Start(ctx, "S3ImageStore.PutImage")
	defer span.End()
	span.SetAttributes(attribute.String("object.key", key), attribute.Int64("object.size", size))

	// A seekable body lets the SDK sign the payload over plain HTTP as well.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		s.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return "", &domain.ErrExternalService{Service: "storage", Err: err}
	}

	s.logger.Debug("image uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return s.publicURL + "/" + key, nil
}
