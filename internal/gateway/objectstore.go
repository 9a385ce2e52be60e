package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrBucketNotConfigured indicates no bucket name was supplied
var ErrBucketNotConfigured = errors.New("AWS_S3_BUCKET_NAME environment variable is not set")

// ObjectStore stores binary content and hands out time-limited read URLs
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ObjectKey scopes an image under its owner
func ObjectKey(userID, imageID string) string {
	return fmt.Sprintf("users/%s/images/%s", userID, imageID)
}

// S3Config holds what is needed to reach the bucket
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint points at an S3-compatible service; path-style addressing is used when set
	Endpoint string
}

// S3Store is an ObjectStore backed by Amazon S3
type S3Store struct {
	bucket    string
	client    *s3.Client
	presigner *s3.PresignClient
}

// NewS3Store creates an S3 client from cfg, falling back to the default credential chain
// when no static keys are given.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketNotConfigured
	}

	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	slog.Debug("S3 client created", "bucket", cfg.Bucket, "region", awsCfg.Region, "endpoint", cfg.Endpoint)

	return &S3Store{
		bucket:    cfg.Bucket,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

func buildAWSConfig(ctx context.Context, cfg S3Config) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	configOpts = append(configOpts, config.WithRegion(region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Put uploads data under key
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return describeAWSError("put object", key, err)
	}
	return nil
}

// PresignGet returns a GET URL for key valid for ttl
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", describeAWSError("presign get object", key, err)
	}
	return req.URL, nil
}

func describeAWSError(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("failed to %s %s: %s: %w", op, key, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("failed to %s %s: %w", op, key, err)
}

// UnavailableStore is used when the object store could not be configured.
// Every operation fails immediately with the configuration error.
type UnavailableStore struct {
	Err error
}

func (u UnavailableStore) Put(context.Context, string, []byte, string, map[string]string) error {
	return u.Err
}

func (u UnavailableStore) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", u.Err
}
