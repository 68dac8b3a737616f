// Package storage keeps scanned cheque pictures in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	chequeapp "github.com/erp/cheques/internal/application/cheque"
	"github.com/erp/cheques/internal/infrastructure/config"
	"go.uber.org/zap"
)

var errEmptyKey = errors.New("storage key is required")

// S3ChequeImageStore stores cheque pictures in any S3-compatible bucket
type S3ChequeImageStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
	logger        *zap.Logger
}

// Option configures an S3ChequeImageStore
type Option func(*S3ChequeImageStore)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3ChequeImageStore) {
		s.logger = logger
	}
}

// NewS3ChequeImageStore builds a store from configuration
func NewS3ChequeImageStore(ctx context.Context, cfg config.StorageConfig, opts ...Option) (*S3ChequeImageStore, error) {
	switch {
	case cfg.Bucket == "":
		return nil, errors.New("storage bucket is required")
	case cfg.AccessKeyID == "":
		return nil, errors.New("storage access key is required")
	case cfg.SecretAccessKey == "":
		return nil, errors.New("storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint *string
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
		endpoint = aws.String(cfg.Endpoint)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})

	s := &S3ChequeImageStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presignExpiry <= 0 {
		s.presignExpiry = 15 * time.Minute
	}
	return s, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *S3ChequeImageStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating cheque picture bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads a picture under key and returns the reference stored on the row
func (s *S3ChequeImageStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload cheque picture: %w", err)
	}
	s.logger.Debug("Cheque picture stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return "s3://" + s.bucket + "/" + key, nil
}

// DownloadURL presigns a GET for a reference returned by Put
func (s *S3ChequeImageStore) DownloadURL(ctx context.Context, ref string) (string, time.Time, error) {
	key := s.keyOf(ref)
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign cheque picture: %w", err)
	}
	return req.URL, time.Now().Add(s.presignExpiry), nil
}

// Delete removes a stored picture
func (s *S3ChequeImageStore) Delete(ctx context.Context, ref string) error {
	key := s.keyOf(ref)
	if key == "" {
		return errEmptyKey
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete cheque picture: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3ChequeImageStore) Bucket() string {
	return s.bucket
}

func (s *S3ChequeImageStore) keyOf(ref string) string {
	return strings.TrimPrefix(ref, "s3://"+s.bucket+"/")
}

var _ chequeapp.PictureStore = (*S3ChequeImageStore)(nil)
