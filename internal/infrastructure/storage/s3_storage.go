// Package storage answers document presence and verification questions
// against the object store that holds applicant uploads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	infraconfig "github.com/afrinict/nbcportal-sub001/internal/infrastructure/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRegion = "us-east-1"
	// VerifiedTag is the object tag the document review service sets once a document is accepted
	VerifiedTag = "verified"
)

// Ensure S3DocumentStore implements DocumentStore
var _ licensing.DocumentStore = (*S3DocumentStore)(nil)

// S3DocumentStore implements licensing.DocumentStore over any S3-compatible
// bucket (AWS S3, MinIO, localstack). An object at
// <prefix><application id>/<document type> means the document is present;
// the tag verified=true on that object means it is verified.
type S3DocumentStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    *zap.Logger
	s3Options []func(*s3.Options)
}

// S3DocumentStoreOption is a functional option for configuring S3DocumentStore
type S3DocumentStoreOption func(*S3DocumentStore)

// WithLogger sets a custom logger for S3DocumentStore
func WithLogger(logger *zap.Logger) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.logger = logger
	}
}

// WithS3Options applies extra client options, such as a retry limit
func WithS3Options(fns ...func(*s3.Options)) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.s3Options = append(s.s3Options, fns...)
	}
}

// NewS3DocumentStore creates a store from configuration. Static credentials are
// used when both keys are set, otherwise the default AWS credential chain applies.
func NewS3DocumentStore(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3DocumentStoreOption) (*S3DocumentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key id and secret access key must be set together")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	store := &S3DocumentStore{
		bucket:    cfg.Bucket,
		keyPrefix: normalizePrefix(cfg.KeyPrefix),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	clientOpts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}}, store.s3Options...)
	store.client = s3.NewFromConfig(awsCfg, clientOpts...)

	return store, nil
}

// ObjectKey returns the object key of a document
func (s *S3DocumentStore) ObjectKey(applicationID uuid.UUID, documentType string) string {
	return s.keyPrefix + applicationID.String() + "/" + documentType
}

// IsVerified reports whether the document exists and carries verified=true.
// A missing object is (false, nil); any other failure is returned.
func (s *S3DocumentStore) IsVerified(ctx context.Context, applicationID uuid.UUID, documentType string) (bool, error) {
	key := s.ObjectKey(applicationID, documentType)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		s.logger.Warn("Document lookup failed",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return false, fmt.Errorf("failed to head document %s: %w", key, err)
	}

	tagging, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			// deleted between the two calls
			return false, nil
		}
		return false, fmt.Errorf("failed to read tags of document %s: %w", key, err)
	}

	for _, tag := range tagging.TagSet {
		if aws.ToString(tag.Key) == VerifiedTag {
			return strings.EqualFold(aws.ToString(tag.Value), "true"), nil
		}
	}
	return false, nil
}

// Ping checks that the bucket is reachable with the configured credentials
func (s *S3DocumentStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("document bucket %s unreachable: %w", s.bucket, err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3DocumentStore) Bucket() string {
	return s.bucket
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	// HEAD responses carry no error body, so some S3-compatible services only give us the status
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
