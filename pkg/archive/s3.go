package archive

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Config configures the S3 archiver.
//
// Authentication follows the AWS SDK v2 default chain unless explicit
// credentials are provided. For S3-compatible stores (MinIO, Wasabi, Spaces)
// set Endpoint and typically ForcePathStyle.
type Config struct {
	// Bucket is the target bucket name (required).
	Bucket string

	// Prefix is prepended to every artifact key. Optional.
	Prefix string

	// Region is the AWS region. Leave empty to let the SDK resolve it.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string

	// Profile is the AWS profile name from shared config. Optional.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must
	// also be set; takes precedence over the default credential chain.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key.
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (required for most
	// S3-compatible stores).
	ForcePathStyle bool
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("archive bucket is required")
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return errors.New("both access key id and secret access key must be provided together")
	}
	return nil
}

// S3Archiver implements Archiver against AWS S3 and S3-compatible storage.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Archiver = (*S3Archiver)(nil)

// NewS3 creates an S3 archiver with the given configuration.
func NewS3(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &ArchiveError{Op: "New", Bucket: cfg.Bucket, Err: err}
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &S3Archiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Put uploads an artifact under the configured prefix.
func (a *S3Archiver) Put(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	fullKey := key
	if a.prefix != "" {
		fullKey = path.Join(a.prefix, key)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(fullKey),
		Body:          body,
		ContentLength: &contentLength,
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return a.wrapError("Put", fullKey, err)
	}
	return nil
}

// wrapError normalizes S3 errors to archive sentinels.
func (a *S3Archiver) wrapError(op, key string, err error) error {
	wrapped := &ArchiveError{Op: op, Bucket: a.bucket, Key: key, Err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			wrapped.Err = ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = ErrInvalidCredentials
		case "ServiceUnavailable", "SlowDown", "InternalError":
			wrapped.Err = ErrUnavailable
		}
	}

	return wrapped
}
