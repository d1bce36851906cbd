package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"foodtracker/internal/domain"
)

// S3Config configures an S3Store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // empty for AWS
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	// PublicBaseURL prefixes object keys in returned references. Defaults to
	// the endpoint (path style) or the AWS virtual-hosted bucket URL.
	PublicBaseURL string
	UsePathStyle  bool
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads images to a bucket and returns their public URL.
type S3Store struct {
	client  objectAPI
	bucket  string
	prefix  string
	baseURL string
	log     *zap.Logger
}

var _ domain.ImageStore = (*S3Store)(nil)

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) S3Option {
	return func(s *S3Store) { s.log = l.Named("imagestore") }
}

// withClient replaces the S3 client; used by tests.
func withClient(c objectAPI) S3Option {
	return func(s *S3Store) { s.client = c }
}

// NewS3Store builds an S3 client with static credentials.
func NewS3Store(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("imagestore: bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("imagestore: access key and secret key are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	s := &S3Store{
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: publicBaseURL(cfg),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client != nil {
		return s, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("imagestore: aws config: %w", err)
	}
	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return s, nil
}

func publicBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Save uploads r under <prefix>/<sanitised filename> and returns its URL.
func (s *S3Store) Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", ErrInvalidFilename
	}
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		s.log.Error("put object failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("imagestore: put %s: %w", key, err)
	}

	s.log.Debug("image stored", zap.String("bucket", s.bucket), zap.String("key", key))
	return s.baseURL + "/" + key, nil
}

// Delete removes the object behind a URL returned by Save.
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("imagestore: %q is not an object in bucket %s", ref, s.bucket)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("imagestore: delete %s: %w", key, err)
	}
	s.log.Debug("image removed", zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}
