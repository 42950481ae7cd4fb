package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/config"
	"github.com/mikey/llm-doc-detector/internal/core"
)

// ErrObjectTooLarge is returned when an object exceeds the read limit
var ErrObjectTooLarge = errors.New("object exceeds size limit")

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader downloads attachments stored as objects under a bucket prefix.
// The attachment id is the object key relative to the prefix.
type S3Loader struct {
	client   objectGetter
	bucket   string
	prefix   string
	maxBytes int64
	logger   *zap.Logger
}

// NewS3Loader creates a loader from the default AWS credential chain
func NewS3Loader(ctx context.Context, cfg config.S3Config, maxBytes int64, logger *zap.Logger) (*S3Loader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage.s3.bucket is not configured")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Loader(client, cfg.Bucket, cfg.Prefix, maxBytes, logger), nil
}

func newS3Loader(client objectGetter, bucket, prefix string, maxBytes int64, logger *zap.Logger) *S3Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Loader{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Key returns the object key for an attachment
func (l *S3Loader) Key(attachment core.AttachmentMetadata) string {
	if l.prefix == "" {
		return attachment.ID
	}
	return strings.TrimSuffix(l.prefix, "/") + "/" + strings.TrimPrefix(attachment.ID, "/")
}

// Load fetches the object for attachment
func (l *S3Loader) Load(ctx context.Context, attachment core.AttachmentMetadata) ([]byte, error) {
	key := l.Key(attachment)

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3://%s/%s: %w", l.bucket, key, err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if l.maxBytes > 0 {
		r = io.LimitReader(out.Body, l.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", l.bucket, key, err)
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectTooLarge, l.bucket, key)
	}

	l.logger.Debug("Downloaded attachment",
		zap.String("bucket", l.bucket),
		zap.String("key", key),
		zap.Int("size", len(data)))

	return data, nil
}
