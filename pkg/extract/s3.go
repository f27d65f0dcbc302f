package extract

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// ObjectGetter is the part of the S3 client the extractor needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewAnonymousS3Client creates an unsigned client for public buckets.
// A non-empty endpoint overrides the regional endpoint and switches to path-style addressing.
func NewAnonymousS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: aws.AnonymousCredentials{},
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// S3Object reads a CSV object from a bucket
type S3Object struct {
	client ObjectGetter
	name   string
	bucket string
	key    string
	logger *zap.Logger
}

// NewS3Object creates an object-backed CSV source
func NewS3Object(client ObjectGetter, name, bucket, key string, logger *zap.Logger) *S3Object {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Object{
		client: client,
		name:   name,
		bucket: bucket,
		key:    key,
		logger: logger.Named("s3").With(zap.String("bucket", bucket), zap.String("key", key)),
	}
}

// Fetch downloads and parses the object
func (o *S3Object) Fetch(ctx context.Context) (*model.Table, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", o.bucket, o.key, err)
	}
	defer out.Body.Close()

	t, err := ReadCSV(o.name, out.Body)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Extracted S3 object",
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns)))
	return t, nil
}
