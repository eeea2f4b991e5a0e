package publish

import (
	"bytes"
	"context"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
)

// ObjectPutter is the part of the S3 API S3Publisher needs. *s3.Client
// satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 client.
type S3Options struct {
	Region       string
	Endpoint     string // Custom endpoint for S3-compatible stores
	UsePathStyle bool

	// Static keys; when empty the default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client loads the default AWS configuration chain and builds a client.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// S3Publisher uploads payloads to a bucket under an optional key prefix.
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Publisher creates a publisher for bucket. A non-empty prefix is
// joined to every key with a slash.
func NewS3Publisher(client ObjectPutter, bucket, prefix string) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

func (p *S3Publisher) Name() string { return "s3" }

// ObjectKey returns the full object key for key.
func (p *S3Publisher) ObjectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}

// Publish uploads payload and returns its s3:// URI.
func (p *S3Publisher) Publish(ctx context.Context, key string, payload *Payload) (string, error) {
	objectKey := p.ObjectKey(key)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(payload.Body),
		ContentType: aws.String(payload.ContentType()),
		Metadata: map[string]string{
			"digest":       payload.Digest,
			"published-at": strconv.FormatInt(p.now().UnixMilli(), 10),
		},
	}
	if payload.Compressed {
		input.Metadata["encoding"] = "snappy"
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrapf(err, "put s3://%s/%s", p.bucket, objectKey)
	}
	return "s3://" + p.bucket + "/" + objectKey, nil
}
