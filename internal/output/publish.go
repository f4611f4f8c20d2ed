package output

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ppiankov/copomatas/internal/model"
)

// ObjectPutter is the subset of the S3 client used for publishing
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads written partition files to an S3 bucket
type Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewPublisher creates a Publisher using client
func NewPublisher(client ObjectPutter, bucket, prefix string) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewS3Publisher builds an S3-backed Publisher from the default AWS credential
// chain. A non-empty endpoint targets an S3-compatible store.
func NewS3Publisher(ctx context.Context, cfg model.S3Config) (*Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewPublisher(client, cfg.Bucket, cfg.Prefix), nil
}

// Publish uploads each file under the configured prefix and returns the
// resulting s3:// URIs in input order.
func (p *Publisher) Publish(ctx context.Context, files []string) ([]string, error) {
	uris := make([]string, 0, len(files))
	for _, file := range files {
		uri, err := p.upload(ctx, file)
		if err != nil {
			return uris, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func (p *Publisher) upload(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", &model.IOError{Op: "open", Path: file, Err: err}
	}
	defer func() { _ = f.Close() }()

	key := path.Join(p.prefix, filepath.Base(file))
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", file, err)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
