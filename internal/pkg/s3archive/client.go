package s3archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
)

var ErrDisabled = errors.New("payment archive is disabled")

// Client stores gateway payment snapshots in an S3 bucket.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates an archive client and checks that the bucket is
// reachable.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers (MinIO, B2) need path-style URLs
			o.UsePathStyle = true
		}
	})

	client := &Client{s3Client: s3Client, bucket: cfg.BucketName}
	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.BucketName, err)
	}

	log.Infof("[S3Archive] Archive bucket ready: %s", cfg.BucketName)
	return client, nil
}

// PutJSON writes body under key unless an object already exists there.
// Snapshots are immutable; a second write of the same payment is a no-op.
func (c *Client) PutJSON(ctx context.Context, key string, body []byte) error {
	exists, err := c.objectExists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		log.Debugf("[S3Archive] s3://%s/%s already archived", c.bucket, key)
		return nil
	}

	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"upload-source": "dropcost-payment-archive",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Infof("[S3Archive] Archived s3://%s/%s (%d bytes)", c.bucket, key, len(body))
	return nil
}

func (c *Client) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}
