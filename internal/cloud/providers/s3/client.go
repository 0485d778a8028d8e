// Package s3 implements storage.Backend on any S3-compatible service:
// AWS S3, the Supabase Storage S3 endpoint, Cloudflare R2 or MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// maxDeleteBatch is the DeleteObjects limit per request.
const maxDeleteBatch = 1000

// Config configures a Client.
type Config struct {
	Bucket string
	Region string

	// Endpoint is the S3-compatible endpoint. Empty means AWS.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL replaces the computed public URL prefix.
	PublicBaseURL string

	HTTPClient *nethttp.Client
	MaxRetries int
	Logger     *logging.Logger
}

// Client wraps the AWS S3 client for one bucket.
type Client struct {
	client     *s3.Client
	bucket     string
	publicBase string
	logger     *logging.Logger
}

// New loads the AWS configuration with static credentials and the shared
// HTTP client, and returns a Client. No request is made.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = constants.DefaultBucket
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("s3 access key id and secret are required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
		config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRetryMaxAttempts(cfg.MaxRetries+1),
		// S3-compatible services reject the default trailing checksums.
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: publicBase(cfg, endpoint),
		logger:     logging.OrNop(cfg.Logger),
	}, nil
}

func publicBase(cfg Config, endpoint string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if endpoint != "" {
		return endpoint + "/" + url.PathEscape(cfg.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Name implements storage.Backend.
func (c *Client) Name() string {
	return "s3:" + c.bucket
}

// List implements storage.Backend. Keys ending in "/" are folder markers
// and come back as placeholders.
func (c *Client) List(ctx context.Context) ([]storage.Object, error) {
	var out []storage.Object
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", c.bucket, mapError(err))
		}
		for _, obj := range page.Contents {
			out = append(out, objectFromS3(obj))
		}
	}
	return out, nil
}

func objectFromS3(obj types.Object) storage.Object {
	key := aws.ToString(obj.Key)
	o := storage.Object{Key: key, Size: aws.ToInt64(obj.Size)}
	if obj.LastModified != nil {
		o.UpdatedAt = obj.LastModified.UTC().Format(time.RFC3339)
	}
	if !strings.HasSuffix(key, "/") {
		o.ID = strings.Trim(aws.ToString(obj.ETag), `"`)
		if o.ID == "" {
			o.ID = key
		}
	}
	return o
}

// Upload implements storage.Backend with a conditional put, so an
// existing key fails with PreconditionFailed instead of being replaced.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return c.put(ctx, key, data, contentType, true)
}

// Update implements storage.Backend.
func (c *Client) Update(ctx context.Context, key string, data []byte, contentType string) error {
	return c.put(ctx, key, data, contentType, false)
}

func (c *Client) put(ctx context.Context, key string, data []byte, contentType string, create bool) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = storage.ContentTypeFor(key)
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if create {
		input.IfNoneMatch = aws.String("*")
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, mapError(err))
	}
	return nil
}

// Download implements storage.Backend.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, mapError(err))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Remove implements storage.Backend.
func (c *Client) Remove(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to remove %d object(s): %w", len(ids), mapError(err))
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("failed to remove %s: %s %s (%d error(s))",
				aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message), len(out.Errors))
		}
	}
	return nil
}

// PublicURL implements storage.Backend.
func (c *Client) PublicURL(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	segs := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.publicBase + "/" + strings.Join(segs, "/"), nil
}

// Ping checks that the bucket is reachable with the configured keys.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("failed to reach bucket %s: %w", c.bucket, mapError(err))
	}
	return nil
}

// mapError translates SDK errors into storage sentinels where one applies.
func mapError(err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%w: %v", storage.ErrAlreadyExists, err)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
		}
	}
	return err
}

// Compile-time interface verification
var (
	_ storage.Backend = (*Client)(nil)
	_ storage.Pinger  = (*Client)(nil)
)
