package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sethvargo/go-retry"

	"github.com/reseauechanges/annuaire/internal/common"
)

// S3Config carries the settings needed to reach an S3-compatible backend
// (MinIO in development, any hosted S3 in production).
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store implements Store over an S3-compatible backend. Transient
// transport failures are retried with exponential backoff before being
// reported as common.ErrStoreUnavailable.
type S3Store struct {
	client *s3.Client
	bucket string
}

const (
	retryBase     = 100 * time.Millisecond
	retryAttempts = 2
)

var _ Store = (*S3Store)(nil)

// NewS3Store builds the S3 client with static credentials and an optional
// base-endpoint override.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo

	err := s.withRetry(ctx, func(ctx context.Context) error {
		out = out[:0]
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				out = append(out, ObjectInfo{Key: key, Locator: key})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing %q: %w", common.ErrStoreUnavailable, prefix, err)
	}
	return out, nil
}

func (s *S3Store) Fetch(ctx context.Context, locator string) ([]byte, error) {
	var data []byte

	err := s.withRetry(ctx, func(ctx context.Context) error {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(locator),
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("%w: fetching %q: %w", common.ErrStoreUnavailable, locator, err)
	}
	return data, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json; charset=utf-8"),
	}
	if opts.Public {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, input)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: putting %q: %w", common.ErrStoreUnavailable, key, err)
	}
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, locator string) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(locator),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %q: %w", common.ErrStoreUnavailable, locator, err)
	}
	return nil
}

// withRetry runs op with bounded exponential backoff. Missing-key errors
// are permanent; everything else is assumed transient.
func (s *S3Store) withRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return err
		}
		return retry.RetryableError(err)
	})
}
