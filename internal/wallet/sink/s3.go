package sink

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
	"github.com/dmitrijs2005/cardvault/internal/common"
)

// S3Config addresses a bucket on AWS or on an S3-compatible server such as
// MinIO. Endpoint may be empty for AWS itself.
type S3Config struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	// Prefix is prepended to every object key, e.g. "backups/".
	Prefix string `json:"prefix" yaml:"prefix"`
}

// objectAPI is the part of *s3.Client the sink uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Replaced in tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Sink keeps blobs as objects under Prefix in Bucket.
type S3Sink struct {
	client objectAPI
	bucket string
	prefix string
	opts   options
}

func NewS3Sink(ctx context.Context, c S3Config, opts ...Option) (*S3Sink, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3 sink: bucket is required")
	}

	awsOpts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		awsOpts = append(awsOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, awsOpts...)
	if err != nil {
		return nil, err
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			// MinIO and most self-hosted servers do not do virtual-host buckets.
			o.UsePathStyle = true
		}
	})

	return &S3Sink{client: client, bucket: c.Bucket, prefix: c.Prefix, opts: buildOptions(opts)}, nil
}

func (s *S3Sink) key(name string) string {
	return s.prefix + name
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.key(name), err)
	}
	return nil
}

func (s *S3Sink) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("backup %s: %w", name, common.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", s.key(name), err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > s.opts.maxSize {
		return nil, tooLarge(name, s.opts.maxSize)
	}
	return readLimited(out.Body, s.opts.maxSize, name)
}
