package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"evalgo.org/gridmapper/internal/config"
)

// DefaultURLTTL is the lifetime of presigned download URLs.
const DefaultURLTTL = time.Hour

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps artifacts in an S3 bucket.
type S3Store struct {
	client    objectPutter
	presigner objectPresigner
	bucket    string
	prefix    string
	ttl       time.Duration
}

// NewS3 creates an S3Store from the storage configuration. Credentials come
// from the static keys when set, else from the default AWS chain.
func NewS3(ctx context.Context, sc config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(sc.Region),
	}
	if sc.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config: %w", ErrStore, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		}
		o.UsePathStyle = sc.UsePathStyle
	})

	return newS3Store(client, s3.NewPresignClient(client), sc.Bucket, sc.Prefix, sc.URLTTL), nil
}

func newS3Store(client objectPutter, presigner objectPresigner, bucket, prefix string, ttl time.Duration) *S3Store {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		ttl:       ttl,
	}
}

// Backend implements Store.
func (s *S3Store) Backend() string { return config.BackendS3 }

// Put uploads data and returns a presigned GET URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := key
	if s.prefix != "" {
		objectKey = s.prefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put s3://%s/%s: %w", ErrStore, s.bucket, objectKey, err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign s3://%s/%s: %w", ErrStore, s.bucket, objectKey, err)
	}
	return req.URL, nil
}
