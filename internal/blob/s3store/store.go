// Package s3store stores program files in AWS S3 or an S3-compatible
// service (Cloudflare R2, MinIO) through aws-sdk-go-v2.
package s3store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sakif/livt/internal/blob"
)

// objectAPI is the subset of *s3.Client the store calls.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// presignAPI is the subset of *s3.PresignClient the store calls.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ objectAPI  = (*s3.Client)(nil)
	_ presignAPI = (*s3.PresignClient)(nil)
	_ blob.Store = (*Store)(nil)
)

// Options configures the client. Endpoint is optional; when set, requests
// go to that base URL with path-style addressing (R2, MinIO).
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	URLExpiry time.Duration
}

type Store struct {
	api     objectAPI
	presign presignAPI
	bucket  string
	expiry  time.Duration
}

// New loads the AWS config with static credentials and builds the clients.
func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3store: loading aws config: %w", err)
	}

	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithAPI(client, s3.NewPresignClient(client), opts.Bucket, opts.URLExpiry), nil
}

// NewWithAPI builds a Store from already constructed clients.
func NewWithAPI(api objectAPI, presign presignAPI, bucket string, expiry time.Duration) *Store {
	return &Store{api: api, presign: presign, bucket: bucket, expiry: expiry}
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3store: uploading %s: %w", key, err)
	}
	return nil
}

// URL returns a presigned GET link valid for the configured expiry.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("s3store: presigning %s: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes key. S3 reports success for keys that do not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3store: deleting %s: %w", key, err)
	}
	return nil
}

// List pages through ListObjectsV2 until every key under prefix is read.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []blob.Object
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3store: listing %s: %w", prefix, err)
		}
		for _, o := range page.Contents {
			objects = append(objects, blob.Object{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}
	return objects, nil
}
