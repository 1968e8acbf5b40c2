// Package minio stores program files in a MinIO (or other S3-compatible)
// bucket through minio-go.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sakif/livt/internal/blob"
)

// minioAPI is the subset of *minio.Client the store uses. Tests replace it
// with a fake so no server is needed.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

var (
	_ minioAPI   = (*minio.Client)(nil)
	_ blob.Store = (*Store)(nil)
)

// Options configures the connection.
type Options struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLExpiry time.Duration
}

type Store struct {
	api    minioAPI
	bucket string
	expiry time.Duration
}

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: creating client: %w", err)
	}
	return NewWithAPI(ctx, client, opts.Bucket, opts.URLExpiry)
}

// NewWithAPI builds a Store on top of any minioAPI implementation.
func NewWithAPI(ctx context.Context, api minioAPI, bucket string, expiry time.Duration) (*Store, error) {
	s := &Store{api: api, bucket: bucket, expiry: expiry}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("minio: ensuring bucket %s: %w", bucket, err)
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.api.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("minio: uploading %s: %w", key, err)
	}
	return nil
}

// URL returns a presigned GET link valid for the configured expiry.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("minio: presigning %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("minio: deleting %s: %w", key, blob.ErrNotFound)
		}
		return fmt.Errorf("minio: deleting %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	var objects []blob.Object
	for info := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("minio: listing %s: %w", prefix, info.Err)
		}
		objects = append(objects, blob.Object{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	return objects, nil
}
