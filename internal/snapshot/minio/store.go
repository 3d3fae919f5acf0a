// Package minio provides a MinIO implementation of snapshot.Store.
//
// Usage:
//
//	store, err := minio.New(ctx, minio.DefaultConfig("localhost:9000", "minioadmin", "minioadmin"))
//	if err != nil { ... }
//	defer store.Close()
//
//	key, err := snapshot.Export(ctx, sess, store, "sqldeck-snapshots")
package minio

import (
	"bytes"
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sqldeck/sqldeck/internal/errs"
)

// Config holds all settings needed to reach the object storage backend.
type Config struct {
	// Endpoint is the host:port of the storage server,
	// e.g. "localhost:9000" for local MinIO.
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// Store is a MinIO implementation of snapshot.Store.
type Store struct {
	client *miniogo.Client
}

// New connects to MinIO using cfg and verifies reachability with Ping.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	s := &Store{client: client}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Ping verifies the MinIO server is reachable by listing buckets.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Put writes data under key inside bucket, creating the bucket if needed.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return mapError(err, "failed to check bucket")
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
			return mapError(err, "failed to create bucket")
		}
	}

	_, err = s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: "application/yaml"})
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

// Get reads the object at key inside bucket.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, "failed to read object")
	}
	return data, nil
}

// Close is a no-op for MinIO — the SDK client holds no persistent
// connections.
func (s *Store) Close() error {
	return nil
}
