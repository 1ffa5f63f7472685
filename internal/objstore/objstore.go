// Package objstore reads media from and writes frames to S3-compatible
// object storage addressed by s3://bucket/key URLs.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/obinnaokechukwu/framegrab/internal/config"
)

// Scheme is the URL scheme handled by this package.
const Scheme = "s3://"

var (
	// ErrNotFound is returned when the bucket or object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrTooLarge is returned by Fetch when an object exceeds the limit.
	ErrTooLarge = errors.New("object too large")
	// ErrNotConfigured is returned when no endpoint is configured.
	ErrNotConfigured = errors.New("object storage is not configured")
)

// IsURL reports whether s is an s3:// URL.
func IsURL(s string) bool { return strings.HasPrefix(s, Scheme) }

// ParseURL splits s3://bucket/key into bucket and key.
func ParseURL(s string) (bucket, key string, err error) {
	if !IsURL(s) {
		return "", "", fmt.Errorf("not an s3 url: %q", s)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(s, Scheme), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs a bucket and key: %q", s)
	}
	return bucket, key, nil
}

// Store is a client for one S3 endpoint.
type Store struct {
	client *miniogo.Client
}

// New connects to the endpoint in cfg. It does not contact the server.
func New(cfg config.S3Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client}, nil
}

// Fetch reads the whole object at url into memory. maxBytes <= 0 means no
// limit.
func (s *Store) Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	bucket, key, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, wrap(url, err)
	}
	defer obj.Close()

	var r io.Reader = obj
	if maxBytes > 0 {
		r = io.LimitReader(obj, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrap(url, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", url, ErrTooLarge, maxBytes)
	}
	return data, nil
}

// Download copies the object at url to a local file.
func (s *Store) Download(ctx context.Context, url, destPath string) error {
	bucket, key, err := ParseURL(url)
	if err != nil {
		return err
	}
	if err := s.client.FGetObject(ctx, bucket, key, destPath, miniogo.GetObjectOptions{}); err != nil {
		return wrap(url, err)
	}
	return nil
}

// Upload writes size bytes from r to url.
func (s *Store) Upload(ctx context.Context, url string, r io.Reader, size int64, contentType string) error {
	bucket, key, err := ParseURL(url)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", url, err)
	}
	return nil
}

func wrap(url string, err error) error {
	resp := miniogo.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	return fmt.Errorf("fetch %s: %w", url, err)
}
