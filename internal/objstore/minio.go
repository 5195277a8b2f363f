// Package objstore wraps MinIO for file attachments, avatars and sticker
// assets. Blobs never pass through the API on download; clients get
// pre-signed GET URLs instead.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Presigner is the slice the HTTP layer needs for turning object references
// into URLs.
type Presigner interface {
	PresignGet(ctx context.Context, bucket, key, fileName string) (string, error)
}

type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	ttl       time.Duration
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicURL, when set, replaces the scheme://host of pre-signed URLs so
	// they work from outside the compose network.
	PublicURL string
	UseSSL    bool
	TTL       time.Duration
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, o Options) (*Client, error) {
	mc, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, o.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket check: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, o.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
		log.Info().Str("bucket", o.Bucket).Msg("created object storage bucket")
	}

	ttl := o.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{mc: mc, bucket: o.Bucket, publicURL: strings.TrimRight(o.PublicURL, "/"), ttl: ttl}, nil
}

// Bucket is the default bucket new uploads land in.
func (c *Client) Bucket() string { return c.bucket }

// Upload streams an object into the default bucket.
func (c *Client) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL. fileName, when non-empty,
// sets the browser's save-as name via content-disposition.
func (c *Client) PresignGet(ctx context.Context, bucket, key, fileName string) (string, error) {
	params := make(url.Values)
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}
	u, err := c.mc.PresignedGetObject(ctx, bucket, key, c.ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	if c.publicURL != "" {
		pub, perr := url.Parse(c.publicURL)
		if perr == nil {
			u.Scheme = pub.Scheme
			u.Host = pub.Host
		}
	}
	return u.String(), nil
}
